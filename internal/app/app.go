package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"docutrain/admin/features/attachment"
	"docutrain/admin/features/document"
	"docutrain/admin/features/owner"
	"docutrain/admin/features/quiz"
	"docutrain/admin/features/stats"
	"docutrain/admin/features/user"
	"docutrain/admin/internal/adapter/gemini"
	"docutrain/admin/internal/audit"
	"docutrain/admin/internal/config"
	"docutrain/admin/internal/middleware"
	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/settings"
	"docutrain/admin/internal/worker"
)

// Database is satisfied by *sql.DB. The interface keeps the constructor
// signature mockable with sqlmock.
type Database interface {
	PingContext(ctx context.Context) error
}

// VectorStore is the read side of the chunk index.
type VectorStore interface {
	EnsureSchema(ctx context.Context) error
	GetChunks(ctx context.Context, documentID string, limit int) ([]worker.Chunk, error)
	CountChunks(ctx context.Context) (int, error)
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// SessionStore backs both login/logout and the auth middleware.
type SessionStore interface {
	middleware.SessionLookup
	user.SessionStore
}

type ObjectStore interface {
	attachment.ObjectStore
}

type App struct {
	Handler         http.Handler
	DocumentService *document.Service
	QuizConsumer    *worker.QuizConsumer
	cfg             *config.Config
}

func New(
	cfg *config.Config,
	db Database,
	vecStore VectorStore,
	taskPub TaskPublisher,
	sessions SessionStore,
	objects ObjectStore,
	pipelineClient *pipeline.Client,
	logger *slog.Logger,
) (*App, error) {

	// Repositories need the concrete handle; the interface in the signature
	// keeps sqlmock usable in tests.
	sqlDB := db.(*sql.DB)

	auditLog, err := audit.NewFileLogger(cfg.AuditLogPath)
	if err != nil {
		slog.Warn("failed to create audit log file, falling back to stdout", "error", err)
		auditLog = audit.NewLogger(os.Stdout)
	}

	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(sqlDB)
	settingsService := settings.NewService(settingsRepo)

	// Seed Gemini API Key from Config
	if cfg.GeminiAPIKey != "" {
		ctx := context.Background()
		set, err := settingsService.Get(ctx)
		if err == nil {
			if set.GeminiAPIKey == "" {
				set.GeminiAPIKey = cfg.GeminiAPIKey
				if err := settingsService.Update(ctx, set); err != nil {
					slog.Warn("failed to seed gemini api key", "error", err)
				} else {
					slog.Info("seeded gemini api key from environment")
				}
			}
		} else {
			slog.Warn("failed to fetch settings for seeding", "error", err)
		}
	}

	settingsHandler := settings.NewHandler(settingsService)

	// Feature: Document
	documentRepo := document.NewPostgresRepo(sqlDB)
	documentService := document.NewService(documentRepo, pipelineClient, cfg.StuckThreshold)
	documentHandler := document.NewHandler(documentService, auditLog, int(cfg.MaxUploadSizeMB))

	// Feature: Owner
	ownerRepo := owner.NewPostgresRepo(sqlDB)
	ownerHandler := owner.NewHandler(owner.NewService(ownerRepo))

	// Feature: User
	userRepo := user.NewPostgresRepo(sqlDB)
	userHandler := user.NewHandler(user.NewService(userRepo, sessions), auditLog)

	// Feature: Attachment
	attachmentRepo := attachment.NewPostgresRepo(sqlDB)
	attachmentHandler := attachment.NewHandler(attachment.NewService(attachmentRepo, objects), auditLog, int(cfg.MaxUploadSizeMB))

	// Feature: Quiz
	quizRepo := quiz.NewPostgresRepo(sqlDB)
	quizService := quiz.NewService(quizRepo, documentRepo, taskPub, settingsService)
	quizHandler := quiz.NewHandler(quizService)

	// Feature: Stats
	statsHandler := stats.NewHandler(documentRepo, ownerRepo, attachmentRepo, quizRepo, vecStore)

	// Worker: quiz generation
	generator := gemini.NewDynamicGenerator(settingsService)
	quizConsumer := worker.NewQuizConsumer(vecStore, generator, quizRepo)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	auth := middleware.Auth(sessions)

	public := func(next http.HandlerFunc) http.Handler {
		return middleware.CorrelationID(http.HandlerFunc(enableCORS(next)))
	}
	protected := func(next http.HandlerFunc) http.Handler {
		return middleware.CorrelationID(http.HandlerFunc(enableCORS(auth(next).ServeHTTP)))
	}
	adminOnly := func(next http.HandlerFunc) http.Handler {
		return protected(middleware.RequireRole("admin", next))
	}
	editor := func(next http.HandlerFunc) http.Handler {
		return protected(middleware.RequireRole("editor", next))
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /auth/login", public(userHandler.Login))
	mux.Handle("POST /auth/logout", protected(userHandler.Logout))

	mux.Handle("POST /documents", editor(documentHandler.Create))
	mux.Handle("GET /documents", protected(documentHandler.List))
	mux.Handle("GET /documents/{id}", protected(documentHandler.Get))
	mux.Handle("PUT /documents/{id}", editor(documentHandler.Update))
	mux.Handle("DELETE /documents/{id}", adminOnly(documentHandler.Delete))
	mux.Handle("POST /documents/{id}/retrain-text", editor(documentHandler.RetrainText))
	mux.Handle("POST /documents/{id}/retrain-file", editor(documentHandler.RetrainFile))
	mux.Handle("POST /documents/{id}/retry", editor(documentHandler.Retry))
	mux.Handle("GET /documents/{id}/status", protected(documentHandler.Status))

	mux.Handle("POST /documents/{id}/attachments", editor(attachmentHandler.Upload))
	mux.Handle("GET /documents/{id}/attachments", protected(attachmentHandler.ListByDocument))
	mux.Handle("DELETE /attachments/{id}", editor(attachmentHandler.Delete))

	mux.Handle("POST /documents/{id}/quizzes", editor(quizHandler.Generate))
	mux.Handle("GET /documents/{id}/quizzes", protected(quizHandler.ListByDocument))
	mux.Handle("GET /quizzes/{id}", protected(quizHandler.Get))
	mux.Handle("DELETE /quizzes/{id}", editor(quizHandler.Delete))

	mux.Handle("POST /owners", adminOnly(ownerHandler.Create))
	mux.Handle("GET /owners", protected(ownerHandler.List))
	mux.Handle("GET /owners/{id}", protected(ownerHandler.Get))
	mux.Handle("PUT /owners/{id}", adminOnly(ownerHandler.Update))
	mux.Handle("DELETE /owners/{id}", adminOnly(ownerHandler.Delete))

	mux.Handle("POST /users", adminOnly(userHandler.Create))
	mux.Handle("GET /users", adminOnly(userHandler.List))
	mux.Handle("PUT /users/{id}/role", adminOnly(userHandler.UpdateRole))
	mux.Handle("PUT /users/{id}/password", adminOnly(userHandler.UpdatePassword))
	mux.Handle("DELETE /users/{id}", adminOnly(userHandler.Delete))

	mux.Handle("GET /settings", adminOnly(settingsHandler.GetSettings))
	mux.Handle("PUT /settings", adminOnly(settingsHandler.UpdateSettings))

	mux.Handle("GET /stats", protected(statsHandler.GetStats))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:         mux,
		DocumentService: documentService,
		QuizConsumer:    quizConsumer,
		cfg:             cfg,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.ServerPort),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
