package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"docutrain/admin/internal/middleware"
)

type DocumentRepo interface {
	Count(ctx context.Context) (int, error)
}

type OwnerRepo interface {
	Count(ctx context.Context) (int, error)
}

type AttachmentRepo interface {
	Count(ctx context.Context) (int, error)
}

type QuizRepo interface {
	CountByStatus(ctx context.Context, status string) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	documentRepo   DocumentRepo
	ownerRepo      OwnerRepo
	attachmentRepo AttachmentRepo
	quizRepo       QuizRepo
	vectorStore    VectorStore
}

func NewHandler(d DocumentRepo, o OwnerRepo, a AttachmentRepo, q QuizRepo, v VectorStore) *Handler {
	return &Handler{documentRepo: d, ownerRepo: o, attachmentRepo: a, quizRepo: q, vectorStore: v}
}

type StatsResponse struct {
	Documents     int `json:"documents"`
	Owners        int `json:"owners"`
	Attachments   int `json:"attachments"`
	FailedQuizzes int `json:"failed_quizzes"`
	IndexedChunks int `json:"indexed_chunks"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	dCount, err := h.documentRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count documents", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count documents", http.StatusInternalServerError)
		return
	}

	oCount, err := h.ownerRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count owners", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count owners", http.StatusInternalServerError)
		return
	}

	aCount, err := h.attachmentRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count attachments", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count attachments", http.StatusInternalServerError)
		return
	}

	fCount, err := h.quizRepo.CountByStatus(ctx, "failed")
	if err != nil {
		slog.ErrorContext(ctx, "failed to count failed quizzes", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count quizzes", http.StatusInternalServerError)
		return
	}

	// Chunk counts come from the vector store. An outage there should not
	// blank the whole dashboard.
	cCount, err := h.vectorStore.CountChunks(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to count indexed chunks", "error", err, "correlationId", correlationID)
		cCount = 0
	}

	resp := StatsResponse{
		Documents:     dCount,
		Owners:        oCount,
		Attachments:   aCount,
		FailedQuizzes: fCount,
		IndexedChunks: cCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
