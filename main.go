package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nsqio/go-nsq"

	"docutrain/admin/internal/app"
	"docutrain/admin/internal/config"
	"docutrain/admin/internal/logger"
	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/realtime"
	"docutrain/admin/internal/session"
	"docutrain/admin/internal/watch"
)

func main() {
	// Initialize structured logger
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	// 1. Load Config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. External dependencies
	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	// 3. Pipeline client
	pipelineClient := pipeline.NewClient(cfg.PipelineBaseURL)

	// 4. Application
	application, err := app.New(cfg, deps.DB, deps.VectorStore, deps.NSQProducer, deps.Sessions, deps.Objects, pipelineClient, slog.Default())
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	// 5. Background document tracker, fed by both the poll timer and
	// realtime push. The service identity polls the shared pipeline view.
	serviceSess := &session.Session{Token: cfg.PipelineServiceToken, UserID: "service"}
	tracker := watch.NewTracker(pipelineClient, serviceSess, cfg.DocumentsPollInterval, nil)
	application.DocumentService.SetJobSource(tracker)
	application.DocumentService.EnableStatusWatch(ctx, serviceSess, cfg.StatusPollInterval)
	go func() {
		if err := tracker.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("document tracker stopped", "error", err)
		}
	}()

	if cfg.RealtimeChannel != "" {
		listener, err := realtime.NewListener(deps.ConnInfo, cfg.RealtimeChannel)
		if err != nil {
			slog.Warn("realtime listener unavailable, relying on polling", "error", err)
		} else {
			go func() {
				if err := listener.Run(ctx, func(ev realtime.Event) {
					tracker.Notify()
					application.DocumentService.NotifyJob(ev.DocumentID)
				}); err != nil && ctx.Err() == nil {
					slog.Error("realtime listener stopped", "error", err)
				}
			}()
		}
	}

	// 6. Quiz generation consumer
	consumer, err := nsq.NewConsumer(config.TopicQuizGenerate, "admin", nsq.NewConfig())
	if err != nil {
		slog.Error("failed to create NSQ consumer", "error", err)
	} else {
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return application.QuizConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("quiz consumer connected")
		}
		defer consumer.Stop()
	}

	// 7. HTTP server
	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
