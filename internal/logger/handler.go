package logger

import (
	"context"
	"log/slog"

	"docutrain/admin/internal/middleware"
)

// ContextHandler decorates every record with request-scoped attributes so
// log lines from deep inside a service can be tied back to the HTTP request
// and the acting user.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if sess := middleware.GetSession(ctx); sess != nil {
		r.AddAttrs(slog.String("user_id", sess.UserID))
	}
	return h.Handler.Handle(ctx, r)
}
