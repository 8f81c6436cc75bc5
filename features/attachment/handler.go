package attachment

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"docutrain/admin/internal/audit"
	"docutrain/admin/internal/middleware"
)

type AuditLogger interface {
	Log(entry audit.Entry)
}

type Handler struct {
	service       *Service
	auditLog      AuditLogger
	maxUploadSize int64
}

func NewHandler(service *Service, auditLog AuditLogger, maxUploadSizeMB int) *Handler {
	return &Handler{
		service:       service,
		auditLog:      auditLog,
		maxUploadSize: int64(maxUploadSizeMB) << 20,
	}
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "File too large", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Unable to retrieve file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	a, err := h.service.Upload(r.Context(), documentID, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		slog.Error("attachment upload failed", "error", err, "document_id", documentID)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Failed to store attachment", http.StatusInternalServerError)
		return
	}

	h.audit(r.Context(), "attachment.upload", a.ID, a.Filename)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": a}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) ListByDocument(w http.ResponseWriter, r *http.Request) {
	documentID := r.PathValue("id")

	attachments, err := h.service.ListByDocument(r.Context(), documentID)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	if attachments == nil {
		attachments = []Attachment{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"data": attachments,
		"meta": map[string]int{"count": len(attachments)},
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Attachment not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	h.audit(r.Context(), "attachment.delete", id, "")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) audit(ctx context.Context, action, resourceID, detail string) {
	if h.auditLog == nil {
		return
	}
	userID := ""
	if sess := middleware.GetSession(ctx); sess != nil {
		userID = sess.UserID
	}
	h.auditLog.Log(audit.Entry{
		UserID:        userID,
		Action:        action,
		Resource:      "attachment",
		ResourceID:    resourceID,
		Detail:        detail,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
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
