package document

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"docutrain/admin/internal/audit"
	"docutrain/admin/internal/middleware"
	"docutrain/admin/internal/pipeline"
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

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OwnerID     string `json:"owner_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		BodyHTML    string `json:"body_html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Title is required", http.StatusBadRequest)
		return
	}

	doc := &Document{
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		BodyHTML:    req.BodyHTML,
	}
	if err := h.service.Create(r.Context(), doc); err != nil {
		slog.Error("operation failed", "error", err, "title", req.Title)
		h.writeError(r.Context(), w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.audit(r.Context(), "document.create", doc.ID, doc.Title)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.writeError(r.Context(), w, "UNAUTHORIZED", "Missing session", http.StatusUnauthorized)
		return
	}

	docs, err := h.service.List(r.Context(), sess)
	if err != nil {
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	// Ensure we return [] instead of null for empty list
	if docs == nil {
		docs = []Document{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": docs,
		"meta": map[string]int{"count": len(docs)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		OwnerID     string `json:"owner_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		BodyHTML    string `json:"body_html"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Title is required", http.StatusBadRequest)
		return
	}

	doc := &Document{
		ID:          id,
		OwnerID:     req.OwnerID,
		Title:       req.Title,
		Description: req.Description,
		BodyHTML:    req.BodyHTML,
	}
	if err := h.service.Update(r.Context(), doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	h.audit(r.Context(), "document.update", id, doc.Title)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": doc}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}
	h.audit(r.Context(), "document.delete", id, "")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) RetrainText(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.writeError(r.Context(), w, "UNAUTHORIZED", "Missing session", http.StatusUnauthorized)
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return
	}

	remoteID, err := h.service.RetrainText(r.Context(), sess, id, req.Content)
	if err != nil {
		h.writeRetrainError(r.Context(), w, err)
		return
	}

	h.audit(r.Context(), "document.retrain_text", id, remoteID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"user_document_id": remoteID}}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) RetrainFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.writeError(r.Context(), w, "UNAUTHORIZED", "Missing session", http.StatusUnauthorized)
		return
	}

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

	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		h.writeError(r.Context(), w, "BAD_REQUEST", "Only PDF files are supported", http.StatusBadRequest)
		return
	}

	remoteID, err := h.service.RetrainFile(r.Context(), sess, id, header.Filename, file)
	if err != nil {
		h.writeRetrainError(r.Context(), w, err)
		return
	}

	h.audit(r.Context(), "document.retrain_file", id, header.Filename)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"user_document_id": remoteID}}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.writeError(r.Context(), w, "UNAUTHORIZED", "Missing session", http.StatusUnauthorized)
		return
	}

	if err := h.service.Retry(r.Context(), sess, id); err != nil {
		h.writeRetrainError(r.Context(), w, err)
		return
	}

	h.audit(r.Context(), "document.retry", id, "")
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	sess := middleware.GetSession(r.Context())
	if sess == nil {
		h.writeError(r.Context(), w, "UNAUTHORIZED", "Missing session", http.StatusUnauthorized)
		return
	}

	prevPercent := 0
	if p := r.URL.Query().Get("prev_percent"); p != "" {
		if parsed, err := strconv.Atoi(p); err == nil {
			prevPercent = parsed
		}
	}

	detail, err := h.service.Status(r.Context(), sess, id, prevPercent)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.writeError(r.Context(), w, "NOT_FOUND", "Document not found", http.StatusNotFound)
			return
		}
		h.writeError(r.Context(), w, "INTERNAL_ERROR", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": detail}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeRetrainError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrContentTooShort), errors.Is(err, ErrContentTooLong), errors.Is(err, ErrContentTooSparse):
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
	case errors.Is(err, sql.ErrNoRows):
		h.writeError(ctx, w, "NOT_FOUND", "Document not found", http.StatusNotFound)
	case errors.Is(err, pipeline.ErrBackpressure):
		h.writeError(ctx, w, "PIPELINE_BUSY", "Processing service is busy, try again later", http.StatusServiceUnavailable)
	default:
		var apiErr *pipeline.APIError
		if errors.As(err, &apiErr) {
			h.writeError(ctx, w, "UPSTREAM_ERROR", apiErr.Message, http.StatusBadGateway)
			return
		}
		slog.Error("retrain failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
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
		Resource:      "document",
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
