package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"docutrain/admin/internal/session"
)

const SessionKey key = 1

type SessionLookup interface {
	Get(ctx context.Context, token string) (*session.Session, error)
}

// Auth resolves the bearer token into a session and injects it into the
// request context. Requests without a valid session are rejected.
func Auth(store SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token == r.Header.Get("Authorization") {
				writeAuthError(w, r, "UNAUTHORIZED", "missing bearer token")
				return
			}

			sess, err := store.Get(r.Context(), token)
			if err != nil {
				slog.WarnContext(r.Context(), "session lookup failed", "error", err)
				writeAuthError(w, r, "UNAUTHORIZED", "invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a handler on the session role. Admins pass everything.
func RequireRole(role string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil {
			writeAuthError(w, r, "UNAUTHORIZED", "no session")
			return
		}
		if sess.Role != role && sess.Role != "admin" {
			writeAuthError(w, r, "FORBIDDEN", "insufficient role")
			return
		}
		next(w, r)
	}
}

func GetSession(ctx context.Context) *session.Session {
	if sess, ok := ctx.Value(SessionKey).(*session.Session); ok {
		return sess
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, r *http.Request, code, message string) {
	status := http.StatusUnauthorized
	if code == "FORBIDDEN" {
		status = http.StatusForbidden
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": GetCorrelationID(r.Context()),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
