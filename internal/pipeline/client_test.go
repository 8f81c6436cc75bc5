package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/session"
)

func testSession() *session.Session {
	return &session.Session{Token: "test-token", UserID: "user-1", Role: "admin"}
}

func TestRetrainText_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/api/retrain-document-text", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "doc-1", req["document_id"])

		json.NewEncoder(w).Encode(map[string]string{"user_document_id": "ud-42"})
	}))
	defer srv.Close()

	client := pipeline.NewClient(srv.URL)
	id, err := client.RetrainText(context.Background(), testSession(), "doc-1", "some replacement content here")
	require.NoError(t, err)
	assert.Equal(t, "ud-42", id)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestProcess_RetriesOnceOnBackpressure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]int{"retry_after": 3})
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var slept time.Duration
	client := pipeline.NewClient(srv.URL, pipeline.WithSleep(func(d time.Duration) { slept = d }))

	err := client.Process(context.Background(), testSession(), "ud-1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 3*time.Second, slept)
}

func TestProcess_GivesUpAfterSecondBackpressure(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]int{"retry_after": 1})
	}))
	defer srv.Close()

	client := pipeline.NewClient(srv.URL, pipeline.WithSleep(func(time.Duration) {}))

	err := client.Process(context.Background(), testSession(), "ud-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pipeline.ErrBackpressure))
	// Exactly one scheduled retry, no more.
	assert.Equal(t, 2, calls)
}

func TestProcess_DefaultRetryDelayOnMissingBody(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var slept time.Duration
	client := pipeline.NewClient(srv.URL, pipeline.WithSleep(func(d time.Duration) { slept = d }))

	require.NoError(t, client.Process(context.Background(), testSession(), "ud-1"))
	assert.Equal(t, 5*time.Second, slept)
}

func TestStatus_DecodesJobAndLogs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/processing-status/ud-9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"document": map[string]interface{}{
				"id":         "ud-9",
				"status":     "processing",
				"updated_at": time.Now().UTC().Format(time.RFC3339),
			},
			"logs": []map[string]interface{}{
				{"stage": "embed", "status": "progress", "message": "batch 2/10", "metadata": map[string]interface{}{"batch": 2, "total_batches": 10}},
			},
		})
	}))
	defer srv.Close()

	client := pipeline.NewClient(srv.URL)
	report, err := client.Status(context.Background(), testSession(), "ud-9")
	require.NoError(t, err)
	assert.Equal(t, pipeline.StatusProcessing, report.Document.Status)
	require.Len(t, report.Logs, 1)
	assert.Equal(t, pipeline.StageEmbed, report.Logs[0].Stage)
	assert.Equal(t, float64(10), report.Logs[0].Metadata["total_batches"])
}

func TestListDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user-documents", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"documents": []map[string]interface{}{
				{"id": "ud-1", "status": "ready"},
				{"id": "ud-2", "status": "error", "error_message": "extract failed"},
			},
		})
	}))
	defer srv.Close()

	client := pipeline.NewClient(srv.URL)
	docs, err := client.ListDocuments(context.Background(), testSession())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.True(t, docs[0].Status.Terminal())
	assert.Equal(t, "extract failed", docs[1].ErrorMessage)
}

func TestStatus_SurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]string{"code": "NOT_FOUND", "message": "unknown document"},
		})
	}))
	defer srv.Close()

	client := pipeline.NewClient(srv.URL)
	_, err := client.Status(context.Background(), testSession(), "nope")
	require.Error(t, err)

	var apiErr *pipeline.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "unknown document", apiErr.Message)
}
