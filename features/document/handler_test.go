package document

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docutrain/admin/internal/middleware"
	"docutrain/admin/internal/pipeline"
)

func withSession(r *http.Request) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.SessionKey, testSession())
	return r.WithContext(ctx)
}

func TestHandler_RetrainText_ValidationError(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockPipeline)
	h := NewHandler(NewService(repo, client, 5*time.Minute), nil, 50)

	body := bytes.NewBufferString(`{"content":"too short"}`)
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/documents/d-1/retrain-text", body))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.RetrainText(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	client.AssertNotCalled(t, "RetrainText", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_RetrainText_Accepted(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockPipeline)
	h := NewHandler(NewService(repo, client, 5*time.Minute), nil, 50)

	content := "this replacement text has more than enough words"
	repo.On("Get", mock.Anything, "d-1").Return(&Document{ID: "d-1"}, nil)
	client.On("RetrainText", mock.Anything, mock.Anything, "d-1", content).Return("ud-3", nil)
	repo.On("SetRemoteID", mock.Anything, "d-1", "ud-3").Return(nil)
	client.On("Process", mock.Anything, mock.Anything, "ud-3").Return(nil)

	payload, _ := json.Marshal(map[string]string{"content": content})
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/documents/d-1/retrain-text", bytes.NewReader(payload)))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.RetrainText(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Data struct {
			UserDocumentID string `json:"user_document_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ud-3", resp.Data.UserDocumentID)
}

func TestHandler_RetrainText_NoSession(t *testing.T) {
	h := NewHandler(NewService(new(MockRepository), new(MockPipeline), 5*time.Minute), nil, 50)

	req := httptest.NewRequest(http.MethodPost, "/api/documents/d-1/retrain-text", bytes.NewBufferString(`{}`))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.RetrainText(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RetrainText_Backpressure(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockPipeline)
	h := NewHandler(NewService(repo, client, 5*time.Minute), nil, 50)

	repo.On("Get", mock.Anything, "d-1").Return(&Document{ID: "d-1"}, nil)
	client.On("RetrainText", mock.Anything, mock.Anything, "d-1", mock.Anything).Return("ud-3", nil)
	repo.On("SetRemoteID", mock.Anything, "d-1", "ud-3").Return(nil)
	client.On("Process", mock.Anything, mock.Anything, "ud-3").Return(pipeline.ErrBackpressure)

	payload, _ := json.Marshal(map[string]string{"content": "plenty of words in this content here"})
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/documents/d-1/retrain-text", bytes.NewReader(payload)))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.RetrainText(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PIPELINE_BUSY", resp.Error.Code)
}

func TestHandler_Status(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockPipeline)
	h := NewHandler(NewService(repo, client, 5*time.Minute), nil, 50)

	repo.On("Get", mock.Anything, "d-1").Return(&Document{ID: "d-1", RemoteID: "ud-1"}, nil)
	client.On("Status", mock.Anything, mock.Anything, "ud-1").Return(&pipeline.StatusReport{
		Document: pipeline.Job{ID: "ud-1", Status: pipeline.StatusReady},
	}, nil)

	req := withSession(httptest.NewRequest(http.MethodGet, "/api/documents/d-1/status?prev_percent=80", nil))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.Status(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Status   string `json:"status"`
			Progress struct {
				Percent int    `json:"percent"`
				Stage   string `json:"stage"`
			} `json:"progress"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ready", resp.Data.Status)
	assert.Equal(t, 100, resp.Data.Progress.Percent)
}

func TestHandler_Update_RequiresTitle(t *testing.T) {
	h := NewHandler(NewService(new(MockRepository), new(MockPipeline), 5*time.Minute), nil, 50)

	req := httptest.NewRequest(http.MethodPut, "/api/documents/d-1", bytes.NewBufferString(`{"title":""}`))
	req.SetPathValue("id", "d-1")
	rec := httptest.NewRecorder()

	h.Update(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
