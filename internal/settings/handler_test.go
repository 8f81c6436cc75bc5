package settings_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"docutrain/admin/internal/settings"
)

// MockRepository is a mock implementation of settings.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Get(ctx context.Context) (*settings.Settings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*settings.Settings), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, s *settings.Settings) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func TestHandler_GetSettings(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := settings.NewService(mockRepo)
		handler := settings.NewHandler(svc)

		expectedSettings := &settings.Settings{
			GeminiAPIKey:      "k1",
			QuizModel:         "gemini-1.5-flash",
			QuizQuestionCount: 5,
		}

		mockRepo.On("Get", mock.Anything).Return(expectedSettings, nil)

		req := httptest.NewRequest("GET", "/settings", nil)
		w := httptest.NewRecorder()

		handler.GetSettings(w, req)

		resp := w.Result()
		defer resp.Body.Close()

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&body)

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "gemini-1.5-flash", data["quiz_model"])
		assert.Equal(t, float64(5), data["quiz_question_count"])

		mockRepo.AssertExpectations(t)
	})

	t.Run("InternalError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := settings.NewService(mockRepo)
		handler := settings.NewHandler(svc)

		mockRepo.On("Get", mock.Anything).Return(nil, errors.New("db error"))

		req := httptest.NewRequest("GET", "/settings", nil)
		w := httptest.NewRecorder()

		handler.GetSettings(w, req)

		resp := w.Result()
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
}

func TestHandler_UpdateSettings(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := settings.NewService(mockRepo)
		handler := settings.NewHandler(svc)

		newSettings := &settings.Settings{
			QuizModel:         "gemini-1.5-pro",
			QuizQuestionCount: 10,
		}

		mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *settings.Settings) bool {
			return s.QuizModel == "gemini-1.5-pro" && s.QuizQuestionCount == 10
		})).Return(nil)

		body, _ := json.Marshal(newSettings)
		req := httptest.NewRequest("PUT", "/settings", bytes.NewBuffer(body))
		w := httptest.NewRecorder()

		handler.UpdateSettings(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		mockRepo.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		mockRepo := new(MockRepository)
		svc := settings.NewService(mockRepo)
		handler := settings.NewHandler(svc)

		req := httptest.NewRequest("PUT", "/settings", bytes.NewBufferString("invalid json"))
		w := httptest.NewRecorder()

		handler.UpdateSettings(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
	})
}
