package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"docutrain/admin/internal/config"
	"docutrain/admin/internal/middleware"
	"docutrain/admin/internal/settings"
	"docutrain/admin/internal/worker"
)

const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

type Quiz struct {
	ID            string            `json:"id"`
	DocumentID    string            `json:"document_id"`
	Status        string            `json:"status"`
	QuestionCount int               `json:"question_count"`
	Questions     []worker.Question `json:"questions,omitempty"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, q *Quiz) error
	Get(ctx context.Context, id string) (*Quiz, error)
	ListByDocument(ctx context.Context, documentID string) ([]Quiz, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status string) (int, error)

	// Consumer-side updates
	MarkGenerating(ctx context.Context, id string) error
	SetQuestions(ctx context.Context, id string, questions []worker.Question) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}

type DocumentGetter interface {
	GetTitle(ctx context.Context, documentID string) (string, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Defaults supplies the admin-configured generation defaults. Satisfied by
// settings.Service; nil falls back to the built-in count.
type Defaults interface {
	Get(ctx context.Context) (*settings.Settings, error)
}

type Service struct {
	repo     Repository
	docs     DocumentGetter
	pub      EventPublisher
	defaults Defaults
}

func NewService(repo Repository, docs DocumentGetter, pub EventPublisher, defaults Defaults) *Service {
	return &Service{repo: repo, docs: docs, pub: pub, defaults: defaults}
}

// Generate creates a pending quiz row and hands the heavy work to the
// worker via the task queue. The quiz flips to generating when a worker
// picks it up.
func (s *Service) Generate(ctx context.Context, documentID string, questionCount int) (*Quiz, error) {
	if questionCount <= 0 {
		questionCount = s.defaultCount(ctx)
	}
	if questionCount > 50 {
		return nil, fmt.Errorf("question count must be 50 or fewer")
	}

	title, err := s.docs.GetTitle(ctx, documentID)
	if err != nil {
		return nil, err
	}

	q := &Quiz{
		DocumentID:    documentID,
		Status:        StatusPending,
		QuestionCount: questionCount,
	}
	if err := s.repo.Save(ctx, q); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(worker.QuizGeneratePayload{
		QuizID:        q.ID,
		DocumentID:    documentID,
		Title:         title,
		QuestionCount: questionCount,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicQuizGenerate, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish quiz.generate task", "error", err, "quiz_id", q.ID)
		if markErr := s.repo.MarkFailed(ctx, q.ID, "failed to enqueue generation task"); markErr != nil {
			slog.ErrorContext(ctx, "failed to mark quiz failed", "error", markErr, "quiz_id", q.ID)
		}
		return nil, fmt.Errorf("failed to enqueue generation: %w", err)
	}

	slog.InfoContext(ctx, "quiz generation queued", "quiz_id", q.ID, "document_id", documentID)
	return q, nil
}

func (s *Service) defaultCount(ctx context.Context) int {
	if s.defaults != nil {
		if set, err := s.defaults.Get(ctx); err == nil && set.QuizQuestionCount > 0 {
			return set.QuizQuestionCount
		}
	}
	return 5
}

func (s *Service) Get(ctx context.Context, id string) (*Quiz, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]Quiz, error) {
	return s.repo.ListByDocument(ctx, documentID)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
