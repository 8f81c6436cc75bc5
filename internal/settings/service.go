package settings

import (
	"context"
)

// Settings is the singleton platform configuration editable from the admin
// console. The Gemini key powers quiz generation.
type Settings struct {
	ID                int    `json:"-"`
	GeminiAPIKey      string `json:"gemini_api_key"`
	QuizModel         string `json:"quiz_model"`
	QuizQuestionCount int    `json:"quiz_question_count"`
}

type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Update(ctx context.Context, s *Settings) error
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context) (*Settings, error) {
	return s.repo.Get(ctx)
}

func (s *Service) Update(ctx context.Context, set *Settings) error {
	return s.repo.Update(ctx, set)
}
