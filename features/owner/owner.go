package owner

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

type Owner struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	LogoURL     string    `json:"logo_url"`
	AccentColor string    `json:"accent_color"`
	WelcomeText string    `json:"welcome_text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, o *Owner) error
	Get(ctx context.Context, id string) (*Owner, error)
	List(ctx context.Context) ([]Owner, error)
	Update(ctx context.Context, o *Owner) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

var accentColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validate(o *Owner) error {
	if o.Name == "" {
		return fmt.Errorf("name is required")
	}
	if o.AccentColor != "" && !accentColorPattern.MatchString(o.AccentColor) {
		return fmt.Errorf("accent color must be a hex value like #1a2b3c")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, o *Owner) error {
	if err := validate(o); err != nil {
		return err
	}
	return s.repo.Save(ctx, o)
}

func (s *Service) Get(ctx context.Context, id string) (*Owner, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Owner, error) {
	return s.repo.List(ctx)
}

func (s *Service) Update(ctx context.Context, o *Owner) error {
	if err := validate(o); err != nil {
		return err
	}
	return s.repo.Update(ctx, o)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
