package attachment

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

type Attachment struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	Filename    string    `json:"filename"`
	ObjectKey   string    `json:"object_key"`
	PublicURL   string    `json:"public_url"`
	SizeBytes   int64     `json:"size_bytes"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
}

type Repository interface {
	Save(ctx context.Context, a *Attachment) error
	Get(ctx context.Context, id string) (*Attachment, error)
	ListByDocument(ctx context.Context, documentID string) ([]Attachment, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PublicURL(key string) string
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo  Repository
	store ObjectStore
}

func NewService(repo Repository, store ObjectStore) *Service {
	return &Service{repo: repo, store: store}
}

// Upload streams the file to the object store under a collision-free key
// and records the attachment row. The key keeps the original basename so
// downloaded files get a sensible name.
func (s *Service) Upload(ctx context.Context, documentID, filename string, r io.Reader, size int64, contentType string) (*Attachment, error) {
	key := fmt.Sprintf("%s/%s_%s", documentID, uuid.New().String(), filepath.Base(filename))

	if err := s.store.Upload(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	a := &Attachment{
		DocumentID:  documentID,
		Filename:    filepath.Base(filename),
		ObjectKey:   key,
		SizeBytes:   size,
		ContentType: contentType,
	}
	if err := s.repo.Save(ctx, a); err != nil {
		// Object is orphaned if this cleanup fails; acceptable, the key is
		// unreferenced and unguessable.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			slog.Warn("failed to clean up orphaned object", "error", delErr, "key", key)
		}
		return nil, err
	}

	a.PublicURL = s.store.PublicURL(key)
	return a, nil
}

func (s *Service) ListByDocument(ctx context.Context, documentID string) ([]Attachment, error) {
	attachments, err := s.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	for i := range attachments {
		attachments[i].PublicURL = s.store.PublicURL(attachments[i].ObjectKey)
	}
	return attachments, nil
}

// Delete removes the stored object first, then the row. A missing object
// is not fatal; the row removal is what unpublishes the link.
func (s *Service) Delete(ctx context.Context, id string) error {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, a.ObjectKey); err != nil {
		slog.Warn("failed to delete stored object", "error", err, "key", a.ObjectKey)
	}
	return s.repo.Delete(ctx, id)
}
