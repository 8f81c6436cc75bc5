package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/progress"
	"docutrain/admin/internal/session"
	"docutrain/admin/internal/watch"
)

const (
	minRetrainChars = 10
	maxRetrainChars = 5_000_000
	minRetrainWords = 5
)

var (
	ErrContentTooShort  = errors.New("content must be at least 10 characters")
	ErrContentTooLong   = errors.New("content exceeds 5,000,000 characters")
	ErrContentTooSparse = errors.New("content must contain at least 5 words")
)

type Document struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	BodyHTML    string    `json:"body_html"`
	RemoteID    string    `json:"remote_id,omitempty"`
	Status      string    `json:"status,omitempty"`
	Stuck       bool      `json:"stuck"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	List(ctx context.Context) ([]Document, error)
	Update(ctx context.Context, doc *Document) error
	SetRemoteID(ctx context.Context, id, remoteID string) error
	UpdateStatusByRemoteID(ctx context.Context, remoteID, status string) error
	SoftDelete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// PipelineClient is the slice of the remote processing API this feature
// depends on.
type PipelineClient interface {
	RetrainText(ctx context.Context, sess *session.Session, documentID, content string) (string, error)
	RetrainFile(ctx context.Context, sess *session.Session, documentID, filename string, file io.Reader) (string, error)
	Process(ctx context.Context, sess *session.Session, userDocumentID string) error
	Status(ctx context.Context, sess *session.Session, userDocumentID string) (*pipeline.StatusReport, error)
	ListDocuments(ctx context.Context, sess *session.Session) ([]pipeline.Job, error)
}

// JobSource provides a snapshot of pipeline jobs without a network round
// trip per request. Satisfied by watch.Tracker.
type JobSource interface {
	Documents() []pipeline.Job
}

type Service struct {
	repo           Repository
	client         PipelineClient
	stuckThreshold time.Duration
	now            func() time.Time

	jobs JobSource

	watchCtx      context.Context
	watchSess     *session.Session
	watchInterval time.Duration
	watchMu       sync.Mutex
	watchers      map[string]*watch.JobWatcher
}

func NewService(repo Repository, client PipelineClient, stuckThreshold time.Duration) *Service {
	return &Service{
		repo:           repo,
		client:         client,
		stuckThreshold: stuckThreshold,
		now:            time.Now,
		watchers:       make(map[string]*watch.JobWatcher),
	}
}

// SetJobSource makes List read job status from a background tracker's
// snapshot instead of hitting the pipeline on every request.
func (s *Service) SetJobSource(src JobSource) {
	s.jobs = src
}

// EnableStatusWatch turns on background polling of active retrains. Each
// submitted job gets a watcher, running as the given identity, that records
// the observed status on the document row until the job goes terminal.
// ctx bounds the lifetime of all watchers.
func (s *Service) EnableStatusWatch(ctx context.Context, sess *session.Session, interval time.Duration) {
	s.watchCtx = ctx
	s.watchSess = sess
	s.watchInterval = interval
}

// NotifyJob short-circuits the watcher poll for a job when a push event
// arrives. Unknown ids are ignored.
func (s *Service) NotifyJob(remoteID string) {
	if remoteID == "" {
		return
	}
	s.watchMu.Lock()
	w := s.watchers[remoteID]
	s.watchMu.Unlock()
	if w != nil {
		w.Notify()
	}
}

func (s *Service) watchJob(remoteID string) {
	if s.watchCtx == nil {
		return
	}

	s.watchMu.Lock()
	if _, running := s.watchers[remoteID]; running {
		s.watchMu.Unlock()
		return
	}
	w := watch.NewJobWatcher(s.client, s.watchSess, remoteID, s.watchInterval, func(job pipeline.Job, _ progress.View) {
		s.recordStatus(remoteID, string(job.Status))
	})
	s.watchers[remoteID] = w
	s.watchMu.Unlock()

	go func() {
		defer func() {
			s.watchMu.Lock()
			delete(s.watchers, remoteID)
			s.watchMu.Unlock()
		}()
		if err := w.Run(s.watchCtx); err != nil && s.watchCtx.Err() == nil {
			slog.Warn("job watch stopped", "user_document_id", remoteID, "error", err)
		}
	}()
}

func (s *Service) recordStatus(remoteID, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.UpdateStatusByRemoteID(ctx, remoteID, status); err != nil {
		slog.Warn("failed to record processing status", "user_document_id", remoteID, "error", err)
	}
}

func (s *Service) Create(ctx context.Context, doc *Document) error {
	if doc.Title == "" {
		return fmt.Errorf("title is required")
	}
	return s.repo.Save(ctx, doc)
}

func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, doc *Document) error {
	return s.repo.Update(ctx, doc)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// List merges stored metadata with live job status from the pipeline and
// flags documents whose processing looks stalled. A document is stuck when
// its job still reports processing but has not been touched for longer than
// the threshold. The flag is informational only; recovery is always a
// manual retry by an operator.
func (s *Service) List(ctx context.Context, sess *session.Session) ([]Document, error) {
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	var jobs []pipeline.Job
	if s.jobs != nil {
		jobs = s.jobs.Documents()
	} else {
		jobs, err = s.client.ListDocuments(ctx, sess)
		if err != nil {
			// Metadata is still useful without live status.
			slog.WarnContext(ctx, "failed to fetch processing status", "error", err)
			return docs, nil
		}
	}

	byRemoteID := make(map[string]pipeline.Job, len(jobs))
	for _, j := range jobs {
		byRemoteID[j.ID] = j
	}

	cutoff := s.now().Add(-s.stuckThreshold)
	for i := range docs {
		job, ok := byRemoteID[docs[i].RemoteID]
		if !ok {
			continue
		}
		docs[i].Status = string(job.Status)
		docs[i].Stuck = job.Status == pipeline.StatusProcessing && job.UpdatedAt.Before(cutoff)
	}
	return docs, nil
}

// RetrainText replaces a document's trained content with the given text.
// The content is validated locally; nothing is sent to the pipeline until
// it passes.
func (s *Service) RetrainText(ctx context.Context, sess *session.Session, id, content string) (string, error) {
	if err := validateRetrainContent(content); err != nil {
		return "", err
	}

	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	remoteID, err := s.client.RetrainText(ctx, sess, doc.ID, content)
	if err != nil {
		return "", fmt.Errorf("retrain submission failed: %w", err)
	}

	if err := s.repo.SetRemoteID(ctx, doc.ID, remoteID); err != nil {
		return "", err
	}

	if err := s.client.Process(ctx, sess, remoteID); err != nil {
		return "", err
	}
	s.watchJob(remoteID)

	slog.InfoContext(ctx, "retrain started", "document_id", doc.ID, "user_document_id", remoteID)
	return remoteID, nil
}

// RetrainFile replaces a document's trained content with an uploaded PDF.
func (s *Service) RetrainFile(ctx context.Context, sess *session.Session, id, filename string, file io.Reader) (string, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	remoteID, err := s.client.RetrainFile(ctx, sess, doc.ID, filename, file)
	if err != nil {
		return "", fmt.Errorf("retrain upload failed: %w", err)
	}

	if err := s.repo.SetRemoteID(ctx, doc.ID, remoteID); err != nil {
		return "", err
	}

	if err := s.client.Process(ctx, sess, remoteID); err != nil {
		return "", err
	}
	s.watchJob(remoteID)

	slog.InfoContext(ctx, "retrain started", "document_id", doc.ID, "user_document_id", remoteID)
	return remoteID, nil
}

// Retry re-triggers processing for a document. This is the manual recovery
// path for stuck jobs.
func (s *Service) Retry(ctx context.Context, sess *session.Session, id string) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.RemoteID == "" {
		return fmt.Errorf("document has never been submitted for processing")
	}
	if err := s.client.Process(ctx, sess, doc.RemoteID); err != nil {
		return err
	}
	s.watchJob(doc.RemoteID)
	slog.InfoContext(ctx, "manual retry triggered", "document_id", doc.ID, "user_document_id", doc.RemoteID)
	return nil
}

type StatusDetail struct {
	Status   pipeline.JobStatus  `json:"status"`
	Progress progress.View       `json:"progress"`
	Logs     []pipeline.LogEntry `json:"logs"`
}

// Status fetches the current job state for a document and reduces its log
// history into a progress view. prevPercent is the last percent the caller
// showed, so a slow poll can never walk progress backwards.
func (s *Service) Status(ctx context.Context, sess *session.Session, id string, prevPercent int) (*StatusDetail, error) {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.RemoteID == "" {
		return nil, fmt.Errorf("document has never been submitted for processing")
	}

	report, err := s.client.Status(ctx, sess, doc.RemoteID)
	if err != nil {
		return nil, err
	}

	return &StatusDetail{
		Status:   report.Document.Status,
		Progress: progress.Reduce(report.Document, report.Logs, prevPercent),
		Logs:     report.Logs,
	}, nil
}

func validateRetrainContent(content string) error {
	n := len([]rune(content))
	if n < minRetrainChars {
		return ErrContentTooShort
	}
	if n > maxRetrainChars {
		return ErrContentTooLong
	}
	if len(strings.Fields(content)) < minRetrainWords {
		return ErrContentTooSparse
	}
	return nil
}
