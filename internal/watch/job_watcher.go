package watch

import (
	"context"
	"log/slog"
	"time"

	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/progress"
	"docutrain/admin/internal/session"
)

type StatusFetcher interface {
	Status(ctx context.Context, sess *session.Session, userDocumentID string) (*pipeline.StatusReport, error)
}

// JobWatcher polls a single job's status endpoint while it is non-terminal,
// reducing the log history into a progress view on every cycle. It shares
// the tracker's refresh-queue discipline: push events trigger an immediate
// reload instead of racing a second fetch.
type JobWatcher struct {
	fetcher    StatusFetcher
	sess       *session.Session
	documentID string
	interval   time.Duration
	onProgress func(pipeline.Job, progress.View)

	refresh     chan struct{}
	lastPercent int
}

func NewJobWatcher(fetcher StatusFetcher, sess *session.Session, documentID string, interval time.Duration, onProgress func(pipeline.Job, progress.View)) *JobWatcher {
	return &JobWatcher{
		fetcher:    fetcher,
		sess:       sess,
		documentID: documentID,
		interval:   interval,
		onProgress: onProgress,
		refresh:    make(chan struct{}, 1),
	}
}

// Run polls until the job reaches a terminal state or ctx is cancelled.
// Returns nil on terminal completion, ctx.Err() on teardown.
func (w *JobWatcher) Run(ctx context.Context) error {
	if done := w.reload(ctx); done {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.refresh:
			if done := w.reload(ctx); done {
				return nil
			}
		case <-ticker.C:
			if done := w.reload(ctx); done {
				return nil
			}
		}
	}
}

// Notify requests an immediate status reload. Never blocks.
func (w *JobWatcher) Notify() {
	select {
	case w.refresh <- struct{}{}:
	default:
	}
}

func (w *JobWatcher) reload(ctx context.Context) (terminal bool) {
	if ctx.Err() != nil {
		return false
	}

	report, err := w.fetcher.Status(ctx, w.sess, w.documentID)
	if err != nil {
		slog.WarnContext(ctx, "status poll failed", "document_id", w.documentID, "error", err)
		return false
	}

	view := progress.Reduce(report.Document, report.Logs, w.lastPercent)
	w.lastPercent = view.Percent

	if w.onProgress != nil {
		w.onProgress(report.Document, view)
	}
	return report.Document.Status.Terminal()
}
