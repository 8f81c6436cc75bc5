// Package watch coordinates the two update sources for processing state:
// the interval poller and the realtime push feed. Both funnel into a single
// refresh queue drained by one goroutine, so at most one fetch is in flight
// at any time and every update is an idempotent full replace of local state.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"docutrain/admin/internal/pipeline"
	"docutrain/admin/internal/session"
)

type DocumentLister interface {
	ListDocuments(ctx context.Context, sess *session.Session) ([]pipeline.Job, error)
}

// Tracker maintains a local replica of the user's document list. The server
// is the sole source of truth; concurrent poll ticks and push events cannot
// conflict because each refresh replaces the whole list.
type Tracker struct {
	lister   DocumentLister
	sess     *session.Session
	interval time.Duration
	onUpdate func([]pipeline.Job)

	// Buffered size 1: coalesces bursts of push events into one refresh.
	refresh chan struct{}

	mu   sync.RWMutex
	docs []pipeline.Job
}

func NewTracker(lister DocumentLister, sess *session.Session, interval time.Duration, onUpdate func([]pipeline.Job)) *Tracker {
	return &Tracker{
		lister:   lister,
		sess:     sess,
		interval: interval,
		onUpdate: onUpdate,
		refresh:  make(chan struct{}, 1),
	}
}

// Run polls until ctx is cancelled. A queued Notify short-circuits the
// timer. Returns ctx.Err() after teardown; the ticker is always released.
func (t *Tracker) Run(ctx context.Context) error {
	// Initial load before the first tick.
	t.reload(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.refresh:
			t.reload(ctx)
		case <-ticker.C:
			t.reload(ctx)
		}
	}
}

// Notify requests an immediate refresh. Safe to call from any goroutine;
// never blocks. Multiple calls before the next drain collapse into one.
func (t *Tracker) Notify() {
	select {
	case t.refresh <- struct{}{}:
	default:
	}
}

// Documents returns the last observed list.
func (t *Tracker) Documents() []pipeline.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]pipeline.Job, len(t.docs))
	copy(out, t.docs)
	return out
}

func (t *Tracker) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	docs, err := t.lister.ListDocuments(ctx, t.sess)
	if err != nil {
		slog.WarnContext(ctx, "document list refresh failed", "error", err)
		return
	}

	t.mu.Lock()
	t.docs = docs
	t.mu.Unlock()

	if t.onUpdate != nil {
		t.onUpdate(docs)
	}
}
