// Package realtime delivers push notifications for document status changes
// via Postgres LISTEN/NOTIFY. The pipeline fires a NOTIFY on the shared
// database whenever it touches a document row; this is faster than waiting
// for the next poll tick but carries no payload guarantees, so subscribers
// treat every event as "go refresh now".
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Event is the decoded NOTIFY payload. DocumentID is the pipeline's
// user_document_id, so handlers can route the event to the watcher for
// that job.
type Event struct {
	OwnerID    string `json:"owner_id"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
}

type Handler func(Event)

type Listener struct {
	pql     *pq.Listener
	channel string
}

// NewListener opens a dedicated LISTEN connection. connInfo is a lib/pq DSN.
func NewListener(connInfo, channel string) (*Listener, error) {
	pql := pq.NewListener(connInfo, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("realtime listener connection event", "event", int(ev), "error", err)
		}
	})
	if err := pql.Listen(channel); err != nil {
		pql.Close()
		return nil, err
	}
	return &Listener{pql: pql, channel: channel}, nil
}

// Run delivers events to fn until ctx is cancelled. Events for other
// owners can be filtered by the handler; malformed payloads are dropped
// with a warning. The LISTEN connection is released on return.
func (l *Listener) Run(ctx context.Context, fn Handler) error {
	defer func() {
		if err := l.pql.Close(); err != nil {
			slog.Warn("failed to close realtime listener", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-l.pql.Notify:
			if !ok {
				return nil
			}
			// nil notification means the connection was re-established;
			// subscribers should refresh since events may have been lost.
			if n == nil {
				fn(Event{})
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				slog.Warn("dropping malformed realtime payload", "error", err, "channel", n.Channel)
				continue
			}
			fn(ev)
		case <-time.After(90 * time.Second):
			// Liveness check on a quiet channel.
			go func() {
				if err := l.pql.Ping(); err != nil {
					slog.Warn("realtime listener ping failed", "error", err)
				}
			}()
		}
	}
}
