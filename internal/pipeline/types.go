package pipeline

import "time"

// JobStatus is the server-owned processing state of a document. The admin
// service only ever reads it; the pipeline mutates it.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusReady      JobStatus = "ready"
	StatusError      JobStatus = "error"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == StatusReady || s == StatusError
}

type Job struct {
	ID           string    `json:"id"`
	Status       JobStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Pipeline stages in execution order.
const (
	StageDownload = "download"
	StageExtract  = "extract"
	StageChunk    = "chunk"
	StageEmbed    = "embed"
	StageStore    = "store"
)

// LogEntry is one append-only structured log line emitted by the pipeline.
// Embed-stage progress entries carry {batch, total_batches} in Metadata.
type LogEntry struct {
	Stage     string                 `json:"stage"`
	Status    string                 `json:"status"` // started, progress, completed, failed
	Message   string                 `json:"message"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// StatusReport is the response of GET /api/processing-status/:id.
type StatusReport struct {
	Document Job        `json:"document"`
	Logs     []LogEntry `json:"logs"`
}
