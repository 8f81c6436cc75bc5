// Package progress folds a pipeline job's append-only log history into a
// single view model for the admin UI. The reducer is a pure function over
// the full log list; it never mutates server state.
package progress

import (
	"fmt"
	"math"

	"docutrain/admin/internal/pipeline"
)

// View is recomputed on every poll. Percent is 0-100, capped at 95 until
// the job reaches a terminal state, and never decreases while the job is
// still running.
type View struct {
	Stage     string `json:"stage"`
	BatchInfo string `json:"batch_info,omitempty"`
	Percent   int    `json:"percent"`
	Message   string `json:"message"`
}

var stageOrder = []string{
	pipeline.StageDownload,
	pipeline.StageExtract,
	pipeline.StageChunk,
	pipeline.StageEmbed,
	pipeline.StageStore,
}

// Base percent at which each stage begins. Embedding dominates wall time,
// so it spans 30-95.
var stageBase = map[string]int{
	pipeline.StageDownload: 0,
	pipeline.StageExtract:  10,
	pipeline.StageChunk:    20,
	pipeline.StageEmbed:    30,
	pipeline.StageStore:    95,
}

const embedSpan = 65

var stageLabels = map[string]string{
	pipeline.StageDownload: "Downloading source",
	pipeline.StageExtract:  "Extracting text",
	pipeline.StageChunk:    "Chunking content",
	pipeline.StageEmbed:    "Generating embeddings",
	pipeline.StageStore:    "Storing chunks",
}

// Reduce computes the progress view for a job from its full log history.
// prevPercent is the percent the caller last observed; while the job is
// non-terminal the result is clamped to be non-decreasing against it, so
// out-of-order log writes cannot walk the bar backwards.
func Reduce(job pipeline.Job, logs []pipeline.LogEntry, prevPercent int) View {
	if job.Status == pipeline.StatusReady {
		return View{Stage: "complete", Percent: 100, Message: "Processing complete"}
	}

	view := reduceLogs(logs)

	if job.Status == pipeline.StatusError {
		view.Stage = "failed"
		if job.ErrorMessage != "" {
			view.Message = job.ErrorMessage
		}
		return view
	}

	if view.Percent < prevPercent {
		view.Percent = prevPercent
	}
	if view.Percent > 95 {
		view.Percent = 95
	}
	return view
}

func reduceLogs(logs []pipeline.LogEntry) View {
	completed := map[string]bool{}
	var lastMessage string
	var progressStages = map[string]bool{}

	// Highest embed batch seen across the whole history.
	bestBatch, bestTotal := 0, 0

	for _, entry := range logs {
		if entry.Message != "" {
			lastMessage = entry.Message
		}
		switch entry.Status {
		case "completed":
			completed[entry.Stage] = true
		case "progress":
			progressStages[entry.Stage] = true
			if entry.Stage == pipeline.StageEmbed {
				b, t := batchMetadata(entry.Metadata)
				if t > 0 && b > bestBatch {
					bestBatch, bestTotal = b, t
				}
			}
		}
	}

	current := currentStage(completed)

	if bestTotal > 0 {
		percent := stageBase[pipeline.StageEmbed] + int(math.Round(float64(bestBatch)/float64(bestTotal)*embedSpan))
		return View{
			Stage:     stageLabels[pipeline.StageEmbed],
			BatchInfo: fmt.Sprintf("batch %d/%d", bestBatch, bestTotal),
			Percent:   clamp(percent, 0, 95),
			Message:   lastMessage,
		}
	}

	percent := 0
	for _, stage := range stageOrder {
		if completed[stage] {
			percent += 20
		}
	}
	if progressStages[current] {
		percent += 10
	}

	label := stageLabels[current]
	if len(logs) == 0 {
		label = "Queued"
	}
	return View{
		Stage:   label,
		Percent: clamp(percent, 0, 95),
		Message: lastMessage,
	}
}

func currentStage(completed map[string]bool) string {
	for _, stage := range stageOrder {
		if !completed[stage] {
			return stage
		}
	}
	return pipeline.StageStore
}

func batchMetadata(meta map[string]interface{}) (batch, total int) {
	return metaInt(meta, "batch"), metaInt(meta, "total_batches")
}

// JSON decodes numbers as float64; accept both for callers constructing
// entries directly.
func metaInt(meta map[string]interface{}, key string) int {
	switch v := meta[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
