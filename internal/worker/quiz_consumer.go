package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"docutrain/admin/internal/middleware"
)

// QuizConsumer drains the quiz.generate topic: it reads the document's
// indexed chunks, asks the generator for questions, and persists the
// result. A failed generation marks the quiz failed rather than requeueing
// forever; malformed messages are dropped as poison pills.
type QuizConsumer struct {
	chunks    ChunkStore
	generator QuestionGenerator
	quizzes   QuizUpdater
}

func NewQuizConsumer(chunks ChunkStore, generator QuestionGenerator, quizzes QuizUpdater) *QuizConsumer {
	return &QuizConsumer{
		chunks:    chunks,
		generator: generator,
		quizzes:   quizzes,
	}
}

const maxQuizChunks = 40

func (h *QuizConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var payload QuizGeneratePayload
	if err := json.Unmarshal(m.Body, &payload); err != nil {
		// Poison pill: invalid JSON, don't retry.
		slog.Error("poison pill: invalid quiz task json", "error", err)
		return nil
	}

	correlationID := payload.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if payload.QuizID == "" || payload.DocumentID == "" {
		slog.ErrorContext(ctx, "missing required fields, dropping", "quiz_id", payload.QuizID, "document_id", payload.DocumentID)
		return nil
	}

	if err := h.quizzes.MarkGenerating(ctx, payload.QuizID); err != nil {
		slog.ErrorContext(ctx, "failed to mark quiz generating", "error", err, "quiz_id", payload.QuizID)
		return err // Retry: transient DB failure
	}

	chunks, err := h.chunks.GetChunks(ctx, payload.DocumentID, maxQuizChunks)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fetch chunks", "error", err, "document_id", payload.DocumentID)
		return h.fail(ctx, payload.QuizID, fmt.Sprintf("chunk fetch failed: %v", err))
	}
	if len(chunks) == 0 {
		return h.fail(ctx, payload.QuizID, "document has no indexed content")
	}

	genCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	questions, err := h.generator.GenerateQuestions(genCtx, payload.Title, chunks, payload.QuestionCount)
	if err != nil {
		slog.ErrorContext(ctx, "quiz generation failed", "error", err, "quiz_id", payload.QuizID)
		return h.fail(ctx, payload.QuizID, err.Error())
	}

	if err := h.quizzes.SetQuestions(ctx, payload.QuizID, questions); err != nil {
		slog.ErrorContext(ctx, "failed to store questions", "error", err, "quiz_id", payload.QuizID)
		return err // Retry: generation succeeded, persistence is transient
	}

	slog.InfoContext(ctx, "quiz generated", "quiz_id", payload.QuizID, "questions", len(questions))
	return nil
}

func (h *QuizConsumer) fail(ctx context.Context, quizID, msg string) error {
	if err := h.quizzes.MarkFailed(ctx, quizID, msg); err != nil {
		slog.ErrorContext(ctx, "failed to mark quiz failed", "error", err, "quiz_id", quizID)
		return err
	}
	return nil
}
