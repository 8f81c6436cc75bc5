package worker

import (
	"context"
)

// Chunk is an indexed fragment of a hosted document, read back from the
// vector store for quiz generation. The pipeline owns chunk writes.
type Chunk struct {
	Content    string
	DocumentID string
	ChunkIndex int
	Title      string
}

type ChunkStore interface {
	GetChunks(ctx context.Context, documentID string, limit int) ([]Chunk, error)
}

// Question is one generated quiz item.
type Question struct {
	Prompt      string   `json:"prompt"`
	Choices     []string `json:"choices"`
	Answer      int      `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, title string, chunks []Chunk, count int) ([]Question, error)
}

// QuizUpdater is the slice of the quiz repository the consumer needs.
type QuizUpdater interface {
	MarkGenerating(ctx context.Context, id string) error
	SetQuestions(ctx context.Context, id string, questions []Question) error
	MarkFailed(ctx context.Context, id, errMsg string) error
}
