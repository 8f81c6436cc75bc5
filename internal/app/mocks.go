package app

import (
	"context"

	"docutrain/admin/internal/worker"
)

// MockVectorStore is a configurable stand-in for the chunk index, shared
// by tests in and outside this package.
type MockVectorStore struct {
	EnsureSchemaErr error
	Chunks          []worker.Chunk
	ChunksErr       error
	Count           int
	CountErr        error
}

func (m *MockVectorStore) EnsureSchema(ctx context.Context) error {
	return m.EnsureSchemaErr
}

func (m *MockVectorStore) GetChunks(ctx context.Context, documentID string, limit int) ([]worker.Chunk, error) {
	return m.Chunks, m.ChunksErr
}

func (m *MockVectorStore) CountChunks(ctx context.Context) (int, error) {
	return m.Count, m.CountErr
}
