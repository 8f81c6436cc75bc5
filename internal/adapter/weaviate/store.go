package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"docutrain/admin/internal/vector"
	"docutrain/admin/internal/worker"
)

// Store reads indexed chunks from Weaviate. Writes belong to the pipeline;
// the admin service never creates or deletes chunks.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

func (s *Store) GetChunks(ctx context.Context, documentID string, limit int) ([]worker.Chunk, error) {
	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "chunkIndex"},
		{Name: "title"},
	}

	where := filters.Where().
		WithOperator(filters.Equal).
		WithPath([]string{"documentId"}).
		WithValueString(documentID)

	if limit <= 0 {
		limit = 100
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ChunkClass).
		WithWhere(where).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var chunks []worker.Chunk
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if rawChunks, ok := data[vector.ChunkClass].([]interface{}); ok {
			for _, c := range rawChunks {
				props, ok := c.(map[string]interface{})
				if !ok {
					continue
				}
				chunk := worker.Chunk{}
				if content, ok := props["content"].(string); ok {
					chunk.Content = content
				}
				if id, ok := props["documentId"].(string); ok {
					chunk.DocumentID = id
				}
				if idx, ok := props["chunkIndex"].(float64); ok {
					chunk.ChunkIndex = int(idx)
				}
				if title, ok := props["title"].(string); ok {
					chunk.Title = title
				}
				chunks = append(chunks, chunk)
			}
		}
	}
	return chunks, nil
}

// EnsureSchema creates the chunk class if a fresh cluster does not have
// it yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewSchemaAdapter(s.client))
}

// CountChunks returns the total number of indexed chunks across all
// documents, for the stats dashboard.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	meta := graphql.Field{
		Name:   "meta",
		Fields: []graphql.Field{{Name: "count"}},
	}

	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ChunkClass).
		WithFields(meta).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if agg, ok := data[vector.ChunkClass].([]interface{}); ok && len(agg) > 0 {
			if first, ok := agg[0].(map[string]interface{}); ok {
				if m, ok := first["meta"].(map[string]interface{}); ok {
					if count, ok := m["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
