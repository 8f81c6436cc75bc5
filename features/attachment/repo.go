package attachment

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, a *Attachment) error {
	query := `INSERT INTO attachments (document_id, filename, object_key, size_bytes, content_type) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query, a.DocumentID, a.Filename, a.ObjectKey, a.SizeBytes, a.ContentType).
		Scan(&a.ID, &a.CreatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Attachment, error) {
	a := &Attachment{}
	query := `SELECT id, document_id, filename, object_key, size_bytes, content_type, created_at FROM attachments WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.DocumentID, &a.Filename, &a.ObjectKey, &a.SizeBytes, &a.ContentType, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *PostgresRepo) ListByDocument(ctx context.Context, documentID string) ([]Attachment, error) {
	query := `SELECT id, document_id, filename, object_key, size_bytes, content_type, created_at FROM attachments WHERE document_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []Attachment
	for rows.Next() {
		var a Attachment
		if err := rows.Scan(&a.ID, &a.DocumentID, &a.Filename, &a.ObjectKey, &a.SizeBytes, &a.ContentType, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM attachments WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attachments`).Scan(&count)
	return count, err
}
