package document

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

func (r *PostgresRepo) Save(ctx context.Context, doc *Document) error {
	query := `INSERT INTO documents (owner_id, title, description, body_html) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, doc.OwnerID, doc.Title, doc.Description, doc.BodyHTML).
		Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Document, error) {
	d := &Document{}
	var remoteID sql.NullString
	query := `SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.BodyHTML, &remoteID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.RemoteID = remoteID.String
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Document, error) {
	query := `SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var remoteID sql.NullString
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.BodyHTML, &remoteID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.RemoteID = remoteID.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, doc *Document) error {
	query := `UPDATE documents SET owner_id = $1, title = $2, description = $3, body_html = $4, updated_at = NOW() WHERE id = $5 AND deleted_at IS NULL`
	res, err := r.db.ExecContext(ctx, query, doc.OwnerID, doc.Title, doc.Description, doc.BodyHTML, doc.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) SetRemoteID(ctx context.Context, id, remoteID string) error {
	query := `UPDATE documents SET remote_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, remoteID, id)
	return err
}

// UpdateStatusByRemoteID records the status a watcher observed on the
// pipeline. The IS DISTINCT FROM guard keeps no-op polls from firing the
// status notification trigger.
func (r *PostgresRepo) UpdateStatusByRemoteID(ctx context.Context, remoteID, status string) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE remote_id = $2 AND status IS DISTINCT FROM $1 AND deleted_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, status, remoteID)
	return err
}

func (r *PostgresRepo) SoftDelete(ctx context.Context, id string) error {
	query := `UPDATE documents SET deleted_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) GetTitle(ctx context.Context, id string) (string, error) {
	var title string
	query := `SELECT title FROM documents WHERE id = $1 AND deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&title)
	return title, err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}
