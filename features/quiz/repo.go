package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"docutrain/admin/internal/worker"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, q *Quiz) error {
	query := `INSERT INTO quizzes (document_id, status, question_count) VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, q.DocumentID, q.Status, q.QuestionCount).
		Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Quiz, error) {
	q := &Quiz{}
	var questions []byte
	var errMsg sql.NullString
	query := `SELECT id, document_id, status, question_count, questions, error, created_at, updated_at FROM quizzes WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&q.ID, &q.DocumentID, &q.Status, &q.QuestionCount, &questions, &errMsg, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	q.Error = errMsg.String
	if len(questions) > 0 {
		if err := json.Unmarshal(questions, &q.Questions); err != nil {
			return nil, fmt.Errorf("corrupt questions payload: %w", err)
		}
	}
	return q, nil
}

func (r *PostgresRepo) ListByDocument(ctx context.Context, documentID string) ([]Quiz, error) {
	query := `SELECT id, document_id, status, question_count, error, created_at, updated_at FROM quizzes WHERE document_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quizzes []Quiz
	for rows.Next() {
		var q Quiz
		var errMsg sql.NullString
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Status, &q.QuestionCount, &errMsg, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		q.Error = errMsg.String
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id)
	return err
}

func (r *PostgresRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quizzes WHERE status = $1`, status).Scan(&count)
	return count, err
}

func (r *PostgresRepo) MarkGenerating(ctx context.Context, id string) error {
	query := `UPDATE quizzes SET status = 'generating', updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) SetQuestions(ctx context.Context, id string, questions []worker.Question) error {
	data, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	// error is NOT NULL; clear it with the empty string, not NULL.
	query := `UPDATE quizzes SET status = 'ready', questions = $1, error = '', updated_at = NOW() WHERE id = $2`
	_, err = r.db.ExecContext(ctx, query, data, id)
	return err
}

func (r *PostgresRepo) MarkFailed(ctx context.Context, id, errMsg string) error {
	query := `UPDATE quizzes SET status = 'failed', error = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, errMsg, id)
	return err
}
