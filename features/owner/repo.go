package owner

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

func (r *PostgresRepo) Save(ctx context.Context, o *Owner) error {
	query := `INSERT INTO owners (name, logo_url, accent_color, welcome_text) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, o.Name, o.LogoURL, o.AccentColor, o.WelcomeText).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*Owner, error) {
	o := &Owner{}
	query := `SELECT id, name, logo_url, accent_color, welcome_text, created_at, updated_at FROM owners WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&o.ID, &o.Name, &o.LogoURL, &o.AccentColor, &o.WelcomeText, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Owner, error) {
	query := `SELECT id, name, logo_url, accent_color, welcome_text, created_at, updated_at FROM owners ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []Owner
	for rows.Next() {
		var o Owner
		if err := rows.Scan(&o.ID, &o.Name, &o.LogoURL, &o.AccentColor, &o.WelcomeText, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		owners = append(owners, o)
	}
	return owners, rows.Err()
}

func (r *PostgresRepo) Update(ctx context.Context, o *Owner) error {
	query := `UPDATE owners SET name = $1, logo_url = $2, accent_color = $3, welcome_text = $4, updated_at = NOW() WHERE id = $5`
	res, err := r.db.ExecContext(ctx, query, o.Name, o.LogoURL, o.AccentColor, o.WelcomeText, o.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM owners WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM owners`).Scan(&count)
	return count, err
}
