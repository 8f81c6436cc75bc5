package document_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docutrain/admin/features/document"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	now := time.Now()

	doc := &document.Document{
		OwnerID:     "own-1",
		Title:       "Handbook",
		Description: "Employee handbook",
		BodyHTML:    "<p>hello</p>",
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO documents (owner_id, title, description, body_html) VALUES ($1, $2, $3, $4) RETURNING id, created_at, updated_at")).
		WithArgs(doc.OwnerID, doc.Title, doc.Description, doc.BodyHTML).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("d-1", now, now))

	err = repo.Save(context.Background(), doc)
	assert.NoError(t, err)
	assert.Equal(t, "d-1", doc.ID)
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "body_html", "remote_id", "created_at", "updated_at"}).
			AddRow("d-1", "own-1", "Handbook", "desc", "<p>x</p>", "ud-1", now, now)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE id = $1 AND deleted_at IS NULL")).
			WithArgs("d-1").
			WillReturnRows(rows)

		doc, err := repo.Get(context.Background(), "d-1")
		assert.NoError(t, err)
		assert.Equal(t, "Handbook", doc.Title)
		assert.Equal(t, "ud-1", doc.RemoteID)
	})

	t.Run("NullRemoteID", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "body_html", "remote_id", "created_at", "updated_at"}).
			AddRow("d-2", "own-1", "Fresh", "", "", nil, now, now)
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE id = $1 AND deleted_at IS NULL")).
			WithArgs("d-2").
			WillReturnRows(rows)

		doc, err := repo.Get(context.Background(), "d-2")
		assert.NoError(t, err)
		assert.Empty(t, doc.RemoteID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE id = $1 AND deleted_at IS NULL")).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Get(context.Background(), "missing")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET owner_id = $1, title = $2, description = $3, body_html = $4, updated_at = NOW() WHERE id = $5 AND deleted_at IS NULL")).
			WithArgs("own-1", "New title", "d", "<p></p>", "d-1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), &document.Document{
			ID: "d-1", OwnerID: "own-1", Title: "New title", Description: "d", BodyHTML: "<p></p>",
		})
		assert.NoError(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Update(context.Background(), &document.Document{ID: "nope", Title: "x"})
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestPostgresRepo_SetRemoteID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET remote_id = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs("ud-5", "d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetRemoteID(context.Background(), "d-1", "ud-5"))
}

func TestPostgresRepo_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "body_html", "remote_id", "created_at", "updated_at"}).
		AddRow("d-1", "own-1", "A", "", "", "ud-1", now, now).
		AddRow("d-2", "own-1", "B", "", "", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, owner_id, title, description, body_html, remote_id, created_at, updated_at FROM documents WHERE deleted_at IS NULL ORDER BY created_at DESC")).
		WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	assert.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, "ud-1", docs[0].RemoteID)
	assert.Empty(t, docs[1].RemoteID)
}

func TestPostgresRepo_SoftDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET deleted_at = NOW() WHERE id = $1")).
		WithArgs("d-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SoftDelete(context.Background(), "d-1"))
}

func TestPostgresRepo_Count(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM documents WHERE deleted_at IS NULL")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.Count(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestPostgresRepo_UpdateStatusByRemoteID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := document.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE documents SET status = $1, updated_at = NOW() WHERE remote_id = $2 AND status IS DISTINCT FROM $1 AND deleted_at IS NULL")).
		WithArgs("ready", "ud-9").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.UpdateStatusByRemoteID(context.Background(), "ud-9", "ready"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
