package settings_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docutrain/admin/internal/settings"
)

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := settings.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "gemini_api_key", "quiz_model", "quiz_question_count"}).
			AddRow(1, "key1", "gemini-1.5-flash", 5)

		mock.ExpectQuery(regexp.QuoteMeta("SELECT id, gemini_api_key, quiz_model, quiz_question_count FROM settings WHERE id = 1")).
			WillReturnRows(rows)

		s, err := repo.Get(context.Background())
		assert.NoError(t, err)
		assert.NotNil(t, s)
		assert.Equal(t, "key1", s.GeminiAPIKey)
		assert.Equal(t, 5, s.QuizQuestionCount)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT id")).
			WillReturnError(sqlmock.ErrCancelled)

		s, err := repo.Get(context.Background())
		assert.Error(t, err)
		assert.Nil(t, s)
	})
}

func TestPostgresRepo_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := settings.NewPostgresRepo(db)

	t.Run("Success", func(t *testing.T) {
		s := &settings.Settings{
			GeminiAPIKey:      "k1",
			QuizModel:         "gemini-1.5-pro",
			QuizQuestionCount: 10,
		}

		mock.ExpectExec(regexp.QuoteMeta("UPDATE settings")).
			WithArgs(s.GeminiAPIKey, s.QuizModel, s.QuizQuestionCount).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Update(context.Background(), s)
		assert.NoError(t, err)
	})
}
