package quiz_test

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"docutrain/admin/features/quiz"
	"docutrain/admin/internal/worker"
)

func TestQuizRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := quiz.NewPostgresRepo(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow("q-1", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO quizzes (document_id, status, question_count)")).
		WithArgs("d-1", quiz.StatusPending, 5).
		WillReturnRows(rows)

	q := &quiz.Quiz{DocumentID: "d-1", Status: quiz.StatusPending, QuestionCount: 5}
	err = repo.Save(context.Background(), q)
	assert.NoError(t, err)
	assert.Equal(t, "q-1", q.ID)
}

func TestQuizRepo_SetQuestions(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := quiz.NewPostgresRepo(db)

	questions := []worker.Question{
		{Prompt: "What is stored?", Choices: []string{"a", "b"}, Answer: 0},
	}
	data, _ := json.Marshal(questions)

	// The error column is NOT NULL, so the success path must write '' and
	// never NULL. A NULL here makes every completed generation fail to
	// persist and the message requeue forever.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes SET status = 'ready', questions = $1, error = '', updated_at = NOW() WHERE id = $2")).
		WithArgs(data, "q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SetQuestions(context.Background(), "q-1", questions)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepo_MarkFailed(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := quiz.NewPostgresRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes SET status = 'failed', error = $1, updated_at = NOW() WHERE id = $2")).
		WithArgs("generation failed", "q-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.MarkFailed(context.Background(), "q-1", "generation failed")
	assert.NoError(t, err)
}

func TestQuizRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := quiz.NewPostgresRepo(db)

	now := time.Now()
	questions, _ := json.Marshal([]worker.Question{{Prompt: "Q1", Answer: 0}})
	rows := sqlmock.NewRows([]string{"id", "document_id", "status", "question_count", "questions", "error", "created_at", "updated_at"}).
		AddRow("q-1", "d-1", quiz.StatusReady, 1, questions, "", now, now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, document_id, status, question_count, questions, error, created_at, updated_at FROM quizzes WHERE id = $1")).
		WithArgs("q-1").
		WillReturnRows(rows)

	q, err := repo.Get(context.Background(), "q-1")
	assert.NoError(t, err)
	assert.Equal(t, quiz.StatusReady, q.Status)
	assert.Len(t, q.Questions, 1)
	assert.Empty(t, q.Error)
}
