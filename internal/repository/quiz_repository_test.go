package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/lms-api/internal/models"
)

func TestQuizRepositoryCreateQuestionUpdatesCounterInTx(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO questions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes SET total_questions = total_questions + 1")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	question := &models.Question{
		QuizID:             "quiz-1",
		Text:               "Pick one",
		Options:            []string{"a", "b"},
		CorrectAnswerIndex: 1,
	}
	require.NoError(t, repo.CreateQuestion(context.Background(), question))
	require.NotEmpty(t, question.ID)
	require.True(t, question.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryCreateQuestionRollsBackOnCounterFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO questions")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes SET total_questions = total_questions + 1")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	question := &models.Question{
		QuizID:             "quiz-1",
		Text:               "Pick one",
		Options:            []string{"a", "b"},
		CorrectAnswerIndex: 0,
	}
	require.Error(t, repo.CreateQuestion(context.Background(), question))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositorySoftDeleteQuestion(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET is_active = FALSE")).
		WithArgs("q1", "quiz-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE quizzes SET total_questions = GREATEST(total_questions - 1, 0)")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SoftDeleteQuestion(context.Background(), "quiz-1", "q1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositorySoftDeleteQuestionAlreadyInactive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE questions SET is_active = FALSE")).
		WithArgs("q1", "quiz-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.SoftDeleteQuestion(context.Background(), "quiz-1", "q1")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQuizRepositoryCountActiveQuestions(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewQuizRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM questions WHERE quiz_id = $1 AND is_active = TRUE")).
		WithArgs("quiz-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountActiveQuestions(context.Background(), "quiz-1")
	require.NoError(t, err)
	require.Equal(t, 4, count)
	require.NoError(t, mock.ExpectationsWereMet())
}
