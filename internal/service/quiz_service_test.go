package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type mockQuizRepo struct {
	quiz      *models.Quiz
	questions []models.Question
	created   []*models.Question
	countErr  error
	deleteErr error
}

func (m *mockQuizRepo) List(_ context.Context, _ models.QuizFilter) ([]models.Quiz, int, error) {
	if m.quiz == nil {
		return nil, 0, nil
	}
	return []models.Quiz{*m.quiz}, 1, nil
}

func (m *mockQuizRepo) FindByID(_ context.Context, id string) (*models.Quiz, error) {
	if m.quiz == nil || m.quiz.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.quiz
	return &copied, nil
}

func (m *mockQuizRepo) Create(_ context.Context, quiz *models.Quiz) error {
	m.quiz = quiz
	return nil
}

func (m *mockQuizRepo) Update(_ context.Context, quiz *models.Quiz) error {
	m.quiz = quiz
	return nil
}

func (m *mockQuizRepo) CreateQuestion(_ context.Context, question *models.Question) error {
	m.created = append(m.created, question)
	m.questions = append(m.questions, *question)
	return nil
}

func (m *mockQuizRepo) SoftDeleteQuestion(_ context.Context, _, _ string) error {
	return m.deleteErr
}

func (m *mockQuizRepo) ListActiveQuestions(_ context.Context, _ string) ([]models.Question, error) {
	return m.questions, nil
}

func (m *mockQuizRepo) CountActiveQuestions(_ context.Context, _ string) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.questions), nil
}

type mockQuizResults struct {
	created []*models.QuizResult
}

func (m *mockQuizResults) Create(_ context.Context, result *models.QuizResult) error {
	m.created = append(m.created, result)
	return nil
}

func (m *mockQuizResults) List(_ context.Context, _ models.QuizResultFilter) ([]models.QuizResult, int, error) {
	out := make([]models.QuizResult, 0, len(m.created))
	for _, r := range m.created {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func newQuizService(repo *mockQuizRepo, results *mockQuizResults) *QuizService {
	return NewQuizService(repo, results, nil, zap.NewNop(), nil, 70)
}

func quizQuestion(id string, correct int) models.Question {
	return models.Question{
		ID:                 id,
		QuizID:             "quiz-1",
		Options:            []string{"a", "b", "c"},
		CorrectAnswerIndex: correct,
		IsActive:           true,
	}
}

func TestQuizGetRepairsDriftedCounter(t *testing.T) {
	repo := &mockQuizRepo{
		quiz:      &models.Quiz{ID: "quiz-1", Title: "Drifted", TotalQuestions: 7},
		questions: []models.Question{quizQuestion("q1", 0), quizQuestion("q2", 1)},
	}
	svc := newQuizService(repo, &mockQuizResults{})

	quiz, err := svc.Get(context.Background(), "quiz-1")

	require.NoError(t, err)
	assert.Equal(t, 2, quiz.TotalQuestions)
}

func TestQuizGetKeepsStoredCounterWhenRecountFails(t *testing.T) {
	repo := &mockQuizRepo{
		quiz:     &models.Quiz{ID: "quiz-1", Title: "Stored", TotalQuestions: 7},
		countErr: assertableErr("recount failed"),
	}
	svc := newQuizService(repo, &mockQuizResults{})

	quiz, err := svc.Get(context.Background(), "quiz-1")

	require.NoError(t, err)
	assert.Equal(t, 7, quiz.TotalQuestions)
}

func TestAddQuestionRejectsOutOfRangeAnswer(t *testing.T) {
	repo := &mockQuizRepo{quiz: &models.Quiz{ID: "quiz-1", Title: "Quiz"}}
	svc := newQuizService(repo, &mockQuizResults{})

	_, err := svc.AddQuestion(context.Background(), "quiz-1", CreateQuestionRequest{
		Text:               "Pick one",
		Options:            []string{"a", "b"},
		CorrectAnswerIndex: 2,
	})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Empty(t, repo.created)
}

func TestAddQuestionPersists(t *testing.T) {
	repo := &mockQuizRepo{quiz: &models.Quiz{ID: "quiz-1", Title: "Quiz"}}
	svc := newQuizService(repo, &mockQuizResults{})

	question, err := svc.AddQuestion(context.Background(), "quiz-1", CreateQuestionRequest{
		Text:               "Pick one",
		Options:            []string{"a", "b", "c"},
		CorrectAnswerIndex: 1,
		Points:             5,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, question.ID)
	assert.Equal(t, "quiz-1", question.QuizID)
	require.Len(t, repo.created, 1)
}

func TestSubmitEmptyQuizRejected(t *testing.T) {
	repo := &mockQuizRepo{quiz: &models.Quiz{ID: "quiz-1", Title: "Empty"}}
	svc := newQuizService(repo, &mockQuizResults{})

	_, err := svc.Submit(context.Background(), "quiz-1", "user-1", models.QuizSubmission{
		Answers: map[string]int{"q1": 0},
	})

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrEmptyQuiz.Code, appErr.Code)
}

func TestSubmitRecordsAttempt(t *testing.T) {
	repo := &mockQuizRepo{
		quiz: &models.Quiz{ID: "quiz-1", Title: "Quiz", TotalQuestions: 2},
		questions: []models.Question{
			quizQuestion("q1", 0),
			quizQuestion("q2", 1),
		},
	}
	results := &mockQuizResults{}
	svc := newQuizService(repo, results)

	score, err := svc.Submit(context.Background(), "quiz-1", "user-1", models.QuizSubmission{
		Answers:   map[string]int{"q1": 0, "q2": 0},
		TimeSpent: 42,
	})

	require.NoError(t, err)
	assert.Equal(t, 1, score.Score)
	assert.InDelta(t, 50.0, score.Percentage, 0.001)
	assert.False(t, score.Passed)

	require.Len(t, results.created, 1)
	recorded := results.created[0]
	assert.Equal(t, "user-1", recorded.UserID)
	assert.Equal(t, 42, recorded.TimeSpent)
	assert.False(t, recorded.SubmittedAt.IsZero())
}

func TestSubmitUsesDetailedScoringForWeightedQuestions(t *testing.T) {
	weighted := quizQuestion("q1", 0)
	weighted.Points = 10
	plain := quizQuestion("q2", 1)
	repo := &mockQuizRepo{
		quiz:      &models.Quiz{ID: "quiz-1", Title: "Quiz"},
		questions: []models.Question{weighted, plain},
	}
	svc := newQuizService(repo, &mockQuizResults{})

	score, err := svc.Submit(context.Background(), "quiz-1", "user-1", models.QuizSubmission{
		Answers: map[string]int{"q1": 0, "q2": 0},
	})

	require.NoError(t, err)
	assert.Equal(t, 11, score.PossiblePoints)
	assert.Equal(t, 10, score.EarnedPoints)
	assert.NotEmpty(t, score.Breakdown)
}

func TestDeleteQuestionNotFound(t *testing.T) {
	repo := &mockQuizRepo{deleteErr: sql.ErrNoRows}
	svc := newQuizService(repo, &mockQuizResults{})

	err := svc.DeleteQuestion(context.Background(), "quiz-1", "ghost")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

type assertableErr string

func (e assertableErr) Error() string { return string(e) }
