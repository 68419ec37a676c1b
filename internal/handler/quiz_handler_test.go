package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/lms-api/internal/middleware"
	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/internal/service"
)

type quizRepoStub struct {
	quiz      *models.Quiz
	questions []models.Question
}

func (s *quizRepoStub) List(ctx context.Context, filter models.QuizFilter) ([]models.Quiz, int, error) {
	return []models.Quiz{*s.quiz}, 1, nil
}

func (s *quizRepoStub) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	q := *s.quiz
	return &q, nil
}

func (s *quizRepoStub) Create(ctx context.Context, quiz *models.Quiz) error { return nil }

func (s *quizRepoStub) Update(ctx context.Context, quiz *models.Quiz) error { return nil }

func (s *quizRepoStub) CreateQuestion(ctx context.Context, question *models.Question) error {
	return nil
}

func (s *quizRepoStub) SoftDeleteQuestion(ctx context.Context, quizID, questionID string) error {
	return nil
}

func (s *quizRepoStub) ListActiveQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	return s.questions, nil
}

func (s *quizRepoStub) CountActiveQuestions(ctx context.Context, quizID string) (int, error) {
	return len(s.questions), nil
}

type quizResultsStub struct {
	created []models.QuizResult
}

func (s *quizResultsStub) Create(ctx context.Context, result *models.QuizResult) error {
	s.created = append(s.created, *result)
	return nil
}

func (s *quizResultsStub) List(ctx context.Context, filter models.QuizResultFilter) ([]models.QuizResult, int, error) {
	return s.created, len(s.created), nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func testQuizHandler(questions []models.Question) (*QuizHandler, *quizResultsStub) {
	repo := &quizRepoStub{
		quiz:      &models.Quiz{ID: "quiz-1", Title: "Intro Checkpoint", TotalQuestions: len(questions)},
		questions: questions,
	}
	results := &quizResultsStub{}
	svc := service.NewQuizService(repo, results, nil, nil, nil, 0)
	return NewQuizHandler(svc), results
}

func sampleQuestions() []models.Question {
	explanation := "covered in lesson two"
	return []models.Question{
		{ID: "q1", QuizID: "quiz-1", Text: "First?", Options: []string{"a", "b"}, CorrectAnswerIndex: 0, Explanation: &explanation, IsActive: true},
		{ID: "q2", QuizID: "quiz-1", Text: "Second?", Options: []string{"a", "b", "c"}, CorrectAnswerIndex: 2, IsActive: true},
	}
}

func TestQuizHandlerListQuestionsRedactsForStudents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := testQuizHandler(sampleQuestions())

	c, w := newGinContext(http.MethodGet, "/quizzes/quiz-1/questions", nil)
	c.Params = gin.Params{{Key: "id", Value: "quiz-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.ListQuestions(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.Question `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 2)
	for _, q := range envelope.Data {
		require.Equal(t, -1, q.CorrectAnswerIndex)
		require.Nil(t, q.Explanation)
	}
}

func TestQuizHandlerListQuestionsKeepsAnswersForInstructors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := testQuizHandler(sampleQuestions())

	c, w := newGinContext(http.MethodGet, "/quizzes/quiz-1/questions", nil)
	c.Params = gin.Params{{Key: "id", Value: "quiz-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor})

	handler.ListQuestions(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data []models.Question `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 2, envelope.Data[1].CorrectAnswerIndex)
	require.NotNil(t, envelope.Data[0].Explanation)
}

func TestQuizHandlerSubmitRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := testQuizHandler(sampleQuestions())

	payload, _ := json.Marshal(models.QuizSubmission{Answers: map[string]int{"q1": 0}})
	c, w := newGinContext(http.MethodPost, "/quizzes/quiz-1/submit", payload)
	c.Params = gin.Params{{Key: "id", Value: "quiz-1"}}

	handler.Submit(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestQuizHandlerSubmitReturnsScore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, results := testQuizHandler(sampleQuestions())

	payload, _ := json.Marshal(models.QuizSubmission{Answers: map[string]int{"q1": 0, "q2": 2}, TimeSpent: 90})
	c, w := newGinContext(http.MethodPost, "/quizzes/quiz-1/submit", payload)
	c.Params = gin.Params{{Key: "id", Value: "quiz-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})

	handler.Submit(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.QuizScore `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, 2, envelope.Data.Score)
	require.True(t, envelope.Data.Passed)
	require.Len(t, results.created, 1)
	require.Equal(t, "stu-1", results.created[0].UserID)
	require.Equal(t, 90, results.created[0].TimeSpent)
}
