package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type quizRepository interface {
	List(ctx context.Context, filter models.QuizFilter) ([]models.Quiz, int, error)
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Update(ctx context.Context, quiz *models.Quiz) error
	CreateQuestion(ctx context.Context, question *models.Question) error
	SoftDeleteQuestion(ctx context.Context, quizID, questionID string) error
	ListActiveQuestions(ctx context.Context, quizID string) ([]models.Question, error)
	CountActiveQuestions(ctx context.Context, quizID string) (int, error)
}

type quizResultRepository interface {
	Create(ctx context.Context, result *models.QuizResult) error
	List(ctx context.Context, filter models.QuizResultFilter) ([]models.QuizResult, int, error)
}

// CreateQuizRequest is the payload for creating a quiz.
type CreateQuizRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Description string  `json:"description"`
	TimeLimit   int     `json:"time_limit_seconds" validate:"min=0"`
	CourseID    *string `json:"course_id,omitempty"`
}

// UpdateQuizRequest carries optional quiz metadata updates.
type UpdateQuizRequest struct {
	Title       *string `json:"title,omitempty" validate:"omitempty,min=3"`
	Description *string `json:"description,omitempty"`
	TimeLimit   *int    `json:"time_limit_seconds,omitempty" validate:"omitempty,min=0"`
}

// CreateQuestionRequest is the payload for adding a question to a quiz.
type CreateQuestionRequest struct {
	Text               string   `json:"text" validate:"required"`
	Options            []string `json:"options" validate:"required,min=2"`
	CorrectAnswerIndex int      `json:"correct_answer_index"`
	Explanation        *string  `json:"explanation,omitempty"`
	Points             int      `json:"points" validate:"min=0"`
	Difficulty         *string  `json:"difficulty,omitempty"`
	Tags               []string `json:"tags,omitempty"`
	OrderIndex         int      `json:"order_index" validate:"min=0"`
	Hint               *string  `json:"hint,omitempty"`
	Feedback           *string  `json:"feedback,omitempty"`
}

// QuizService exposes quiz authoring and grading use cases.
type QuizService struct {
	repo          quizRepository
	results       quizResultRepository
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
	passThreshold float64
}

// NewQuizService constructs a QuizService.
func NewQuizService(repo quizRepository, results quizResultRepository, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, passThreshold float64) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if passThreshold <= 0 {
		passThreshold = 70
	}
	return &QuizService{repo: repo, results: results, validator: validate, logger: logger, metrics: metrics, passThreshold: passThreshold}
}

// List returns quizzes matching the filter.
func (s *QuizService) List(ctx context.Context, filter models.QuizFilter) ([]models.Quiz, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	quizzes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quizzes")
	}
	return quizzes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get fetches a quiz. The question counter is recomputed from the active
// question set so a stale denormalized value never reaches callers.
func (s *QuizService) Get(ctx context.Context, id string) (*models.Quiz, error) {
	quiz, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "quiz not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load quiz")
	}

	count, err := s.repo.CountActiveQuestions(ctx, id)
	if err != nil {
		s.logger.Warn("failed to recount quiz questions", zap.String("quiz_id", id), zap.Error(err))
		return quiz, nil
	}
	if count != quiz.TotalQuestions {
		s.logger.Warn("quiz question counter drifted",
			zap.String("quiz_id", id),
			zap.Int("stored", quiz.TotalQuestions),
			zap.Int("actual", count))
		quiz.TotalQuestions = count
	}
	return quiz, nil
}

// Create persists a new quiz.
func (s *QuizService) Create(ctx context.Context, req CreateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}

	quiz := &models.Quiz{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		TimeLimit:   req.TimeLimit,
		CourseID:    req.CourseID,
	}
	if err := s.repo.Create(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create quiz")
	}
	return quiz, nil
}

// Update applies partial quiz metadata changes.
func (s *QuizService) Update(ctx context.Context, id string, req UpdateQuizRequest) (*models.Quiz, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quiz payload")
	}

	quiz, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		quiz.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.TimeLimit != nil {
		quiz.TimeLimit = *req.TimeLimit
	}
	quiz.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, quiz); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update quiz")
	}
	return quiz, nil
}

// AddQuestion validates and persists a new question. The correct answer
// index must reference an existing option; the quiz counter is updated in
// the same transaction as the insert.
func (s *QuizService) AddQuestion(ctx context.Context, quizID string, req CreateQuestionRequest) (*models.Question, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}
	if req.CorrectAnswerIndex < 0 || req.CorrectAnswerIndex >= len(req.Options) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "correct answer index is out of range")
	}

	if _, err := s.Get(ctx, quizID); err != nil {
		return nil, err
	}

	question := &models.Question{
		ID:                 uuid.NewString(),
		QuizID:             quizID,
		Text:               req.Text,
		Options:            req.Options,
		CorrectAnswerIndex: req.CorrectAnswerIndex,
		Explanation:        req.Explanation,
		Points:             req.Points,
		Difficulty:         req.Difficulty,
		Tags:               req.Tags,
		OrderIndex:         req.OrderIndex,
		Hint:               req.Hint,
		Feedback:           req.Feedback,
	}

	if err := s.repo.CreateQuestion(ctx, question); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	return question, nil
}

// DeleteQuestion soft-deletes a question and decrements the quiz counter
// atomically.
func (s *QuizService) DeleteQuestion(ctx context.Context, quizID, questionID string) error {
	if err := s.repo.SoftDeleteQuestion(ctx, quizID, questionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	return nil
}

// ListQuestions returns the active questions of a quiz in authoring order.
// Correct answers are included; handlers decide whether to redact them.
func (s *QuizService) ListQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	if _, err := s.Get(ctx, quizID); err != nil {
		return nil, err
	}
	questions, err := s.repo.ListActiveQuestions(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	return questions, nil
}

// Submit grades a submission and appends the attempt. Detailed point
// weighting is used whenever any question carries a points value; the
// attempt history is never updated in place.
func (s *QuizService) Submit(ctx context.Context, quizID, userID string, submission models.QuizSubmission) (*models.QuizScore, error) {
	if err := s.validator.Struct(submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid submission payload")
	}

	if _, err := s.Get(ctx, quizID); err != nil {
		return nil, err
	}

	questions, err := s.repo.ListActiveQuestions(ctx, quizID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	if len(questions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptyQuiz, "quiz has no active questions")
	}

	var score models.QuizScore
	if hasWeightedQuestions(questions) {
		score = ScoreSubmissionDetailed(questions, submission.Answers, s.passThreshold)
	} else {
		score = ScoreSubmission(questions, submission.Answers, s.passThreshold)
	}

	result := &models.QuizResult{
		ID:             uuid.NewString(),
		QuizID:         quizID,
		UserID:         userID,
		Score:          score.Score,
		TotalQuestions: score.TotalQuestions,
		EarnedPoints:   score.EarnedPoints,
		PossiblePoints: score.PossiblePoints,
		Percentage:     score.Percentage,
		Passed:         score.Passed,
		TimeSpent:      submission.TimeSpent,
		SubmittedAt:    time.Now().UTC(),
	}
	if err := s.results.Create(ctx, result); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record quiz attempt")
	}

	if s.metrics != nil {
		s.metrics.RecordQuizSubmission(score.Passed)
	}

	s.logger.Info("quiz submitted",
		zap.String("quiz_id", quizID),
		zap.String("user_id", userID),
		zap.Float64("percentage", score.Percentage),
		zap.Bool("passed", score.Passed))

	return &score, nil
}

// ListResults returns the attempt history matching the filter.
func (s *QuizService) ListResults(ctx context.Context, filter models.QuizResultFilter) ([]models.QuizResult, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	results, total, err := s.results.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list quiz results")
	}
	return results, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func hasWeightedQuestions(questions []models.Question) bool {
	for _, q := range questions {
		if q.Points > 0 {
			return true
		}
	}
	return false
}
