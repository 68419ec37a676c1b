package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillforge/lms-api/internal/models"
)

// QuizResultRepository persists quiz attempt records. Rows are append-only;
// there is no update or delete path.
type QuizResultRepository struct {
	db *sqlx.DB
}

// NewQuizResultRepository constructs the repository.
func NewQuizResultRepository(db *sqlx.DB) *QuizResultRepository {
	return &QuizResultRepository{db: db}
}

const quizResultColumns = `id, quiz_id, user_id, score, total_questions, earned_points, possible_points, percentage, passed, time_spent_seconds, submitted_at`

// Create appends a new attempt record.
func (r *QuizResultRepository) Create(ctx context.Context, result *models.QuizResult) error {
	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.SubmittedAt.IsZero() {
		result.SubmittedAt = time.Now().UTC()
	}
	const query = `INSERT INTO quiz_results (id, quiz_id, user_id, score, total_questions, earned_points, possible_points, percentage, passed, time_spent_seconds, submitted_at)
        VALUES (:id, :quiz_id, :user_id, :score, :total_questions, :earned_points, :possible_points, :percentage, :passed, :time_spent_seconds, :submitted_at)`
	if _, err := r.db.NamedExecContext(ctx, query, result); err != nil {
		return fmt.Errorf("create quiz result: %w", err)
	}
	return nil
}

// List returns attempt records matching the filter, newest first.
func (r *QuizResultRepository) List(ctx context.Context, filter models.QuizResultFilter) ([]models.QuizResult, int, error) {
	baseQuery := `FROM quiz_results WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.QuizID != "" {
		conditions = append(conditions, fmt.Sprintf("quiz_id = $%d", len(args)+1))
		args = append(args, filter.QuizID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY submitted_at DESC LIMIT %d OFFSET %d", quizResultColumns, baseQuery, pageSize, offset)

	var results []models.QuizResult
	if err := r.db.SelectContext(ctx, &results, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list quiz results: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count quiz results: %w", err)
	}
	return results, total, nil
}

// ListByQuiz returns every attempt for a quiz, oldest first. Used by report
// exports which need the full history.
func (r *QuizResultRepository) ListByQuiz(ctx context.Context, quizID string) ([]models.QuizResult, error) {
	query := fmt.Sprintf(`SELECT %s FROM quiz_results WHERE quiz_id = $1 ORDER BY submitted_at ASC`, quizResultColumns)
	var results []models.QuizResult
	if err := r.db.SelectContext(ctx, &results, query, quizID); err != nil {
		return nil, fmt.Errorf("list quiz results by quiz: %w", err)
	}
	return results, nil
}

// RecentByUser returns the user's latest attempts across all quizzes.
func (r *QuizResultRepository) RecentByUser(ctx context.Context, userID string, limit int) ([]models.QuizResult, error) {
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`SELECT %s FROM quiz_results WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT %d`, quizResultColumns, limit)
	var results []models.QuizResult
	if err := r.db.SelectContext(ctx, &results, query, userID); err != nil {
		return nil, fmt.Errorf("recent quiz results: %w", err)
	}
	return results, nil
}
