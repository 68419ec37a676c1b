package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillforge/lms-api/internal/models"
)

// QuizRepository handles persistence of quizzes and questions. Question writes
// and the quiz total_questions counter are updated in one transaction so the
// counter cannot drift from the active question set.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository constructs the repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

const quizColumns = `id, title, description, time_limit_seconds, total_questions, course_id, created_at, updated_at`

const questionColumns = `id, quiz_id, text, options, correct_answer_index, explanation, points, difficulty, tags, order_index, hint, feedback, is_active, created_at, updated_at`

// List returns quizzes filtered by the provided criteria.
func (r *QuizRepository) List(ctx context.Context, filter models.QuizFilter) ([]models.Quiz, int, error) {
	baseQuery := `FROM quizzes WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]bool{"title": true, "created_at": true, "updated_at": true}
	sortBy := filter.SortBy
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
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

	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", quizColumns, baseQuery, sortBy, sortOrder, pageSize, offset)

	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list quizzes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", baseQuery)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count quizzes: %w", err)
	}
	return quizzes, total, nil
}

// FindByID returns a quiz by its ID.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	query := fmt.Sprintf(`SELECT %s FROM quizzes WHERE id = $1 LIMIT 1`, quizColumns)
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find quiz by id: %w", err)
	}
	return &quiz, nil
}

// Create persists a new quiz record.
func (r *QuizRepository) Create(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = now
	}
	quiz.UpdatedAt = now

	const query = `INSERT INTO quizzes (id, title, description, time_limit_seconds, total_questions, course_id, created_at, updated_at)
        VALUES (:id, :title, :description, :time_limit_seconds, :total_questions, :course_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// Update updates quiz metadata.
func (r *QuizRepository) Update(ctx context.Context, quiz *models.Quiz) error {
	quiz.UpdatedAt = time.Now().UTC()
	const query = `UPDATE quizzes SET title = :title, description = :description, time_limit_seconds = :time_limit_seconds, course_id = :course_id, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return nil
}

// CreateQuestion inserts a question and increments the quiz counter atomically.
func (r *QuizRepository) CreateQuestion(ctx context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if question.CreatedAt.IsZero() {
		question.CreatedAt = now
	}
	question.UpdatedAt = now
	question.IsActive = true

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create question: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertQuery = `INSERT INTO questions (id, quiz_id, text, options, correct_answer_index, explanation, points, difficulty, tags, order_index, hint, feedback, is_active, created_at, updated_at)
        VALUES (:id, :quiz_id, :text, :options, :correct_answer_index, :explanation, :points, :difficulty, :tags, :order_index, :hint, :feedback, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, question); err != nil {
		return fmt.Errorf("create question: %w", err)
	}

	const counterQuery = `UPDATE quizzes SET total_questions = total_questions + 1, updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQuery, question.QuizID, now); err != nil {
		return fmt.Errorf("increment question counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create question: %w", err)
	}
	return nil
}

// SoftDeleteQuestion deactivates a question and decrements the quiz counter
// in the same transaction. Deleting an already-inactive question is a no-op.
func (r *QuizRepository) SoftDeleteQuestion(ctx context.Context, quizID, questionID string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete question: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const deactivateQuery = `UPDATE questions SET is_active = FALSE, updated_at = $3 WHERE id = $1 AND quiz_id = $2 AND is_active = TRUE`
	result, err := tx.ExecContext(ctx, deactivateQuery, questionID, quizID, now)
	if err != nil {
		return fmt.Errorf("deactivate question: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate question rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const counterQuery = `UPDATE quizzes SET total_questions = GREATEST(total_questions - 1, 0), updated_at = $2 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, counterQuery, quizID, now); err != nil {
		return fmt.Errorf("decrement question counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete question: %w", err)
	}
	return nil
}

// ListActiveQuestions returns the active questions of a quiz in order.
func (r *QuizRepository) ListActiveQuestions(ctx context.Context, quizID string) ([]models.Question, error) {
	query := fmt.Sprintf(`SELECT %s FROM questions WHERE quiz_id = $1 AND is_active = TRUE ORDER BY order_index ASC, created_at ASC`, questionColumns)
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, quizID); err != nil {
		return nil, fmt.Errorf("list active questions: %w", err)
	}
	return questions, nil
}

// CountActiveQuestions recomputes the counter from the authoritative set.
func (r *QuizRepository) CountActiveQuestions(ctx context.Context, quizID string) (int, error) {
	const query = `SELECT COUNT(*) FROM questions WHERE quiz_id = $1 AND is_active = TRUE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, quizID); err != nil {
		return 0, fmt.Errorf("count active questions: %w", err)
	}
	return count, nil
}
