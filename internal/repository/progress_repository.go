package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillforge/lms-api/internal/models"
)

// ProgressRepository handles persistence of per-course progress records.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs the repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

const progressColumns = `id, user_id, course_id, completed_lessons, percentage, current_lesson_percent, time_spent_minutes, last_accessed_at, created_at, updated_at`

// FindByUserAndCourse returns the progress record for one (user, course) pair.
func (r *ProgressRepository) FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Progress, error) {
	query := fmt.Sprintf(`SELECT %s FROM progress WHERE user_id = $1 AND course_id = $2 LIMIT 1`, progressColumns)
	var progress models.Progress
	if err := r.db.GetContext(ctx, &progress, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &progress, nil
}

// Create persists a fresh progress record.
func (r *ProgressRepository) Create(ctx context.Context, progress *models.Progress) error {
	if progress.ID == "" {
		progress.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if progress.CreatedAt.IsZero() {
		progress.CreatedAt = now
	}
	progress.UpdatedAt = now
	if progress.LastAccessedAt.IsZero() {
		progress.LastAccessedAt = now
	}
	if progress.CompletedLessons == nil {
		progress.CompletedLessons = models.LessonIDSet{}
	}

	const query = `INSERT INTO progress (id, user_id, course_id, completed_lessons, percentage, current_lesson_percent, time_spent_minutes, last_accessed_at, created_at, updated_at)
        VALUES (:id, :user_id, :course_id, :completed_lessons, :percentage, :current_lesson_percent, :time_spent_minutes, :last_accessed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	return nil
}

// Update persists the mutated completion set and derived fields.
func (r *ProgressRepository) Update(ctx context.Context, progress *models.Progress) error {
	progress.UpdatedAt = time.Now().UTC()
	const query = `UPDATE progress SET completed_lessons = :completed_lessons, percentage = :percentage, current_lesson_percent = :current_lesson_percent, time_spent_minutes = :time_spent_minutes, last_accessed_at = :last_accessed_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, progress); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// ListByUser returns all progress records for a user.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.Progress, error) {
	query := fmt.Sprintf(`SELECT %s FROM progress WHERE user_id = $1 ORDER BY last_accessed_at DESC`, progressColumns)
	var records []models.Progress
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list user progress: %w", err)
	}
	return records, nil
}

// ListByCourse returns all progress records for a course.
func (r *ProgressRepository) ListByCourse(ctx context.Context, courseID string) ([]models.Progress, error) {
	query := fmt.Sprintf(`SELECT %s FROM progress WHERE course_id = $1`, progressColumns)
	var records []models.Progress
	if err := r.db.SelectContext(ctx, &records, query, courseID); err != nil {
		return nil, fmt.Errorf("list course progress: %w", err)
	}
	return records, nil
}
