package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/skillforge/lms-api/internal/models"
)

// AnalyticsRepository runs the aggregate queries backing dashboards. All
// aggregation happens in SQL rather than by scanning rows application-side.
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository constructs the repository.
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// StudentTotals summarises one student's engagement.
type StudentTotals struct {
	EnrolledCourses  int `db:"enrolled_courses"`
	CompletedCourses int `db:"completed_courses"`
	TimeSpentMinutes int `db:"time_spent_minutes"`
}

// StudentTotals returns enrollment and time-spent totals for a user.
func (r *AnalyticsRepository) StudentTotals(ctx context.Context, userID string) (*StudentTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM enrollments WHERE user_id = $1) AS enrolled_courses,
        (SELECT COUNT(*) FROM enrollments WHERE user_id = $1 AND status = $2) AS completed_courses,
        COALESCE((SELECT SUM(time_spent_minutes) FROM progress WHERE user_id = $1), 0) AS time_spent_minutes`
	var totals StudentTotals
	if err := r.db.GetContext(ctx, &totals, query, userID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("student totals: %w", err)
	}
	return &totals, nil
}

// CourseEngagement aggregates enrollment and progress for one course.
type CourseEngagement struct {
	CourseID        string  `db:"course_id"`
	CourseTitle     string  `db:"course_title"`
	EnrolledCount   int     `db:"enrolled_count"`
	CompletedCount  int     `db:"completed_count"`
	AverageProgress float64 `db:"average_progress"`
	QuizAttempts    int     `db:"quiz_attempts"`
	QuizPasses      int     `db:"quiz_passes"`
}

// InstructorCourseEngagement returns per-course engagement for an instructor.
func (r *AnalyticsRepository) InstructorCourseEngagement(ctx context.Context, instructorID string) ([]CourseEngagement, error) {
	const query = `SELECT c.id AS course_id, c.title AS course_title,
        COUNT(DISTINCT e.id) AS enrolled_count,
        COUNT(DISTINCT e.id) FILTER (WHERE e.status = $2) AS completed_count,
        COALESCE(AVG(p.percentage), 0) AS average_progress,
        COALESCE((SELECT COUNT(*) FROM quiz_results qr JOIN quizzes q ON q.id = qr.quiz_id WHERE q.course_id = c.id), 0) AS quiz_attempts,
        COALESCE((SELECT COUNT(*) FROM quiz_results qr JOIN quizzes q ON q.id = qr.quiz_id WHERE q.course_id = c.id AND qr.passed), 0) AS quiz_passes
        FROM courses c
        LEFT JOIN enrollments e ON e.course_id = c.id
        LEFT JOIN progress p ON p.course_id = c.id
        WHERE c.instructor_id = $1
        GROUP BY c.id, c.title
        ORDER BY c.created_at DESC`
	var rows []CourseEngagement
	if err := r.db.SelectContext(ctx, &rows, query, instructorID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("instructor course engagement: %w", err)
	}
	return rows, nil
}

// PlatformTotals aggregates platform-wide counters for the admin dashboard.
type PlatformTotals struct {
	TotalEnrollments int `db:"total_enrollments"`
	QuizAttempts     int `db:"quiz_attempts"`
	QuizPasses       int `db:"quiz_passes"`
}

// PlatformTotals returns enrollment and quiz attempt counters.
func (r *AnalyticsRepository) PlatformTotals(ctx context.Context) (*PlatformTotals, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM enrollments) AS total_enrollments,
        (SELECT COUNT(*) FROM quiz_results) AS quiz_attempts,
        (SELECT COUNT(*) FROM quiz_results WHERE passed) AS quiz_passes`
	var totals PlatformTotals
	if err := r.db.GetContext(ctx, &totals, query); err != nil {
		return nil, fmt.Errorf("platform totals: %w", err)
	}
	return &totals, nil
}
