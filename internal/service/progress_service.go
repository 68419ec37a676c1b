package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type progressRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Progress, error)
	Create(ctx context.Context, progress *models.Progress) error
	Update(ctx context.Context, progress *models.Progress) error
	ListByUser(ctx context.Context, userID string) ([]models.Progress, error)
}

type progressEnrollmentRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, completedAt *time.Time) error
}

type progressCourseGetter interface {
	Get(ctx context.Context, id string) (*models.Course, error)
}

// ProgressService tracks lesson completion and derives per-course views.
type ProgressService struct {
	repo        progressRepository
	enrollments progressEnrollmentRepository
	courses     progressCourseGetter
	logger      *zap.Logger
	metrics     *MetricsService
}

// NewProgressService constructs a ProgressService.
func NewProgressService(repo progressRepository, enrollments progressEnrollmentRepository, courses progressCourseGetter, logger *zap.Logger, metrics *MetricsService) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{repo: repo, enrollments: enrollments, courses: courses, logger: logger, metrics: metrics}
}

// Get returns the progress record for a user/course pair, creating an empty
// one on first access.
func (s *ProgressService) Get(ctx context.Context, userID, courseID string) (*models.Progress, error) {
	if _, err := s.courses.Get(ctx, courseID); err != nil {
		return nil, err
	}

	progress, err := s.repo.FindByUserAndCourse(ctx, userID, courseID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	progress = &models.Progress{
		ID:               uuid.NewString(),
		UserID:           userID,
		CourseID:         courseID,
		CompletedLessons: models.LessonIDSet{},
		LastAccessedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create progress")
	}
	return progress, nil
}

// CompleteLesson marks a lesson as done. Lessons unlock strictly in order;
// completing the final lesson also marks the enrollment completed.
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, courseID, lessonID string, timeSpentMinutes int) (*models.Progress, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ordered := orderedLessonIDs(course.Content)
	if !containsLesson(ordered, lessonID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson does not belong to this course")
	}

	progress, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	if progress.CompletedLessons.Contains(lessonID) {
		return progress, nil
	}

	if !lessonAccessible(ordered, progress.CompletedLessons, lessonID) {
		return nil, appErrors.Clone(appErrors.ErrLessonLocked, "previous lesson must be completed first")
	}

	progress.CompletedLessons = append(progress.CompletedLessons, lessonID)
	progress.CurrentLessonPercent = 0
	progress.Percentage = completionPercentage(len(progress.CompletedLessons), len(ordered), 0)
	if timeSpentMinutes > 0 {
		progress.TimeSpent += timeSpentMinutes
	}
	progress.LastAccessedAt = time.Now().UTC()
	progress.UpdatedAt = progress.LastAccessedAt

	if err := s.repo.Update(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}

	if s.metrics != nil {
		s.metrics.RecordLessonCompletion()
	}

	if len(progress.CompletedLessons) >= len(ordered) {
		s.markEnrollmentCompleted(ctx, userID, courseID)
	}

	return progress, nil
}

// RecordLessonProgress stores partial progress inside the lesson the user is
// working on. The partial share feeds the overall percentage until the lesson
// is completed, which resets it.
func (s *ProgressService) RecordLessonProgress(ctx context.Context, userID, courseID, lessonID string, percent float64, timeSpentMinutes int) (*models.Progress, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ordered := orderedLessonIDs(course.Content)
	if !containsLesson(ordered, lessonID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson does not belong to this course")
	}

	progress, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	if progress.CompletedLessons.Contains(lessonID) {
		return progress, nil
	}

	if !lessonAccessible(ordered, progress.CompletedLessons, lessonID) {
		return nil, appErrors.Clone(appErrors.ErrLessonLocked, "previous lesson must be completed first")
	}

	progress.CurrentLessonPercent = clampPercent(percent)
	progress.Percentage = completionPercentage(len(progress.CompletedLessons), len(ordered), progress.CurrentLessonPercent)
	if timeSpentMinutes > 0 {
		progress.TimeSpent += timeSpentMinutes
	}
	progress.LastAccessedAt = time.Now().UTC()
	progress.UpdatedAt = progress.LastAccessedAt

	if err := s.repo.Update(ctx, progress); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update progress")
	}
	return progress, nil
}

// CourseView builds the dashboard view for one user/course pair.
func (s *ProgressService) CourseView(ctx context.Context, userID, courseID string) (*models.CourseProgressView, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	progress, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	return buildCourseProgressView(course, progress), nil
}

// LessonAccess reports whether the user may open the given lesson.
func (s *ProgressService) LessonAccess(ctx context.Context, userID, courseID, lessonID string) (*models.LessonAccess, error) {
	course, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}

	ordered := orderedLessonIDs(course.Content)
	if !containsLesson(ordered, lessonID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "lesson does not belong to this course")
	}

	progress, err := s.Get(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	access := &models.LessonAccess{LessonID: lessonID}
	if lessonAccessible(ordered, progress.CompletedLessons, lessonID) {
		access.Accessible = true
	} else {
		access.Reason = "previous lesson not completed"
	}
	return access, nil
}

// ListByUser returns all progress records of a user.
func (s *ProgressService) ListByUser(ctx context.Context, userID string) ([]models.Progress, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list progress")
	}
	return records, nil
}

func (s *ProgressService) markEnrollmentCompleted(ctx context.Context, userID, courseID string) {
	enrollment, err := s.enrollments.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load enrollment for completion", zap.Error(err))
		}
		return
	}
	if enrollment.Status == models.EnrollmentStatusCompleted {
		return
	}
	now := time.Now().UTC()
	if err := s.enrollments.UpdateStatus(ctx, enrollment.ID, models.EnrollmentStatusCompleted, &now); err != nil {
		s.logger.Warn("failed to mark enrollment completed",
			zap.String("user_id", userID),
			zap.String("course_id", courseID),
			zap.Error(err))
		return
	}
	s.logger.Info("course completed",
		zap.String("user_id", userID),
		zap.String("course_id", courseID))
}

// orderedLessonIDs flattens the course document into the linear lesson order
// used for gating and numbering.
func orderedLessonIDs(content models.CourseContent) []string {
	var ids []string
	for _, m := range content.Modules {
		for _, l := range m.Lessons {
			ids = append(ids, l.ID)
		}
	}
	if len(ids) > 0 {
		return ids
	}
	// Legacy documents may carry lessons only at the top level.
	for _, l := range content.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func containsLesson(ordered []string, lessonID string) bool {
	for _, id := range ordered {
		if id == lessonID {
			return true
		}
	}
	return false
}

// lessonAccessible implements strict linear progression: the first lesson is
// always open, every other lesson requires its immediate predecessor to be
// completed.
func lessonAccessible(ordered []string, completed models.LessonIDSet, lessonID string) bool {
	for i, id := range ordered {
		if id != lessonID {
			continue
		}
		if i == 0 {
			return true
		}
		return completed.Contains(ordered[i-1])
	}
	return false
}

// completionPercentage computes (completed lessons x 100 + partial progress
// inside the current lesson) / total, capped at 100 so legacy records with
// removed lessons do not report impossible progress.
func completionPercentage(completedCount, totalLessons int, currentLessonPercent float64) float64 {
	if totalLessons <= 0 {
		return 0
	}
	pct := (float64(completedCount)*100 + currentLessonPercent) / float64(totalLessons)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// clampPercent bounds a lesson-level percentage to [0, 100].
func clampPercent(percent float64) float64 {
	switch {
	case percent < 0:
		return 0
	case percent > 100:
		return 100
	default:
		return percent
	}
}

// currentLessonNumber is the 1-based position of the first incomplete lesson.
func currentLessonNumber(ordered []string, completed models.LessonIDSet) (int, string) {
	for i, id := range ordered {
		if !completed.Contains(id) {
			return i + 1, id
		}
	}
	if len(ordered) == 0 {
		return 0, ""
	}
	return len(ordered), ordered[len(ordered)-1]
}

func buildCourseProgressView(course *models.Course, progress *models.Progress) *models.CourseProgressView {
	ordered := orderedLessonIDs(course.Content)
	number, lessonID := currentLessonNumber(ordered, progress.CompletedLessons)
	completedCount := len(progress.CompletedLessons)
	pct := completionPercentage(completedCount, len(ordered), progress.CurrentLessonPercent)

	return &models.CourseProgressView{
		CourseID:         course.ID,
		Percentage:       pct,
		CompletedCount:   completedCount,
		TotalLessons:     len(ordered),
		CurrentLesson:    number,
		CurrentLessonID:  lessonID,
		TimeSpent:        progress.TimeSpent,
		CompletedLessons: progress.CompletedLessons,
		Completed:        len(ordered) > 0 && completedCount >= len(ordered),
	}
}
