package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type mockProgressRepo struct {
	records map[string]*models.Progress
	creates int
	updates int
	findErr error
}

func progressKey(userID, courseID string) string {
	return userID + "/" + courseID
}

func (m *mockProgressRepo) FindByUserAndCourse(_ context.Context, userID, courseID string) (*models.Progress, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	record, ok := m.records[progressKey(userID, courseID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *mockProgressRepo) Create(_ context.Context, progress *models.Progress) error {
	if m.records == nil {
		m.records = make(map[string]*models.Progress)
	}
	m.creates++
	copied := *progress
	m.records[progressKey(progress.UserID, progress.CourseID)] = &copied
	return nil
}

func (m *mockProgressRepo) Update(_ context.Context, progress *models.Progress) error {
	m.updates++
	copied := *progress
	m.records[progressKey(progress.UserID, progress.CourseID)] = &copied
	return nil
}

func (m *mockProgressRepo) ListByUser(_ context.Context, userID string) ([]models.Progress, error) {
	var out []models.Progress
	for _, record := range m.records {
		if record.UserID == userID {
			out = append(out, *record)
		}
	}
	return out, nil
}

type mockProgressEnrollments struct {
	enrollment    *models.Enrollment
	updatedID     string
	updatedStatus models.EnrollmentStatus
	updateCalls   int
}

func (m *mockProgressEnrollments) FindByUserAndCourse(_ context.Context, _, _ string) (*models.Enrollment, error) {
	if m.enrollment == nil {
		return nil, sql.ErrNoRows
	}
	return m.enrollment, nil
}

func (m *mockProgressEnrollments) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, _ *time.Time) error {
	m.updateCalls++
	m.updatedID = id
	m.updatedStatus = status
	return nil
}

type stubCourseGetter struct {
	course *models.Course
	err    error
}

func (s *stubCourseGetter) Get(_ context.Context, _ string) (*models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.course, nil
}

func threeLessonCourse() *models.Course {
	return &models.Course{
		ID: "course-1",
		Content: models.CourseContent{
			Modules: []models.Module{
				{ID: "m1", Title: "Basics", Lessons: []models.Lesson{
					{ID: "l1", Title: "Intro"},
					{ID: "l2", Title: "Setup"},
				}},
				{ID: "m2", Title: "Advanced", Lessons: []models.Lesson{
					{ID: "l3", Title: "Wrap up"},
				}},
			},
		},
	}
}

func newProgressService(repo *mockProgressRepo, enrollments *mockProgressEnrollments, course *models.Course) *ProgressService {
	return NewProgressService(repo, enrollments, &stubCourseGetter{course: course}, zap.NewNop(), nil)
}

func TestProgressGetCreatesRecordOnFirstAccess(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	progress, err := svc.Get(context.Background(), "user-1", "course-1")

	require.NoError(t, err)
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, "user-1", progress.UserID)
	assert.Empty(t, progress.CompletedLessons)
	assert.Zero(t, progress.Percentage)
}

func TestCompleteLessonFirstLessonAlwaysAccessible(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	progress, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l1", 7)

	require.NoError(t, err)
	assert.True(t, progress.CompletedLessons.Contains("l1"))
	assert.InDelta(t, 33.333, progress.Percentage, 0.01)
	assert.Equal(t, 7, progress.TimeSpent)
}

func TestCompleteLessonLockedWithoutPredecessor(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	_, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l3", 0)

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrLessonLocked.Code, appErr.Code)
}

func TestCompleteLessonUnknownLesson(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	_, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "ghost", 0)

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCompleteLessonIdempotent(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	_, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l1", 5)
	require.NoError(t, err)
	updatesAfterFirst := repo.updates

	progress, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l1", 5)
	require.NoError(t, err)

	assert.Equal(t, updatesAfterFirst, repo.updates)
	assert.Equal(t, 5, progress.TimeSpent)
	assert.Len(t, progress.CompletedLessons, 1)
}

func TestCompleteLessonFinishingCourseCompletesEnrollment(t *testing.T) {
	repo := &mockProgressRepo{}
	enrollments := &mockProgressEnrollments{enrollment: &models.Enrollment{
		ID:     "enr-1",
		Status: models.EnrollmentStatusActive,
	}}
	svc := newProgressService(repo, enrollments, threeLessonCourse())
	ctx := context.Background()

	for _, lessonID := range []string{"l1", "l2", "l3"} {
		_, err := svc.CompleteLesson(ctx, "user-1", "course-1", lessonID, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, enrollments.updateCalls)
	assert.Equal(t, "enr-1", enrollments.updatedID)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollments.updatedStatus)

	record := repo.records[progressKey("user-1", "course-1")]
	require.NotNil(t, record)
	assert.InDelta(t, 100.0, record.Percentage, 0.001)
}

func TestCompleteLessonAlreadyCompletedEnrollmentUntouched(t *testing.T) {
	repo := &mockProgressRepo{records: map[string]*models.Progress{
		progressKey("user-1", "course-1"): {
			ID:               "p1",
			UserID:           "user-1",
			CourseID:         "course-1",
			CompletedLessons: models.LessonIDSet{"l1", "l2"},
		},
	}}
	enrollments := &mockProgressEnrollments{enrollment: &models.Enrollment{
		ID:     "enr-1",
		Status: models.EnrollmentStatusCompleted,
	}}
	svc := newProgressService(repo, enrollments, threeLessonCourse())

	_, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l3", 0)

	require.NoError(t, err)
	assert.Zero(t, enrollments.updateCalls)
}

func TestLessonAccessReportsLockedReason(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	access, err := svc.LessonAccess(context.Background(), "user-1", "course-1", "l2")

	require.NoError(t, err)
	assert.False(t, access.Accessible)
	assert.NotEmpty(t, access.Reason)
}

func TestCourseViewAggregates(t *testing.T) {
	repo := &mockProgressRepo{records: map[string]*models.Progress{
		progressKey("user-1", "course-1"): {
			ID:               "p1",
			UserID:           "user-1",
			CourseID:         "course-1",
			CompletedLessons: models.LessonIDSet{"l1"},
			TimeSpent:        12,
		},
	}}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	view, err := svc.CourseView(context.Background(), "user-1", "course-1")

	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalLessons)
	assert.Equal(t, 1, view.CompletedCount)
	assert.Equal(t, 2, view.CurrentLesson)
	assert.Equal(t, "l2", view.CurrentLessonID)
	assert.InDelta(t, 33.333, view.Percentage, 0.01)
	assert.Equal(t, models.LessonIDSet{"l1"}, view.CompletedLessons)
	assert.False(t, view.Completed)
}

func TestCourseViewCompletedCourse(t *testing.T) {
	repo := &mockProgressRepo{records: map[string]*models.Progress{
		progressKey("user-1", "course-1"): {
			ID:               "p1",
			UserID:           "user-1",
			CourseID:         "course-1",
			CompletedLessons: models.LessonIDSet{"l1", "l2", "l3"},
		},
	}}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	view, err := svc.CourseView(context.Background(), "user-1", "course-1")

	require.NoError(t, err)
	assert.True(t, view.Completed)
	assert.InDelta(t, 100.0, view.Percentage, 0.001)
	assert.Len(t, view.CompletedLessons, 3)
}

func TestCompletionPercentageCapped(t *testing.T) {
	assert.InDelta(t, 100.0, completionPercentage(5, 3, 0), 0.001)
	assert.Zero(t, completionPercentage(2, 0, 50))
}

func TestCompletionPercentageIncludesPartialLesson(t *testing.T) {
	assert.InDelta(t, 50.0, completionPercentage(1, 3, 50), 0.001)
	assert.InDelta(t, 100.0, completionPercentage(3, 3, 50), 0.001)
}

func TestRecordLessonProgressFeedsOverallPercentage(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	progress, err := svc.RecordLessonProgress(context.Background(), "user-1", "course-1", "l1", 60, 5)

	require.NoError(t, err)
	assert.InDelta(t, 60.0, progress.CurrentLessonPercent, 0.001)
	assert.InDelta(t, 20.0, progress.Percentage, 0.001)
	assert.Equal(t, 5, progress.TimeSpent)
	assert.Empty(t, progress.CompletedLessons)

	view, err := svc.CourseView(context.Background(), "user-1", "course-1")
	require.NoError(t, err)
	assert.InDelta(t, 20.0, view.Percentage, 0.001)
}

func TestRecordLessonProgressHonorsGating(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	_, err := svc.RecordLessonProgress(context.Background(), "user-1", "course-1", "l3", 40, 0)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrLessonLocked.Code, appErr.Code)
}

func TestCompleteLessonResetsPartialProgress(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	_, err := svc.RecordLessonProgress(context.Background(), "user-1", "course-1", "l1", 80, 0)
	require.NoError(t, err)

	progress, err := svc.CompleteLesson(context.Background(), "user-1", "course-1", "l1", 0)

	require.NoError(t, err)
	assert.Zero(t, progress.CurrentLessonPercent)
	assert.InDelta(t, 33.333, progress.Percentage, 0.01)
}

func TestRecordLessonProgressClampsPercent(t *testing.T) {
	repo := &mockProgressRepo{}
	svc := newProgressService(repo, &mockProgressEnrollments{}, threeLessonCourse())

	progress, err := svc.RecordLessonProgress(context.Background(), "user-1", "course-1", "l1", -20, 0)
	require.NoError(t, err)
	assert.Zero(t, progress.CurrentLessonPercent)

	progress, err = svc.RecordLessonProgress(context.Background(), "user-1", "course-1", "l1", 150, 0)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, progress.CurrentLessonPercent, 0.001)
}

func TestOrderedLessonIDsFallsBackToTopLevel(t *testing.T) {
	content := models.CourseContent{
		Lessons: []models.Lesson{{ID: "l1"}, {ID: "l2"}},
	}

	assert.Equal(t, []string{"l1", "l2"}, orderedLessonIDs(content))

	content.Modules = []models.Module{{ID: "m1", Lessons: []models.Lesson{{ID: "m1l1"}}}}
	assert.Equal(t, []string{"m1l1"}, orderedLessonIDs(content))
}
