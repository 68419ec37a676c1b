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

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
	byPair      map[string]*models.Enrollment
	created     []*models.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{
		enrollments: make(map[string]*models.Enrollment),
		byPair:      make(map[string]*models.Enrollment),
	}
}

func (m *mockEnrollmentRepo) add(e *models.Enrollment) {
	m.enrollments[e.ID] = e
	m.byPair[e.UserID+"/"+e.CourseID] = e
}

func (m *mockEnrollmentRepo) List(_ context.Context, _ models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(_ context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindByUserAndCourse(_ context.Context, userID, courseID string) (*models.Enrollment, error) {
	if e, ok := m.byPair[userID+"/"+courseID]; ok {
		return e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(_ context.Context, userID, courseID string) (bool, error) {
	_, ok := m.byPair[userID+"/"+courseID]
	return ok, nil
}

func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *models.Enrollment) error {
	m.add(enrollment)
	m.created = append(m.created, enrollment)
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(_ context.Context, id string, status models.EnrollmentStatus, completedAt *time.Time) error {
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		e.CompletedAt = completedAt
	}
	return nil
}

func (m *mockEnrollmentRepo) ListByUser(_ context.Context, userID string) ([]models.Enrollment, error) {
	var out []models.Enrollment
	for _, e := range m.enrollments {
		if e.UserID == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func publishedCourse() *models.Course {
	return &models.Course{ID: "course-1", Title: "Live", Published: true}
}

func TestEnrollCreatesActiveEnrollment(t *testing.T) {
	repo := newMockEnrollmentRepo()
	svc := NewEnrollmentService(repo, &stubCourseGetter{course: publishedCourse()}, zap.NewNop())

	enrollment, err := svc.Enroll(context.Background(), "user-1", "course-1")

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	require.Len(t, repo.created, 1)
}

func TestEnrollRejectsUnpublishedCourse(t *testing.T) {
	course := publishedCourse()
	course.Published = false
	svc := NewEnrollmentService(newMockEnrollmentRepo(), &stubCourseGetter{course: course}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), "user-1", "course-1")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestEnrollRejectsDuplicate(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(&models.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1"})
	svc := NewEnrollmentService(repo, &stubCourseGetter{course: publishedCourse()}, zap.NewNop())

	_, err := svc.Enroll(context.Background(), "user-1", "course-1")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSetStatusCompletedSetsTimestamp(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(&models.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1", Status: models.EnrollmentStatusActive})
	svc := NewEnrollmentService(repo, &stubCourseGetter{course: publishedCourse()}, zap.NewNop())

	enrollment, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatusCompleted, adminClaims())

	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	require.NotNil(t, enrollment.CompletedAt)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewEnrollmentService(newMockEnrollmentRepo(), &stubCourseGetter{course: publishedCourse()}, zap.NewNop())

	_, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatus("DROPPED"), adminClaims())

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSetStatusStudentCannotTouchOthers(t *testing.T) {
	repo := newMockEnrollmentRepo()
	repo.add(&models.Enrollment{ID: "enr-1", UserID: "user-1", CourseID: "course-1", Status: models.EnrollmentStatusActive})
	svc := NewEnrollmentService(repo, &stubCourseGetter{course: publishedCourse()}, zap.NewNop())

	student := &models.JWTClaims{UserID: "someone-else", Role: models.RoleStudent}
	_, err := svc.SetStatus(context.Background(), "enr-1", models.EnrollmentStatusPaused, student)

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
