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

type mockCourseRepo struct {
	course         *models.Course
	savedContent   *models.CourseContent
	contentUpdates int
	published      *bool
}

func (m *mockCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.Course, int, error) {
	if m.course == nil {
		return nil, 0, nil
	}
	return []models.Course{*m.course}, 1, nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	if m.course == nil || m.course.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.course
	return &copied, nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	m.course = course
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *models.Course) error {
	m.course = course
	return nil
}

func (m *mockCourseRepo) UpdateContent(_ context.Context, _ string, content models.CourseContent) error {
	m.contentUpdates++
	m.savedContent = &content
	if m.course != nil {
		m.course.Content = content
	}
	return nil
}

func (m *mockCourseRepo) SetPublished(_ context.Context, _ string, published bool) error {
	m.published = &published
	if m.course != nil {
		m.course.Published = published
	}
	return nil
}

func (m *mockCourseRepo) ListByInstructor(_ context.Context, instructorID string) ([]models.Course, error) {
	if m.course != nil && m.course.InstructorID == instructorID {
		return []models.Course{*m.course}, nil
	}
	return nil, nil
}

type mockCourseAudit struct {
	logs []*models.AuditLog
}

func (m *mockCourseAudit) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func legacyCourse() *models.Course {
	return &models.Course{
		ID:           "course-1",
		Title:        "Legacy",
		InstructorID: "inst-1",
		Content: models.CourseContent{
			Lessons: []models.Lesson{{ID: "l1", Title: "Intro"}, {ID: "l2", Title: "Setup"}},
		},
	}
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func instructorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: models.RoleInstructor}
}

func TestCourseGetRepairsLegacyContentOnRead(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	course, err := svc.Get(context.Background(), "course-1")

	require.NoError(t, err)
	require.Len(t, course.Content.Modules, 1)
	assert.Len(t, course.Content.Modules[0].Lessons, 2)
	assert.Empty(t, course.Content.Lessons)

	// read-path repair is never written back
	assert.Zero(t, repo.contentUpdates)
	assert.Len(t, repo.course.Content.Lessons, 2)
}

func TestCourseGetRepairDisabled(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), false)

	course, err := svc.Get(context.Background(), "course-1")

	require.NoError(t, err)
	assert.Empty(t, course.Content.Modules)
	assert.Len(t, course.Content.Lessons, 2)
}

func TestCourseGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, &mockCourseAudit{}, nil, zap.NewNop(), true)

	_, err := svc.Get(context.Background(), "missing")

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestUpdateContentNormalizesBeforePersist(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	payload := models.CourseContent{
		Lessons: []models.Lesson{{ID: "l1", Title: "Intro"}},
	}

	course, err := svc.UpdateContent(context.Background(), "course-1", payload, adminClaims())

	require.NoError(t, err)
	require.NotNil(t, repo.savedContent)
	assert.Empty(t, repo.savedContent.Lessons)
	require.Len(t, repo.savedContent.Modules, 1)
	assert.Len(t, repo.savedContent.Modules[0].Lessons, 1)
	assert.Equal(t, *repo.savedContent, course.Content)
}

func TestUpdateContentForbiddenForOtherInstructor(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	_, err := svc.UpdateContent(context.Background(), "course-1", models.CourseContent{}, instructorClaims("someone-else"))

	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
	assert.Zero(t, repo.contentUpdates)
}

func TestMigrateContentPersistsCanonicalShape(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	audit := &mockCourseAudit{}
	svc := NewCourseService(repo, audit, nil, zap.NewNop(), true)

	result, err := svc.MigrateContent(context.Background(), "course-1", instructorClaims("inst-1"))

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 2, result.LessonsBefore)
	assert.Equal(t, 2, result.LessonsAfter)
	assert.NotEmpty(t, result.Repairs)
	assert.Equal(t, 1, repo.contentUpdates)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionContentMigrate, audit.logs[0].Action)
}

func TestMigrateContentStripsShadowedTopLevelLessons(t *testing.T) {
	repo := &mockCourseRepo{course: &models.Course{
		ID:           "course-1",
		InstructorID: "inst-1",
		Content: models.CourseContent{
			Lessons: []models.Lesson{{ID: "stale-1", Title: "Old intro"}},
			Modules: []models.Module{{ID: "m1", Title: "Basics", Lessons: []models.Lesson{{ID: "l1"}, {ID: "l2"}}}},
		},
	}}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	result, err := svc.MigrateContent(context.Background(), "course-1", instructorClaims("inst-1"))

	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.Equal(t, 2, result.LessonsBefore)
	assert.Equal(t, 2, result.LessonsAfter)
	require.NotNil(t, repo.savedContent)
	assert.Empty(t, repo.savedContent.Lessons)
	assert.Len(t, repo.savedContent.Modules[0].Lessons, 2)
}

func TestMigrateContentNoopOnCanonicalCourse(t *testing.T) {
	repo := &mockCourseRepo{course: &models.Course{
		ID:           "course-1",
		InstructorID: "inst-1",
		Content: models.CourseContent{
			Modules: []models.Module{{ID: "m1", Title: "Basics", Lessons: []models.Lesson{{ID: "l1"}}}},
		},
	}}
	audit := &mockCourseAudit{}
	svc := NewCourseService(repo, audit, nil, zap.NewNop(), true)

	result, err := svc.MigrateContent(context.Background(), "course-1", adminClaims())

	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Zero(t, repo.contentUpdates)
	assert.Empty(t, audit.logs)
}

func TestCreateCourseStartsUnpublished(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	course, err := svc.Create(context.Background(), CreateCourseRequest{
		Title:      "Intro to Go",
		Difficulty: "beginner",
		Category:   "programming",
	}, "inst-1")

	require.NoError(t, err)
	assert.False(t, course.Published)
	assert.Equal(t, "inst-1", course.InstructorID)
	assert.NotEmpty(t, course.ID)
}

func TestSetPublishedEnforcesOwnership(t *testing.T) {
	repo := &mockCourseRepo{course: legacyCourse()}
	svc := NewCourseService(repo, &mockCourseAudit{}, nil, zap.NewNop(), true)

	err := svc.SetPublished(context.Background(), "course-1", true, instructorClaims("inst-1"))
	require.NoError(t, err)
	require.NotNil(t, repo.published)
	assert.True(t, *repo.published)

	err = svc.SetPublished(context.Background(), "course-1", false, instructorClaims("intruder"))
	require.Error(t, err)
}
