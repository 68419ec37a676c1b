package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/lms-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryCreateMarshalsContent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		Title:        "Intro to Go",
		Difficulty:   models.DifficultyBeginner,
		Category:     "programming",
		InstructorID: "inst-1",
		Content: models.CourseContent{
			Modules: []models.Module{{ID: "m1", Title: "Basics", Lessons: []models.Lesson{{ID: "l1", Title: "Hello"}}}},
		},
	}

	require.NoError(t, repo.Create(context.Background(), course))
	require.NotEmpty(t, course.ID)
	require.False(t, course.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDScansContent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	contentJSON := `{"modules":[{"id":"m1","title":"Basics","lessons":[{"id":"l1","title":"Hello","duration":5,"type":"video"}]}]}`
	rows := sqlmock.NewRows([]string{"id", "title", "description", "difficulty", "duration_hours", "thumbnail_url", "published", "category", "instructor_id", "content", "created_at", "updated_at"}).
		AddRow("course-1", "Intro to Go", "", "beginner", 10, "", true, "programming", "inst-1", []byte(contentJSON), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, difficulty")).
		WithArgs("course-1").
		WillReturnRows(rows)

	course, err := repo.FindByID(context.Background(), "course-1")
	require.NoError(t, err)
	require.Len(t, course.Content.Modules, 1)
	require.Len(t, course.Content.Modules[0].Lessons, 1)
	require.Equal(t, "l1", course.Content.Modules[0].Lessons[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDLegacyShape(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	legacyJSON := `{"lessons":[{"id":"l1","title":"Old","duration":3,"type":"text"}]}`
	rows := sqlmock.NewRows([]string{"id", "title", "description", "difficulty", "duration_hours", "thumbnail_url", "published", "category", "instructor_id", "content", "created_at", "updated_at"}).
		AddRow("course-1", "Legacy", "", "beginner", 1, "", false, "history", "inst-1", []byte(legacyJSON), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, difficulty")).
		WithArgs("course-1").
		WillReturnRows(rows)

	course, err := repo.FindByID(context.Background(), "course-1")
	require.NoError(t, err)
	require.Empty(t, course.Content.Modules)
	require.Len(t, course.Content.Lessons, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryUpdateContent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE courses SET content")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	content := models.CourseContent{
		Modules: []models.Module{{ID: "m1", Title: "Basics", Lessons: []models.Lesson{{ID: "l1"}}}},
	}
	require.NoError(t, repo.UpdateContent(context.Background(), "course-1", content))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListAppliesFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	rows := sqlmock.NewRows([]string{"id", "title", "description", "difficulty", "duration_hours", "thumbnail_url", "published", "category", "instructor_id", "content", "created_at", "updated_at"}).
		AddRow("course-1", "Intro", "", "beginner", 4, "", true, "programming", "inst-1", []byte(`{}`), time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, description, difficulty")).
		WithArgs("programming", true).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs("programming", true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	published := true
	courses, total, err := repo.List(context.Background(), models.CourseFilter{
		Category:  "programming",
		Published: &published,
	})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryCounts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCourseRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), COUNT(*) FILTER (WHERE published) FROM courses")).
		WillReturnRows(sqlmock.NewRows([]string{"count", "published"}).AddRow(12, 7))

	total, published, err := repo.Counts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, total)
	require.Equal(t, 7, published)
	require.NoError(t, mock.ExpectationsWereMet())
}
