package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/lms-api/internal/models"
)

func TestReportRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypeCourseProgress,
		Params:    models.ReportJobParams{CourseID: "course-1", Format: models.ReportFormatCSV},
		CreatedBy: "inst-1",
	}
	require.NoError(t, repo.Create(context.Background(), job))
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.ReportStatusQueued, job.Status)
	require.False(t, job.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryGetByIDScansParams(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	paramsJSON := `{"courseId":"course-1","format":"pdf"}`
	rows := sqlmock.NewRows([]string{"id", "type", "params", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", "course_progress", []byte(paramsJSON), "QUEUED", nil, "inst-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, params, status")).
		WithArgs("job-1").
		WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, "course-1", job.Params.CourseID)
	require.Equal(t, models.ReportFormatPDF, job.Params.Format)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdatePartial(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	status := models.ReportStatusFinished
	resultPath := "exports/report.csv"
	finished := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET status = $1, result_path = $2, finished_at = $3 WHERE id = $4")).
		WithArgs(status, resultPath, finished, "job-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "job-1", UpdateReportJobParams{
		Status:     &status,
		ResultPath: &resultPath,
		FinishedAt: &finished,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryUpdateNoFieldsIsNoop(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	require.NoError(t, repo.Update(context.Background(), "job-1", UpdateReportJobParams{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportRepository(db)
	rows := sqlmock.NewRows([]string{"id", "type", "params", "status", "result_path", "created_by", "created_at", "finished_at", "error_message"}).
		AddRow("job-1", "quiz_results", []byte(`{"quizId":"quiz-1","format":"csv"}`), "QUEUED", nil, "admin-1", time.Now(), nil, nil).
		AddRow("job-2", "course_progress", []byte(`{"courseId":"course-1","format":"pdf"}`), "QUEUED", nil, "inst-1", time.Now(), nil, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE status = 'QUEUED' ORDER BY created_at ASC LIMIT $1")).
		WithArgs(50).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, models.ReportTypeQuizResults, jobs[0].Type)
	require.NoError(t, mock.ExpectationsWereMet())
}
