package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/pkg/export"
	"github.com/skillforge/lms-api/pkg/storage"
)

type exportProgressRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]models.Progress, error)
}

type exportQuizResultRepository interface {
	ListByQuiz(ctx context.Context, quizID string) ([]models.QuizResult, error)
}

type exportCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type exportQuizRepository interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
}

type exportUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ReportFormat
	ExpiresAt    time.Time
}

// ExportService builds report datasets and persists rendered files.
type ExportService struct {
	progress    exportProgressRepository
	quizResults exportQuizResultRepository
	courses     exportCourseRepository
	quizzes     exportQuizRepository
	users       exportUserRepository
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(
	progress exportProgressRepository,
	quizResults exportQuizResultRepository,
	courses exportCourseRepository,
	quizzes exportQuizRepository,
	users exportUserRepository,
	store fileStorage,
	signer *storage.SignedURLSigner,
	cfg ExportConfig,
	logger *zap.Logger,
	csv csvRenderer,
	pdf pdfRenderer,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		progress:    progress,
		quizResults: quizResults,
		courses:     courses,
		quizzes:     quizzes,
		users:       users,
		storage:     store,
		csv:         csv,
		pdf:         pdf,
		signer:      signer,
		logger:      logger,
		cfg:         cfg,
	}
}

// Generate builds the dataset for a job and stores the rendered export.
func (s *ExportService) Generate(ctx context.Context, job *models.ReportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(job)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/reports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// SignedURL mints a fresh download URL for an already generated export.
func (s *ExportService) SignedURL(jobID, relPath string) (string, time.Time, error) {
	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		return "", time.Time{}, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return fmt.Sprintf("%s/reports/download/%s", prefix, token), expiresAt, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ReportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := job.Params.CourseID
	if scope == "" {
		scope = job.Params.QuizID
	}
	return fmt.Sprintf("%s_%s_%s.%s", strings.ToLower(string(job.Type)), sanitizeFilename(scope), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ReportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ReportTypeCourseProgress:
		return s.buildCourseProgressDataset(ctx, job.Params)
	case models.ReportTypeQuizResults:
		return s.buildQuizResultsDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported report type %s", job.Type)
	}
}

func (s *ExportService) buildCourseProgressDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	course, err := s.courses.FindByID(ctx, params.CourseID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	records, err := s.progress.ListByCourse(ctx, params.CourseID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	totalLessons := course.Content.LessonCount()
	rows := make([]map[string]string, 0, len(records))
	for _, p := range records {
		name, email := s.resolveUser(ctx, p.UserID)
		rows = append(rows, map[string]string{
			"Student":           name,
			"Email":             email,
			"Completed Lessons": fmt.Sprintf("%d / %d", len(p.CompletedLessons), totalLessons),
			"Progress (%)":      fmt.Sprintf("%.1f", p.Percentage),
			"Time Spent (min)":  fmt.Sprintf("%d", p.TimeSpent),
			"Last Accessed":     p.LastAccessedAt.UTC().Format(time.RFC3339),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Completed Lessons", "Progress (%)", "Time Spent (min)", "Last Accessed"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Progress Report: %s", course.Title), nil
}

func (s *ExportService) buildQuizResultsDataset(ctx context.Context, params models.ReportJobParams) (export.Dataset, string, error) {
	quiz, err := s.quizzes.FindByID(ctx, params.QuizID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	results, err := s.quizResults.ListByQuiz(ctx, params.QuizID)
	if err != nil {
		return export.Dataset{}, "", err
	}

	rows := make([]map[string]string, 0, len(results))
	for _, r := range results {
		name, email := s.resolveUser(ctx, r.UserID)
		passed := "no"
		if r.Passed {
			passed = "yes"
		}
		rows = append(rows, map[string]string{
			"Student":        name,
			"Email":          email,
			"Score":          fmt.Sprintf("%d / %d", r.Score, r.TotalQuestions),
			"Percentage":     fmt.Sprintf("%.1f", r.Percentage),
			"Passed":         passed,
			"Time Spent (s)": fmt.Sprintf("%d", r.TimeSpent),
			"Submitted At":   r.SubmittedAt.UTC().Format(time.RFC3339),
		})
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Score", "Percentage", "Passed", "Time Spent (s)", "Submitted At"},
		Rows:    rows,
	}
	return dataset, fmt.Sprintf("Quiz Results: %s", quiz.Title), nil
}

func (s *ExportService) resolveUser(ctx context.Context, userID string) (name, email string) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to resolve user for export", zap.String("user_id", userID), zap.Error(err))
		}
		return userID, ""
	}
	return user.FullName(), user.Email
}
