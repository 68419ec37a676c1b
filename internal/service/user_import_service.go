package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

var importHeader = []string{"First Name", "Last Name", "Email", "Organization"}

// UserImportService ingests CSV rosters and provisions student accounts.
type UserImportService struct {
	repo    userRepository
	logger  *zap.Logger
	maxRows int
}

// NewUserImportService constructs the import service.
func NewUserImportService(repo userRepository, logger *zap.Logger, maxRows int) *UserImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 500
	}
	return &UserImportService{repo: repo, logger: logger, maxRows: maxRows}
}

// ParseCSV reads the roster file into rows. The header row is required and
// must carry the expected columns; a trailing Password column is optional.
func (s *UserImportService) ParseCSV(r io.Reader) ([]models.UserImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv file is empty or unreadable")
	}
	if err := validateImportHeader(header); err != nil {
		return nil, err
	}
	hasPassword := len(header) >= 5

	var rows []models.UserImportRow
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("malformed csv at line %d", line))
		}
		if len(rows) >= s.maxRows {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d row limit", s.maxRows))
		}
		if len(record) < 4 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("line %d has too few columns", line))
		}

		row := models.UserImportRow{
			Line:         line,
			FirstName:    strings.TrimSpace(record[0]),
			LastName:     strings.TrimSpace(record[1]),
			Email:        strings.ToLower(strings.TrimSpace(record[2])),
			Organization: strings.TrimSpace(record[3]),
		}
		if hasPassword && len(record) >= 5 {
			row.Password = strings.TrimSpace(record[4])
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "csv file contains no data rows")
	}
	return rows, nil
}

// Import provisions one account per row. Rows are processed in order and
// each row succeeds or fails independently.
func (s *UserImportService) Import(ctx context.Context, rows []models.UserImportRow, actorID string) (*models.UserImportSummary, error) {
	summary := &models.UserImportSummary{Total: len(rows)}

	for _, row := range rows {
		result := s.importRow(ctx, row)
		if result.Status == models.ImportRowSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.Rows = append(summary.Rows, result)
	}

	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &actorID,
		Action:    models.AuditActionUserImport,
		Resource:  "users",
		NewValues: []byte(fmt.Sprintf(`{"total":%d,"succeeded":%d,"failed":%d}`, summary.Total, summary.Succeeded, summary.Failed)),
	}); err != nil {
		s.logger.Warn("failed to record import audit log", zap.Error(err))
	}

	s.logger.Info("user import finished",
		zap.Int("total", summary.Total),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (s *UserImportService) importRow(ctx context.Context, row models.UserImportRow) models.UserImportRowResult {
	result := models.UserImportRowResult{Line: row.Line, Email: row.Email}

	if row.FirstName == "" || row.LastName == "" || row.Email == "" {
		result.Status = models.ImportRowError
		result.Message = "first name, last name and email are required"
		return result
	}
	if !strings.Contains(row.Email, "@") {
		result.Status = models.ImportRowError
		result.Message = "invalid email address"
		return result
	}

	if _, err := s.repo.FindByEmail(ctx, row.Email); err == nil {
		result.Status = models.ImportRowError
		result.Message = "email is already registered"
		return result
	} else if !errors.Is(err, sql.ErrNoRows) {
		result.Status = models.ImportRowError
		result.Message = "failed to check existing user"
		return result
	}

	password := row.Password
	if password == "" {
		generated, err := generateImportPassword()
		if err != nil {
			result.Status = models.ImportRowError
			result.Message = "failed to generate password"
			return result
		}
		password = generated
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		result.Status = models.ImportRowError
		result.Message = "failed to hash password"
		return result
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        row.Email,
		PasswordHash: string(hash),
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Role:         models.RoleStudent,
		Active:       true,
	}
	if row.Organization != "" {
		org := row.Organization
		user.Organization = &org
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.logger.Warn("import row failed", zap.Int("line", row.Line), zap.Error(err))
		result.Status = models.ImportRowError
		result.Message = "failed to create user"
		return result
	}

	result.Status = models.ImportRowSuccess
	result.UserID = user.ID
	result.Message = "created"
	return result
}

func validateImportHeader(header []string) error {
	if len(header) < len(importHeader) {
		return appErrors.Clone(appErrors.ErrValidation, "csv header is missing required columns")
	}
	for i, want := range importHeader {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unexpected csv column %q, want %q", header[i], want))
		}
	}
	return nil
}

func generateImportPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
