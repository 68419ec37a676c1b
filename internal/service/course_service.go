package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/models"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	UpdateContent(ctx context.Context, id string, content models.CourseContent) error
	SetPublished(ctx context.Context, id string, published bool) error
	ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error)
}

type courseAuditRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Title        string                `json:"title" validate:"required,min=3"`
	Description  string                `json:"description"`
	Difficulty   string                `json:"difficulty" validate:"required,oneof=beginner intermediate advanced"`
	Duration     int                   `json:"duration_hours" validate:"min=0"`
	ThumbnailURL string                `json:"thumbnail_url"`
	Category     string                `json:"category" validate:"required"`
	Content      *models.CourseContent `json:"content,omitempty"`
}

// UpdateCourseRequest carries optional metadata updates.
type UpdateCourseRequest struct {
	Title        *string `json:"title,omitempty" validate:"omitempty,min=3"`
	Description  *string `json:"description,omitempty"`
	Difficulty   *string `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Duration     *int    `json:"duration_hours,omitempty" validate:"omitempty,min=0"`
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`
	Category     *string `json:"category,omitempty"`
}

// ContentMigrationResult summarizes a persisted normalization pass.
type ContentMigrationResult struct {
	CourseID      string   `json:"course_id"`
	Changed       bool     `json:"changed"`
	LessonsBefore int      `json:"lessons_before"`
	LessonsAfter  int      `json:"lessons_after"`
	Repairs       []string `json:"repairs,omitempty"`
}

// CourseService exposes course management use cases.
type CourseService struct {
	repo          courseRepository
	audit         courseAuditRepository
	validator     *validator.Validate
	logger        *zap.Logger
	repairEnabled bool
}

// NewCourseService constructs a CourseService.
func NewCourseService(repo courseRepository, audit courseAuditRepository, validate *validator.Validate, logger *zap.Logger, repairEnabled bool) *CourseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &CourseService{repo: repo, audit: audit, validator: validate, logger: logger, repairEnabled: repairEnabled}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	return courses, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get fetches a course, repairing legacy document shapes on the read path
// when repair is enabled. Repairs are logged but not persisted here; the
// migrate operation persists the canonical form.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if s.repairEnabled {
		repaired, notes := NormalizeCourseContent(course.Content)
		if len(notes) > 0 {
			s.logger.Warn("repaired legacy course content on read",
				zap.String("course_id", course.ID),
				zap.Strings("repairs", notes))
			course.Content = repaired
		}
	}

	return course, nil
}

// ListByInstructor returns all courses owned by an instructor.
func (s *CourseService) ListByInstructor(ctx context.Context, instructorID string) ([]models.Course, error) {
	courses, err := s.repo.ListByInstructor(ctx, instructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructor courses")
	}
	return courses, nil
}

// Create persists a new course owned by the given instructor.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest, instructorID string) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course := &models.Course{
		ID:           uuid.NewString(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Difficulty:   models.Difficulty(req.Difficulty),
		Duration:     req.Duration,
		ThumbnailURL: req.ThumbnailURL,
		Published:    false,
		Category:     req.Category,
		InstructorID: instructorID,
	}
	if req.Content != nil {
		course.Content = *req.Content
	}

	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	return course, nil
}

// Update applies partial metadata changes. Ownership is enforced for
// instructors; admins may edit any course.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest, actor *models.JWTClaims) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCourseWrite(course, actor); err != nil {
		return nil, err
	}

	if req.Title != nil {
		course.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Difficulty != nil {
		course.Difficulty = models.Difficulty(*req.Difficulty)
	}
	if req.Duration != nil {
		course.Duration = *req.Duration
	}
	if req.ThumbnailURL != nil {
		course.ThumbnailURL = *req.ThumbnailURL
	}
	if req.Category != nil {
		course.Category = *req.Category
	}
	course.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}

	return course, nil
}

// UpdateContent replaces the full module/lesson document for a course.
// The payload is normalized before persisting so legacy shapes never
// re-enter storage through the write path.
func (s *CourseService) UpdateContent(ctx context.Context, id string, content models.CourseContent, actor *models.JWTClaims) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeCourseWrite(course, actor); err != nil {
		return nil, err
	}

	normalized, notes := NormalizeCourseContent(content)
	if len(notes) > 0 {
		s.logger.Info("normalized course content on write",
			zap.String("course_id", id),
			zap.Strings("repairs", notes))
	}

	if err := s.repo.UpdateContent(ctx, id, normalized); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course content")
	}

	course.Content = normalized
	course.UpdatedAt = time.Now().UTC()
	return course, nil
}

// SetPublished publishes or unpublishes a course. Unpublish doubles as the
// soft delete path.
func (s *CourseService) SetPublished(ctx context.Context, id string, published bool, actor *models.JWTClaims) error {
	course, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizeCourseWrite(course, actor); err != nil {
		return err
	}

	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change publish state")
	}
	return nil
}

// MigrateContent runs the normalization pass once and persists the canonical
// form, so subsequent reads no longer depend on read-path repair.
func (s *CourseService) MigrateContent(ctx context.Context, id string, actor *models.JWTClaims) (*ContentMigrationResult, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := s.authorizeCourseWrite(course, actor); err != nil {
		return nil, err
	}

	before := course.Content.LessonCount()
	normalized, notes := CanonicalizeCourseContent(course.Content)
	result := &ContentMigrationResult{
		CourseID:      id,
		Changed:       len(notes) > 0,
		LessonsBefore: before,
		LessonsAfter:  normalized.LessonCount(),
		Repairs:       notes,
	}

	if !result.Changed {
		return result, nil
	}

	if err := s.repo.UpdateContent(ctx, id, normalized); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist migrated content")
	}

	s.logger.Info("migrated course content to canonical shape",
		zap.String("course_id", id),
		zap.Int("lessons_before", result.LessonsBefore),
		zap.Int("lessons_after", result.LessonsAfter),
		zap.Strings("repairs", notes))

	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &actor.UserID,
			Action:     models.AuditActionContentMigrate,
			Resource:   "courses",
			ResourceID: &id,
		}); err != nil {
			s.logger.Warn("failed to record migration audit log", zap.Error(err))
		}
	}

	return result, nil
}

func (s *CourseService) authorizeCourseWrite(course *models.Course, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing credentials")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleInstructor && course.InstructorID == actor.UserID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
}
