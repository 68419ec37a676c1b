package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/dto"
	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/internal/repository"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
)

type dashboardAnalyticsRepository interface {
	StudentTotals(ctx context.Context, userID string) (*repository.StudentTotals, error)
	InstructorCourseEngagement(ctx context.Context, instructorID string) ([]repository.CourseEngagement, error)
	PlatformTotals(ctx context.Context) (*repository.PlatformTotals, error)
}

type dashboardUserRepository interface {
	CountByRole(ctx context.Context) (map[string]int, error)
}

type dashboardCourseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Counts(ctx context.Context) (total, published int, err error)
}

type dashboardProgressRepository interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID string) (*models.Progress, error)
}

type dashboardEnrollmentRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.Enrollment, error)
}

type dashboardQuizRepository interface {
	FindByID(ctx context.Context, id string) (*models.Quiz, error)
}

type dashboardQuizResultRepository interface {
	RecentByUser(ctx context.Context, userID string, limit int) ([]models.QuizResult, error)
}

// DashboardService aggregates role-specific overview payloads. Results are
// cached per user with a short TTL since every widget load hits these paths.
type DashboardService struct {
	analytics   dashboardAnalyticsRepository
	users       dashboardUserRepository
	courses     dashboardCourseRepository
	progress    dashboardProgressRepository
	enrollments dashboardEnrollmentRepository
	quizzes     dashboardQuizRepository
	quizResults dashboardQuizResultRepository
	cache       *CacheService
	logger      *zap.Logger
	cacheTTL    time.Duration
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(
	analytics dashboardAnalyticsRepository,
	users dashboardUserRepository,
	courses dashboardCourseRepository,
	progress dashboardProgressRepository,
	enrollments dashboardEnrollmentRepository,
	quizzes dashboardQuizRepository,
	quizResults dashboardQuizResultRepository,
	cache *CacheService,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &DashboardService{
		analytics:   analytics,
		users:       users,
		courses:     courses,
		progress:    progress,
		enrollments: enrollments,
		quizzes:     quizzes,
		quizResults: quizResults,
		cache:       cache,
		logger:      logger,
		cacheTTL:    cacheTTL,
	}
}

// Student builds the student dashboard.
func (s *DashboardService) Student(ctx context.Context, userID string) (*dto.StudentDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:student:%s", userID)
	var cached dto.StudentDashboardResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	totals, err := s.analytics.StudentTotals(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student totals")
	}

	enrollments, err := s.enrollments.ListByUser(ctx, userID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	resp := &dto.StudentDashboardResponse{
		UserID:           userID,
		EnrolledCourses:  totals.EnrolledCourses,
		CompletedCourses: totals.CompletedCourses,
		TimeSpentMinutes: totals.TimeSpentMinutes,
		Courses:          make([]dto.CourseProgressCard, 0, len(enrollments)),
		RecentQuizzes:    []dto.QuizResultSummary{},
	}

	for _, e := range enrollments {
		card := dto.CourseProgressCard{CourseID: e.CourseID, Status: string(e.Status)}
		if course, err := s.courses.FindByID(ctx, e.CourseID); err == nil {
			card.CourseTitle = course.Title
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load course for dashboard", zap.String("course_id", e.CourseID), zap.Error(err))
		}
		if progress, err := s.progress.FindByUserAndCourse(ctx, userID, e.CourseID); err == nil {
			card.Percentage = progress.Percentage
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("failed to load progress for dashboard", zap.String("course_id", e.CourseID), zap.Error(err))
		}
		resp.Courses = append(resp.Courses, card)
	}

	recent, err := s.quizResults.RecentByUser(ctx, userID, 5)
	if err != nil {
		s.logger.Warn("failed to load recent quiz results", zap.Error(err))
	} else {
		for _, r := range recent {
			summary := dto.QuizResultSummary{
				QuizID:      r.QuizID,
				Percentage:  r.Percentage,
				Passed:      r.Passed,
				SubmittedAt: r.SubmittedAt.UTC().Format(time.RFC3339),
			}
			if quiz, err := s.quizzes.FindByID(ctx, r.QuizID); err == nil {
				summary.QuizTitle = quiz.Title
			}
			resp.RecentQuizzes = append(resp.RecentQuizzes, summary)
		}
	}

	_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	return resp, false, nil
}

// Instructor builds per-course engagement stats for an instructor.
func (s *DashboardService) Instructor(ctx context.Context, instructorID string) (*dto.InstructorDashboardResponse, bool, error) {
	cacheKey := fmt.Sprintf("dashboard:instructor:%s", instructorID)
	var cached dto.InstructorDashboardResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	engagement, err := s.analytics.InstructorCourseEngagement(ctx, instructorID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course engagement")
	}

	resp := &dto.InstructorDashboardResponse{
		InstructorID: instructorID,
		Courses:      make([]dto.InstructorCourseStats, 0, len(engagement)),
	}
	for _, row := range engagement {
		stats := dto.InstructorCourseStats{
			CourseID:        row.CourseID,
			CourseTitle:     row.CourseTitle,
			EnrolledCount:   row.EnrolledCount,
			CompletedCount:  row.CompletedCount,
			AverageProgress: row.AverageProgress,
		}
		if row.QuizAttempts > 0 {
			stats.QuizPassRate = float64(row.QuizPasses) / float64(row.QuizAttempts) * 100
		}
		resp.Courses = append(resp.Courses, stats)
	}

	_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	return resp, false, nil
}

// Admin builds the platform-wide dashboard.
func (s *DashboardService) Admin(ctx context.Context) (*dto.AdminDashboardResponse, bool, error) {
	const cacheKey = "dashboard:admin"
	var cached dto.AdminDashboardResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	usersByRole, err := s.users.CountByRole(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	totalUsers := 0
	for _, n := range usersByRole {
		totalUsers += n
	}

	totalCourses, publishedCourses, err := s.courses.Counts(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count courses")
	}

	platform, err := s.analytics.PlatformTotals(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load platform totals")
	}

	resp := &dto.AdminDashboardResponse{
		TotalUsers:       totalUsers,
		UsersByRole:      usersByRole,
		TotalCourses:     totalCourses,
		PublishedCourses: publishedCourses,
		TotalEnrollments: platform.TotalEnrollments,
		QuizAttempts:     platform.QuizAttempts,
	}
	if platform.QuizAttempts > 0 {
		resp.QuizPassRate = float64(platform.QuizPasses) / float64(platform.QuizAttempts) * 100
	}

	_ = s.cache.Set(ctx, cacheKey, resp, s.cacheTTL)
	return resp, false, nil
}

// InvalidateUser drops cached dashboards for a user after writes that change
// their aggregates.
func (s *DashboardService) InvalidateUser(ctx context.Context, userID string) {
	if err := s.cache.Invalidate(ctx, fmt.Sprintf("dashboard:student:%s", userID)); err != nil {
		s.logger.Warn("failed to invalidate student dashboard cache", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, "dashboard:admin"); err != nil {
		s.logger.Warn("failed to invalidate admin dashboard cache", zap.Error(err))
	}
}
