package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/skillforge/lms-api/internal/middleware"
	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/internal/repository"
	"github.com/skillforge/lms-api/internal/service"
	"github.com/skillforge/lms-api/pkg/config"
	"github.com/skillforge/lms-api/pkg/logger"
	corsmiddleware "github.com/skillforge/lms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/skillforge/lms-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth       *AuthHandler
	Users      *UserHandler
	Courses    *CourseHandler
	Quizzes    *QuizHandler
	Progress   *ProgressHandler
	Enrollment *EnrollmentHandler
	Dashboards *DashboardHandler
	Reports    *ReportHandler
	Metrics    *MetricsHandler
}

// RouterDeps carries cross-cutting dependencies the route tree needs.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Auth     *service.AuthService
	Metrics  *service.MetricsService
	AuditLog *repository.UserRepository
}

// NewRouter assembles the gin engine with middleware and the /api/v1 route tree.
func NewRouter(deps RouterDeps, h Handlers) *gin.Engine {
	if deps.Config.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(deps.Metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authn := middleware.JWT(deps.Auth)
	maybeAuthn := middleware.OptionalJWT(deps.Auth)
	admin := string(models.RoleAdmin)
	instructor := string(models.RoleInstructor)
	student := string(models.RoleStudent)

	api := r.Group(deps.Config.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", authn, h.Auth.Logout)
		auth.PUT("/password", authn, h.Auth.ChangePassword)
	}

	users := api.Group("/users", authn)
	{
		users.GET("", middleware.RBAC(admin), h.Users.List)
		users.GET("/:id", middleware.RBAC(admin, "SELF"), h.Users.Get)
		users.POST("", middleware.RBAC(admin), h.Users.Create)
		users.PUT("/:id", middleware.RBAC(admin, "SELF"), h.Users.Update)
		users.DELETE("/:id", middleware.RBAC(admin), middleware.Audit(deps.AuditLog, models.AuditActionUserDelete, "users"), h.Users.Delete)
		users.POST("/import", middleware.RBAC(admin), h.Users.Import)
	}

	courses := api.Group("/courses")
	{
		courses.GET("", maybeAuthn, h.Courses.List)
		courses.GET("/:id", maybeAuthn, h.Courses.Get)
		courses.POST("", authn, middleware.RBAC(admin, instructor), h.Courses.Create)
		courses.PUT("/:id", authn, middleware.RBAC(admin, instructor), h.Courses.Update)
		courses.PUT("/:id/content", authn, middleware.RBAC(admin, instructor), h.Courses.UpdateContent)
		courses.POST("/:id/publish", authn, middleware.RBAC(admin, instructor), h.Courses.Publish)
		courses.POST("/:id/unpublish", authn, middleware.RBAC(admin, instructor), h.Courses.Unpublish)
		courses.POST("/:id/content/migrate", authn, middleware.RBAC(admin, instructor), h.Courses.MigrateContent)
	}

	quizzes := api.Group("/quizzes", authn)
	{
		quizzes.GET("", h.Quizzes.List)
		quizzes.GET("/:id", h.Quizzes.Get)
		quizzes.POST("", middleware.RBAC(admin, instructor), h.Quizzes.Create)
		quizzes.PUT("/:id", middleware.RBAC(admin, instructor), h.Quizzes.Update)
		quizzes.GET("/:id/questions", h.Quizzes.ListQuestions)
		quizzes.POST("/:id/questions", middleware.RBAC(admin, instructor), h.Quizzes.AddQuestion)
		quizzes.DELETE("/:id/questions/:questionId", middleware.RBAC(admin, instructor), h.Quizzes.DeleteQuestion)
		quizzes.POST("/:id/submit", h.Quizzes.Submit)
		quizzes.GET("/:id/results", h.Quizzes.ListResults)
	}

	progress := api.Group("/progress", authn)
	{
		progress.GET("/:courseId", h.Progress.Get)
		progress.POST("/:courseId/lessons", h.Progress.CompleteLesson)
		progress.GET("/:courseId/lessons/:lessonId/access", h.Progress.LessonAccess)
	}

	enrollments := api.Group("/enrollments", authn)
	{
		enrollments.GET("", h.Enrollment.List)
		enrollments.POST("", h.Enrollment.Create)
		enrollments.PUT("/:id/status", h.Enrollment.SetStatus)
	}

	dashboards := api.Group("/dashboards", authn)
	{
		dashboards.GET("/student", middleware.RBAC(student, admin), h.Dashboards.Student)
		dashboards.GET("/instructor", middleware.RBAC(instructor, admin), h.Dashboards.Instructor)
		dashboards.GET("/admin", middleware.RBAC(admin), h.Dashboards.Admin)
		dashboards.GET("/admin/system", middleware.RBAC(admin), h.Dashboards.SystemMetrics)
	}

	reports := api.Group("/reports")
	{
		reports.POST("", authn, middleware.RBAC(admin, instructor), h.Reports.Create)
		reports.GET("/:id", authn, middleware.RBAC(admin, instructor), h.Reports.Status)
		// download is authorized by the signed token itself
		reports.GET("/download/:token", h.Reports.Download)
	}

	return r
}
