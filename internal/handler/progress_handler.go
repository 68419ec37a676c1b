package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skillforge/lms-api/internal/models"
	"github.com/skillforge/lms-api/internal/service"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
	"github.com/skillforge/lms-api/pkg/response"
)

// CompleteLessonRequest is the body of the lesson progress endpoint. A
// progress_percent below 100 records partial progress inside the lesson;
// omitting it (or sending 100) marks the lesson completed.
type CompleteLessonRequest struct {
	LessonID         string   `json:"lesson_id" binding:"required"`
	TimeSpentMinutes int      `json:"time_spent_minutes"`
	ProgressPercent  *float64 `json:"progress_percent,omitempty"`
}

// ProgressHandler exposes lesson progress endpoints.
type ProgressHandler struct {
	progress   *service.ProgressService
	dashboards *service.DashboardService
}

// NewProgressHandler constructs ProgressHandler.
func NewProgressHandler(progress *service.ProgressService, dashboards *service.DashboardService) *ProgressHandler {
	return &ProgressHandler{progress: progress, dashboards: dashboards}
}

// Get godoc
// @Summary Fetch the caller's progress for a course
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /progress/{courseId} [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	view, err := h.progress.CourseView(c.Request.Context(), claims.UserID, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// CompleteLesson godoc
// @Summary Mark a lesson as completed
// @Tags Progress
// @Accept json
// @Produce json
// @Param courseId path string true "Course ID"
// @Param payload body CompleteLessonRequest true "Lesson payload"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /progress/{courseId}/lessons [post]
func (h *ProgressHandler) CompleteLesson(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req CompleteLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	var (
		progress *models.Progress
		err      error
	)
	if req.ProgressPercent != nil && *req.ProgressPercent < 100 {
		progress, err = h.progress.RecordLessonProgress(c.Request.Context(), claims.UserID, c.Param("courseId"), req.LessonID, *req.ProgressPercent, req.TimeSpentMinutes)
	} else {
		progress, err = h.progress.CompleteLesson(c.Request.Context(), claims.UserID, c.Param("courseId"), req.LessonID, req.TimeSpentMinutes)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	// Completion shifts dashboard aggregates, drop the cached copies.
	if h.dashboards != nil {
		h.dashboards.InvalidateUser(c.Request.Context(), claims.UserID)
	}
	response.JSON(c, http.StatusOK, progress, nil)
}

// LessonAccess godoc
// @Summary Check whether a lesson is unlocked for the caller
// @Tags Progress
// @Produce json
// @Param courseId path string true "Course ID"
// @Param lessonId path string true "Lesson ID"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /progress/{courseId}/lessons/{lessonId}/access [get]
func (h *ProgressHandler) LessonAccess(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	access, err := h.progress.LessonAccess(c.Request.Context(), claims.UserID, c.Param("courseId"), c.Param("lessonId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, access, nil)
}
