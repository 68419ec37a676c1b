package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skillforge/lms-api/internal/middleware"
	"github.com/skillforge/lms-api/internal/service"
	appErrors "github.com/skillforge/lms-api/pkg/errors"
	"github.com/skillforge/lms-api/pkg/response"
)

// DashboardHandler exposes role-specific dashboard endpoints.
type DashboardHandler struct {
	dashboards *service.DashboardService
	metrics    *service.MetricsService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboards *service.DashboardService, metrics *service.MetricsService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards, metrics: metrics}
}

func dashboardMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboards/student [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	start := time.Now()
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, cacheHit, err := h.dashboards.Student(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, dashboardMeta(c, cacheHit, start))
}

// Instructor godoc
// @Summary Instructor dashboard
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboards/instructor [get]
func (h *DashboardHandler) Instructor(c *gin.Context) {
	start := time.Now()
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	payload, cacheHit, err := h.dashboards.Instructor(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, dashboardMeta(c, cacheHit, start))
}

// Admin godoc
// @Summary Admin dashboard
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboards/admin [get]
func (h *DashboardHandler) Admin(c *gin.Context) {
	start := time.Now()
	payload, cacheHit, err := h.dashboards.Admin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil, dashboardMeta(c, cacheHit, start))
}

// SystemMetrics godoc
// @Summary Runtime counters snapshot
// @Tags Dashboards
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /dashboards/admin/system [get]
func (h *DashboardHandler) SystemMetrics(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
