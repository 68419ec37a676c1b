package dto

import "github.com/skillforge/lms-api/internal/models"

// ReportRequest asks for an asynchronous export.
type ReportRequest struct {
	Type     models.ReportType   `json:"type" binding:"required"`
	CourseID *string             `json:"course_id,omitempty"`
	QuizID   *string             `json:"quiz_id,omitempty"`
	Format   models.ReportFormat `json:"format" binding:"required"`
}

// ReportJobResponse acknowledges job creation.
type ReportJobResponse struct {
	ID     string              `json:"id"`
	Status models.ReportStatus `json:"status"`
}

// ReportStatusResponse exposes job state to clients.
type ReportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ReportStatus `json:"status"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
