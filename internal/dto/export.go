package dto

import "github.com/noah-isme/resource-allocator/internal/models"

// ExportRequest captures POST /exports.
type ExportRequest struct {
	Type         models.ExportType   `json:"type" validate:"required,oneof=timetable seating invigilation"`
	Format       models.ExportFormat `json:"format" validate:"required,oneof=csv pdf"`
	DepartmentID string              `json:"departmentId" validate:"required_if=Type timetable"`
	Semester     int                 `json:"semester" validate:"omitempty,min=1"`
	Section      string              `json:"section" validate:"required_if=Type timetable"`
	ExamID       string              `json:"examId" validate:"required_unless=Type timetable"`
}

// ExportJobResponse is returned after enqueueing an export.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse exposes job progress metadata.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Type      models.ExportType   `json:"type"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"resultUrl,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
