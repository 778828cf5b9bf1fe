package dto

import (
	"github.com/noah-isme/resource-allocator/internal/allocation"
	"github.com/noah-isme/resource-allocator/internal/models"
)

// GenerateTimetableRequest captures POST /timetables/generate and /timetables/generate-priority.
type GenerateTimetableRequest struct {
	DepartmentID string `json:"departmentId" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=12"`
	Section      string `json:"section" validate:"required,max=8"`
	AcademicYear string `json:"academicYear" validate:"omitempty,max=16"`
	// SubjectLoads overrides the stored hours and faculty of individual subjects.
	SubjectLoads []SubjectLoad `json:"subjectLoads" validate:"omitempty,dive"`
	// RoomIDs overrides the department room pool; order is preference order.
	RoomIDs []string `json:"roomIds" validate:"omitempty,dive,required"`
}

// SubjectLoad pins the weekly hours and teacher of one subject.
type SubjectLoad struct {
	SubjectID    string `json:"subjectId" validate:"required"`
	FacultyID    string `json:"facultyId" validate:"omitempty"`
	HoursPerWeek *int   `json:"hoursPerWeek" validate:"omitempty,min=0,max=40"`
}

// TimetableResponse is returned by generation and read endpoints.
type TimetableResponse struct {
	TimetableID    string                           `json:"timetableId"`
	DepartmentID   string                           `json:"departmentId"`
	Semester       int                              `json:"semester"`
	Section        string                           `json:"section"`
	AcademicYear   string                           `json:"academicYear,omitempty"`
	Generator      models.TimetableGenerator        `json:"generator"`
	Placements     []allocation.Placement           `json:"placements"`
	Conflicts      []string                         `json:"conflicts"`
	Deficits       []allocation.Conflict            `json:"deficits,omitempty"`
	PriorityReport []allocation.PriorityReportEntry `json:"priorityReport,omitempty"`
}

// TimetableQuery binds GET /timetables.
type TimetableQuery struct {
	DepartmentID string `form:"departmentId" validate:"required"`
	Semester     int    `form:"semester" validate:"required,min=1"`
	Section      string `form:"section" validate:"required"`
}

// SeatingRequest captures POST /exams/:id/seating.
type SeatingRequest struct {
	// RoomIDs restricts the rooms used; empty means every available exam hall and classroom.
	RoomIDs []string `json:"roomIds" validate:"omitempty,dive,required"`
	Columns int      `json:"columns" validate:"omitempty,min=1,max=20"`
}

// SeatingResponse is the seat plan of one exam.
type SeatingResponse struct {
	ExamID        string                   `json:"examId"`
	TotalStudents int                      `json:"totalStudents"`
	Seated        int                      `json:"seated"`
	Allocations   []allocation.RoomSeating `json:"allocations"`
	Unallocated   []string                 `json:"unallocated"`
}

// InvigilationRequest captures POST /exams/:id/invigilators.
type InvigilationRequest struct {
	RoomIDs           []string `json:"roomIds" validate:"omitempty,dive,required"`
	ExcludeFacultyIDs []string `json:"excludeFacultyIds" validate:"omitempty,dive,required"`
}

// InvigilationResponse is the duty roster of one exam.
type InvigilationResponse struct {
	ExamID      string                      `json:"examId"`
	Assignments []allocation.DutyAssignment `json:"assignments"`
	Unassigned  []string                    `json:"unassigned"`
	// Overlaps lists faculty already invigilating another exam at the same time.
	Overlaps []string `json:"overlaps,omitempty"`
}

// ApplyLeaveRequest captures POST /leaves.
type ApplyLeaveRequest struct {
	LeaveType models.LeaveType `json:"leaveType" validate:"required,oneof=FULL_DAY PARTIAL"`
	StartDate string           `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string           `json:"endDate" validate:"required,datetime=2006-01-02"`
	StartTime string           `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime   string           `json:"endTime" validate:"omitempty,datetime=15:04"`
	Reason    string           `json:"reason" validate:"omitempty,max=500"`
}

// LeaveResponse returns a leave with its covered classes.
type LeaveResponse struct {
	Leave     models.LeaveRequest `json:"leave"`
	Uncovered int                 `json:"uncovered"`
}

// LeaveQuery binds GET /leaves.
type LeaveQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=PENDING APPROVED REJECTED CANCELLED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// SubstituteSearchRequest captures POST /substitutes/search.
type SubstituteSearchRequest struct {
	DepartmentID     string `json:"departmentId" validate:"required"`
	ExcludeFacultyID string `json:"excludeFacultyId" validate:"required"`
	Day              string `json:"day" validate:"required,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	StartTime        string `json:"startTime" validate:"required,datetime=15:04"`
	EndTime          string `json:"endTime" validate:"required,datetime=15:04"`
	FromDate         string `json:"fromDate" validate:"required,datetime=2006-01-02"`
	ToDate           string `json:"toDate" validate:"required,datetime=2006-01-02"`
}

// SubstituteSearchResponse reports the best candidate, if any.
type SubstituteSearchResponse struct {
	Found      bool                         `json:"found"`
	Substitute *allocation.ScoredCandidate  `json:"substitute,omitempty"`
	Candidates []allocation.ScoredCandidate `json:"candidates"`
}
