package models

import "time"

// LeaveStatus tracks a leave request.
type LeaveStatus string

const (
	LeaveStatusPending   LeaveStatus = "PENDING"
	LeaveStatusApproved  LeaveStatus = "APPROVED"
	LeaveStatusRejected  LeaveStatus = "REJECTED"
	LeaveStatusCancelled LeaveStatus = "CANCELLED"
)

// LeaveType mirrors the allocation leave kinds.
type LeaveType string

const (
	LeaveTypeFullDay LeaveType = "FULL_DAY"
	LeaveTypePartial LeaveType = "PARTIAL"
)

// LeaveRequest is an absence filed by a faculty member.
type LeaveRequest struct {
	ID            string              `db:"id" json:"id"`
	FacultyID     string              `db:"faculty_id" json:"faculty_id"`
	DepartmentID  string              `db:"department_id" json:"department_id"`
	LeaveType     LeaveType           `db:"leave_type" json:"leave_type"`
	StartDate     time.Time           `db:"start_date" json:"start_date"`
	EndDate       time.Time           `db:"end_date" json:"end_date"`
	StartTime     *string             `db:"start_time" json:"start_time,omitempty"`
	EndTime       *string             `db:"end_time" json:"end_time,omitempty"`
	Reason        string              `db:"reason" json:"reason"`
	Status        LeaveStatus         `db:"status" json:"status"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
	AffectedSlots []LeaveAffectedSlot `db:"-" json:"affected_slots"`
}

// LeaveAffectedSlot is one class cancelled by a leave and the colleague covering it.
type LeaveAffectedSlot struct {
	ID           string    `db:"id" json:"id"`
	LeaveID      string    `db:"leave_id" json:"leave_id"`
	SlotDate     time.Time `db:"slot_date" json:"date"`
	Day          string    `db:"day" json:"day"`
	StartTime    string    `db:"start_time" json:"start_time"`
	EndTime      string    `db:"end_time" json:"end_time"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	RoomID       string    `db:"room_id" json:"room_id"`
	Semester     int       `db:"semester" json:"semester"`
	Section      string    `db:"section" json:"section"`
	SubstituteID *string   `db:"substitute_id" json:"substitute_id,omitempty"`
}

// LeaveFilter narrows leave listings.
type LeaveFilter struct {
	FacultyID    string
	DepartmentID string
	Status       *LeaveStatus
	Page         int
	PageSize     int
}
