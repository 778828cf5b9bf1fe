package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// TimetableGenerator records which generator produced a timetable.
type TimetableGenerator string

const (
	TimetableGeneratorBase     TimetableGenerator = "BASE"
	TimetableGeneratorPriority TimetableGenerator = "PRIORITY"
)

// Timetable is the generated weekly schedule of one class scope (department, semester, section).
// Meta carries the conflict list and, for priority runs, the priority report.
type Timetable struct {
	ID           string             `db:"id" json:"id"`
	DepartmentID string             `db:"department_id" json:"department_id"`
	Semester     int                `db:"semester" json:"semester"`
	Section      string             `db:"section" json:"section"`
	AcademicYear string             `db:"academic_year" json:"academic_year"`
	Generator    TimetableGenerator `db:"generator" json:"generator"`
	GeneratedBy  string             `db:"generated_by" json:"generated_by"`
	Meta         types.JSONText     `db:"meta" json:"meta"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}

// TimetableSlot is one placed period of a timetable.
type TimetableSlot struct {
	ID          string    `db:"id" json:"id"`
	TimetableID string    `db:"timetable_id" json:"timetable_id"`
	Day         string    `db:"day" json:"day"`
	StartTime   string    `db:"start_time" json:"start_time"`
	EndTime     string    `db:"end_time" json:"end_time"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	FacultyID   string    `db:"faculty_id" json:"faculty_id"`
	RoomID      string    `db:"room_id" json:"room_id"`
	Kind        string    `db:"kind" json:"kind"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// DepartmentSlot is a timetable slot joined with its class scope, used for cross-class checks.
type DepartmentSlot struct {
	TimetableSlot
	Semester int    `db:"semester" json:"semester"`
	Section  string `db:"section" json:"section"`
}

// TimetableScope identifies the class a timetable belongs to.
type TimetableScope struct {
	DepartmentID string
	Semester     int
	Section      string
}
