package models

import "time"

// SubjectType distinguishes lectures from lab sessions.
type SubjectType string

const (
	SubjectTypeTheory SubjectType = "THEORY"
	SubjectTypeLab    SubjectType = "LAB"
)

// Subject is a course taught to a semester of a department. FacultyID pins the
// teacher; when nil the generator assigns faculty round-robin.
type Subject struct {
	ID           string      `db:"id" json:"id"`
	Code         string      `db:"code" json:"code"`
	Name         string      `db:"name" json:"name"`
	DepartmentID string      `db:"department_id" json:"department_id"`
	Semester     int         `db:"semester" json:"semester"`
	Type         SubjectType `db:"type" json:"type"`
	HoursPerWeek int         `db:"hours_per_week" json:"hours_per_week"`
	FacultyID    *string     `db:"faculty_id" json:"faculty_id,omitempty"`
	CreatedAt    time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time   `db:"updated_at" json:"updated_at"`
}
