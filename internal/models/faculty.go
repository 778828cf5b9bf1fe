package models

import "time"

// DefaultMaxWeeklyLoad is the teaching hours ceiling applied when none is recorded.
const DefaultMaxWeeklyLoad = 18

// Faculty is a teaching staff member.
type Faculty struct {
	ID                string    `db:"id" json:"id"`
	EmployeeCode      string    `db:"employee_code" json:"employee_code"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	DepartmentID      string    `db:"department_id" json:"department_id"`
	Designation       string    `db:"designation" json:"designation"`
	MaxWeeklyLoad     int       `db:"max_weekly_load" json:"max_weekly_load"`
	CurrentLoad       int       `db:"current_load" json:"current_load"`
	InvigilationCount int       `db:"invigilation_count" json:"invigilation_count"`
	Active            bool      `db:"is_active" json:"is_active"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// FacultyFilter narrows faculty listings.
type FacultyFilter struct {
	DepartmentID string
	Active       *bool
}
