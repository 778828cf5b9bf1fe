package models

import "time"

// Student is an enrolled learner.
type Student struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	RollNumber   string    `db:"roll_number" json:"roll_number"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	Semester     int       `db:"semester" json:"semester"`
	Section      string    `db:"section" json:"section"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	DepartmentID string
	Semester     int
	Section      string
}
