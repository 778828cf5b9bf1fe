package models

import "time"

// SyllabusCoverage is the reported progress of one subject for a class.
type SyllabusCoverage struct {
	ID              string    `db:"id" json:"id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	Semester        int       `db:"semester" json:"semester"`
	Section         string    `db:"section" json:"section"`
	CoveragePercent float64   `db:"coverage_percent" json:"coverage_percent"`
	RemainingHours  float64   `db:"remaining_hours" json:"remaining_hours"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
