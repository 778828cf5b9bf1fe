package models

import "time"

// ExamStatus tracks an exam through its lifecycle.
type ExamStatus string

const (
	ExamStatusScheduled ExamStatus = "SCHEDULED"
	ExamStatusOngoing   ExamStatus = "ONGOING"
	ExamStatusCompleted ExamStatus = "COMPLETED"
)

// Exam is one sitting for a department semester.
type Exam struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	DepartmentID string     `db:"department_id" json:"department_id"`
	Semester     int        `db:"semester" json:"semester"`
	ExamDate     time.Time  `db:"exam_date" json:"exam_date"`
	StartTime    string     `db:"start_time" json:"start_time"`
	EndTime      string     `db:"end_time" json:"end_time"`
	Status       ExamStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}
