package models

import "time"

// InvigilationDuty staffs one exam room.
type InvigilationDuty struct {
	ID               string    `db:"id" json:"id"`
	ExamID           string    `db:"exam_id" json:"exam_id"`
	RoomID           string    `db:"room_id" json:"room_id"`
	DepartmentID     string    `db:"department_id" json:"department_id"`
	PrimaryFacultyID string    `db:"primary_faculty_id" json:"primary_faculty_id"`
	BackupFacultyID  *string   `db:"backup_faculty_id" json:"backup_faculty_id,omitempty"`
	Status           string    `db:"status" json:"status"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
