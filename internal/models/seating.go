package models

import "time"

// SeatAllocation is one student seated for an exam.
type SeatAllocation struct {
	ID         string    `db:"id" json:"id"`
	ExamID     string    `db:"exam_id" json:"exam_id"`
	RoomID     string    `db:"room_id" json:"room_id"`
	RoomNumber string    `db:"room_number" json:"room_number"`
	StudentID  string    `db:"student_id" json:"student_id"`
	RollNumber string    `db:"roll_number" json:"roll_number"`
	SeatNumber string    `db:"seat_number" json:"seat_number"`
	SeatRow    int       `db:"seat_row" json:"row"`
	SeatCol    int       `db:"seat_col" json:"col"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
