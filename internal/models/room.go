package models

import "time"

// RoomType classifies what a room can host.
type RoomType string

const (
	RoomTypeClassroom RoomType = "CLASSROOM"
	RoomTypeLab       RoomType = "LAB"
	RoomTypeExamHall  RoomType = "EXAM_HALL"
	RoomTypeSeminar   RoomType = "SEMINAR"
)

// Room is a bookable physical space.
type Room struct {
	ID           string    `db:"id" json:"id"`
	RoomNumber   string    `db:"room_number" json:"room_number"`
	Building     string    `db:"building" json:"building"`
	Capacity     int       `db:"capacity" json:"capacity"`
	DepartmentID *string   `db:"department_id" json:"department_id,omitempty"`
	RoomType     RoomType  `db:"room_type" json:"room_type"`
	Available    bool      `db:"is_available" json:"is_available"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RoomFilter narrows room listings. An empty Types slice matches every type.
type RoomFilter struct {
	DepartmentID *string
	Types        []RoomType
	Available    *bool
}
