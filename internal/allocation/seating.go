package allocation

import (
	"fmt"
	"sort"

	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

// DefaultSeatColumns is the bench layout width of an exam room.
const DefaultSeatColumns = 6

// SeatStudent is a student awaiting a seat.
type SeatStudent struct {
	StudentID    string `json:"studentId" mapstructure:"studentId"`
	Name         string `json:"name" mapstructure:"name"`
	DepartmentID string `json:"departmentId" mapstructure:"departmentId"`
	RollNumber   string `json:"rollNumber" mapstructure:"rollNumber"`
}

// SeatRoom is an exam room in fill order.
type SeatRoom struct {
	RoomID     string `json:"roomId" mapstructure:"roomId"`
	RoomNumber string `json:"roomNumber" mapstructure:"roomNumber"`
	Capacity   int    `json:"capacity" mapstructure:"capacity"`
}

// SeatAssignment places one student at a numbered seat.
type SeatAssignment struct {
	StudentID  string `json:"studentId"`
	Name       string `json:"name,omitempty"`
	RollNumber string `json:"rollNumber"`
	SeatNumber string `json:"seatNumber"`
	Row        int    `json:"row"`
	Col        int    `json:"col"`
}

// RoomSeating is the seat plan of one room.
type RoomSeating struct {
	RoomID     string           `json:"roomId"`
	RoomNumber string           `json:"roomNumber"`
	Capacity   int              `json:"capacity"`
	Allocated  int              `json:"allocated"`
	Seats      []SeatAssignment `json:"studentAllocations"`
}

// SeatingInput lists students and rooms for one exam. Columns defaults to six.
type SeatingInput struct {
	Students []SeatStudent `json:"students" mapstructure:"students"`
	Rooms    []SeatRoom    `json:"rooms" mapstructure:"rooms"`
	Columns  int           `json:"columns" mapstructure:"columns"`
}

// SeatingResult carries room plans and the roll numbers that found no seat.
type SeatingResult struct {
	Allocations []RoomSeating `json:"allocations"`
	Unallocated []string      `json:"unallocated"`
}

// SeatedCount totals the students placed across all rooms.
func (r SeatingResult) SeatedCount() int {
	total := 0
	for _, a := range r.Allocations {
		total += a.Allocated
	}
	return total
}

// SeatPosition maps a 1-based seat number onto its row and column.
func SeatPosition(seat, columns int) (row, col int) {
	if columns <= 0 {
		columns = DefaultSeatColumns
	}
	row = (seat + columns - 1) / columns
	col = ((seat - 1) % columns) + 1
	return row, col
}

// SeatNumber formats the printed seat label, e.g. "R101-07".
func SeatNumber(roomNumber string, seat int) string {
	return fmt.Sprintf("%s-%02d", roomNumber, seat)
}

func (in SeatingInput) validate() error {
	if len(in.Students) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one student is required")
	}
	if len(in.Rooms) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one room is required")
	}
	for _, room := range in.Rooms {
		if room.RoomID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "room id is required")
		}
		if room.Capacity < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s has negative capacity", room.RoomNumber))
		}
	}
	if in.Columns < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "columns must not be negative")
	}
	return nil
}

// AllocateSeating sorts students by department then roll number and fills rooms in the given
// order, seat 1 upward. Rooms with zero capacity are skipped and do not appear in
// Allocations, nor do rooms reached after the queue empties. Students left when rooms run
// out are returned as unallocated.
func AllocateSeating(in SeatingInput) (SeatingResult, error) {
	if err := in.validate(); err != nil {
		return SeatingResult{}, err
	}

	queue := make([]SeatStudent, len(in.Students))
	copy(queue, in.Students)
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].DepartmentID != queue[j].DepartmentID {
			return queue[i].DepartmentID < queue[j].DepartmentID
		}
		return queue[i].RollNumber < queue[j].RollNumber
	})

	result := SeatingResult{Allocations: make([]RoomSeating, 0), Unallocated: make([]string, 0)}
	next := 0
	for _, room := range in.Rooms {
		if next >= len(queue) {
			break
		}
		if room.Capacity == 0 {
			continue
		}
		plan := RoomSeating{RoomID: room.RoomID, RoomNumber: room.RoomNumber, Capacity: room.Capacity}
		for seat := 1; seat <= room.Capacity && next < len(queue); seat++ {
			student := queue[next]
			next++
			row, col := SeatPosition(seat, in.Columns)
			plan.Seats = append(plan.Seats, SeatAssignment{
				StudentID:  student.StudentID,
				Name:       student.Name,
				RollNumber: student.RollNumber,
				SeatNumber: SeatNumber(room.RoomNumber, seat),
				Row:        row,
				Col:        col,
			})
		}
		plan.Allocated = len(plan.Seats)
		result.Allocations = append(result.Allocations, plan)
	}
	for _, student := range queue[next:] {
		result.Unallocated = append(result.Unallocated, student.RollNumber)
	}
	return result, nil
}
