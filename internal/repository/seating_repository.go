package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resource-allocator/internal/models"
)

// SeatingRepository persists exam seat plans.
type SeatingRepository struct {
	db *sqlx.DB
}

// NewSeatingRepository constructs a SeatingRepository.
func NewSeatingRepository(db *sqlx.DB) *SeatingRepository {
	return &SeatingRepository{db: db}
}

func (r *SeatingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForExam drops the exam's previous plan and stores the new seats.
func (r *SeatingRepository) ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, seats []models.SeatAllocation) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM seat_allocations WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete seat allocations: %w", err)
	}

	now := time.Now().UTC()
	const query = `
INSERT INTO seat_allocations (id, exam_id, room_id, room_number, student_id, roll_number, seat_number, seat_row, seat_col, created_at)
VALUES (:id, :exam_id, :room_id, :room_number, :student_id, :roll_number, :seat_number, :seat_row, :seat_col, :created_at)`
	for i := range seats {
		seat := &seats[i]
		if seat.ID == "" {
			seat.ID = uuid.NewString()
		}
		seat.ExamID = examID
		if seat.CreatedAt.IsZero() {
			seat.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, seat); err != nil {
			return fmt.Errorf("insert seat allocation: %w", err)
		}
	}
	return nil
}

// ListByExam returns the stored plan ordered room by room, seat by seat.
func (r *SeatingRepository) ListByExam(ctx context.Context, examID string) ([]models.SeatAllocation, error) {
	const query = `SELECT id, exam_id, room_id, room_number, student_id, roll_number, seat_number, seat_row, seat_col, created_at
FROM seat_allocations WHERE exam_id = $1 ORDER BY room_number ASC, seat_number ASC`
	var seats []models.SeatAllocation
	if err := r.db.SelectContext(ctx, &seats, query, examID); err != nil {
		return nil, fmt.Errorf("list seat allocations: %w", err)
	}
	return seats, nil
}
