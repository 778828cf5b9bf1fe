package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/resource-allocator/internal/models"
)

// TimetableRepository persists generated timetables, one per class scope.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceScope deletes the timetable stored for the scope (slots cascade) and inserts the new one.
// Callers pass a transaction so readers never observe a half-written scope.
func (r *TimetableRepository) ReplaceScope(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable, slots []models.TimetableSlot) error {
	if timetable == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if timetable.DepartmentID == "" || timetable.Semester <= 0 || timetable.Section == "" {
		return fmt.Errorf("department_id, semester and section are required")
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	if timetable.ID == "" {
		timetable.ID = uuid.NewString()
	}
	if len(timetable.Meta) == 0 {
		timetable.Meta = types.JSONText(`{}`)
	}
	if timetable.CreatedAt.IsZero() {
		timetable.CreatedAt = now
	}
	timetable.UpdatedAt = now

	const deleteQuery = `DELETE FROM timetables WHERE department_id = $1 AND semester = $2 AND section = $3`
	if _, err := target.ExecContext(ctx, deleteQuery, timetable.DepartmentID, timetable.Semester, timetable.Section); err != nil {
		return fmt.Errorf("delete timetable scope: %w", err)
	}

	const insertQuery = `
INSERT INTO timetables (id, department_id, semester, section, academic_year, generator, generated_by, meta, created_at, updated_at)
VALUES (:id, :department_id, :semester, :section, :academic_year, :generator, :generated_by, :meta, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, timetable); err != nil {
		return fmt.Errorf("insert timetable: %w", err)
	}

	const slotQuery = `
INSERT INTO timetable_slots (id, timetable_id, day, start_time, end_time, subject_id, faculty_id, room_id, kind, created_at)
VALUES (:id, :timetable_id, :day, :start_time, :end_time, :subject_id, :faculty_id, :room_id, :kind, :created_at)`
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.TimetableID = timetable.ID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, slotQuery, slot); err != nil {
			return fmt.Errorf("insert timetable slot: %w", err)
		}
	}
	return nil
}

// FindByScope loads the timetable stored for a class scope.
func (r *TimetableRepository) FindByScope(ctx context.Context, scope models.TimetableScope) (*models.Timetable, error) {
	const query = `SELECT id, department_id, semester, section, academic_year, generator, generated_by, meta, created_at, updated_at
FROM timetables WHERE department_id = $1 AND semester = $2 AND section = $3`
	var timetable models.Timetable
	if err := r.db.GetContext(ctx, &timetable, query, scope.DepartmentID, scope.Semester, scope.Section); err != nil {
		return nil, err
	}
	return &timetable, nil
}

// ListSlots returns the slots of one timetable in weekly order.
func (r *TimetableRepository) ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error) {
	const query = `SELECT id, timetable_id, day, start_time, end_time, subject_id, faculty_id, room_id, kind, created_at
FROM timetable_slots WHERE timetable_id = $1 ORDER BY ` + dayOrderExpr + `, start_time ASC`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, timetableID); err != nil {
		return nil, fmt.Errorf("list timetable slots: %w", err)
	}
	return slots, nil
}

// ListDepartmentSlots returns every stored slot of a department with its class scope.
// Passing an excluded scope skips that class, which is about to be regenerated.
func (r *TimetableRepository) ListDepartmentSlots(ctx context.Context, departmentID string, exclude *models.TimetableScope) ([]models.DepartmentSlot, error) {
	var builder strings.Builder
	builder.WriteString(`SELECT s.id, s.timetable_id, s.day, s.start_time, s.end_time, s.subject_id, s.faculty_id, s.room_id, s.kind, s.created_at, t.semester, t.section
FROM timetable_slots s JOIN timetables t ON t.id = s.timetable_id WHERE t.department_id = $1`)
	args := []interface{}{departmentID}
	if exclude != nil {
		builder.WriteString(" AND NOT (t.semester = $2 AND t.section = $3)")
		args = append(args, exclude.Semester, exclude.Section)
	}
	builder.WriteString(" ORDER BY t.semester ASC, t.section ASC, s.start_time ASC")

	var slots []models.DepartmentSlot
	if err := r.db.SelectContext(ctx, &slots, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list department timetable slots: %w", err)
	}
	return slots, nil
}

// ListRoomSlots returns the slots other departments hold in the given rooms.
func (r *TimetableRepository) ListRoomSlots(ctx context.Context, roomIDs []string, departmentID string) ([]models.TimetableSlot, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT s.id, s.timetable_id, s.day, s.start_time, s.end_time, s.subject_id, s.faculty_id, s.room_id, s.kind, s.created_at
FROM timetable_slots s JOIN timetables t ON t.id = s.timetable_id
WHERE s.room_id = ANY($1) AND t.department_id <> $2 ORDER BY s.room_id ASC, s.start_time ASC`
	var slots []models.TimetableSlot
	if err := r.db.SelectContext(ctx, &slots, query, pq.Array(roomIDs), departmentID); err != nil {
		return nil, fmt.Errorf("list room timetable slots: %w", err)
	}
	return slots, nil
}

const dayOrderExpr = `CASE day WHEN 'Monday' THEN 1 WHEN 'Tuesday' THEN 2 WHEN 'Wednesday' THEN 3 WHEN 'Thursday' THEN 4 WHEN 'Friday' THEN 5 WHEN 'Saturday' THEN 6 ELSE 7 END`
