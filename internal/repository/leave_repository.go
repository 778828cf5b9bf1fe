package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resource-allocator/internal/models"
)

const leaveColumns = "id, faculty_id, department_id, leave_type, start_date, end_date, start_time, end_time, reason, status, created_at, updated_at"

// LeaveRepository persists leave requests and the classes they affect.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

func (r *LeaveRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create stores a leave request together with its affected slots.
func (r *LeaveRepository) Create(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error {
	if leave == nil {
		return fmt.Errorf("leave payload is nil")
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now

	const query = `
INSERT INTO leave_requests (id, faculty_id, department_id, leave_type, start_date, end_date, start_time, end_time, reason, status, created_at, updated_at)
VALUES (:id, :faculty_id, :department_id, :leave_type, :start_date, :end_date, :start_time, :end_time, :reason, :status, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, leave); err != nil {
		return fmt.Errorf("insert leave request: %w", err)
	}

	const slotQuery = `
INSERT INTO leave_affected_slots (id, leave_id, slot_date, day, start_time, end_time, subject_id, room_id, semester, section, substitute_id)
VALUES (:id, :leave_id, :slot_date, :day, :start_time, :end_time, :subject_id, :room_id, :semester, :section, :substitute_id)`
	for i := range leave.AffectedSlots {
		slot := &leave.AffectedSlots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.LeaveID = leave.ID
		if _, err := sqlx.NamedExecContext(ctx, target, slotQuery, slot); err != nil {
			return fmt.Errorf("insert leave affected slot: %w", err)
		}
	}
	return nil
}

// FindByID loads a leave request without its slots.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := "SELECT " + leaveColumns + " FROM leave_requests WHERE id = $1"
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// ListAffectedSlots returns the classes affected by one leave in date order.
func (r *LeaveRepository) ListAffectedSlots(ctx context.Context, leaveID string) ([]models.LeaveAffectedSlot, error) {
	const query = `SELECT id, leave_id, slot_date, day, start_time, end_time, subject_id, room_id, semester, section, substitute_id
FROM leave_affected_slots WHERE leave_id = $1 ORDER BY slot_date ASC, start_time ASC`
	var slots []models.LeaveAffectedSlot
	if err := r.db.SelectContext(ctx, &slots, query, leaveID); err != nil {
		return nil, fmt.Errorf("list leave affected slots: %w", err)
	}
	return slots, nil
}

// List returns leave requests matching the filter, newest first, with a total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	base := "FROM leave_requests WHERE 1=1"
	var (
		conditions []string
		args       []interface{}
	)
	if filter.FacultyID != "" {
		args = append(args, filter.FacultyID)
		conditions = append(conditions, fmt.Sprintf("faculty_id = $%d", len(args)))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC, created_at DESC LIMIT %d OFFSET %d", leaveColumns, base, size, offset)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return leaves, total, nil
}

// ListOverlapping returns pending or approved leaves touching the date range. An empty
// departmentID searches every department.
func (r *LeaveRepository) ListOverlapping(ctx context.Context, departmentID string, from, to time.Time) ([]models.LeaveRequest, error) {
	query := "SELECT " + leaveColumns + ` FROM leave_requests
WHERE status IN ('PENDING', 'APPROVED') AND start_date <= $2 AND end_date >= $1`
	args := []interface{}{from, to}
	if departmentID != "" {
		args = append(args, departmentID)
		query += " AND department_id = $3"
	}
	query += " ORDER BY start_date ASC, id ASC"

	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, fmt.Errorf("list overlapping leaves: %w", err)
	}
	return leaves, nil
}

// UpdateStatus moves a leave to a new status.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus) error {
	const query = `UPDATE leave_requests SET status = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("leave status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
