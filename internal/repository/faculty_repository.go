package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/resource-allocator/internal/models"
)

const facultyColumns = "id, employee_code, name, email, department_id, designation, max_weekly_load, current_load, invigilation_count, is_active, created_at, updated_at"

// FacultyRepository reads faculty records and maintains their duty counters.
type FacultyRepository struct {
	db *sqlx.DB
}

// NewFacultyRepository constructs a FacultyRepository.
func NewFacultyRepository(db *sqlx.DB) *FacultyRepository {
	return &FacultyRepository{db: db}
}

func (r *FacultyRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns faculty matching the filter ordered by name then id, so allocation input order is stable.
func (r *FacultyRepository) List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)))
	}

	query := "SELECT " + facultyColumns + " FROM faculty"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name ASC, id ASC"

	var faculty []models.Faculty
	if err := r.db.SelectContext(ctx, &faculty, query, args...); err != nil {
		return nil, fmt.Errorf("list faculty: %w", err)
	}
	return faculty, nil
}

// FindByID fetches one faculty member.
func (r *FacultyRepository) FindByID(ctx context.Context, id string) (*models.Faculty, error) {
	query := "SELECT " + facultyColumns + " FROM faculty WHERE id = $1"
	var faculty models.Faculty
	if err := r.db.GetContext(ctx, &faculty, query, id); err != nil {
		return nil, err
	}
	return &faculty, nil
}

// IncrementInvigilationCount bumps the duty counter of every listed faculty member once.
func (r *FacultyRepository) IncrementInvigilationCount(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE faculty SET invigilation_count = invigilation_count + 1, updated_at = $1 WHERE id = ANY($2)`
	if _, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("increment invigilation count: %w", err)
	}
	return nil
}

// DecrementInvigilationCount reverts duties released by a roster that is being replaced.
func (r *FacultyRepository) DecrementInvigilationCount(ctx context.Context, exec sqlx.ExtContext, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	const query = `UPDATE faculty SET invigilation_count = GREATEST(invigilation_count - 1, 0), updated_at = $1 WHERE id = ANY($2)`
	if _, err := r.exec(exec).ExecContext(ctx, query, time.Now().UTC(), pq.Array(ids)); err != nil {
		return fmt.Errorf("decrement invigilation count: %w", err)
	}
	return nil
}

// UpdateCurrentLoad records the weekly teaching hours each faculty member holds after a generation run.
func (r *FacultyRepository) UpdateCurrentLoad(ctx context.Context, exec sqlx.ExtContext, loads map[string]int) error {
	if len(loads) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()
	const query = `UPDATE faculty SET current_load = $1, updated_at = $2 WHERE id = $3`
	for id, load := range loads {
		if _, err := target.ExecContext(ctx, query, load, now, id); err != nil {
			return fmt.Errorf("update current load: %w", err)
		}
	}
	return nil
}
