package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resource-allocator/internal/models"
)

// SubjectRepository reads the course catalogue.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// ListByDepartmentSemester returns the subjects taught to one semester of a department in code order.
func (r *SubjectRepository) ListByDepartmentSemester(ctx context.Context, departmentID string, semester int) ([]models.Subject, error) {
	const query = `SELECT id, code, name, department_id, semester, type, hours_per_week, faculty_id, created_at, updated_at
FROM subjects WHERE department_id = $1 AND semester = $2 ORDER BY code ASC, id ASC`
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, departmentID, semester); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}
