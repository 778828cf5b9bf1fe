package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/resource-allocator/internal/models"
)

const examColumns = "id, name, department_id, semester, exam_date, start_time, end_time, status, created_at, updated_at"

// ExamRepository reads exam sittings.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository constructs an ExamRepository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// FindByID fetches one exam.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := "SELECT " + examColumns + " FROM exams WHERE id = $1"
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// ListConcurrent returns other exams held on the same date whose time window overlaps [start, end).
func (r *ExamRepository) ListConcurrent(ctx context.Context, examID string, date time.Time, start, end string) ([]models.Exam, error) {
	query := "SELECT " + examColumns + ` FROM exams
WHERE id <> $1 AND exam_date = $2 AND start_time < $4 AND end_time > $3 ORDER BY start_time ASC, id ASC`
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, examID, date, start, end); err != nil {
		return nil, fmt.Errorf("list concurrent exams: %w", err)
	}
	return exams, nil
}
