package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/resource-allocator/internal/models"
)

// InvigilationRepository persists exam duty rosters.
type InvigilationRepository struct {
	db *sqlx.DB
}

// NewInvigilationRepository constructs an InvigilationRepository.
func NewInvigilationRepository(db *sqlx.DB) *InvigilationRepository {
	return &InvigilationRepository{db: db}
}

func (r *InvigilationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ReplaceForExam drops the exam's previous roster and stores the new duties.
func (r *InvigilationRepository) ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, duties []models.InvigilationDuty) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM invigilation_duties WHERE exam_id = $1`, examID); err != nil {
		return fmt.Errorf("delete invigilation duties: %w", err)
	}

	now := time.Now().UTC()
	const query = `
INSERT INTO invigilation_duties (id, exam_id, room_id, department_id, primary_faculty_id, backup_faculty_id, status, created_at)
VALUES (:id, :exam_id, :room_id, :department_id, :primary_faculty_id, :backup_faculty_id, :status, :created_at)`
	for i := range duties {
		duty := &duties[i]
		if duty.ID == "" {
			duty.ID = uuid.NewString()
		}
		duty.ExamID = examID
		if duty.CreatedAt.IsZero() {
			duty.CreatedAt = now
		}
		if _, err := sqlx.NamedExecContext(ctx, target, query, duty); err != nil {
			return fmt.Errorf("insert invigilation duty: %w", err)
		}
	}
	return nil
}

// ListByExam returns the stored roster of an exam.
func (r *InvigilationRepository) ListByExam(ctx context.Context, examID string) ([]models.InvigilationDuty, error) {
	const query = `SELECT id, exam_id, room_id, department_id, primary_faculty_id, backup_faculty_id, status, created_at
FROM invigilation_duties WHERE exam_id = $1 ORDER BY created_at ASC, id ASC`
	var duties []models.InvigilationDuty
	if err := r.db.SelectContext(ctx, &duties, query, examID); err != nil {
		return nil, fmt.Errorf("list invigilation duties: %w", err)
	}
	return duties, nil
}

// ListByExams returns the rosters of several exams at once.
func (r *InvigilationRepository) ListByExams(ctx context.Context, examIDs []string) ([]models.InvigilationDuty, error) {
	if len(examIDs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, exam_id, room_id, department_id, primary_faculty_id, backup_faculty_id, status, created_at
FROM invigilation_duties WHERE exam_id = ANY($1) ORDER BY exam_id ASC, created_at ASC`
	var duties []models.InvigilationDuty
	if err := r.db.SelectContext(ctx, &duties, query, pq.Array(examIDs)); err != nil {
		return nil, fmt.Errorf("list invigilation duties for exams: %w", err)
	}
	return duties, nil
}
