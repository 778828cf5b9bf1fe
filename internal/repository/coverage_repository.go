package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/resource-allocator/internal/models"
)

// CoverageRepository reads syllabus coverage records.
type CoverageRepository struct {
	db *sqlx.DB
}

// NewCoverageRepository constructs a CoverageRepository.
func NewCoverageRepository(db *sqlx.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

// ListForClass returns coverage for the given subjects taught to one class.
func (r *CoverageRepository) ListForClass(ctx context.Context, semester int, section string, subjectIDs []string) ([]models.SyllabusCoverage, error) {
	if len(subjectIDs) == 0 {
		return []models.SyllabusCoverage{}, nil
	}
	const query = `SELECT id, subject_id, semester, section, coverage_percent, remaining_hours, updated_at
FROM syllabus_coverage WHERE semester = $1 AND section = $2 AND subject_id = ANY($3)`
	var coverage []models.SyllabusCoverage
	if err := r.db.SelectContext(ctx, &coverage, query, semester, section, pq.Array(subjectIDs)); err != nil {
		return nil, fmt.Errorf("list syllabus coverage: %w", err)
	}
	return coverage, nil
}
