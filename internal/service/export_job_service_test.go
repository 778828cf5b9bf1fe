package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/internal/repository"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
	"github.com/noah-isme/resource-allocator/pkg/jobs"
)

type exportJobRepoStub struct {
	mu      sync.Mutex
	jobs    map[string]*models.ExportJob
	deleted []string
}

func newExportJobRepoStub() *exportJobRepoStub {
	return &exportJobRepoStub{jobs: map[string]*models.ExportJob{}}
}

func (r *exportJobRepoStub) Create(_ context.Context, job *models.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", len(r.jobs)+1)
	}
	stored := *job
	r.jobs[job.ID] = &stored
	return nil
}

func (r *exportJobRepoStub) GetByID(_ context.Context, id string) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get export job: %w", sql.ErrNoRows)
	}
	stored := *job
	return &stored, nil
}

func (r *exportJobRepoStub) Update(_ context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (r *exportJobRepoStub) ListByStatus(_ context.Context, status models.ExportStatus, before *time.Time, limit int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status != status {
			continue
		}
		if before != nil && (job.FinishedAt == nil || !job.FinishedAt.Before(*before)) {
			continue
		}
		out = append(out, *job)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *exportJobRepoStub) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type queueStub struct {
	jobs []jobs.Job
	err  error
}

func (q *queueStub) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, *models.ExportJob) (*ExportResult, error) {
	return nil, errors.New("render failed")
}

func seatingExporter(t *testing.T) *ExportService {
	return newExportServiceForTest(t, ExportSources{Seating: &seatingSourceStub{resp: &dto.SeatingResponse{ExamID: "exam-1"}}})
}

var adminClaims = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}

func TestExportJobServiceEnqueueAndRun(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exporter := seatingExporter(t)
	svc := NewExportJobService(repo, queue, exporter, nil, nil, ExportJobServiceConfig{Enabled: true})

	resp, err := svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeSeating, Format: models.ExportFormatCSV, ExamID: "exam-1"}, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0].ID)

	worker := NewExportWorker(repo, exporter, nil)
	require.NoError(t, worker.Handle(context.Background(), queue.jobs[0]))

	status, err := svc.Status(context.Background(), resp.ID, adminClaims)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.ResultURL)
	assert.Nil(t, status.Error)

	download, err := svc.Open(context.Background(), extractToken(*status.ResultURL))
	require.NoError(t, err)
	defer download.File.Close()
	assert.Equal(t, models.ExportFormatCSV, download.Format)
	assert.Contains(t, download.Filename, "exam-1_")
}

func TestExportJobServiceEnqueueValidation(t *testing.T) {
	svc := NewExportJobService(newExportJobRepoStub(), &queueStub{}, seatingExporter(t), nil, nil, ExportJobServiceConfig{Enabled: true})

	_, err := svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeSeating, Format: models.ExportFormatCSV}, adminClaims)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	_, err = svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeTimetable, Format: models.ExportFormatCSV, DepartmentID: "cse", Section: "A"}, adminClaims)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrValidation.Code))

	hod := &models.JWTClaims{UserID: "u-2", Role: models.RoleHOD, DepartmentID: "ece"}
	_, err = svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeTimetable, Format: models.ExportFormatPDF, DepartmentID: "cse", Semester: 3, Section: "A"}, hod)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))
}

func TestExportJobServiceDisabled(t *testing.T) {
	svc := NewExportJobService(newExportJobRepoStub(), &queueStub{}, seatingExporter(t), nil, nil, ExportJobServiceConfig{})
	_, err := svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeSeating, Format: models.ExportFormatCSV, ExamID: "exam-1"}, adminClaims)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrAllocatorDisabled.Code))
}

func TestExportJobServiceEnqueueFailureMarksJobFailed(t *testing.T) {
	repo := newExportJobRepoStub()
	svc := NewExportJobService(repo, &queueStub{err: errors.New("queue stopped")}, seatingExporter(t), nil, nil, ExportJobServiceConfig{Enabled: true})

	_, err := svc.Enqueue(context.Background(), dto.ExportRequest{Type: models.ExportTypeSeating, Format: models.ExportFormatCSV, ExamID: "exam-1"}, adminClaims)
	require.Error(t, err)
	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestExportJobServiceStatusScopedToOwner(t *testing.T) {
	repo := newExportJobRepoStub()
	require.NoError(t, repo.Create(context.Background(), &models.ExportJob{ID: "job-1", Type: models.ExportTypeSeating, Status: models.ExportStatusQueued, CreatedBy: "f-1"}))
	svc := NewExportJobService(repo, &queueStub{}, seatingExporter(t), nil, nil, ExportJobServiceConfig{Enabled: true})

	_, err := svc.Status(context.Background(), "job-1", &models.JWTClaims{UserID: "f-2", Role: models.RoleFaculty})
	assert.True(t, appErrors.IsCode(err, appErrors.ErrForbidden.Code))

	_, err = svc.Status(context.Background(), "job-1", &models.JWTClaims{UserID: "f-1", Role: models.RoleFaculty})
	assert.NoError(t, err)

	_, err = svc.Status(context.Background(), "missing", adminClaims)
	assert.True(t, appErrors.IsCode(err, appErrors.ErrNotFound.Code))
}

func TestExportWorkerRequeuesOnFailure(t *testing.T) {
	repo := newExportJobRepoStub()
	require.NoError(t, repo.Create(context.Background(), &models.ExportJob{ID: "job-1", Type: models.ExportTypeSeating, Status: models.ExportStatusQueued}))

	worker := NewExportWorker(repo, failingGenerator{}, nil)
	err := worker.Handle(context.Background(), jobs.Job{ID: "job-1"})
	require.Error(t, err)

	job := repo.jobs["job-1"]
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "render failed", *job.ErrorMessage)

	svc := NewExportJobService(repo, &queueStub{}, seatingExporter(t), nil, nil, ExportJobServiceConfig{Enabled: true})
	svc.MarkFailed(jobs.Job{ID: "job-1"}, err)
	assert.Equal(t, models.ExportStatusFailed, repo.jobs["job-1"].Status)
}

func TestExportJobServiceRecoverAndCleanup(t *testing.T) {
	repo := newExportJobRepoStub()
	queue := &queueStub{}
	exporter := seatingExporter(t)
	svc := NewExportJobService(repo, queue, exporter, nil, nil, ExportJobServiceConfig{Enabled: true, ResultTTL: time.Hour})

	require.NoError(t, repo.Create(context.Background(), &models.ExportJob{ID: "queued", Type: models.ExportTypeSeating, Status: models.ExportStatusQueued}))
	svc.RecoverPendingJobs(context.Background())
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, "queued", queue.jobs[0].ID)

	result, err := exporter.Generate(context.Background(), &models.ExportJob{ID: "old", Type: models.ExportTypeSeating, Params: models.ExportJobParams{Format: models.ExportFormatCSV, ExamID: "exam-1"}})
	require.NoError(t, err)
	finishedAt := time.Now().Add(-2 * time.Hour)
	require.NoError(t, repo.Create(context.Background(), &models.ExportJob{ID: "old", Type: models.ExportTypeSeating, Status: models.ExportStatusFinished, ResultURL: &result.URL, FinishedAt: &finishedAt}))

	svc.cleanupExpired(context.Background())
	assert.Equal(t, []string{"old"}, repo.deleted)
	_, err = exporter.Open(result.RelativePath)
	assert.Error(t, err)
}
