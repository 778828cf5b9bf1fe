package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/pkg/export"
	"github.com/noah-isme/resource-allocator/pkg/storage"
)

type timetableSource interface {
	Get(ctx context.Context, query dto.TimetableQuery) (*dto.TimetableResponse, error)
}

type seatingSource interface {
	List(ctx context.Context, examID string) (*dto.SeatingResponse, error)
}

type rosterSource interface {
	List(ctx context.Context, examID string) (*dto.InvigilationResponse, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportSources bundles the readers export datasets are built from.
type ExportSources struct {
	Timetables timetableSource
	Seating    seatingSource
	Rosters    rosterSource
	Faculty    facultyReader
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService renders stored allocations into CSV or PDF files and signs download links.
type ExportService struct {
	sources ExportSources
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(sources ExportSources, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		sources: sources,
		storage: store,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate builds the job's dataset, stores the rendered file and returns a signed URL for it.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("export job is nil")
	}
	dataset, title, err := s.buildDataset(ctx, job)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Parse(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl, defaulting to the configured result TTL.
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

// buildFilename groups files by export type, e.g. seating/exam-1_20260301_101500.csv.
func (s *ExportService) buildFilename(job *models.ExportJob) string {
	subject := job.Params.ExamID
	if job.Type == models.ExportTypeTimetable {
		subject = fmt.Sprintf("%s_sem%d_%s", job.Params.DepartmentID, job.Params.Semester, job.Params.Section)
	}
	timestamp := time.Now().UTC().Format("20060102_150405")
	return fmt.Sprintf("%s/%s_%s.%s", job.Type, sanitizeFilename(subject), timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

func (s *ExportService) buildDataset(ctx context.Context, job *models.ExportJob) (export.Dataset, string, error) {
	switch job.Type {
	case models.ExportTypeTimetable:
		return s.timetableDataset(ctx, job.Params)
	case models.ExportTypeSeating:
		return s.seatingDataset(ctx, job.Params)
	case models.ExportTypeInvigilation:
		return s.rosterDataset(ctx, job.Params)
	default:
		return export.Dataset{}, "", fmt.Errorf("unsupported export type %s", job.Type)
	}
}

func (s *ExportService) timetableDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	timetable, err := s.sources.Timetables.Get(ctx, dto.TimetableQuery{DepartmentID: params.DepartmentID, Semester: params.Semester, Section: params.Section})
	if err != nil {
		return export.Dataset{}, "", err
	}
	names, err := s.facultyNames(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.NewDataset("Day", "Start", "End", "Subject", "Faculty", "Room", "Kind")
	for _, p := range timetable.Placements {
		dataset.Append(p.Day, p.StartTime, p.EndTime, p.SubjectID, nameOr(names, p.FacultyID), p.RoomID, string(p.Kind))
	}
	title := fmt.Sprintf("Timetable %s Semester %d Section %s", timetable.DepartmentID, timetable.Semester, timetable.Section)
	return dataset, title, nil
}

func (s *ExportService) seatingDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	plan, err := s.sources.Seating.List(ctx, params.ExamID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.NewDataset("Room", "Seat", "Row", "Column", "Roll Number", "Student")
	for _, room := range plan.Allocations {
		for _, seat := range room.Seats {
			dataset.Append(room.RoomNumber, seat.SeatNumber, strconv.Itoa(seat.Row), strconv.Itoa(seat.Col), seat.RollNumber, seat.Name)
		}
	}
	return dataset, fmt.Sprintf("Seating Plan %s", plan.ExamID), nil
}

func (s *ExportService) rosterDataset(ctx context.Context, params models.ExportJobParams) (export.Dataset, string, error) {
	roster, err := s.sources.Rosters.List(ctx, params.ExamID)
	if err != nil {
		return export.Dataset{}, "", err
	}
	names, err := s.facultyNames(ctx)
	if err != nil {
		return export.Dataset{}, "", err
	}
	dataset := export.NewDataset("Room", "Department", "Primary", "Backup", "Status")
	for _, duty := range roster.Assignments {
		backup := ""
		if duty.BackupID != "" {
			backup = nameOr(names, duty.BackupID)
		}
		dataset.Append(duty.RoomID, duty.DepartmentID, nameOr(names, duty.PrimaryID), backup, duty.Status)
	}
	return dataset, fmt.Sprintf("Invigilation Roster %s", roster.ExamID), nil
}

func (s *ExportService) facultyNames(ctx context.Context) (map[string]string, error) {
	if s.sources.Faculty == nil {
		return map[string]string{}, nil
	}
	faculty, err := s.sources.Faculty.List(ctx, models.FacultyFilter{})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(faculty))
	for _, f := range faculty {
		names[f.ID] = f.Name
	}
	return names, nil
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
