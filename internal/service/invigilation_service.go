package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-allocator/internal/allocation"
	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/pkg/cache"
	"github.com/noah-isme/resource-allocator/pkg/database"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

type concurrentExamReader interface {
	examReader
	ListConcurrent(ctx context.Context, examID string, date time.Time, start, end string) ([]models.Exam, error)
}

type invigilationFaculty interface {
	facultyReader
	IncrementInvigilationCount(ctx context.Context, exec sqlx.ExtContext, ids []string) error
	DecrementInvigilationCount(ctx context.Context, exec sqlx.ExtContext, ids []string) error
}

type invigilationStore interface {
	ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, duties []models.InvigilationDuty) error
	ListByExam(ctx context.Context, examID string) ([]models.InvigilationDuty, error)
	ListByExams(ctx context.Context, examIDs []string) ([]models.InvigilationDuty, error)
}

type seatPlanReader interface {
	ListByExam(ctx context.Context, examID string) ([]models.SeatAllocation, error)
}

type leaveWindowReader interface {
	ListOverlapping(ctx context.Context, departmentID string, from, to time.Time) ([]models.LeaveRequest, error)
}

// InvigilationService staffs exam rooms with a primary and a backup invigilator.
type InvigilationService struct {
	exams     concurrentExamReader
	faculty   invigilationFaculty
	rooms     roomReader
	seats     seatPlanReader
	duties    invigilationStore
	leaves    leaveWindowReader
	tx        database.TxBeginner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	enabled   bool
	locks     *scopeLocks
}

// NewInvigilationService constructs an InvigilationService.
func NewInvigilationService(exams concurrentExamReader, faculty invigilationFaculty, rooms roomReader, seats seatPlanReader, duties invigilationStore, leaves leaveWindowReader, tx database.TxBeginner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, enabled bool) *InvigilationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvigilationService{
		exams:     exams,
		faculty:   faculty,
		rooms:     rooms,
		seats:     seats,
		duties:    duties,
		leaves:    leaves,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		enabled:   enabled,
		locks:     newScopeLocks(),
	}
}

// Allocate replaces the exam's roster. Rooms come from the request, else from the stored seat
// plan, else every available exam room. Counters of a replaced roster are reverted before the
// new duties are counted, so invigilation_count always equals duties held.
func (s *InvigilationService) Allocate(ctx context.Context, examID string, req dto.InvigilationRequest) (*dto.InvigilationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invigilation payload")
	}
	if !s.enabled {
		return nil, appErrors.ErrAllocatorDisabled
	}
	lockKey := cache.Key("invigilation", examID)
	if !s.locks.tryLock(lockKey) {
		return nil, appErrors.ErrGenerationBusy
	}
	defer s.locks.unlock(lockKey)

	started := time.Now()
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	rooms, err := s.roomsFor(ctx, exam.ID, req.RoomIDs)
	if err != nil {
		return nil, err
	}

	active := true
	faculty, err := s.faculty.List(ctx, models.FacultyFilter{Active: &active})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	previous, err := s.duties.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load current roster")
	}
	released := dutyHolders(previous)
	unavailable, err := s.onLeave(ctx, exam)
	if err != nil {
		return nil, err
	}

	releasedCount := lo.CountValues(released)
	invigilators := lo.Map(faculty, func(f models.Faculty, _ int) allocation.Invigilator {
		count := f.InvigilationCount - releasedCount[f.ID]
		if count < 0 {
			count = 0
		}
		return allocation.Invigilator{FacultyID: f.ID, Name: f.Name, DepartmentID: f.DepartmentID, InvigilationCount: count, Active: f.Active}
	})
	slots := lo.Map(rooms, func(r models.Room, _ int) allocation.ExamSlot {
		dept := exam.DepartmentID
		if r.DepartmentID != nil && *r.DepartmentID != "" {
			dept = *r.DepartmentID
		}
		return allocation.ExamSlot{ExamID: exam.ID, RoomID: r.ID, RoomNumber: r.RoomNumber, DepartmentID: dept}
	})

	result, err := allocation.AllocateInvigilators(allocation.InvigilationInput{
		Slots:       slots,
		Faculty:     invigilators,
		Excluded:    req.ExcludeFacultyIDs,
		Unavailable: unavailable,
	})
	if err != nil {
		return nil, err
	}

	records := lo.Map(result.Assignments, func(a allocation.DutyAssignment, _ int) models.InvigilationDuty {
		duty := models.InvigilationDuty{RoomID: a.RoomID, DepartmentID: a.DepartmentID, PrimaryFacultyID: a.PrimaryID, Status: a.Status}
		if a.BackupID != "" {
			backup := a.BackupID
			duty.BackupFacultyID = &backup
		}
		return duty
	})
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.faculty.DecrementInvigilationCount(ctx, tx, released); err != nil {
			return err
		}
		if err := s.duties.ReplaceForExam(ctx, tx, exam.ID, records); err != nil {
			return err
		}
		return s.faculty.IncrementInvigilationCount(ctx, tx, result.AssignedIDs())
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store invigilation roster")
	}

	overlaps, err := s.overlaps(ctx, exam, result.AssignedIDs())
	if err != nil {
		s.logger.Warn("concurrent exam check failed", zap.String("exam_id", exam.ID), zap.Error(err))
	}

	s.metrics.RecordAllocation(AllocationInvigilation, len(result.Assignments), len(result.Unassigned), time.Since(started))
	s.logger.Info("invigilators allocated",
		zap.String("exam_id", exam.ID),
		zap.Int("rooms", len(slots)),
		zap.Int("assigned", len(result.Assignments)),
		zap.Int("unassigned", len(result.Unassigned)),
		zap.Int("overlaps", len(overlaps)),
	)
	return &dto.InvigilationResponse{
		ExamID:      exam.ID,
		Assignments: result.Assignments,
		Unassigned:  result.Unassigned,
		Overlaps:    overlaps,
	}, nil
}

// List returns the stored roster of an exam.
func (s *InvigilationService) List(ctx context.Context, examID string) (*dto.InvigilationResponse, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	duties, err := s.duties.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invigilation roster")
	}
	return &dto.InvigilationResponse{
		ExamID:      exam.ID,
		Assignments: lo.Map(duties, func(d models.InvigilationDuty, _ int) allocation.DutyAssignment { return dutyAssignment(d) }),
		Unassigned:  []string{},
	}, nil
}

func (s *InvigilationService) roomsFor(ctx context.Context, examID string, ids []string) ([]models.Room, error) {
	if len(ids) == 0 && s.seats != nil {
		plan, err := s.seats.ListByExam(ctx, examID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat plan")
		}
		ids = lo.Uniq(lo.Map(plan, func(seat models.SeatAllocation, _ int) string { return seat.RoomID }))
	}
	return examRooms(ctx, s.rooms, ids)
}

// onLeave lists faculty whose pending or approved leave covers the exam sitting.
func (s *InvigilationService) onLeave(ctx context.Context, exam *models.Exam) ([]string, error) {
	if s.leaves == nil {
		return nil, nil
	}
	leaves, err := s.leaves.ListOverlapping(ctx, "", exam.ExamDate, exam.ExamDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaves")
	}
	ids := make([]string, 0, len(leaves))
	for _, leave := range leaves {
		if leaveWindow(leave).Blocks(exam.ExamDate, exam.StartTime, exam.EndTime) {
			ids = append(ids, leave.FacultyID)
		}
	}
	return lo.Uniq(ids), nil
}

// overlaps flags assigned faculty who already hold a duty in a concurrent exam. The roster is
// kept as generated; resolving the clash is left to the exam office.
func (s *InvigilationService) overlaps(ctx context.Context, exam *models.Exam, assigned []string) ([]string, error) {
	if len(assigned) == 0 {
		return nil, nil
	}
	concurrent, err := s.exams.ListConcurrent(ctx, exam.ID, exam.ExamDate, exam.StartTime, exam.EndTime)
	if err != nil || len(concurrent) == 0 {
		return nil, err
	}
	duties, err := s.duties.ListByExams(ctx, lo.Map(concurrent, func(e models.Exam, _ int) string { return e.ID }))
	if err != nil {
		return nil, err
	}
	mine := lo.SliceToMap(assigned, func(id string) (string, struct{}) { return id, struct{}{} })
	var flagged []string
	for _, duty := range duties {
		for _, id := range dutyHolders([]models.InvigilationDuty{duty}) {
			if _, ok := mine[id]; ok {
				flagged = append(flagged, fmt.Sprintf("faculty %s also invigilates exam %s at the same time", id, duty.ExamID))
			}
		}
	}
	return lo.Uniq(flagged), nil
}

func dutyHolders(duties []models.InvigilationDuty) []string {
	ids := make([]string, 0, len(duties)*2)
	for _, d := range duties {
		ids = append(ids, d.PrimaryFacultyID)
		if d.BackupFacultyID != nil && *d.BackupFacultyID != "" {
			ids = append(ids, *d.BackupFacultyID)
		}
	}
	return ids
}

func dutyAssignment(d models.InvigilationDuty) allocation.DutyAssignment {
	a := allocation.DutyAssignment{
		ExamID:       d.ExamID,
		RoomID:       d.RoomID,
		DepartmentID: d.DepartmentID,
		PrimaryID:    d.PrimaryFacultyID,
		Status:       d.Status,
	}
	if d.BackupFacultyID != nil {
		a.BackupID = *d.BackupFacultyID
	}
	return a
}

func leaveWindow(l models.LeaveRequest) allocation.LeaveWindow {
	window := allocation.LeaveWindow{
		FacultyID: l.FacultyID,
		Type:      allocation.LeaveType(l.LeaveType),
		StartDate: l.StartDate,
		EndDate:   l.EndDate,
	}
	if l.StartTime != nil {
		window.StartTime = *l.StartTime
	}
	if l.EndTime != nil {
		window.EndTime = *l.EndTime
	}
	return window
}
