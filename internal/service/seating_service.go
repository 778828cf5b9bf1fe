package service

import (
	"context"
	"database/sql"
	"errors"
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

type examReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

type studentReader interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type seatingStore interface {
	ReplaceForExam(ctx context.Context, exec sqlx.ExtContext, examID string, seats []models.SeatAllocation) error
	ListByExam(ctx context.Context, examID string) ([]models.SeatAllocation, error)
}

// SeatingServiceConfig tunes seat plan generation.
type SeatingServiceConfig struct {
	Enabled bool
	Columns int
}

// SeatingService seats the students of an exam's semester across exam rooms.
type SeatingService struct {
	exams     examReader
	students  studentReader
	rooms     roomReader
	seats     seatingStore
	tx        database.TxBeginner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SeatingServiceConfig
	locks     *scopeLocks
}

// NewSeatingService constructs a SeatingService.
func NewSeatingService(exams examReader, students studentReader, rooms roomReader, seats seatingStore, tx database.TxBeginner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg SeatingServiceConfig) *SeatingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Columns <= 0 {
		cfg.Columns = allocation.DefaultSeatColumns
	}
	return &SeatingService{
		exams:     exams,
		students:  students,
		rooms:     rooms,
		seats:     seats,
		tx:        tx,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		locks:     newScopeLocks(),
	}
}

// Allocate computes and stores a fresh seat plan for the exam.
func (s *SeatingService) Allocate(ctx context.Context, examID string, req dto.SeatingRequest) (*dto.SeatingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid seating payload")
	}
	if !s.cfg.Enabled {
		return nil, appErrors.ErrAllocatorDisabled
	}
	lockKey := cache.Key("seating", examID)
	if !s.locks.tryLock(lockKey) {
		return nil, appErrors.ErrGenerationBusy
	}
	defer s.locks.unlock(lockKey)

	started := time.Now()
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	students, err := s.students.List(ctx, models.StudentFilter{DepartmentID: exam.DepartmentID, Semester: exam.Semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no students enrolled for this exam")
	}
	rooms, err := examRooms(ctx, s.rooms, req.RoomIDs)
	if err != nil {
		return nil, err
	}

	columns := req.Columns
	if columns <= 0 {
		columns = s.cfg.Columns
	}
	result, err := allocation.AllocateSeating(allocation.SeatingInput{
		Students: lo.Map(students, func(st models.Student, _ int) allocation.SeatStudent {
			return allocation.SeatStudent{StudentID: st.ID, Name: st.Name, DepartmentID: st.DepartmentID, RollNumber: st.RollNumber}
		}),
		Rooms: lo.Map(rooms, func(r models.Room, _ int) allocation.SeatRoom {
			return allocation.SeatRoom{RoomID: r.ID, RoomNumber: r.RoomNumber, Capacity: r.Capacity}
		}),
		Columns: columns,
	})
	if err != nil {
		return nil, err
	}

	records := make([]models.SeatAllocation, 0, result.SeatedCount())
	for _, room := range result.Allocations {
		for _, seat := range room.Seats {
			records = append(records, models.SeatAllocation{
				RoomID:     room.RoomID,
				RoomNumber: room.RoomNumber,
				StudentID:  seat.StudentID,
				RollNumber: seat.RollNumber,
				SeatNumber: seat.SeatNumber,
				SeatRow:    seat.Row,
				SeatCol:    seat.Col,
			})
		}
	}
	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.seats.ReplaceForExam(ctx, tx, exam.ID, records)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store seat plan")
	}

	s.metrics.RecordAllocation(AllocationSeating, result.SeatedCount(), len(result.Unallocated), time.Since(started))
	s.logger.Info("seat plan generated",
		zap.String("exam_id", exam.ID),
		zap.Int("students", len(students)),
		zap.Int("rooms", len(result.Allocations)),
		zap.Int("unallocated", len(result.Unallocated)),
	)
	return &dto.SeatingResponse{
		ExamID:        exam.ID,
		TotalStudents: len(students),
		Seated:        result.SeatedCount(),
		Allocations:   result.Allocations,
		Unallocated:   result.Unallocated,
	}, nil
}

// List returns the stored seat plan grouped by room. Students of the exam without a stored
// seat are reported as unallocated.
func (s *SeatingService) List(ctx context.Context, examID string) (*dto.SeatingResponse, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	records, err := s.seats.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load seat plan")
	}
	students, err := s.students.List(ctx, models.StudentFilter{DepartmentID: exam.DepartmentID, Semester: exam.Semester})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}

	names := lo.SliceToMap(students, func(st models.Student) (string, string) { return st.ID, st.Name })
	allocations := make([]allocation.RoomSeating, 0)
	index := make(map[string]int)
	for _, record := range records {
		pos, ok := index[record.RoomID]
		if !ok {
			pos = len(allocations)
			index[record.RoomID] = pos
			allocations = append(allocations, allocation.RoomSeating{RoomID: record.RoomID, RoomNumber: record.RoomNumber})
		}
		room := &allocations[pos]
		room.Seats = append(room.Seats, allocation.SeatAssignment{
			StudentID:  record.StudentID,
			Name:       names[record.StudentID],
			RollNumber: record.RollNumber,
			SeatNumber: record.SeatNumber,
			Row:        record.SeatRow,
			Col:        record.SeatCol,
		})
		room.Allocated = len(room.Seats)
	}

	seated := lo.SliceToMap(records, func(r models.SeatAllocation) (string, struct{}) { return r.StudentID, struct{}{} })
	unallocated := make([]string, 0)
	for _, st := range students {
		if _, ok := seated[st.ID]; !ok {
			unallocated = append(unallocated, st.RollNumber)
		}
	}
	return &dto.SeatingResponse{
		ExamID:        exam.ID,
		TotalStudents: len(students),
		Seated:        len(records),
		Allocations:   allocations,
		Unallocated:   unallocated,
	}, nil
}

func loadExam(ctx context.Context, exams examReader, examID string) (*models.Exam, error) {
	if examID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "exam id is required")
	}
	exam, err := exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// examRooms returns available exam halls and classrooms, restricted to and ordered like ids
// when ids is non-empty.
func examRooms(ctx context.Context, reader roomReader, ids []string) ([]models.Room, error) {
	available := true
	rooms, err := reader.List(ctx, models.RoomFilter{Types: []models.RoomType{models.RoomTypeExamHall, models.RoomTypeClassroom}, Available: &available})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if len(ids) > 0 {
		byID := lo.KeyBy(rooms, func(r models.Room) string { return r.ID })
		selected := make([]models.Room, 0, len(ids))
		for _, id := range lo.Uniq(ids) {
			room, ok := byID[id]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "room "+id+" is not an available exam room")
			}
			selected = append(selected, room)
		}
		rooms = selected
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no available exam rooms")
	}
	return rooms, nil
}
