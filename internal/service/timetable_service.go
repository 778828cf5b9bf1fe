package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/resource-allocator/internal/allocation"
	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/pkg/cache"
	"github.com/noah-isme/resource-allocator/pkg/database"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

type subjectReader interface {
	ListByDepartmentSemester(ctx context.Context, departmentID string, semester int) ([]models.Subject, error)
}

type facultyReader interface {
	List(ctx context.Context, filter models.FacultyFilter) ([]models.Faculty, error)
}

type facultyLoadWriter interface {
	facultyReader
	UpdateCurrentLoad(ctx context.Context, exec sqlx.ExtContext, loads map[string]int) error
}

type roomReader interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, error)
}

type coverageReader interface {
	ListForClass(ctx context.Context, semester int, section string, subjectIDs []string) ([]models.SyllabusCoverage, error)
}

type timetableStore interface {
	ReplaceScope(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable, slots []models.TimetableSlot) error
	FindByScope(ctx context.Context, scope models.TimetableScope) (*models.Timetable, error)
	ListSlots(ctx context.Context, timetableID string) ([]models.TimetableSlot, error)
	ListDepartmentSlots(ctx context.Context, departmentID string, exclude *models.TimetableScope) ([]models.DepartmentSlot, error)
	ListRoomSlots(ctx context.Context, roomIDs []string, departmentID string) ([]models.TimetableSlot, error)
}

type responseCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// TimetableServiceConfig tunes timetable generation.
type TimetableServiceConfig struct {
	Enabled             bool
	CacheTTL            time.Duration
	MaxHoursPerSubject  int
	DefaultAcademicYear string
	DepartmentHourMatch string
}

// TimetableService loads a class's demand from the database, runs the generators and stores
// the outcome as the class's only timetable.
type TimetableService struct {
	subjects   subjectReader
	faculty    facultyLoadWriter
	rooms      roomReader
	coverage   coverageReader
	timetables timetableStore
	tx         database.TxBeginner
	cache      responseCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
	deptHour   *regexp.Regexp
	locks      *scopeLocks
}

// timetableMeta is persisted with each timetable so reads can return the run's diagnostics.
type timetableMeta struct {
	Conflicts      []string                         `json:"conflicts"`
	Deficits       []allocation.Conflict            `json:"deficits,omitempty"`
	PriorityReport []allocation.PriorityReportEntry `json:"priorityReport,omitempty"`
	GeneratedAt    time.Time                        `json:"generatedAt"`
}

// NewTimetableService wires the timetable generator dependencies.
func NewTimetableService(
	subjects subjectReader,
	faculty facultyLoadWriter,
	rooms roomReader,
	coverage coverageReader,
	timetables timetableStore,
	tx database.TxBeginner,
	cache responseCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	if cfg.MaxHoursPerSubject <= 0 {
		cfg.MaxHoursPerSubject = allocation.DefaultMaxPriorityHours
	}
	pattern, err := regexp.Compile(cfg.DepartmentHourMatch)
	if err != nil || cfg.DepartmentHourMatch == "" {
		pattern = regexp.MustCompile(`(?i)department\s*(hour|period)`)
	}
	return &TimetableService{
		subjects:   subjects,
		faculty:    faculty,
		rooms:      rooms,
		coverage:   coverage,
		timetables: timetables,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		deptHour:   pattern,
		locks:      newScopeLocks(),
	}
}

// Generate builds a base timetable for the requested class and replaces the stored one.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.TimetableResponse, error) {
	return s.run(ctx, req, actorID, models.TimetableGeneratorBase)
}

// GeneratePriority weights subject hours by syllabus coverage before placing them.
func (s *TimetableService) GeneratePriority(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.TimetableResponse, error) {
	return s.run(ctx, req, actorID, models.TimetableGeneratorPriority)
}

func (s *TimetableService) run(ctx context.Context, req dto.GenerateTimetableRequest, actorID string, generator models.TimetableGenerator) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	if !s.cfg.Enabled {
		return nil, appErrors.ErrAllocatorDisabled
	}

	key := timetableCacheKey(req.DepartmentID, req.Semester, req.Section)
	if !s.locks.tryLock(key) {
		return nil, appErrors.ErrGenerationBusy
	}
	defer s.locks.unlock(key)

	started := time.Now()
	input, err := s.buildInput(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		result timetableRun
		kind   = AllocationTimetable
	)
	if generator == models.TimetableGeneratorPriority {
		kind = AllocationPriority
		result, err = s.runPriority(ctx, input)
	} else {
		var base allocation.TimetableResult
		base, err = allocation.GenerateTimetable(input.TimetableInput)
		result = timetableRun{TimetableResult: base}
	}
	if err != nil {
		return nil, err
	}

	academicYear := req.AcademicYear
	if academicYear == "" {
		academicYear = s.cfg.DefaultAcademicYear
	}
	meta := timetableMeta{
		Conflicts:      result.ConflictMessages(),
		Deficits:       result.Conflicts,
		PriorityReport: result.report,
		GeneratedAt:    time.Now().UTC(),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}
	record := &models.Timetable{
		DepartmentID: req.DepartmentID,
		Semester:     req.Semester,
		Section:      req.Section,
		AcademicYear: academicYear,
		Generator:    generator,
		GeneratedBy:  actorID,
		Meta:         types.JSONText(metaBytes),
	}
	slots := lo.Map(result.Placements, func(p allocation.Placement, _ int) models.TimetableSlot {
		return models.TimetableSlot{
			Day:       p.Day,
			StartTime: p.StartTime,
			EndTime:   p.EndTime,
			SubjectID: p.SubjectID,
			FacultyID: p.FacultyID,
			RoomID:    p.RoomID,
			Kind:      string(p.Kind),
		}
	})
	loads := facultyLoads(append(append([]allocation.Placement{}, input.Commitments...), result.Placements...), input.facultyIDs)

	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		if err := s.timetables.ReplaceScope(ctx, tx, record, slots); err != nil {
			return err
		}
		return s.faculty.UpdateCurrentLoad(ctx, tx, loads)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable")
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, key)
	}

	s.metrics.RecordAllocation(kind, len(result.Placements), len(result.Conflicts), time.Since(started))
	s.logger.Info("timetable generated",
		zap.String("department_id", req.DepartmentID),
		zap.Int("semester", req.Semester),
		zap.String("section", req.Section),
		zap.String("generator", string(generator)),
		zap.Int("placements", len(result.Placements)),
		zap.Int("conflicts", len(result.Conflicts)),
	)

	return &dto.TimetableResponse{
		TimetableID:    record.ID,
		DepartmentID:   record.DepartmentID,
		Semester:       record.Semester,
		Section:        record.Section,
		AcademicYear:   record.AcademicYear,
		Generator:      generator,
		Placements:     result.Placements,
		Conflicts:      meta.Conflicts,
		Deficits:       result.Conflicts,
		PriorityReport: result.report,
	}, nil
}

// Get returns the stored timetable of a class, served from cache when possible.
func (s *TimetableService) Get(ctx context.Context, query dto.TimetableQuery) (*dto.TimetableResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	key := timetableCacheKey(query.DepartmentID, query.Semester, query.Section)
	if s.cache != nil {
		var cached dto.TimetableResponse
		if s.cache.Get(ctx, key, &cached) {
			return &cached, nil
		}
	}

	record, err := s.timetables.FindByScope(ctx, models.TimetableScope{DepartmentID: query.DepartmentID, Semester: query.Semester, Section: query.Section})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable generated for this class")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	slots, err := s.timetables.ListSlots(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}

	var meta timetableMeta
	if len(record.Meta) > 0 {
		if err := record.Meta.Unmarshal(&meta); err != nil {
			s.logger.Warn("timetable metadata unreadable", zap.String("timetable_id", record.ID), zap.Error(err))
		}
	}
	resp := &dto.TimetableResponse{
		TimetableID:    record.ID,
		DepartmentID:   record.DepartmentID,
		Semester:       record.Semester,
		Section:        record.Section,
		AcademicYear:   record.AcademicYear,
		Generator:      record.Generator,
		Placements:     lo.Map(slots, func(slot models.TimetableSlot, _ int) allocation.Placement { return slotPlacement(slot, record.Semester, record.Section) }),
		Conflicts:      meta.Conflicts,
		Deficits:       meta.Deficits,
		PriorityReport: meta.PriorityReport,
	}
	if resp.Conflicts == nil {
		resp.Conflicts = []string{}
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	}
	return resp, nil
}

// timetableInput carries the generator input plus what the service needs afterwards.
type timetableInput struct {
	allocation.TimetableInput
	facultyIDs []string
}

type timetableRun struct {
	allocation.TimetableResult
	report []allocation.PriorityReportEntry
}

func (s *TimetableService) runPriority(ctx context.Context, input timetableInput) (timetableRun, error) {
	subjectIDs := lo.Map(input.Demand, func(d allocation.DemandItem, _ int) string { return d.SubjectID })
	records, err := s.coverage.ListForClass(ctx, input.Semester, input.Section, subjectIDs)
	if err != nil {
		return timetableRun{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load syllabus coverage")
	}
	coverage := make(map[string]allocation.CoverageWeight, len(records))
	for _, record := range records {
		coverage[record.SubjectID] = allocation.CoverageWeight{Percent: record.CoveragePercent, RemainingHours: record.RemainingHours}
	}
	result, err := allocation.GeneratePriorityTimetable(allocation.PriorityInput{
		TimetableInput: input.TimetableInput,
		Coverage:       coverage,
		MaxHours:       s.cfg.MaxHoursPerSubject,
	})
	if err != nil {
		return timetableRun{}, err
	}
	return timetableRun{TimetableResult: result.TimetableResult, report: result.Report}, nil
}

func (s *TimetableService) buildInput(ctx context.Context, req dto.GenerateTimetableRequest) (timetableInput, error) {
	subjects, err := s.subjects.ListByDepartmentSemester(ctx, req.DepartmentID, req.Semester)
	if err != nil {
		return timetableInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	active := true
	faculty, err := s.faculty.List(ctx, models.FacultyFilter{DepartmentID: req.DepartmentID, Active: &active})
	if err != nil {
		return timetableInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	if len(faculty) == 0 {
		return timetableInput{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active faculty in department")
	}
	facultyIDs := lo.Map(faculty, func(f models.Faculty, _ int) string { return f.ID })

	overrides := make(map[string]dto.SubjectLoad, len(req.SubjectLoads))
	for _, load := range req.SubjectLoads {
		if load.FacultyID != "" && !lo.Contains(facultyIDs, load.FacultyID) {
			return timetableInput{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("faculty %s is not active in the department", load.FacultyID))
		}
		overrides[load.SubjectID] = load
	}

	var (
		demand   []allocation.DemandItem
		deptHour *allocation.DepartmentHour
		next     int
	)
	for _, subject := range subjects {
		if deptHour == nil && s.deptHour.MatchString(subject.Name) {
			deptHour = &allocation.DepartmentHour{SubjectID: subject.ID, SubjectName: subject.Name}
			continue
		}
		item := allocation.DemandItem{SubjectID: subject.ID, SubjectName: subject.Name, HoursPerWeek: subject.HoursPerWeek}
		override, hasOverride := overrides[subject.ID]
		switch {
		case hasOverride && override.FacultyID != "":
			item.FacultyID = override.FacultyID
		case subject.FacultyID != nil && *subject.FacultyID != "":
			item.FacultyID = *subject.FacultyID
		default:
			item.FacultyID = facultyIDs[next%len(facultyIDs)]
			next++
		}
		if hasOverride && override.HoursPerWeek != nil {
			item.HoursPerWeek = *override.HoursPerWeek
		}
		demand = append(demand, item)
	}
	if len(demand) == 0 {
		return timetableInput{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "no subjects defined for this department and semester")
	}

	roomIDs, err := s.roomPool(ctx, req)
	if err != nil {
		return timetableInput{}, err
	}

	scope := models.TimetableScope{DepartmentID: req.DepartmentID, Semester: req.Semester, Section: req.Section}
	existing, err := s.timetables.ListDepartmentSlots(ctx, req.DepartmentID, &scope)
	if err != nil {
		return timetableInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department timetables")
	}
	commitments := lo.Map(existing, func(slot models.DepartmentSlot, _ int) allocation.Placement {
		return slotPlacement(slot.TimetableSlot, slot.Semester, slot.Section)
	})

	// rooms are shared across departments; their bookings only block the room
	booked, err := s.timetables.ListRoomSlots(ctx, roomIDs, req.DepartmentID)
	if err != nil {
		return timetableInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room bookings")
	}
	for _, slot := range booked {
		commitments = append(commitments, allocation.Placement{
			Day:       slot.Day,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			RoomID:    slot.RoomID,
		})
	}

	return timetableInput{
		TimetableInput: allocation.TimetableInput{
			Demand:         demand,
			RoomIDs:        roomIDs,
			Semester:       req.Semester,
			Section:        req.Section,
			DepartmentHour: deptHour,
			Commitments:    commitments,
		},
		facultyIDs: facultyIDs,
	}, nil
}

// roomPool resolves the rooms a class may use: explicit ids in request order, else the
// department's teaching rooms, else any available teaching room.
func (s *TimetableService) roomPool(ctx context.Context, req dto.GenerateTimetableRequest) ([]string, error) {
	available := true
	teaching := []models.RoomType{models.RoomTypeClassroom, models.RoomTypeLab}
	if len(req.RoomIDs) > 0 {
		rooms, err := s.rooms.List(ctx, models.RoomFilter{Available: &available})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		known := lo.SliceToMap(rooms, func(r models.Room) (string, struct{}) { return r.ID, struct{}{} })
		for _, id := range req.RoomIDs {
			if _, ok := known[id]; !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is unknown or unavailable", id))
			}
		}
		return lo.Uniq(req.RoomIDs), nil
	}

	dept := req.DepartmentID
	rooms, err := s.rooms.List(ctx, models.RoomFilter{DepartmentID: &dept, Types: teaching, Available: &available})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	if len(rooms) == 0 {
		rooms, err = s.rooms.List(ctx, models.RoomFilter{Types: teaching, Available: &available})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
	}
	if len(rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no available rooms")
	}
	return lo.Map(rooms, func(r models.Room, _ int) string { return r.ID }), nil
}

func timetableCacheKey(departmentID string, semester int, section string) string {
	return cache.Key("timetable", departmentID, fmt.Sprintf("%d", semester), section)
}

func slotPlacement(slot models.TimetableSlot, semester int, section string) allocation.Placement {
	return allocation.Placement{
		Day:       slot.Day,
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		SubjectID: slot.SubjectID,
		FacultyID: slot.FacultyID,
		RoomID:    slot.RoomID,
		Semester:  semester,
		Section:   section,
		Kind:      allocation.PlacementKind(slot.Kind),
	}
}

// facultyLoads counts weekly hours per faculty member across the department. Every listed
// faculty id gets an entry so members who lost all classes drop back to zero.
func facultyLoads(placements []allocation.Placement, facultyIDs []string) map[string]int {
	loads := make(map[string]int, len(facultyIDs))
	for _, id := range facultyIDs {
		loads[id] = 0
	}
	for _, p := range placements {
		if p.FacultyID == "" {
			continue
		}
		loads[p.FacultyID]++
	}
	return loads
}
