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
	"github.com/noah-isme/resource-allocator/pkg/database"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
)

type leaveStore interface {
	leaveWindowReader
	Create(ctx context.Context, exec sqlx.ExtContext, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	ListAffectedSlots(ctx context.Context, leaveID string) ([]models.LeaveAffectedSlot, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	UpdateStatus(ctx context.Context, id string, status models.LeaveStatus) error
}

type facultyDirectory interface {
	facultyReader
	FindByID(ctx context.Context, id string) (*models.Faculty, error)
}

type departmentTimetableReader interface {
	ListDepartmentSlots(ctx context.Context, departmentID string, exclude *models.TimetableScope) ([]models.DepartmentSlot, error)
}

// LeaveService records faculty leave and finds cover for the classes it cancels.
type LeaveService struct {
	leaves     leaveStore
	faculty    facultyDirectory
	timetables departmentTimetableReader
	tx         database.TxBeginner
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(leaves leaveStore, faculty facultyDirectory, timetables departmentTimetableReader, tx database.TxBeginner, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		leaves:     leaves,
		faculty:    faculty,
		timetables: timetables,
		tx:         tx,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Apply files a leave for the calling faculty member and proposes a substitute for every
// class it cancels. Classes without eligible cover are stored with no substitute.
func (s *LeaveService) Apply(ctx context.Context, claims *models.JWTClaims, req dto.ApplyLeaveRequest) (*dto.LeaveResponse, error) {
	if claims == nil || claims.FacultyID == "" {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only faculty accounts can apply for leave")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	start, err := allocation.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid startDate")
	}
	end, err := allocation.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid endDate")
	}
	window := allocation.LeaveWindow{
		FacultyID: claims.FacultyID,
		Type:      allocation.LeaveType(req.LeaveType),
		StartDate: start,
		EndDate:   end,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	member, err := s.faculty.FindByID(ctx, claims.FacultyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "faculty record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}

	existing, err := s.leaves.ListOverlapping(ctx, member.DepartmentID, start, end)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaves")
	}
	windows := lo.Map(existing, func(l models.LeaveRequest, _ int) allocation.LeaveWindow { return leaveWindow(l) })
	for _, other := range windows {
		if other.FacultyID == member.ID && leaveWindowsOverlap(window, other) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "leave overlaps an existing request")
		}
	}

	candidates, placements, err := s.departmentContext(ctx, member.DepartmentID)
	if err != nil {
		return nil, err
	}
	resolved, err := allocation.ResolveLeave(window, member.DepartmentID, candidates, placements, windows)
	if err != nil {
		return nil, err
	}

	leave := &models.LeaveRequest{
		FacultyID:    member.ID,
		DepartmentID: member.DepartmentID,
		LeaveType:    req.LeaveType,
		StartDate:    start,
		EndDate:      end,
		Reason:       req.Reason,
		Status:       models.LeaveStatusPending,
	}
	if req.LeaveType == models.LeaveTypePartial {
		leave.StartTime = lo.ToPtr(req.StartTime)
		leave.EndTime = lo.ToPtr(req.EndTime)
	}
	uncovered := 0
	leave.AffectedSlots = lo.Map(resolved, func(slot allocation.ResolvedSlot, _ int) models.LeaveAffectedSlot {
		record := models.LeaveAffectedSlot{
			SlotDate:  slot.Date,
			Day:       slot.Day,
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			SubjectID: slot.SubjectID,
			RoomID:    slot.RoomID,
			Semester:  slot.Semester,
			Section:   slot.Section,
		}
		if slot.Substitute != nil {
			record.SubstituteID = lo.ToPtr(slot.Substitute.FacultyID)
		} else {
			uncovered++
		}
		return record
	})

	err = database.WithTx(ctx, s.tx, func(tx *sqlx.Tx) error {
		return s.leaves.Create(ctx, tx, leave)
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store leave")
	}

	s.metrics.RecordAllocation(AllocationSubstitute, len(resolved)-uncovered, uncovered, time.Since(started))
	s.logger.Info("leave applied",
		zap.String("leave_id", leave.ID),
		zap.String("faculty_id", member.ID),
		zap.Int("affected_slots", len(resolved)),
		zap.Int("uncovered", uncovered),
	)
	return &dto.LeaveResponse{Leave: *leave, Uncovered: uncovered}, nil
}

// List returns leaves visible to the caller: faculty see their own, HODs their department,
// principals and admins everything.
func (s *LeaveService) List(ctx context.Context, claims *models.JWTClaims, query dto.LeaveQuery) ([]models.LeaveRequest, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave query")
	}
	filter := models.LeaveFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.LeaveStatus(query.Status)
		filter.Status = &status
	}
	switch claims.Role {
	case models.RoleFaculty:
		if claims.FacultyID == "" {
			return nil, nil, appErrors.ErrForbidden
		}
		filter.FacultyID = claims.FacultyID
	case models.RoleHOD:
		filter.DepartmentID = claims.DepartmentID
	}

	leaves, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leaves")
	}
	for i := range leaves {
		slots, err := s.leaves.ListAffectedSlots(ctx, leaves[i].ID)
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load affected slots")
		}
		leaves[i].AffectedSlots = slots
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return leaves, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Cancel withdraws the caller's own pending or approved leave.
func (s *LeaveService) Cancel(ctx context.Context, claims *models.JWTClaims, id string) error {
	if claims == nil {
		return appErrors.ErrUnauthorized
	}
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "leave not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave")
	}
	if claims.FacultyID == "" || leave.FacultyID != claims.FacultyID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the applicant can cancel a leave")
	}
	if leave.Status != models.LeaveStatusPending && leave.Status != models.LeaveStatusApproved {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "leave is already "+string(leave.Status))
	}
	if err := s.leaves.UpdateStatus(ctx, id, models.LeaveStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel leave")
	}
	return nil
}

// FindSubstitute ranks cover for a single class slot.
func (s *LeaveService) FindSubstitute(ctx context.Context, req dto.SubstituteSearchRequest) (*dto.SubstituteSearchResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitute search payload")
	}
	from, err := allocation.ParseDate(req.FromDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid fromDate")
	}
	to, err := allocation.ParseDate(req.ToDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid toDate")
	}

	started := time.Now()
	candidates, placements, err := s.departmentContext(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	existing, err := s.leaves.ListOverlapping(ctx, req.DepartmentID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaves")
	}
	ranked, err := allocation.RankSubstitutes(allocation.SubstituteQuery{
		DepartmentID:     req.DepartmentID,
		ExcludeFacultyID: req.ExcludeFacultyID,
		Day:              req.Day,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		FromDate:         from,
		ToDate:           to,
	}, candidates, placements, lo.Map(existing, func(l models.LeaveRequest, _ int) allocation.LeaveWindow { return leaveWindow(l) }))
	if err != nil {
		return nil, err
	}

	resp := &dto.SubstituteSearchResponse{Candidates: ranked}
	if len(ranked) > 0 {
		best := ranked[0]
		resp.Found = true
		resp.Substitute = &best
	}
	placed := 0
	if resp.Found {
		placed = 1
	}
	s.metrics.RecordAllocation(AllocationSubstitute, placed, 1-placed, time.Since(started))
	return resp, nil
}

func (s *LeaveService) departmentContext(ctx context.Context, departmentID string) ([]allocation.Candidate, []allocation.Placement, error) {
	faculty, err := s.faculty.List(ctx, models.FacultyFilter{DepartmentID: departmentID})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	slots, err := s.timetables.ListDepartmentSlots(ctx, departmentID, nil)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department timetables")
	}
	candidates := lo.Map(faculty, func(f models.Faculty, _ int) allocation.Candidate {
		return allocation.Candidate{FacultyID: f.ID, Name: f.Name, DepartmentID: f.DepartmentID, Active: f.Active}
	})
	placements := lo.Map(slots, func(slot models.DepartmentSlot, _ int) allocation.Placement {
		return slotPlacement(slot.TimetableSlot, slot.Semester, slot.Section)
	})
	return candidates, placements, nil
}

// leaveWindowsOverlap reports whether two leaves of the same person collide.
func leaveWindowsOverlap(a, b allocation.LeaveWindow) bool {
	if a.Type == allocation.LeavePartial {
		return b.Blocks(a.StartDate, a.StartTime, a.EndTime)
	}
	if b.Type == allocation.LeavePartial {
		return a.Blocks(b.StartDate, b.StartTime, b.EndTime)
	}
	return !a.StartDate.After(b.EndDate) && !b.StartDate.After(a.EndDate)
}
