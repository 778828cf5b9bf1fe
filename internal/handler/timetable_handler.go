package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/service"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
	"github.com/noah-isme/resource-allocator/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.TimetableResponse, error)
	GeneratePriority(ctx context.Context, req dto.GenerateTimetableRequest, actorID string) (*dto.TimetableResponse, error)
	Get(ctx context.Context, query dto.TimetableQuery) (*dto.TimetableResponse, error)
}

// TimetableHandler exposes class timetable generation.
type TimetableHandler struct {
	service timetableGenerator
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// Generate godoc
// @Summary Generate a class timetable
// @Description Places every subject's weekly hours into the section's free slots, honouring faculty commitments.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation scope"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	h.handleGenerate(c, h.service.Generate)
}

// GeneratePriority godoc
// @Summary Generate a coverage-weighted timetable
// @Description Subjects with low syllabus coverage receive extra weekly hours before placement.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation scope"
// @Success 201 {object} response.Envelope
// @Router /timetables/generate-priority [post]
func (h *TimetableHandler) GeneratePriority(c *gin.Context) {
	h.handleGenerate(c, h.service.GeneratePriority)
}

func (h *TimetableHandler) handleGenerate(c *gin.Context, run func(context.Context, dto.GenerateTimetableRequest, string) (*dto.TimetableResponse, error)) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	if !claims.CanManageDepartment(req.DepartmentID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "department outside your scope"))
		return
	}
	result, err := run(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Get godoc
// @Summary Current timetable of a section
// @Tags Timetables
// @Produce json
// @Param departmentId query string true "Department ID"
// @Param semester query int true "Semester"
// @Param section query string true "Section"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	result, err := h.service.Get(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
