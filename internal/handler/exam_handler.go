package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/service"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
	"github.com/noah-isme/resource-allocator/pkg/response"
)

type seatingAllocator interface {
	Allocate(ctx context.Context, examID string, req dto.SeatingRequest) (*dto.SeatingResponse, error)
	List(ctx context.Context, examID string) (*dto.SeatingResponse, error)
}

type invigilationAllocator interface {
	Allocate(ctx context.Context, examID string, req dto.InvigilationRequest) (*dto.InvigilationResponse, error)
	List(ctx context.Context, examID string) (*dto.InvigilationResponse, error)
}

// ExamHandler exposes seating and invigilation for a scheduled exam.
type ExamHandler struct {
	seating      seatingAllocator
	invigilation invigilationAllocator
}

// NewExamHandler constructs the handler.
func NewExamHandler(seating *service.SeatingService, invigilation *service.InvigilationService) *ExamHandler {
	return &ExamHandler{seating: seating, invigilation: invigilation}
}

// AllocateSeating godoc
// @Summary Allocate exam seats
// @Description Replaces the exam's seat plan. Students are seated in roll-number order, room by room.
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.SeatingRequest false "Room selection"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/seating [post]
func (h *ExamHandler) AllocateSeating(c *gin.Context) {
	var req dto.SeatingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid seating payload"))
		return
	}
	result, err := h.seating.Allocate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Seating godoc
// @Summary Exam seat plan
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/seating [get]
func (h *ExamHandler) Seating(c *gin.Context) {
	result, err := h.seating.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// AllocateInvigilators godoc
// @Summary Assign invigilators
// @Description Assigns two invigilators per room, preferring the least loaded eligible faculty.
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body dto.InvigilationRequest false "Rooms and exclusions"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/invigilators [post]
func (h *ExamHandler) AllocateInvigilators(c *gin.Context) {
	var req dto.InvigilationRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid invigilation payload"))
		return
	}
	result, err := h.invigilation.Allocate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Invigilators godoc
// @Summary Exam invigilation roster
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/invigilators [get]
func (h *ExamHandler) Invigilators(c *gin.Context) {
	result, err := h.invigilation.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// bindOptionalJSON accepts an empty body as the zero request.
func bindOptionalJSON(c *gin.Context, dest interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
