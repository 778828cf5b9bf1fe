package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/resource-allocator/internal/dto"
	"github.com/noah-isme/resource-allocator/internal/models"
	"github.com/noah-isme/resource-allocator/internal/service"
	appErrors "github.com/noah-isme/resource-allocator/pkg/errors"
	"github.com/noah-isme/resource-allocator/pkg/response"
)

type leaveManager interface {
	Apply(ctx context.Context, claims *models.JWTClaims, req dto.ApplyLeaveRequest) (*dto.LeaveResponse, error)
	List(ctx context.Context, claims *models.JWTClaims, query dto.LeaveQuery) ([]models.LeaveRequest, *models.Pagination, error)
	Cancel(ctx context.Context, claims *models.JWTClaims, id string) error
	FindSubstitute(ctx context.Context, req dto.SubstituteSearchRequest) (*dto.SubstituteSearchResponse, error)
}

// LeaveHandler exposes faculty leave and substitute search.
type LeaveHandler struct {
	service leaveManager
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(svc *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{service: svc}
}

// Apply godoc
// @Summary Apply for leave
// @Description Records the leave and assigns a substitute to every affected class slot.
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.ApplyLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Apply(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ApplyLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	result, err := h.service.Apply(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// List godoc
// @Summary List leave requests
// @Description Faculty see their own requests; HODs see their department.
// @Tags Leaves
// @Produce json
// @Param status query string false "Status filter"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.LeaveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	leaves, pagination, err := h.service.List(c.Request.Context(), claims, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Cancel godoc
// @Summary Cancel a leave request
// @Tags Leaves
// @Param id path string true "Leave ID"
// @Success 204
// @Router /leaves/{id} [delete]
func (h *LeaveHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Cancel(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SearchSubstitute godoc
// @Summary Find a substitute
// @Description Ranks department faculty who are free in the slot and not on leave.
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.SubstituteSearchRequest true "Slot to cover"
// @Success 200 {object} response.Envelope
// @Router /substitutes/search [post]
func (h *LeaveHandler) SearchSubstitute(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubstituteSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid substitute search"))
		return
	}
	if !claims.CanManageDepartment(req.DepartmentID) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "department outside your scope"))
		return
	}
	result, err := h.service.FindSubstitute(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
