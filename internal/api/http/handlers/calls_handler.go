package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CallsHandler manages call endpoints.
type CallsHandler struct {
	calls      *service.CallsService
	assignment *service.AssignmentService
}

// NewCallsHandler constructs handler.
func NewCallsHandler(callsService *service.CallsService, assignmentService *service.AssignmentService) *CallsHandler {
	return &CallsHandler{calls: callsService, assignment: assignmentService}
}

// Create POST /calls.
func (h *CallsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateCallRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	detail, err := h.calls.CreateCall(c.UserContext(), principal.User, service.CreateCallInput{
		Name:        req.Name,
		Description: req.Description,
		ServiceIDs:  req.ServiceIDs,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromCallDetail(detail))
}

// List GET /calls.
func (h *CallsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	filter := service.CallListFilter{
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "perPage", 10),
	}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.CallStatus(raw)
		if !domain.ValidStatus(status) {
			return apperrors.NewValidationError("unknown status", map[string]any{"status": raw})
		}
		filter.Status = &status
	}

	details, total, err := h.calls.ListCalls(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}

	items := make([]dto.CallResponse, 0, len(details))
	for i := range details {
		items = append(items, dto.FromCallDetail(&details[i]))
	}
	return c.JSON(dto.CallListResponse{
		Calls:      items,
		Pagination: dto.NewPagination(filter.Page, filter.PerPage, total),
	})
}

// Availability GET /calls/availability.
func (h *CallsHandler) Availability(c *fiber.Ctx) error {
	overview, err := h.assignment.Overview(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(overview)
}

// Get GET /calls/:id.
func (h *CallsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	detail, err := h.calls.GetCall(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromCallDetail(detail))
}

// UpdateStatus PATCH /calls/:id/status.
func (h *CallsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateCallStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	call, err := h.calls.UpdateStatus(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(dto.CallStatusResponse{
		ID:        call.ID,
		Name:      call.Name,
		Status:    call.Status,
		UpdatedAt: call.UpdatedAt,
	})
}

// AddService POST /calls/:id/services.
func (h *CallsHandler) AddService(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AddCallServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		return apperrors.NewValidationError("serviceId required", nil)
	}

	item, err := h.calls.AddService(c.UserContext(), principal.User, c.Params("id"), req.ServiceID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.CallServiceResponse{
		ServiceID:     item.ServiceID,
		Name:          item.Name,
		AssignedValue: item.AssignedValue,
	})
}

// RemoveService DELETE /calls/:id/services/:serviceId.
func (h *CallsHandler) RemoveService(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.calls.RemoveService(c.UserContext(), principal.User, c.Params("id"), c.Params("serviceId")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "service removed from call"})
}

// ReplaceAdditionalServices PATCH /calls/:id/additional-services.
func (h *CallsHandler) ReplaceAdditionalServices(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAdditionalServicesRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	entries := make([]service.AdditionalServiceEntry, 0, len(req.AdditionalServices))
	for _, item := range req.AdditionalServices {
		entries = append(entries, service.AdditionalServiceEntry{
			Name:  item.Name,
			Value: item.AssignedValue,
		})
	}

	detail, err := h.calls.ReplaceAdditionalServices(c.UserContext(), principal.User, c.Params("id"), entries)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromCallDetail(detail))
}

// Delete DELETE /calls/:id.
func (h *CallsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.calls.DeleteCall(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "call deleted"})
}

func queryInt(c *fiber.Ctx, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
