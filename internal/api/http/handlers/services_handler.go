package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ServicesHandler manages the billable catalog endpoints.
type ServicesHandler struct {
	catalog *service.CatalogService
}

// NewServicesHandler constructs handler.
func NewServicesHandler(catalogService *service.CatalogService) *ServicesHandler {
	return &ServicesHandler{catalog: catalogService}
}

// Create POST /services.
func (h *ServicesHandler) Create(c *fiber.Ctx) error {
	var req dto.ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	created, err := h.catalog.CreateService(c.UserContext(), service.ServiceInput{
		Name:  req.Name,
		Value: req.Value,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromService(created))
}

// List GET /services.
func (h *ServicesHandler) List(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "perPage", 10)

	services, total, err := h.catalog.ListServices(c.UserContext(), searchQuery(c), page, perPage)
	if err != nil {
		return err
	}

	items := make([]dto.ServiceResponse, 0, len(services))
	for i := range services {
		items = append(items, dto.FromService(&services[i]))
	}
	return c.JSON(dto.ServiceListResponse{
		Services:   items,
		Pagination: dto.NewPagination(page, perPage, total),
	})
}

// Get GET /services/:id.
func (h *ServicesHandler) Get(c *fiber.Ctx) error {
	found, err := h.catalog.GetService(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromService(found))
}

// Update PUT /services/:id.
func (h *ServicesHandler) Update(c *fiber.Ctx) error {
	var req dto.ServiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.catalog.UpdateService(c.UserContext(), c.Params("id"), service.ServiceInput{
		Name:  req.Name,
		Value: req.Value,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.FromService(updated))
}

// UpdateStatus PATCH /services/:id/status.
func (h *ServicesHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.ServiceStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.catalog.SetServiceStatus(c.UserContext(), c.Params("id"), req.Active)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromService(updated))
}

// Delete DELETE /services/:id.
func (h *ServicesHandler) Delete(c *fiber.Ctx) error {
	if err := h.catalog.DeleteService(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "service deleted"})
}
