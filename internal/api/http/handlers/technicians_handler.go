package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TechniciansHandler manages the technician roster endpoints.
type TechniciansHandler struct {
	technicians *service.TechnicianService
}

// NewTechniciansHandler constructs handler.
func NewTechniciansHandler(technicianService *service.TechnicianService) *TechniciansHandler {
	return &TechniciansHandler{technicians: technicianService}
}

// Create POST /technicians.
func (h *TechniciansHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.technicians.CreateTechnician(c.UserContext(), service.CreateTechnicianInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Availability: req.Availability,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.FromTechnicianProfile(profile))
}

// List GET /technicians.
func (h *TechniciansHandler) List(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "perPage", 10)
	search := searchQuery(c)

	listings, total, err := h.technicians.ListTechnicians(c.UserContext(), search, page, perPage)
	if err != nil {
		return err
	}

	items := make([]dto.TechnicianResponse, 0, len(listings))
	for _, listing := range listings {
		items = append(items, dto.FromTechnicianListing(listing))
	}
	return c.JSON(dto.TechnicianListResponse{
		Technicians: items,
		Pagination:  dto.NewPagination(page, perPage, total),
	})
}

// Get GET /technicians/:id.
func (h *TechniciansHandler) Get(c *fiber.Ctx) error {
	profile, err := h.technicians.GetTechnician(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTechnicianProfile(profile))
}

// Update PUT /technicians/:id.
func (h *TechniciansHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTechnicianRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.technicians.UpdateTechnician(c.UserContext(), c.Params("id"), service.UpdateTechnicianInput{
		Name:         req.Name,
		Email:        req.Email,
		Availability: req.Availability,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.FromTechnicianProfile(profile))
}

// Delete DELETE /technicians/:id.
func (h *TechniciansHandler) Delete(c *fiber.Ctx) error {
	if err := h.technicians.DeleteTechnician(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "technician removed"})
}

func searchQuery(c *fiber.Ctx) *string {
	raw := strings.TrimSpace(c.Query("search"))
	if raw == "" {
		return nil
	}
	return &raw
}
