package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ClientsHandler manages client profile endpoints.
type ClientsHandler struct {
	clients *service.ClientService
}

// NewClientsHandler constructs handler.
func NewClientsHandler(clientService *service.ClientService) *ClientsHandler {
	return &ClientsHandler{clients: clientService}
}

// List GET /clients.
func (h *ClientsHandler) List(c *fiber.Ctx) error {
	page := queryInt(c, "page", 1)
	perPage := queryInt(c, "perPage", 10)

	clients, total, err := h.clients.ListClients(c.UserContext(), searchQuery(c), page, perPage)
	if err != nil {
		return err
	}

	items := make([]dto.ClientResponse, 0, len(clients))
	for i := range clients {
		items = append(items, dto.FromClientProfile(&clients[i]))
	}
	return c.JSON(dto.ClientListResponse{
		Clients:    items,
		Pagination: dto.NewPagination(page, perPage, total),
	})
}

// Get GET /clients/:id.
func (h *ClientsHandler) Get(c *fiber.Ctx) error {
	profile, err := h.clients.GetClient(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(dto.FromClientProfile(profile))
}

// Update PUT /clients/:id.
func (h *ClientsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateClientRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	profile, err := h.clients.UpdateClient(c.UserContext(), c.Params("id"), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(dto.FromClientProfile(profile))
}

// Delete DELETE /clients/:id.
func (h *ClientsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.clients.DeleteClient(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "client removed"})
}
