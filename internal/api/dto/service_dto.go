package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ServiceRequest carries create/update data for a catalog entry.
type ServiceRequest struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ServiceStatusRequest toggles a catalog entry.
type ServiceStatusRequest struct {
	Active bool `json:"active"`
}

// ServiceResponse is the catalog representation.
type ServiceResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Value     float64    `json:"value"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ServiceListResponse pages the catalog.
type ServiceListResponse struct {
	Services   []ServiceResponse `json:"services"`
	Pagination Pagination        `json:"pagination"`
}

// FromService maps a catalog entry to its response shape.
func FromService(service *domain.Service) ServiceResponse {
	return ServiceResponse{
		ID:        service.ID,
		Name:      service.Name,
		Value:     service.Value,
		Active:    service.Active,
		CreatedAt: service.CreatedAt,
		UpdatedAt: service.UpdatedAt,
	}
}
