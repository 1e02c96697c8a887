package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// CreateTechnicianRequest payload.
type CreateTechnicianRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Password     string   `json:"password"`
	Availability []string `json:"availability"`
}

// UpdateTechnicianRequest payload.
type UpdateTechnicianRequest struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Availability []string `json:"availability"`
}

// TechnicianResponse is the roster representation.
type TechnicianResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Availability  []string   `json:"availability"`
	AssignedCalls *int      `json:"assignedCalls,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TechnicianListResponse pages the roster.
type TechnicianListResponse struct {
	Technicians []TechnicianResponse `json:"technicians"`
	Pagination  Pagination           `json:"pagination"`
}

// FromTechnicianProfile maps a profile to its response shape.
func FromTechnicianProfile(profile *domain.TechnicianProfile) TechnicianResponse {
	return TechnicianResponse{
		ID:           profile.ID,
		Name:         profile.Name,
		Email:        profile.Email,
		Availability: profile.Availability,
		CreatedAt:    profile.CreatedAt,
		UpdatedAt:    profile.UpdatedAt,
	}
}

// FromTechnicianListing maps a roster row, including its call count.
func FromTechnicianListing(listing repository.TechnicianListing) TechnicianResponse {
	response := FromTechnicianProfile(&listing.Profile)
	count := listing.AssignedCalls
	response.AssignedCalls = &count
	return response
}
