package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UpdateClientRequest payload.
type UpdateClientRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ClientResponse is the client profile representation.
type ClientResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ClientListResponse pages registered clients.
type ClientListResponse struct {
	Clients    []ClientResponse `json:"clients"`
	Pagination Pagination       `json:"pagination"`
}

// FromClientProfile maps a profile to its response shape.
func FromClientProfile(profile *domain.ClientProfile) ClientResponse {
	return ClientResponse{
		ID:        profile.ID,
		Name:      profile.Name,
		Email:     profile.Email,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
}
