package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ServiceIDList accepts a JSON array of ids, a single id string, or a
// comma-separated id string.
type ServiceIDList []string

// UnmarshalJSON implements the lenient decoding.
func (l *ServiceIDList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}

	var ids []string
	for _, part := range strings.Split(one, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	*l = ids
	return nil
}

// CreateCallRequest payload.
type CreateCallRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	ServiceIDs  ServiceIDList `json:"serviceIds"`
}

// UpdateCallStatusRequest payload.
type UpdateCallStatusRequest struct {
	Status domain.CallStatus `json:"status"`
}

// AddCallServiceRequest payload.
type AddCallServiceRequest struct {
	ServiceID string `json:"serviceId"`
}

// AdditionalServiceRequest is one entry of a bulk replacement. ID is accepted
// for compatibility; entries are matched by name.
type AdditionalServiceRequest struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	AssignedValue float64 `json:"assignedValue"`
}

// UpdateAdditionalServicesRequest payload.
type UpdateAdditionalServicesRequest struct {
	AdditionalServices []AdditionalServiceRequest `json:"additionalServices"`
}

// CallPartyResponse identifies a client or technician on a call.
type CallPartyResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CallServiceResponse is one priced service on a call.
type CallServiceResponse struct {
	ServiceID     string  `json:"serviceId"`
	Name          string  `json:"name"`
	AssignedValue float64 `json:"assignedValue"`
}

// CallResponse is the full call representation.
type CallResponse struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Status      domain.CallStatus     `json:"status"`
	Client      CallPartyResponse     `json:"client"`
	Technician  CallPartyResponse     `json:"technician"`
	Services    []CallServiceResponse `json:"services"`
	TotalValue  float64               `json:"totalValue"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   *time.Time            `json:"updatedAt"`
}

// CallListResponse pages call summaries.
type CallListResponse struct {
	Calls      []CallResponse `json:"calls"`
	Pagination Pagination     `json:"pagination"`
}

// CallStatusResponse confirms a status change.
type CallStatusResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Status    domain.CallStatus `json:"status"`
	UpdatedAt *time.Time        `json:"updatedAt"`
}

// FromCallDetail maps a domain detail to its response shape.
func FromCallDetail(detail *domain.CallDetail) CallResponse {
	services := make([]CallServiceResponse, 0, len(detail.Services))
	for _, item := range detail.Services {
		services = append(services, CallServiceResponse{
			ServiceID:     item.ServiceID,
			Name:          item.Name,
			AssignedValue: item.AssignedValue,
		})
	}
	return CallResponse{
		ID:          detail.Call.ID,
		Name:        detail.Call.Name,
		Description: detail.Call.Description,
		Status:      detail.Call.Status,
		Client: CallPartyResponse{
			ID:    detail.Client.ProfileID,
			Name:  detail.Client.Name,
			Email: detail.Client.Email,
		},
		Technician: CallPartyResponse{
			ID:    detail.Technician.ProfileID,
			Name:  detail.Technician.Name,
			Email: detail.Technician.Email,
		},
		Services:   services,
		TotalValue: detail.TotalValue,
		CreatedAt:  detail.Call.CreatedAt,
		UpdatedAt:  detail.Call.UpdatedAt,
	}
}
