package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCallCreated         EventType = "call_created"
	EventCallStatusChanged   EventType = "call_status_changed"
	EventCallAssigned        EventType = "call_assigned"
	EventCallServicesChanged EventType = "call_services_changed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string          `json:"user_id"`
	Role   domain.UserRole `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CallID    string      `json:"call_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CallCreatedPayload payload.
type CallCreatedPayload struct {
	Name         string  `json:"name"`
	ClientID     string  `json:"client_id"`
	TechnicianID string  `json:"technician_id"`
	TotalValue   float64 `json:"total_value"`
}

// CallStatusChangedPayload payload.
type CallStatusChangedPayload struct {
	OldStatus domain.CallStatus `json:"old_status"`
	NewStatus domain.CallStatus `json:"new_status"`
}

// CallAssignedPayload payload.
type CallAssignedPayload struct {
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
}

// CallServicesChangedPayload payload.
type CallServicesChangedPayload struct {
	Change     string  `json:"change"`
	ServiceID  string  `json:"service_id,omitempty"`
	TotalValue float64 `json:"total_value"`
}
