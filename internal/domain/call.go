package domain

import "time"

// CallStatus enumerates the lifecycle states of a call.
type CallStatus string

const (
	CallStatusOpen       CallStatus = "open"
	CallStatusInProgress CallStatus = "in_progress"
	CallStatusClosed     CallStatus = "closed"
)

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s CallStatus) bool {
	switch s {
	case CallStatusOpen, CallStatusInProgress, CallStatusClosed:
		return true
	}
	return false
}

// Call is a client-submitted service request. Client and technician are fixed
// at creation; only status, the service ledger and updated_at change afterwards.
type Call struct {
	ID           string
	Name         string
	Description  string
	Status       CallStatus
	ClientID     string
	TechnicianID string
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

var allowedTransitions = map[CallStatus][]CallStatus{
	CallStatusOpen:       {CallStatusInProgress, CallStatusClosed},
	CallStatusInProgress: {CallStatusClosed},
	CallStatusClosed:     {},
}

// CanTransition reports whether a call may move from one status to another.
// Re-entering the current status is rejected so client bugs surface instead of
// silently succeeding; closed is terminal.
func CanTransition(from, to CallStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CallParty identifies the client or technician attached to a call.
type CallParty struct {
	ProfileID string
	Name      string
	Email     string
}

// CallServiceItem is a ledger line as rendered on call views.
type CallServiceItem struct {
	ServiceID     string
	Name          string
	AssignedValue float64
}

// CallDetail composes a call with its parties and priced service ledger.
type CallDetail struct {
	Call       Call
	Client     CallParty
	Technician CallParty
	Services   []CallServiceItem
	TotalValue float64
}
