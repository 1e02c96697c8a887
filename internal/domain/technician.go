package domain

import "time"

// TechnicianProfile holds a technician's availability windows alongside the
// denormalized user identity the roster queries join in.
type TechnicianProfile struct {
	ID           string
	UserID       string
	Name         string
	Email        string
	Availability []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TechnicianWorkload is a read-only snapshot of a technician's active calls,
// taken in a single query so selection never mixes stale and fresh counts.
type TechnicianWorkload struct {
	Technician  TechnicianProfile
	ActiveCalls int
	InProgress  bool
}
