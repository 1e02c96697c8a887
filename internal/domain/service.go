package domain

import "time"

// Service is a billable catalog entry. Calls reference services through
// CallService associations but never own them.
type Service struct {
	ID        string
	Name      string
	Value     float64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
