package domain

import "time"

// ClientProfile links a client account to the calls it owns.
type ClientProfile struct {
	ID        string
	UserID    string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
