package domain

import "time"

// UserRole enumerates account roles.
type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleTechnician UserRole = "technician"
	RoleAdmin      UserRole = "admin"
)

// User is the account record shared by clients, technicians and admins.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         UserRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
