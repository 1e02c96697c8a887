package service

import (
	"context"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/schedule"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AuthService coordinates registration, login and account self-service.
type AuthService struct {
	users               repository.UserRepository
	technicians         repository.TechnicianRepository
	tokenMgr            *auth.TokenManager
	bcryptCost          int
	defaultAvailability []string
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo       repository.UserRepository
	TechnicianRepo repository.TechnicianRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:               deps.UserRepo,
		technicians:         deps.TechnicianRepo,
		tokenMgr:            auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost:          cfg.Auth.BcryptCost,
		defaultAvailability: config.DefaultAvailability,
	}
}

// RegisterInput carries a signup request. Role defaults to client;
// Availability only applies to technician accounts.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Role         domain.UserRole
	Availability []string
}

// Register creates an account and its role profile. Technicians registered
// without working hours receive the commercial-hours default.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if len(name) < 2 {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", nil)
	}
	if len(input.Password) < 6 {
		return nil, apperrors.NewValidationError("password must have at least 6 characters", nil)
	}

	role := input.Role
	if role == "" {
		role = domain.RoleClient
	}
	switch role {
	case domain.RoleClient, domain.RoleTechnician, domain.RoleAdmin:
	default:
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": role})
	}

	availability := input.Availability
	if role == domain.RoleTechnician {
		if len(availability) == 0 {
			availability = s.defaultAvailability
		}
		if err := schedule.ValidateSlots(availability); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.CreateWithProfile(ctx, user, availability); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// Login authenticates a user and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return user, token, exp, nil
}

// UpdateProfile changes the caller's own name and email.
func (s *AuthService) UpdateProfile(ctx context.Context, user *domain.User, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(name) < 2 {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", nil)
	}

	if existing, err := s.users.GetByEmail(ctx, email); err == nil && existing.ID != user.ID {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if err != nil && !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}

	user.Name = name
	user.Email = email
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, user *domain.User, currentPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return apperrors.NewValidationError("password must have at least 6 characters", nil)
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
