package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/schedule"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TechnicianService manages the technician roster.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	auth        *AuthService
}

// NewTechnicianService creates the service.
func NewTechnicianService(technicians repository.TechnicianRepository, authService *AuthService) *TechnicianService {
	return &TechnicianService{technicians: technicians, auth: authService}
}

// CreateTechnicianInput carries an admin's roster addition.
type CreateTechnicianInput struct {
	Name         string
	Email        string
	Password     string
	Availability []string
}

// CreateTechnician registers a technician account via the shared signup path.
func (s *TechnicianService) CreateTechnician(ctx context.Context, input CreateTechnicianInput) (*domain.TechnicianProfile, error) {
	user, err := s.auth.Register(ctx, RegisterInput{
		Name:         input.Name,
		Email:        input.Email,
		Password:     input.Password,
		Role:         domain.RoleTechnician,
		Availability: input.Availability,
	})
	if err != nil {
		return nil, err
	}

	profile, err := s.technicians.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// GetTechnician fetches one profile.
func (s *TechnicianService) GetTechnician(ctx context.Context, id string) (*domain.TechnicianProfile, error) {
	profile, err := s.technicians.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// ListTechnicians pages through the roster with call counts.
func (s *TechnicianService) ListTechnicians(ctx context.Context, search *string, page, perPage int) ([]repository.TechnicianListing, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	listings, total, err := s.technicians.List(ctx, repository.TechnicianFilter{
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return listings, total, nil
}

// UpdateTechnicianInput carries profile changes.
type UpdateTechnicianInput struct {
	Name         string
	Email        string
	Availability []string
}

// UpdateTechnician changes name, email and working hours.
func (s *TechnicianService) UpdateTechnician(ctx context.Context, id string, input UpdateTechnicianInput) (*domain.TechnicianProfile, error) {
	profile, err := s.GetTechnician(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if len(name) < 2 {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", nil)
	}
	if len(input.Availability) == 0 {
		return nil, apperrors.NewValidationError("availability cannot be empty", nil)
	}
	if err := schedule.ValidateSlots(input.Availability); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}

	profile.Name = name
	profile.Email = email
	profile.Availability = input.Availability
	if err := s.technicians.UpdateProfile(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// DeleteTechnician removes a roster member without open work. Technicians
// with active calls must hand them over first.
func (s *TechnicianService) DeleteTechnician(ctx context.Context, id string) error {
	if _, err := s.GetTechnician(ctx, id); err != nil {
		return err
	}

	active, err := s.technicians.ActiveCallCount(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if active > 0 {
		return apperrors.NewConflict("technician has active calls",
			map[string]any{"technician_id": id, "active_calls": active})
	}

	if err := s.technicians.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
