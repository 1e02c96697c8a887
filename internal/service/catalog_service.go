package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CatalogService manages the billable service catalog.
type CatalogService struct {
	services repository.ServiceRepository
}

// NewCatalogService creates the service.
func NewCatalogService(services repository.ServiceRepository) *CatalogService {
	return &CatalogService{services: services}
}

// ServiceInput carries create/update data for a catalog entry.
type ServiceInput struct {
	Name  string
	Value float64
}

// CreateService adds a catalog entry. Names are unique; new entries start
// active.
func (s *CatalogService) CreateService(ctx context.Context, input ServiceInput) (*domain.Service, error) {
	name, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	service := &domain.Service{
		Name:   name,
		Value:  input.Value,
		Active: true,
	}
	if err := s.services.Create(ctx, service); err != nil {
		return nil, apperrors.MapError(err)
	}
	return service, nil
}

// UpdateService changes name and value of an entry. Price snapshots on
// existing calls are untouched.
func (s *CatalogService) UpdateService(ctx context.Context, id string, input ServiceInput) (*domain.Service, error) {
	name, err := s.validateInput(input)
	if err != nil {
		return nil, err
	}

	service, err := s.getService(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, service.ID); err != nil {
		return nil, err
	}

	service.Name = name
	service.Value = input.Value
	if err := s.services.Update(ctx, service); err != nil {
		return nil, apperrors.MapError(err)
	}
	return service, nil
}

// SetServiceStatus activates or deactivates an entry. Deactivation stops new
// associations and is refused while any open or in-progress call still
// references the entry; closed calls keep their snapshots either way.
func (s *CatalogService) SetServiceStatus(ctx context.Context, id string, active bool) (*domain.Service, error) {
	if !active {
		count, err := s.services.ActiveCallAssociationCount(ctx, id)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if count > 0 {
			return nil, apperrors.NewConflict("service is attached to active calls",
				map[string]any{"service_id": id, "active_associations": count})
		}
	}

	service, err := s.services.SetActive(ctx, id, active)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return service, nil
}

// GetService fetches one entry.
func (s *CatalogService) GetService(ctx context.Context, id string) (*domain.Service, error) {
	return s.getService(ctx, id)
}

// ListServices pages through the catalog with an optional name search.
func (s *CatalogService) ListServices(ctx context.Context, search *string, page, perPage int) ([]domain.Service, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	services, total, err := s.services.List(ctx, repository.ServiceFilter{
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return services, total, nil
}

// DeleteService removes an entry that no call references. Referenced entries
// must be deactivated instead so history keeps resolving.
func (s *CatalogService) DeleteService(ctx context.Context, id string) error {
	if _, err := s.getService(ctx, id); err != nil {
		return err
	}

	count, err := s.services.AssociationCount(ctx, id)
	if err != nil {
		return apperrors.MapError(err)
	}
	if count > 0 {
		return apperrors.NewConflict("service is attached to calls; deactivate it instead",
			map[string]any{"service_id": id, "associations": count})
	}

	if err := s.services.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

func (s *CatalogService) getService(ctx context.Context, id string) (*domain.Service, error) {
	service, err := s.services.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("service", map[string]any{"service_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return service, nil
}

func (s *CatalogService) validateInput(input ServiceInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", apperrors.NewValidationError("service name is required", nil)
	}
	if input.Value <= 0 {
		return "", apperrors.NewValidationError("service value must be positive", nil)
	}
	return name, nil
}

func (s *CatalogService) ensureUniqueName(ctx context.Context, name, selfID string) error {
	existing, err := s.services.GetByName(ctx, name)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return apperrors.MapError(err)
	}
	if existing.ID != selfID {
		return apperrors.NewConflict("a service with this name already exists",
			map[string]any{"name": name})
	}
	return nil
}
