package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// ClientService manages client profiles.
type ClientService struct {
	clients repository.ClientRepository
}

// NewClientService creates the service.
func NewClientService(clients repository.ClientRepository) *ClientService {
	return &ClientService{clients: clients}
}

// GetClient fetches one profile.
func (s *ClientService) GetClient(ctx context.Context, id string) (*domain.ClientProfile, error) {
	profile, err := s.clients.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("client", map[string]any{"client_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// ListClients pages through registered clients.
func (s *ClientService) ListClients(ctx context.Context, search *string, page, perPage int) ([]domain.ClientProfile, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	clients, total, err := s.clients.List(ctx, repository.ClientFilter{
		Search: search,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return clients, total, nil
}

// UpdateClient changes name and email on the profile's account.
func (s *ClientService) UpdateClient(ctx context.Context, id, name, email string) (*domain.ClientProfile, error) {
	profile, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if len(name) < 2 {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("invalid email", nil)
	}

	profile.Name = name
	profile.Email = email
	if err := s.clients.Update(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	return profile, nil
}

// DeleteClient removes the client together with every call they opened. An
// admin action; clients may also delete their own account.
func (s *ClientService) DeleteClient(ctx context.Context, actor *domain.User, id string) error {
	profile, err := s.GetClient(ctx, id)
	if err != nil {
		return err
	}

	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleAdmin && actor.ID != profile.UserID {
		return apperrors.NewForbidden("only admins can remove other clients")
	}

	if err := s.clients.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
