package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// CallsService orchestrates the call lifecycle: creation with automatic
// technician assignment, status transitions and the service ledger.
type CallsService struct {
	calls        repository.CallRepository
	associations repository.CallServiceRepository
	services     repository.ServiceRepository
	clients      repository.ClientRepository
	technicians  repository.TechnicianRepository
	assignment   *AssignmentService
	dispatcher   events.Dispatcher
}

// CallsDependencies bundles collaborators.
type CallsDependencies struct {
	CallRepo        repository.CallRepository
	CallServiceRepo repository.CallServiceRepository
	ServiceRepo     repository.ServiceRepository
	ClientRepo      repository.ClientRepository
	TechnicianRepo  repository.TechnicianRepository
	Assignment      *AssignmentService
	Dispatcher      events.Dispatcher
}

// NewCallsService creates the service.
func NewCallsService(deps CallsDependencies) *CallsService {
	return &CallsService{
		calls:        deps.CallRepo,
		associations: deps.CallServiceRepo,
		services:     deps.ServiceRepo,
		clients:      deps.ClientRepo,
		technicians:  deps.TechnicianRepo,
		assignment:   deps.Assignment,
		dispatcher:   deps.Dispatcher,
	}
}

// CreateCallInput carries a client's call request.
type CreateCallInput struct {
	Name        string
	Description string
	ServiceIDs  []string
}

// CallListFilter carries list parameters; role scoping is derived from the
// actor, not the filter.
type CallListFilter struct {
	Status  *domain.CallStatus
	Page    int
	PerPage int
}

// CreateCall validates the request, routes it to a technician and persists
// the call with price snapshots for every requested service. The first
// requested service becomes the call's base service.
func (s *CallsService) CreateCall(ctx context.Context, actor *domain.User, input CreateCallInput) (*domain.CallDetail, error) {
	if actor == nil || actor.Role != domain.RoleClient {
		return nil, apperrors.NewForbidden("only clients can open calls")
	}

	name := strings.TrimSpace(input.Name)
	description := strings.TrimSpace(input.Description)
	if len(name) < 3 {
		return nil, apperrors.NewValidationError("name must have at least 3 characters", nil)
	}
	if len(description) < 10 {
		return nil, apperrors.NewValidationError("description must have at least 10 characters", nil)
	}

	serviceIDs := dedupe(input.ServiceIDs)
	if len(serviceIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one service is required", nil)
	}

	client, err := s.clients.GetByUserID(ctx, actor.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("client profile", map[string]any{"user_id": actor.ID})
		}
		return nil, apperrors.MapError(err)
	}

	resolved, err := s.services.GetActiveByIDs(ctx, serviceIDs)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ordered, missing := orderByRequest(serviceIDs, resolved)
	if len(missing) > 0 {
		return nil, apperrors.NewInactiveOrMissingService(map[string]any{"service_ids": missing})
	}

	technician, err := s.assignment.SelectTechnician(ctx)
	if err != nil {
		return nil, err
	}

	call := &domain.Call{
		Name:         name,
		Description:  description,
		Status:       domain.CallStatusOpen,
		ClientID:     client.ID,
		TechnicianID: technician.Technician.ID,
	}
	if err := s.calls.CreateWithServices(ctx, call, ordered); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.assignment.InvalidateOverview(ctx)

	detail, err := s.calls.GetDetail(ctx, call.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, actor, events.EventCallCreated, call.ID, events.CallCreatedPayload{
		Name:         call.Name,
		ClientID:     call.ClientID,
		TechnicianID: call.TechnicianID,
		TotalValue:   detail.TotalValue,
	})
	s.publish(ctx, actor, events.EventCallAssigned, call.ID, events.CallAssignedPayload{
		TechnicianID:   technician.Technician.ID,
		TechnicianName: technician.Technician.Name,
	})
	return detail, nil
}

// ListCalls returns the actor's slice of the call book: clients see the
// calls they opened, technicians the ones assigned to them, admins all.
func (s *CallsService) ListCalls(ctx context.Context, actor *domain.User, filter CallListFilter) ([]domain.CallDetail, int, error) {
	repoFilter, err := s.scopeFilter(ctx, actor)
	if err != nil {
		return nil, 0, err
	}
	repoFilter.Status = filter.Status

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 10
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	repoFilter.Limit = perPage
	repoFilter.Offset = (page - 1) * perPage

	details, total, err := s.calls.ListDetails(ctx, repoFilter)
	if err != nil {
		return nil, 0, apperrors.MapError(err)
	}
	return details, total, nil
}

// GetCall returns the full detail of one call, enforcing the same scoping
// rules as ListCalls.
func (s *CallsService) GetCall(ctx context.Context, actor *domain.User, id string) (*domain.CallDetail, error) {
	detail, err := s.calls.GetDetail(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("call", map[string]any{"call_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeViewer(ctx, actor, &detail.Call); err != nil {
		return nil, err
	}
	return detail, nil
}

// UpdateStatus moves a call through its lifecycle. The transition itself is
// transactional in the repository; a serialization conflict re-runs the whole
// move before surfacing as retryable.
func (s *CallsService) UpdateStatus(ctx context.Context, actor *domain.User, id string, to domain.CallStatus) (*domain.Call, error) {
	if !domain.ValidStatus(to) {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": to})
	}

	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("call", map[string]any{"call_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeEditor(ctx, actor, call); err != nil {
		return nil, err
	}

	oldStatus := call.Status
	var updated *domain.Call
	err = persistence.WithTxRetry(ctx, func(ctx context.Context) error {
		result, err := s.calls.TransitionStatus(ctx, id, to)
		if err != nil {
			return err
		}
		updated = result
		return nil
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("call", map[string]any{"call_id": id})
		}
		if persistence.IsSerializationFailure(err) {
			return nil, apperrors.NewTxConflict(err)
		}
		return nil, apperrors.MapError(err)
	}
	s.assignment.InvalidateOverview(ctx)

	s.publish(ctx, actor, events.EventCallStatusChanged, updated.ID, events.CallStatusChangedPayload{
		OldStatus: oldStatus,
		NewStatus: updated.Status,
	})
	return updated, nil
}

// AddService attaches an active catalog service to the call, snapshotting its
// current price.
func (s *CallsService) AddService(ctx context.Context, actor *domain.User, callID, serviceID string) (*domain.CallServiceItem, error) {
	call, err := s.loadForEdit(ctx, actor, callID)
	if err != nil {
		return nil, err
	}

	service, err := s.services.GetByID(ctx, serviceID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, apperrors.MapError(err)
	}
	if service == nil || !service.Active {
		return nil, apperrors.NewInactiveOrMissingService(map[string]any{"service_ids": []string{serviceID}})
	}

	attached, err := s.associations.Exists(ctx, callID, serviceID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if attached {
		return nil, apperrors.NewDuplicateAssociation(serviceID)
	}

	assoc := &domain.CallService{
		CallID:        callID,
		ServiceID:     serviceID,
		AssignedValue: service.Value,
	}
	if err := s.associations.Add(ctx, assoc); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishServicesChanged(ctx, actor, call.ID, "added", serviceID)
	return &domain.CallServiceItem{
		ServiceID:     service.ID,
		Name:          service.Name,
		AssignedValue: assoc.AssignedValue,
	}, nil
}

// RemoveService detaches a service from the call. The base service, the
// oldest association, cannot be removed.
func (s *CallsService) RemoveService(ctx context.Context, actor *domain.User, callID, serviceID string) error {
	call, err := s.loadForEdit(ctx, actor, callID)
	if err != nil {
		return err
	}

	ledger, err := s.associations.ListByCall(ctx, callID)
	if err != nil {
		return apperrors.MapError(err)
	}

	found := false
	for _, assoc := range ledger {
		if assoc.ServiceID == serviceID {
			found = true
			break
		}
	}
	if !found {
		return apperrors.NewAssociationNotFound(serviceID)
	}
	if ledger[0].ServiceID == serviceID {
		return apperrors.NewValidationError("the base service cannot be removed from a call",
			map[string]any{"service_id": serviceID})
	}

	if err := s.associations.Remove(ctx, callID, serviceID); err != nil {
		return apperrors.MapError(err)
	}

	s.publishServicesChanged(ctx, actor, call.ID, "removed", serviceID)
	return nil
}

// AdditionalServiceEntry is one requested additional service of a bulk
// replacement.
type AdditionalServiceEntry struct {
	Name  string
	Value float64
}

// ReplaceAdditionalServices swaps everything after the base association for
// the given entries and returns the resulting detail.
func (s *CallsService) ReplaceAdditionalServices(ctx context.Context, actor *domain.User, callID string, entries []AdditionalServiceEntry) (*domain.CallDetail, error) {
	call, err := s.loadForEdit(ctx, actor, callID)
	if err != nil {
		return nil, err
	}

	items := make([]repository.AdditionalServiceInput, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("service name is required", nil)
		}
		if entry.Value < 0 {
			return nil, apperrors.NewValidationError("service value cannot be negative",
				map[string]any{"name": name})
		}
		items = append(items, repository.AdditionalServiceInput{
			Name:          name,
			AssignedValue: entry.Value,
		})
	}

	if err := s.associations.ReplaceAdditional(ctx, callID, items); err != nil {
		return nil, apperrors.MapError(err)
	}

	detail, err := s.calls.GetDetail(ctx, call.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishServicesChanged(ctx, actor, call.ID, "replaced", "")
	return detail, nil
}

// DeleteCall removes a call and its ledger. Only the opening client or an
// admin may do so.
func (s *CallsService) DeleteCall(ctx context.Context, actor *domain.User, id string) error {
	call, err := s.calls.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewNotFound("call", map[string]any{"call_id": id})
		}
		return apperrors.MapError(err)
	}

	switch {
	case actor == nil:
		return apperrors.NewUnauthorized("authentication required")
	case actor.Role == domain.RoleAdmin:
	case actor.Role == domain.RoleClient:
		client, err := s.clients.GetByUserID(ctx, actor.ID)
		if err != nil || client.ID != call.ClientID {
			return apperrors.NewForbidden("only the call owner can delete it")
		}
	default:
		return apperrors.NewForbidden("only the call owner or an admin can delete calls")
	}

	if err := s.calls.Delete(ctx, id); err != nil {
		return apperrors.MapError(err)
	}
	s.assignment.InvalidateOverview(ctx)
	return nil
}

func (s *CallsService) loadForEdit(ctx context.Context, actor *domain.User, callID string) (*domain.Call, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewNotFound("call", map[string]any{"call_id": callID})
		}
		return nil, apperrors.MapError(err)
	}
	if err := s.authorizeEditor(ctx, actor, call); err != nil {
		return nil, err
	}
	return call, nil
}

// authorizeEditor allows the assigned technician and admins.
func (s *CallsService) authorizeEditor(ctx context.Context, actor *domain.User, call *domain.Call) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	switch actor.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleTechnician:
		profile, err := s.technicians.GetByUserID(ctx, actor.ID)
		if err != nil || profile.ID != call.TechnicianID {
			return apperrors.NewForbidden("call is assigned to another technician")
		}
		return nil
	default:
		return apperrors.NewForbidden("only the assigned technician or an admin can change calls")
	}
}

// authorizeViewer additionally allows the opening client.
func (s *CallsService) authorizeViewer(ctx context.Context, actor *domain.User, call *domain.Call) error {
	if actor != nil && actor.Role == domain.RoleClient {
		client, err := s.clients.GetByUserID(ctx, actor.ID)
		if err == nil && client.ID == call.ClientID {
			return nil
		}
		return apperrors.NewForbidden("call belongs to another client")
	}
	return s.authorizeEditor(ctx, actor, call)
}

func (s *CallsService) scopeFilter(ctx context.Context, actor *domain.User) (repository.CallFilter, error) {
	var filter repository.CallFilter
	if actor == nil {
		return filter, apperrors.NewUnauthorized("authentication required")
	}
	switch actor.Role {
	case domain.RoleClient:
		client, err := s.clients.GetByUserID(ctx, actor.ID)
		if err != nil {
			return filter, apperrors.NewNotFound("client profile", map[string]any{"user_id": actor.ID})
		}
		filter.ClientID = &client.ID
	case domain.RoleTechnician:
		profile, err := s.technicians.GetByUserID(ctx, actor.ID)
		if err != nil {
			return filter, apperrors.NewNotFound("technician profile", map[string]any{"user_id": actor.ID})
		}
		filter.TechnicianID = &profile.ID
	}
	return filter, nil
}

func (s *CallsService) publish(ctx context.Context, actor *domain.User, eventType events.EventType, callID string, payload any) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CallID:    callID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if actor != nil {
		event.Actor = events.Actor{UserID: actor.ID, Role: actor.Role}
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *CallsService) publishServicesChanged(ctx context.Context, actor *domain.User, callID, change, serviceID string) {
	s.publish(ctx, actor, events.EventCallServicesChanged, callID, events.CallServicesChangedPayload{
		Change:    change,
		ServiceID: serviceID,
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}

// orderByRequest rearranges resolved services into request order and reports
// the ids that did not resolve.
func orderByRequest(requested []string, resolved []domain.Service) ([]domain.Service, []string) {
	byID := make(map[string]domain.Service, len(resolved))
	for _, service := range resolved {
		byID[service.ID] = service
	}
	ordered := make([]domain.Service, 0, len(requested))
	var missing []string
	for _, id := range requested {
		service, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		ordered = append(ordered, service)
	}
	return ordered, missing
}
