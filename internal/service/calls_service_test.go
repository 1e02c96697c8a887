package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/schedule"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeCallRepo struct {
	repository.CallRepository

	mu       sync.Mutex
	calls    map[string]*domain.Call
	captured map[string][]domain.Service
	nextID   int
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{
		calls:    map[string]*domain.Call{},
		captured: map[string][]domain.Service{},
	}
}

func (f *fakeCallRepo) CreateWithServices(ctx context.Context, call *domain.Call, services []domain.Service) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	call.ID = "call-" + string(rune('0'+f.nextID))
	stored := *call
	f.calls[call.ID] = &stored
	f.captured[call.ID] = services
	return nil
}

func (f *fakeCallRepo) GetByID(ctx context.Context, id string) (*domain.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call, ok := f.calls[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *call
	return &copied, nil
}

func (f *fakeCallRepo) GetDetail(ctx context.Context, id string) (*domain.CallDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call, ok := f.calls[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	detail := &domain.CallDetail{Call: *call}
	for _, service := range f.captured[id] {
		detail.Services = append(detail.Services, domain.CallServiceItem{
			ServiceID:     service.ID,
			Name:          service.Name,
			AssignedValue: service.Value,
		})
		detail.TotalValue += service.Value
	}
	return detail, nil
}

// TransitionStatus mirrors the store's locking discipline with a mutex so
// racing transitions serialize the busy check exactly like the real thing.
func (f *fakeCallRepo) TransitionStatus(ctx context.Context, id string, to domain.CallStatus) (*domain.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call, ok := f.calls[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if !domain.CanTransition(call.Status, to) {
		return nil, apperrors.NewInvalidTransition(string(call.Status), string(to))
	}
	if to == domain.CallStatusInProgress {
		for otherID, other := range f.calls {
			if otherID != id && other.TechnicianID == call.TechnicianID && other.Status == domain.CallStatusInProgress {
				return nil, apperrors.NewTechnicianBusy(call.TechnicianID)
			}
		}
	}
	call.Status = to
	copied := *call
	return &copied, nil
}

func (f *fakeCallRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.calls[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.calls, id)
	delete(f.captured, id)
	return nil
}

type fakeAssocRepo struct {
	repository.CallServiceRepository

	mu       sync.Mutex
	ledger   map[string][]domain.CallService
	replaced map[string][]repository.AdditionalServiceInput
}

func newFakeAssocRepo() *fakeAssocRepo {
	return &fakeAssocRepo{
		ledger:   map[string][]domain.CallService{},
		replaced: map[string][]repository.AdditionalServiceInput{},
	}
}

func (f *fakeAssocRepo) ListByCall(ctx context.Context, callID string) ([]domain.CallService, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CallService{}, f.ledger[callID]...), nil
}

func (f *fakeAssocRepo) Exists(ctx context.Context, callID, serviceID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, assoc := range f.ledger[callID] {
		if assoc.ServiceID == serviceID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAssocRepo) Add(ctx context.Context, assoc *domain.CallService) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger[assoc.CallID] = append(f.ledger[assoc.CallID], *assoc)
	return nil
}

func (f *fakeAssocRepo) Remove(ctx context.Context, callID, serviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.ledger[callID][:0]
	for _, assoc := range f.ledger[callID] {
		if assoc.ServiceID != serviceID {
			kept = append(kept, assoc)
		}
	}
	f.ledger[callID] = kept
	return nil
}

func (f *fakeAssocRepo) ReplaceAdditional(ctx context.Context, callID string, items []repository.AdditionalServiceInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced[callID] = items
	return nil
}

type fakeServiceRepo struct {
	repository.ServiceRepository

	services map[string]domain.Service
}

func (f *fakeServiceRepo) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	service, ok := f.services[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &service, nil
}

func (f *fakeServiceRepo) GetActiveByIDs(ctx context.Context, ids []string) ([]domain.Service, error) {
	var result []domain.Service
	for _, id := range ids {
		if service, ok := f.services[id]; ok && service.Active {
			result = append(result, service)
		}
	}
	return result, nil
}

type fakeClientRepo struct {
	repository.ClientRepository

	byUserID map[string]*domain.ClientProfile
}

func (f *fakeClientRepo) GetByUserID(ctx context.Context, userID string) (*domain.ClientProfile, error) {
	profile, ok := f.byUserID[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return profile, nil
}

type fakeTechProfileRepo struct {
	repository.TechnicianRepository

	workload []domain.TechnicianWorkload
	byUserID map[string]*domain.TechnicianProfile
}

func (f *fakeTechProfileRepo) ListWithWorkload(ctx context.Context) ([]domain.TechnicianWorkload, error) {
	return f.workload, nil
}

func (f *fakeTechProfileRepo) GetByUserID(ctx context.Context, userID string) (*domain.TechnicianProfile, error) {
	profile, ok := f.byUserID[userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return profile, nil
}

type callsFixture struct {
	svc      *CallsService
	calls    *fakeCallRepo
	assocs   *fakeAssocRepo
	services *fakeServiceRepo
}

func newCallsFixture(t *testing.T, workload []domain.TechnicianWorkload) *callsFixture {
	t.Helper()

	callRepo := newFakeCallRepo()
	assocRepo := newFakeAssocRepo()
	serviceRepo := &fakeServiceRepo{services: map[string]domain.Service{
		"svc-1": {ID: "svc-1", Name: "Formatting", Value: 120, Active: true},
		"svc-2": {ID: "svc-2", Name: "Network setup", Value: 80, Active: true},
		"svc-3": {ID: "svc-3", Name: "Data recovery", Value: 300, Active: false},
	}}
	techRepo := &fakeTechProfileRepo{
		workload: workload,
		byUserID: map[string]*domain.TechnicianProfile{
			"user-tech": {ID: "t1", UserID: "user-tech", Name: "tech-t1"},
		},
	}

	assignment := NewAssignmentService(AssignmentDependencies{
		TechnicianRepo: techRepo,
		Clock:          schedule.FixedClock{Instant: at(9, 0)},
		Config:         config.AssignmentConfig{ToleranceMinutes: 30},
	})
	svc := NewCallsService(CallsDependencies{
		CallRepo:        callRepo,
		CallServiceRepo: assocRepo,
		ServiceRepo:     serviceRepo,
		ClientRepo:      &fakeClientRepo{byUserID: map[string]*domain.ClientProfile{"user-client": {ID: "c1", UserID: "user-client"}}},
		TechnicianRepo:  techRepo,
		Assignment:      assignment,
	})
	return &callsFixture{svc: svc, calls: callRepo, assocs: assocRepo, services: serviceRepo}
}

func clientUser() *domain.User {
	return &domain.User{ID: "user-client", Role: domain.RoleClient}
}

func techUser() *domain.User {
	return &domain.User{ID: "user-tech", Role: domain.RoleTechnician}
}

func adminUser() *domain.User {
	return &domain.User{ID: "user-admin", Role: domain.RoleAdmin}
}

func defaultWorkload() []domain.TechnicianWorkload {
	return []domain.TechnicianWorkload{
		workloadEntry("t1", []string{"09:00"}, 0, false),
		workloadEntry("t2", []string{"09:00"}, 3, false),
	}
}

func (f *callsFixture) seedCall(t *testing.T, status domain.CallStatus, serviceIDs ...string) *domain.Call {
	t.Helper()
	call := &domain.Call{
		Name:         "Broken workstation",
		Description:  "Machine does not boot after update",
		Status:       status,
		ClientID:     "c1",
		TechnicianID: "t1",
	}
	var services []domain.Service
	for _, id := range serviceIDs {
		services = append(services, f.services.services[id])
	}
	require.NoError(t, f.calls.CreateWithServices(context.Background(), call, services))
	for _, service := range services {
		require.NoError(t, f.assocs.Add(context.Background(), &domain.CallService{
			CallID:        call.ID,
			ServiceID:     service.ID,
			AssignedValue: service.Value,
		}))
	}
	return call
}

func TestCreateCallValidation(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	ctx := context.Background()

	_, err := fixture.svc.CreateCall(ctx, clientUser(), CreateCallInput{
		Name: "ab", Description: "long enough description", ServiceIDs: []string{"svc-1"},
	})
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	_, err = fixture.svc.CreateCall(ctx, clientUser(), CreateCallInput{
		Name: "Broken printer", Description: "too short", ServiceIDs: []string{"svc-1"},
	})
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	_, err = fixture.svc.CreateCall(ctx, clientUser(), CreateCallInput{
		Name: "Broken printer", Description: "long enough description",
	})
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestCreateCallRejectsNonClients(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())

	_, err := fixture.svc.CreateCall(context.Background(), techUser(), CreateCallInput{
		Name: "Broken printer", Description: "long enough description", ServiceIDs: []string{"svc-1"},
	})
	require.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestCreateCallRejectsInactiveService(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())

	_, err := fixture.svc.CreateCall(context.Background(), clientUser(), CreateCallInput{
		Name: "Broken printer", Description: "long enough description",
		ServiceIDs: []string{"svc-1", "svc-3"},
	})
	require.Equal(t, "INACTIVE_OR_MISSING_SERVICE", errorCode(t, err))
}

func TestCreateCallAssignsLeastLoadedTechnician(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())

	detail, err := fixture.svc.CreateCall(context.Background(), clientUser(), CreateCallInput{
		Name: "Broken printer", Description: "long enough description",
		ServiceIDs: []string{"svc-2", "svc-1"},
	})
	require.NoError(t, err)
	require.Equal(t, "t1", detail.Call.TechnicianID)
	require.Equal(t, domain.CallStatusOpen, detail.Call.Status)

	// Requested order is preserved so the first service stays the base one.
	captured := fixture.calls.captured[detail.Call.ID]
	require.Len(t, captured, 2)
	require.Equal(t, "svc-2", captured[0].ID)
	require.Equal(t, "svc-1", captured[1].ID)
	require.Equal(t, 200.0, detail.TotalValue)
}

func TestCreateCallWithEmptyRoster(t *testing.T) {
	fixture := newCallsFixture(t, nil)

	_, err := fixture.svc.CreateCall(context.Background(), clientUser(), CreateCallInput{
		Name: "Broken printer", Description: "long enough description", ServiceIDs: []string{"svc-1"},
	})
	require.Equal(t, "NO_TECHNICIANS_REGISTERED", errorCode(t, err))
}

func TestUpdateStatusRejectsSameState(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	_, err := fixture.svc.UpdateStatus(context.Background(), adminUser(), call.ID, domain.CallStatusOpen)
	require.Equal(t, "INVALID_TRANSITION", errorCode(t, err))
}

func TestUpdateStatusClosedIsTerminal(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusClosed, "svc-1")

	for _, target := range []domain.CallStatus{domain.CallStatusOpen, domain.CallStatusInProgress, domain.CallStatusClosed} {
		_, err := fixture.svc.UpdateStatus(context.Background(), adminUser(), call.ID, target)
		require.Equal(t, "INVALID_TRANSITION", errorCode(t, err))
	}
}

func TestUpdateStatusOpenToClosedSkipsInProgress(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	updated, err := fixture.svc.UpdateStatus(context.Background(), adminUser(), call.ID, domain.CallStatusClosed)
	require.NoError(t, err)
	require.Equal(t, domain.CallStatusClosed, updated.Status)
}

func TestUpdateStatusRequiresAssignedTechnician(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	call2 := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	fixture.calls.calls[call2.ID].TechnicianID = "t2"

	_, err := fixture.svc.UpdateStatus(context.Background(), techUser(), call.ID, domain.CallStatusInProgress)
	require.NoError(t, err)

	_, err = fixture.svc.UpdateStatus(context.Background(), techUser(), call2.ID, domain.CallStatusClosed)
	require.Equal(t, "FORBIDDEN", errorCode(t, err))
}

func TestUpdateStatusSecondInProgressRejected(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	first := fixture.seedCall(t, domain.CallStatusInProgress, "svc-1")
	second := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	require.NotEqual(t, first.ID, second.ID)

	_, err := fixture.svc.UpdateStatus(context.Background(), adminUser(), second.ID, domain.CallStatusInProgress)
	require.Equal(t, "TECHNICIAN_BUSY", errorCode(t, err))
}

func TestUpdateStatusConcurrentStartsOneWinner(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	first := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	second := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for _, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(callID string) {
			defer wg.Done()
			_, err := fixture.svc.UpdateStatus(context.Background(), adminUser(), callID, domain.CallStatusInProgress)
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var successes, busy int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		require.Equal(t, "TECHNICIAN_BUSY", errorCode(t, err))
		busy++
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, busy)
}

func TestAddServiceSnapshotsPrice(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	item, err := fixture.svc.AddService(context.Background(), adminUser(), call.ID, "svc-2")
	require.NoError(t, err)
	require.Equal(t, 80.0, item.AssignedValue)

	// A later catalog price change must not affect the stored snapshot.
	changed := fixture.services.services["svc-2"]
	changed.Value = 999
	fixture.services.services["svc-2"] = changed

	ledger, err := fixture.assocs.ListByCall(context.Background(), call.ID)
	require.NoError(t, err)
	require.Equal(t, 80.0, ledger[1].AssignedValue)
}

func TestAddServiceRejectsDuplicate(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	_, err := fixture.svc.AddService(context.Background(), adminUser(), call.ID, "svc-1")
	require.Equal(t, "DUPLICATE_ASSOCIATION", errorCode(t, err))
}

func TestAddServiceRejectsInactive(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	_, err := fixture.svc.AddService(context.Background(), adminUser(), call.ID, "svc-3")
	require.Equal(t, "INACTIVE_OR_MISSING_SERVICE", errorCode(t, err))
}

func TestRemoveServiceProtectsBase(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1", "svc-2")
	ctx := context.Background()

	err := fixture.svc.RemoveService(ctx, adminUser(), call.ID, "svc-1")
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	require.NoError(t, fixture.svc.RemoveService(ctx, adminUser(), call.ID, "svc-2"))

	ledger, err := fixture.assocs.ListByCall(ctx, call.ID)
	require.NoError(t, err)
	require.Len(t, ledger, 1)
	require.Equal(t, "svc-1", ledger[0].ServiceID)
}

func TestRemoveServiceUnattached(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	err := fixture.svc.RemoveService(context.Background(), adminUser(), call.ID, "svc-2")
	require.Equal(t, "ASSOCIATION_NOT_FOUND", errorCode(t, err))
}

func TestReplaceAdditionalServicesValidatesEntries(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	ctx := context.Background()

	_, err := fixture.svc.ReplaceAdditionalServices(ctx, adminUser(), call.ID, []AdditionalServiceEntry{{Name: "  ", Value: 10}})
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	_, err = fixture.svc.ReplaceAdditionalServices(ctx, adminUser(), call.ID, []AdditionalServiceEntry{{Name: "On-site visit", Value: -1}})
	require.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestReplaceAdditionalServicesForwardsEntries(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")

	_, err := fixture.svc.ReplaceAdditionalServices(context.Background(), adminUser(), call.ID, []AdditionalServiceEntry{
		{Name: "  On-site visit  ", Value: 50},
		{Name: "Cable replacement", Value: 25},
	})
	require.NoError(t, err)

	forwarded := fixture.assocs.replaced[call.ID]
	require.Len(t, forwarded, 2)
	require.Equal(t, "On-site visit", forwarded[0].Name)
	require.Equal(t, 50.0, forwarded[0].AssignedValue)
}

func TestDeleteCallOwnership(t *testing.T) {
	fixture := newCallsFixture(t, defaultWorkload())
	call := fixture.seedCall(t, domain.CallStatusOpen, "svc-1")
	ctx := context.Background()

	err := fixture.svc.DeleteCall(ctx, techUser(), call.ID)
	require.Equal(t, "FORBIDDEN", errorCode(t, err))

	require.NoError(t, fixture.svc.DeleteCall(ctx, clientUser(), call.ID))
}
