package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type fakeCatalogRepo struct {
	repository.ServiceRepository

	byID         map[string]domain.Service
	associations map[string]int
	activeAssocs map[string]int
	nextID       int
	deleted      []string
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{
		byID:         make(map[string]domain.Service),
		associations: make(map[string]int),
		activeAssocs: make(map[string]int),
	}
}

func (f *fakeCatalogRepo) seed(service domain.Service) {
	f.byID[service.ID] = service
}

func (f *fakeCatalogRepo) Create(ctx context.Context, service *domain.Service) error {
	f.nextID++
	service.ID = fmt.Sprintf("svc-%d", f.nextID)
	service.CreatedAt = time.Now().UTC()
	service.UpdatedAt = service.CreatedAt
	f.byID[service.ID] = *service
	return nil
}

func (f *fakeCatalogRepo) Update(ctx context.Context, service *domain.Service) error {
	if _, ok := f.byID[service.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.byID[service.ID] = *service
	return nil
}

func (f *fakeCatalogRepo) SetActive(ctx context.Context, id string, active bool) (*domain.Service, error) {
	service, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	service.Active = active
	f.byID[id] = service
	return &service, nil
}

func (f *fakeCatalogRepo) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	service, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &service, nil
}

func (f *fakeCatalogRepo) GetByName(ctx context.Context, name string) (*domain.Service, error) {
	for _, service := range f.byID {
		if service.Name == name {
			copied := service
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeCatalogRepo) AssociationCount(ctx context.Context, id string) (int, error) {
	return f.associations[id], nil
}

func (f *fakeCatalogRepo) ActiveCallAssociationCount(ctx context.Context, id string) (int, error) {
	return f.activeAssocs[id], nil
}

func (f *fakeCatalogRepo) Delete(ctx context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func TestCatalogServiceCreateValidatesInput(t *testing.T) {
	catalog := NewCatalogService(newFakeCatalogRepo())

	_, err := catalog.CreateService(context.Background(), ServiceInput{Name: "  ", Value: 10})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))

	_, err = catalog.CreateService(context.Background(), ServiceInput{Name: "Formatting", Value: 0})
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, err))
}

func TestCatalogServiceCreateRejectsDuplicateName(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: true})
	catalog := NewCatalogService(repo)

	_, err := catalog.CreateService(context.Background(), ServiceInput{Name: "Formatting", Value: 90})
	assert.Equal(t, "CONFLICT", errorCode(t, err))
}

func TestCatalogServiceCreateStartsActive(t *testing.T) {
	catalog := NewCatalogService(newFakeCatalogRepo())

	created, err := catalog.CreateService(context.Background(), ServiceInput{Name: "Data recovery", Value: 300})
	require.NoError(t, err)
	assert.True(t, created.Active)
	assert.Equal(t, 300.0, created.Value)
}

func TestCatalogServiceUpdateAllowsKeepingOwnName(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: true})
	catalog := NewCatalogService(repo)

	updated, err := catalog.UpdateService(context.Background(), "svc-1", ServiceInput{Name: "Formatting", Value: 150})
	require.NoError(t, err)
	assert.Equal(t, 150.0, updated.Value)
}

func TestCatalogServiceDeactivateBlockedByActiveCalls(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: true})
	repo.activeAssocs["svc-1"] = 2
	catalog := NewCatalogService(repo)

	_, err := catalog.SetServiceStatus(context.Background(), "svc-1", false)
	assert.Equal(t, "CONFLICT", errorCode(t, err))

	current, getErr := repo.GetByID(context.Background(), "svc-1")
	require.NoError(t, getErr)
	assert.True(t, current.Active)
}

func TestCatalogServiceDeactivateAllowedWhenOnlyClosedCallsRemain(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: true})
	repo.associations["svc-1"] = 4
	catalog := NewCatalogService(repo)

	updated, err := catalog.SetServiceStatus(context.Background(), "svc-1", false)
	require.NoError(t, err)
	assert.False(t, updated.Active)
}

func TestCatalogServiceDeleteBlockedWhileReferenced(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: false})
	repo.associations["svc-1"] = 1
	catalog := NewCatalogService(repo)

	err := catalog.DeleteService(context.Background(), "svc-1")
	assert.Equal(t, "CONFLICT", errorCode(t, err))
	assert.Empty(t, repo.deleted)
}

func TestCatalogServiceDeleteUnreferenced(t *testing.T) {
	repo := newFakeCatalogRepo()
	repo.seed(domain.Service{ID: "svc-1", Name: "Formatting", Value: 120, Active: false})
	catalog := NewCatalogService(repo)

	require.NoError(t, catalog.DeleteService(context.Background(), "svc-1"))
	assert.Equal(t, []string{"svc-1"}, repo.deleted)
}
