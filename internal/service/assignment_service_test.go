package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/schedule"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTechnicianRepo struct {
	repository.TechnicianRepository
	workload []domain.TechnicianWorkload
	err      error
}

func (f *fakeTechnicianRepo) ListWithWorkload(ctx context.Context) ([]domain.TechnicianWorkload, error) {
	return f.workload, f.err
}

func workloadEntry(id string, slots []string, active int, inProgress bool) domain.TechnicianWorkload {
	return domain.TechnicianWorkload{
		Technician: domain.TechnicianProfile{
			ID:           id,
			Name:         "tech-" + id,
			Availability: slots,
		},
		ActiveCalls: active,
		InProgress:  inProgress,
	}
}

func newAssignmentService(workload []domain.TechnicianWorkload, now time.Time) *AssignmentService {
	return NewAssignmentService(AssignmentDependencies{
		TechnicianRepo: &fakeTechnicianRepo{workload: workload},
		Clock:          schedule.FixedClock{Instant: now},
		Config:         config.AssignmentConfig{ToleranceMinutes: 30},
	})
}

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 10, hour, minute, 0, 0, time.UTC)
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperrors.ToDomainError(err).Code
}

func TestSelectTechnicianEmptyRoster(t *testing.T) {
	svc := newAssignmentService(nil, at(9, 0))

	_, err := svc.SelectTechnician(context.Background())
	require.Equal(t, "NO_TECHNICIANS_REGISTERED", errorCode(t, err))
}

func TestSelectTechnicianNoneAvailable(t *testing.T) {
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", []string{"08:00", "09:00"}, 0, false),
		workloadEntry("t2", []string{"14:00"}, 0, false),
	}
	svc := newAssignmentService(workload, at(11, 30))

	_, err := svc.SelectTechnician(context.Background())
	require.Equal(t, "NO_AVAILABLE_TECHNICIAN", errorCode(t, err))
}

func TestSelectTechnicianFiltersByTolerance(t *testing.T) {
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", []string{"08:00"}, 0, false),
		workloadEntry("t2", []string{"09:25"}, 5, false),
	}
	// 09:00 is 60 minutes past t1's only slot but within 30 of t2's.
	svc := newAssignmentService(workload, at(9, 0))

	chosen, err := svc.SelectTechnician(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", chosen.Technician.ID)
}

func TestSelectTechnicianPrefersIdleOverBusy(t *testing.T) {
	slots := []string{"09:00"}
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", slots, 1, true),
		workloadEntry("t2", slots, 4, false),
	}
	svc := newAssignmentService(workload, at(9, 0))

	chosen, err := svc.SelectTechnician(context.Background())
	require.NoError(t, err)
	// An idle technician wins even carrying more active calls.
	require.Equal(t, "t2", chosen.Technician.ID)
}

func TestSelectTechnicianFewestActiveCalls(t *testing.T) {
	slots := []string{"09:00"}
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", slots, 3, false),
		workloadEntry("t2", slots, 1, false),
		workloadEntry("t3", slots, 2, false),
	}
	svc := newAssignmentService(workload, at(9, 0))

	chosen, err := svc.SelectTechnician(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", chosen.Technician.ID)
}

func TestSelectTechnicianAllBusyFallsBack(t *testing.T) {
	slots := []string{"09:00"}
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", slots, 3, true),
		workloadEntry("t2", slots, 2, true),
	}
	svc := newAssignmentService(workload, at(9, 0))

	chosen, err := svc.SelectTechnician(context.Background())
	require.NoError(t, err)
	require.Equal(t, "t2", chosen.Technician.ID)
}

func TestPickTechnicianTieBreaksOnID(t *testing.T) {
	slots := []string{"09:00"}
	candidates := []domain.TechnicianWorkload{
		workloadEntry("b", slots, 2, false),
		workloadEntry("a", slots, 2, false),
		workloadEntry("c", slots, 2, false),
	}

	chosen := PickTechnician(candidates)
	require.Equal(t, "a", chosen.Technician.ID)
}

func TestPickTechnicianDeterministic(t *testing.T) {
	slots := []string{"09:00"}
	candidates := []domain.TechnicianWorkload{
		workloadEntry("t1", slots, 2, false),
		workloadEntry("t2", slots, 2, true),
		workloadEntry("t3", slots, 2, false),
		workloadEntry("t4", slots, 5, false),
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		shuffled := append([]domain.TechnicianWorkload{}, candidates...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		chosen := PickTechnician(shuffled)
		require.Equal(t, "t1", chosen.Technician.ID)
	}
}

func TestOverviewReportsPerTechnician(t *testing.T) {
	workload := []domain.TechnicianWorkload{
		workloadEntry("t1", []string{"08:00"}, 1, true),
		workloadEntry("t2", []string{"09:00"}, 0, false),
	}
	svc := newAssignmentService(workload, at(9, 10))

	overview, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, overview.Technicians, 2)

	require.False(t, overview.Technicians[0].Available)
	require.True(t, overview.Technicians[0].InProgress)
	require.True(t, overview.Technicians[1].Available)
	require.Equal(t, 0, overview.Technicians[1].ActiveCalls)
}
