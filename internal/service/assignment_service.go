package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/schedule"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const overviewCacheKey = "assignment:overview"

// AssignmentService selects a technician for new calls and reports roster
// availability.
type AssignmentService struct {
	technicians repository.TechnicianRepository
	cache       *persistence.Redis
	clock       schedule.Clock
	cfg         config.AssignmentConfig
}

// AssignmentDependencies bundles collaborators. Clock defaults to the system
// clock when nil.
type AssignmentDependencies struct {
	TechnicianRepo repository.TechnicianRepository
	Cache          *persistence.Redis
	Clock          schedule.Clock
	Config         config.AssignmentConfig
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	clock := deps.Clock
	if clock == nil {
		clock = schedule.SystemClock()
	}
	return &AssignmentService{
		technicians: deps.TechnicianRepo,
		cache:       deps.Cache,
		clock:       clock,
		cfg:         deps.Config,
	}
}

// SelectTechnician picks the technician a new call should go to. The whole
// decision runs against one workload snapshot so no candidate is judged
// against counts newer than another's.
func (s *AssignmentService) SelectTechnician(ctx context.Context) (*domain.TechnicianWorkload, error) {
	snapshot, err := s.technicians.ListWithWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(snapshot) == 0 {
		return nil, apperrors.NewNoTechniciansRegistered()
	}

	now := s.clock.Now()
	tolerance := s.cfg.Tolerance()

	var candidates []domain.TechnicianWorkload
	for _, entry := range snapshot {
		if schedule.AvailableAt(entry.Technician.Availability, now, tolerance) {
			candidates = append(candidates, entry)
		}
	}
	if len(candidates) == 0 {
		return nil, apperrors.NewNoAvailableTechnician()
	}

	chosen := PickTechnician(candidates)
	return &chosen, nil
}

// PickTechnician applies the load-balancing rule to a non-empty candidate
// set: anyone without an in-progress call beats everyone with one, fewer
// active calls beats more, and the smallest technician ID breaks the
// remaining tie. Equal inputs always produce the same choice.
func PickTechnician(candidates []domain.TechnicianWorkload) domain.TechnicianWorkload {
	best := candidates[0]
	for _, entry := range candidates[1:] {
		if preferOver(entry, best) {
			best = entry
		}
	}
	return best
}

func preferOver(a, b domain.TechnicianWorkload) bool {
	if a.InProgress != b.InProgress {
		return !a.InProgress
	}
	if a.ActiveCalls != b.ActiveCalls {
		return a.ActiveCalls < b.ActiveCalls
	}
	return a.Technician.ID < b.Technician.ID
}

// TechnicianAvailability is one roster row of the availability overview.
type TechnicianAvailability struct {
	TechnicianID string   `json:"technicianId"`
	Name         string   `json:"name"`
	Availability []string `json:"availability"`
	Available    bool     `json:"available"`
	ActiveCalls  int      `json:"activeCalls"`
	InProgress   bool     `json:"inProgress"`
}

// AvailabilityOverview reports, per technician, whether a call created now
// could be routed to them.
type AvailabilityOverview struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Technicians []TechnicianAvailability `json:"technicians"`
}

// Overview builds the roster availability report. Results are cached briefly
// in Redis; a stale row only ever misreports by the cache TTL.
func (s *AssignmentService) Overview(ctx context.Context) (*AvailabilityOverview, error) {
	if payload, err := s.cache.GetCached(ctx, overviewCacheKey); err == nil {
		var cached AvailabilityOverview
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	snapshot, err := s.technicians.ListWithWorkload(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	now := s.clock.Now()
	tolerance := s.cfg.Tolerance()

	overview := &AvailabilityOverview{
		GeneratedAt: now,
		Technicians: make([]TechnicianAvailability, 0, len(snapshot)),
	}
	for _, entry := range snapshot {
		overview.Technicians = append(overview.Technicians, TechnicianAvailability{
			TechnicianID: entry.Technician.ID,
			Name:         entry.Technician.Name,
			Availability: entry.Technician.Availability,
			Available:    schedule.AvailableAt(entry.Technician.Availability, now, tolerance),
			ActiveCalls:  entry.ActiveCalls,
			InProgress:   entry.InProgress,
		})
	}

	if payload, err := json.Marshal(overview); err == nil {
		_ = s.cache.SetCached(ctx, overviewCacheKey, payload, s.cfg.OverviewCacheTTL())
	}
	return overview, nil
}

// InvalidateOverview drops the cached availability report. Call it after any
// write that changes roster workload.
func (s *AssignmentService) InvalidateOverview(ctx context.Context) {
	s.cache.Invalidate(ctx, overviewCacheKey)
}
