package service

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/analytics"
	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/codec"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// SnapshotCache memoizes dashboard snapshots. Get reports a miss as (nil, nil).
type SnapshotCache interface {
	Get(ctx context.Context, key string) (*analytics.Snapshot, error)
	Set(ctx context.Context, key string, snapshot analytics.Snapshot, ttl time.Duration) error
}

// DashboardService serves analytics over the whole ticket collection.
type DashboardService struct {
	tickets   repository.TicketRepository
	templates repository.TemplateRepository
	cache     SnapshotCache
	logger    *zap.Logger
	metrics   *observability.Metrics
	clock     clock.Clock
	location  *time.Location
	days      int
	ttl       time.Duration
}

// DashboardDependencies bundles collaborators for the dashboard service.
// Cache is optional.
type DashboardDependencies struct {
	TicketRepo   repository.TicketRepository
	TemplateRepo repository.TemplateRepository
	Cache        SnapshotCache
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Clock        clock.Clock
	Location     *time.Location
	Days         int
	CacheTTL     time.Duration
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	s := &DashboardService{
		tickets:   deps.TicketRepo,
		templates: deps.TemplateRepo,
		cache:     deps.Cache,
		logger:    deps.Logger,
		metrics:   deps.Metrics,
		clock:     deps.Clock,
		location:  deps.Location,
		days:      deps.Days,
		ttl:       deps.CacheTTL,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.location == nil {
		s.location = time.Local
	}
	if s.days <= 0 {
		s.days = analytics.DefaultDays
	}
	return s
}

// Snapshot computes every dashboard aggregation for the last days days.
// A non-positive days uses the configured window. A cached snapshot keeps the
// GeneratedAt of the call that computed it.
func (s *DashboardService) Snapshot(ctx context.Context, days int) (snap analytics.Snapshot, err error) {
	defer s.observe("dashboard.snapshot", s.clock.Now(), &err)

	if days <= 0 {
		days = s.days
	}
	now := s.now()
	tickets, templates, err := s.load(ctx)
	if err != nil {
		return analytics.Snapshot{}, err
	}

	key := s.cacheKey(tickets, templates, days, now)
	if cached := s.cached(ctx, key); cached != nil {
		return *cached, nil
	}

	snap = analytics.BuildSnapshot(tickets, templates, days, now)
	completed, err := s.CompletedThisWeek(ctx)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	snap.Summary.CompletedThisWeek = completed

	if s.cache != nil && key != "" {
		if err := s.cache.Set(ctx, key, snap, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return snap, nil
}

// CompletedThisWeek counts tickets completed since Monday 00:00.
func (s *DashboardService) CompletedThisWeek(ctx context.Context) (int, error) {
	now := s.now()
	filter, err := repository.NewTicketFilter(
		repository.WithStatus(domain.TicketStatusCompleted),
		repository.WithDateRange(analytics.WeekStart(now), now),
	)
	if err != nil {
		return 0, err
	}
	n, err := s.tickets.Count(ctx, filter)
	if err != nil {
		return 0, asRepositoryError("count tickets", err)
	}
	return n, nil
}

// Standup builds today's standup report.
func (s *DashboardService) Standup(ctx context.Context) (analytics.StandupReport, error) {
	tickets, err := s.tickets.FindAll(ctx, repository.TicketFilter{})
	if err != nil {
		return analytics.StandupReport{}, asRepositoryError("list tickets", err)
	}
	return analytics.Standup(tickets, s.now()), nil
}

func (s *DashboardService) load(ctx context.Context) ([]domain.Ticket, []domain.Template, error) {
	tickets, err := s.tickets.FindAll(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, nil, asRepositoryError("list tickets", err)
	}
	templates, err := s.templates.FindAll(ctx)
	if err != nil {
		return nil, nil, asRepositoryError("list templates", err)
	}
	return tickets, templates, nil
}

func (s *DashboardService) cached(ctx context.Context, key string) *analytics.Snapshot {
	if s.cache == nil || key == "" {
		return nil
	}
	snap, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("dashboard cache read failed", zap.Error(err))
		return nil
	}
	if snap != nil {
		s.metrics.RecordOperation("dashboard.cache_hit", 0)
	}
	return snap
}

// cacheKey identifies a snapshot by the collection's content, the calendar day
// and the window. An empty key disables caching for this call.
func (s *DashboardService) cacheKey(tickets []domain.Ticket, templates []domain.Template, days int, now time.Time) string {
	if s.cache == nil {
		return ""
	}
	hash, err := codec.Hash(struct {
		Tickets   []domain.Ticket
		Templates []domain.Template
	}{tickets, templates})
	if err != nil {
		s.logger.Warn("dashboard cache key failed", zap.Error(err))
		return ""
	}
	return "dashboard:" + now.Format("2006-01-02") + ":" + now.Location().String() + ":" +
		strconv.Itoa(days) + ":" + hash
}

func (s *DashboardService) now() time.Time {
	return s.clock.Now().In(s.location)
}

func (s *DashboardService) observe(op string, start time.Time, err *error) {
	observe(s.metrics, s.clock, op, start, *err)
}
