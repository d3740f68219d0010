package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/analytics"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

type mapCache struct {
	mu      sync.Mutex
	entries map[string]analytics.Snapshot
	gets    int
	sets    int
	ttl     time.Duration
	failing bool
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string]analytics.Snapshot{}}
}

func (c *mapCache) Get(_ context.Context, key string) (*analytics.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return nil, errors.New("cache down")
	}
	snap, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (c *mapCache) Set(_ context.Context, key string, snap analytics.Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.ttl = ttl
	if c.failing {
		return errors.New("cache down")
	}
	c.entries[key] = snap
	return nil
}

func (h *harness) dashboard(cache SnapshotCache) *DashboardService {
	deps := DashboardDependencies{
		TicketRepo:   h.repos.Tickets,
		TemplateRepo: h.repos.Templates,
		Metrics:      h.metrics,
		Clock:        h.clock,
		Location:     time.UTC,
		Days:         7,
		CacheTTL:     time.Minute,
	}
	if cache != nil {
		deps.Cache = cache
	}
	return NewDashboardService(deps)
}

func TestDashboardSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	tmpl := h.saveTemplate(t, "Bug Report", false)
	h.saveTicket(t, domain.Ticket{Title: "a", TemplateID: &tmpl.ID, Status: domain.TicketStatusCompleted, ActualMinutes: ptr(30)})
	h.saveTicket(t, domain.Ticket{Title: "b", Tags: []string{"ops"}})

	snap, err := h.dashboard(nil).Snapshot(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 7, snap.Days)
	require.Len(t, snap.Productivity, 7)
	assert.Equal(t, analytics.DayActivity{Date: "2026-03-04", Created: 2, Completed: 1}, snap.Productivity[6])
	assert.Equal(t, 1, snap.Summary.CompletedThisWeek)
	assert.Equal(t, []analytics.CategoryCount{
		{Category: "Bug Report", Count: 1},
		{Category: analytics.Uncategorized, Count: 1},
	}, snap.TemplateDistribution)
	assert.Equal(t, []analytics.CategoryCount{{Category: "ops", Count: 1}}, snap.TagDistribution)
}

func TestDashboardEmptyCollection(t *testing.T) {
	h := newHarness(t)
	snap, err := h.dashboard(nil).Snapshot(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, snap.Productivity, 3)
	assert.Empty(t, snap.StatusDistribution)
	assert.Zero(t, snap.Summary.Total)
}

func TestDashboardMemoizesByContent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cache := newMapCache()
	svc := h.dashboard(cache)
	ticket := h.saveTicket(t, domain.Ticket{Title: "a"})

	first, err := svc.Snapshot(ctx, 7)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	second, err := svc.Snapshot(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, time.Minute, cache.ttl)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Operations["dashboard.cache_hit"])

	_, err = svc.Snapshot(ctx, 14)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.sets)

	ticket.Title = "changed"
	h.saveTicket(t, ticket)
	third, err := svc.Snapshot(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, cache.sets)
	assert.NotEqual(t, first.GeneratedAt, third.GeneratedAt)
}

func TestDashboardIgnoresCacheFailures(t *testing.T) {
	h := newHarness(t)
	cache := newMapCache()
	cache.failing = true
	h.saveTicket(t, domain.Ticket{Title: "a"})

	snap, err := h.dashboard(cache).Snapshot(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Summary.Total)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestDashboardStandup(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.saveTicket(t, domain.Ticket{Title: "yesterday", Status: domain.TicketStatusCompleted,
		CompletedAt: ptr(testStart.Add(-20 * time.Hour))})
	h.saveTicket(t, domain.Ticket{Title: "doing", Status: domain.TicketStatusInProgress})

	report, err := h.dashboard(nil).Standup(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", report.Date)
	require.Len(t, report.CompletedYesterday, 1)
	assert.Equal(t, "yesterday", report.CompletedYesterday[0].Title)
	require.Len(t, report.InProgress, 1)
	assert.Len(t, report.CreatedToday, 2)
}

func TestDashboardWeekCountMatchesPureSummary(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.saveTicket(t, domain.Ticket{Title: "done", Status: domain.TicketStatusCompleted})
	shelved := h.saveTicket(t, domain.Ticket{Title: "shelved", Status: domain.TicketStatusCompleted})
	_, err := h.tickets.UpdateStatus(ctx, shelved.ID, domain.TicketStatusArchived)
	require.NoError(t, err)

	snap, err := h.dashboard(nil).Snapshot(ctx, 7)
	require.NoError(t, err)
	all, err := h.repos.Tickets.FindAll(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Summary.CompletedThisWeek)
	assert.Equal(t, analytics.Summarize(all, testStart).CompletedThisWeek, snap.Summary.CompletedThisWeek)
}
