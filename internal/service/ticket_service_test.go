package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

func TestSaveRejectsInvalidTickets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.tickets.Save(ctx, domain.Ticket{Title: "   "})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.tickets.Save(ctx, domain.Ticket{Title: "x", Status: "BLOCKED"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.tickets.Save(ctx, domain.Ticket{Title: "x", EstimatedMinutes: ptr(-1)})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.tickets.Save(ctx, domain.Ticket{Title: "x", TemplateID: ptr("missing")})
	assert.True(t, apperrors.IsValidation(err))

	count, err := h.repos.Tickets.Count(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, int64(4), h.metrics.Snapshot().Errors["ticket.save|"+apperrors.CodeValidation])
}

func TestSaveNewTicketRecordsCreation(t *testing.T) {
	h := newHarness(t)
	tmpl := h.saveTemplate(t, "Bug Report", true)
	h.resetEvents()

	saved := h.saveTicket(t, domain.Ticket{
		Title:      "  Login broken ",
		TemplateID: &tmpl.ID,
		Tags:       []string{"auth", " auth", ""},
	})
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "Login broken", saved.Title)
	assert.Equal(t, domain.TicketStatusDraft, saved.Status)
	assert.Equal(t, []string{"auth"}, saved.Tags)
	assert.Equal(t, testStart, saved.CreatedAt)
	assert.Nil(t, saved.CompletedAt)

	ledger, err := h.tickets.History(context.Background(), saved.ID)
	require.NoError(t, err)
	changes := ledger.Changes()
	require.Len(t, changes, 1)
	assert.Equal(t, domain.ChangeTypeCreated, changes[0].ChangeType)
	assert.NotEmpty(t, changes[0].ID)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, h.eventTypes())
}

func TestSaveStampsAndClearsCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.saveTicket(t, domain.Ticket{Title: "Ship it", Status: domain.TicketStatusInProgress})

	h.clock.Advance(time.Hour)
	done, err := h.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, testStart.Add(time.Hour), *done.CompletedAt)

	h.clock.Advance(time.Hour)
	done.Title = "Ship it now"
	still := h.saveTicket(t, done)
	assert.Equal(t, testStart.Add(time.Hour), *still.CompletedAt)

	archived, err := h.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusArchived)
	require.NoError(t, err)
	assert.Equal(t, testStart.Add(time.Hour), *archived.CompletedAt)

	reopened, err := h.tickets.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	ledger, err := h.tickets.History(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, ledger.GetChangesByType(domain.ChangeTypeCompleted), 1)
	assert.Len(t, ledger.GetChangesByType(domain.ChangeTypeArchived), 1)
	assert.Len(t, ledger.GetChangesByType(domain.ChangeTypeStatusChanged), 1)
	assert.Len(t, ledger.GetChangesByType(domain.ChangeTypeUpdated), 1)
}

func TestSaveWithoutChangesPublishesNothing(t *testing.T) {
	h := newHarness(t)
	ticket := h.saveTicket(t, domain.Ticket{Title: "Same"})
	h.resetEvents()

	h.saveTicket(t, ticket)
	assert.Empty(t, h.eventTypes())

	ledger, err := h.tickets.History(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Len())
}

func TestStatusChangePublishesBothEvents(t *testing.T) {
	h := newHarness(t)
	ticket := h.saveTicket(t, domain.Ticket{Title: "Flow"})
	h.resetEvents()

	_, err := h.tickets.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, []events.EventType{events.EventTicketUpdated, events.EventTicketStatusChanged}, h.eventTypes())
}

func TestRecentChangesNewestFirst(t *testing.T) {
	h := newHarness(t)
	ticket := h.saveTicket(t, domain.Ticket{Title: "v1"})
	for _, title := range []string{"v2", "v3", "v4"} {
		h.clock.Advance(time.Minute)
		ticket.Title = title
		ticket = h.saveTicket(t, ticket)
	}

	recent, err := h.tickets.RecentChanges(context.Background(), ticket.ID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "v4", recent[0].NewValue)
	assert.Equal(t, "v3", recent[1].NewValue)
}

func TestListReturnsPageAndTotal(t *testing.T) {
	h := newHarness(t)
	for i := 0; i < 5; i++ {
		h.clock.Advance(time.Minute)
		h.saveTicket(t, domain.Ticket{Title: string(rune('a' + i)), Tags: []string{"batch"}})
	}
	filter, err := repository.NewTicketFilter(
		repository.WithTag("batch"),
		repository.WithPage(2, 2),
		repository.WithSort(repository.SortByTitle, repository.SortAsc),
	)
	require.NoError(t, err)

	page, err := h.tickets.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "c", page.Items[0].Title)
	assert.Equal(t, "d", page.Items[1].Title)
}

func TestGetMissingTicket(t *testing.T) {
	h := newHarness(t)
	_, err := h.tickets.Get(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = h.tickets.UpdateStatus(context.Background(), "nope", domain.TicketStatusCompleted)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeleteRemovesLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.saveTicket(t, domain.Ticket{Title: "Temp"})

	deleted, err := h.tickets.Delete(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	ledger, err := h.tickets.History(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Zero(t, ledger.Len())

	deleted, err = h.tickets.Delete(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Contains(t, h.eventTypes(), events.EventTicketDeleted)
}

type flakyHistory struct {
	repository.HistoryRepository
	failing bool
}

func (f *flakyHistory) Append(ctx context.Context, change domain.TicketChange) error {
	if f.failing {
		return errors.New("history store down")
	}
	return f.HistoryRepository.Append(ctx, change)
}

func TestHistoryAppendFailureIsRetried(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	flaky := &flakyHistory{HistoryRepository: h.repos.History, failing: true}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:   h.repos.Tickets,
		TemplateRepo: h.repos.Templates,
		HistoryRepo:  flaky,
		Metrics:      h.metrics,
		Clock:        h.clock,
	})

	saved, err := svc.Save(ctx, domain.Ticket{Title: "v1"})
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	saved.Title = "v2"
	saved, err = svc.Save(ctx, saved)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.metrics.Snapshot().Errors["ticket.history|"+apperrors.CodeRepository])

	stored, err := h.repos.History.Ledger(ctx, saved.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Len())

	flaky.failing = false
	// an unchanged save diffs to nothing but still drains the backlog
	_, err = svc.Save(ctx, saved)
	require.NoError(t, err)

	ledger, err := svc.History(ctx, saved.ID)
	require.NoError(t, err)
	changes := ledger.Changes()
	require.Len(t, changes, 2)
	assert.Equal(t, domain.ChangeTypeCreated, changes[0].ChangeType)
	assert.Equal(t, "v2", changes[1].NewValue)
}
