package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository/memory"
)

// Wednesday morning.
var testStart = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

type harness struct {
	clock      *clock.Fake
	repos      *memory.Repositories
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	tickets    *TicketService
	templates  *TemplateService
	exports    *ExportService

	mu     sync.Mutex
	events []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      clock.NewFake(testStart),
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
	}
	h.repos = memory.NewRepositories(memory.WithNow(h.clock.Now))
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:   h.repos.Tickets,
		TemplateRepo: h.repos.Templates,
		HistoryRepo:  h.repos.History,
		Dispatcher:   h.dispatcher,
		Metrics:      h.metrics,
		Clock:        h.clock,
		Editor:       EditorConfig{AutosaveDelay: 2 * time.Second, UndoHistory: 10},
	})
	h.templates = NewTemplateService(TemplateDependencies{
		TemplateRepo: h.repos.Templates,
		Dispatcher:   h.dispatcher,
		Metrics:      h.metrics,
		Clock:        h.clock,
	})
	h.exports = NewExportService(ExportDependencies{
		TicketRepo:   h.repos.Tickets,
		TemplateRepo: h.repos.Templates,
		HistoryRepo:  h.repos.History,
	})

	record := func(_ context.Context, e events.Event) error {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.events = append(h.events, e)
		return nil
	}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketStatusChanged,
		events.EventTicketDeleted,
		events.EventTemplateSaved,
		events.EventTemplateDefaultChanged,
		events.EventTemplateDeleted,
	} {
		h.dispatcher.Subscribe(et, record)
	}
	return h
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func (h *harness) resetEvents() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

func (h *harness) saveTemplate(t *testing.T, name string, isDefault bool) domain.Template {
	t.Helper()
	tmpl, err := h.templates.Save(context.Background(), domain.Template{
		Name:      name,
		IsDefault: isDefault,
		Fields: []domain.TemplateField{
			{Name: "steps", Label: "Steps", Type: domain.FieldTypeTextarea, Required: true},
		},
	})
	require.NoError(t, err)
	return tmpl
}

func (h *harness) saveTicket(t *testing.T, ticket domain.Ticket) domain.Ticket {
	t.Helper()
	saved, err := h.tickets.Save(context.Background(), ticket)
	require.NoError(t, err)
	return saved
}

func ptr[T any](v T) *T { return &v }
