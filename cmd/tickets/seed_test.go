package main

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	"github.com/spec-kit/ticket-tracker/internal/repository/memory"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

var seedNow = time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)

func TestParseSeedResolvesRelativeTimes(t *testing.T) {
	seed, err := parseSeed([]byte(`
templates:
  - name: Bug
tickets:
  - title: crash
    template: Bug
    status: COMPLETED
    created_ago: 2h
    completed_ago: 30m
    actual_minutes: 90
`))
	require.NoError(t, err)
	require.Len(t, seed.Tickets, 1)

	ticket, err := seed.Tickets[0].toTicket(seedNow, map[string]string{"Bug": "tmpl-1"})
	require.NoError(t, err)
	assert.Equal(t, seedNow.Add(-2*time.Hour), ticket.CreatedAt)
	require.NotNil(t, ticket.CompletedAt)
	assert.Equal(t, seedNow.Add(-30*time.Minute), *ticket.CompletedAt)
	assert.Equal(t, "tmpl-1", *ticket.TemplateID)
	assert.Equal(t, 90, *ticket.ActualMinutes)
	assert.Equal(t, domain.TicketStatusCompleted, ticket.Status)
}

func TestSeedTicketErrors(t *testing.T) {
	_, err := seedTicket{Title: "x", Template: "Missing"}.toTicket(seedNow, nil)
	assert.ErrorContains(t, err, "unknown template")

	_, err = seedTicket{Title: "x", CreatedAgo: "yesterday"}.toTicket(seedNow, nil)
	assert.ErrorContains(t, err, "created_ago")

	_, err = parseSeed([]byte("tickets: {"))
	assert.Error(t, err)
}

func TestApplyExampleSeed(t *testing.T) {
	raw, err := os.ReadFile("../../configs/seed.example.yaml")
	require.NoError(t, err)
	seed, err := parseSeed(raw)
	require.NoError(t, err)

	clk := clock.NewFake(seedNow)
	repos := memory.NewRepositories(memory.WithNow(clk.Now))
	dispatcher := events.NewInMemoryDispatcher()
	templates := service.NewTemplateService(service.TemplateDependencies{
		TemplateRepo: repos.Templates,
		Dispatcher:   dispatcher,
		Clock:        clk,
	})
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   repos.Tickets,
		TemplateRepo: repos.Templates,
		HistoryRepo:  repos.History,
		Dispatcher:   dispatcher,
		Clock:        clk,
	})

	ctx := context.Background()
	require.NoError(t, applySeed(ctx, seed, seedNow, templates, tickets))

	def, err := templates.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bug Report", def.Name)

	filter, err := repository.NewTicketFilter(repository.WithStatus(domain.TicketStatusCompleted))
	require.NoError(t, err)
	completed, err := tickets.Count(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	all, err := tickets.Count(ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all)
}
