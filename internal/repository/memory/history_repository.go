package memory

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/history"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

type historyRow struct {
	change domain.TicketChange
}

// HistoryRepository implements repository.HistoryRepository in memory.
type HistoryRepository struct {
	s *state
}

var _ repository.HistoryRepository = (*HistoryRepository)(nil)

func (r *HistoryRepository) Append(_ context.Context, change domain.TicketChange) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if change.ID == "" {
		change.ID = r.s.newID()
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = r.s.now()
	}
	r.s.history[change.TicketID] = append(r.s.history[change.TicketID], historyRow{change: change})
	return nil
}

func (r *HistoryRepository) Ledger(_ context.Context, ticketID string) (*history.Ledger, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ledger := history.NewLedger(ticketID)
	for _, row := range r.s.history[ticketID] {
		ledger.AddChange(row.change)
	}
	return ledger, nil
}

func (r *HistoryRepository) DeleteByTicket(_ context.Context, ticketID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.history, ticketID)
	return nil
}
