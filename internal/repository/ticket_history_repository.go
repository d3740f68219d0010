package repository

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/history"
)

// HistoryRepository stores audit entries, one append-only ledger per ticket.
type HistoryRepository interface {
	Append(ctx context.Context, change domain.TicketChange) error
	// Ledger returns the ticket's ledger, empty when nothing was recorded.
	Ledger(ctx context.Context, ticketID string) (*history.Ledger, error)
	// DeleteByTicket drops the ledger of a deleted ticket. Retention is the caller's concern.
	DeleteByTicket(ctx context.Context, ticketID string) error
}
