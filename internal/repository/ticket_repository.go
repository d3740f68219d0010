package repository

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TicketRepository is the storage port for tickets. Every backend must honor the
// filter, sort and paging semantics of Apply identically, using DefaultSort when
// the filter has none.
//
// Absence is reported as a nil ticket or false, never as an error. Backend
// failures come back wrapped by errorutil.NewRepositoryError.
type TicketRepository interface {
	FindAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	FindByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	FindByTemplateID(ctx context.Context, templateID string) ([]domain.Ticket, error)
	FindByTag(ctx context.Context, tag string) ([]domain.Ticket, error)
	// Save inserts or replaces the ticket with the same id and returns the
	// persisted value, including backend-assigned id and timestamps.
	Save(ctx context.Context, ticket domain.Ticket) (domain.Ticket, error)
	// Delete returns false when no ticket has the id.
	Delete(ctx context.Context, id string) (bool, error)
	// Count applies every criterion except pagination and sort.
	Count(ctx context.Context, filter TicketFilter) (int, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// FindPage runs FindAll and Count for the same filter and bundles the result.
func FindPage(ctx context.Context, repo TicketRepository, filter TicketFilter) (Page[domain.Ticket], error) {
	items, err := repo.FindAll(ctx, filter)
	if err != nil {
		return Page[domain.Ticket]{}, err
	}
	total, err := repo.Count(ctx, filter)
	if err != nil {
		return Page[domain.Ticket]{}, err
	}
	return NewPage(items, total, filter.Pagination), nil
}
