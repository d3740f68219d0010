package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

type ticketRow struct {
	seq    uint64
	ticket domain.Ticket
}

// TicketRepository implements repository.TicketRepository in memory.
type TicketRepository struct {
	s *state
}

var _ repository.TicketRepository = (*TicketRepository)(nil)

// snapshot returns clones of all tickets in insertion order. Caller holds the read lock.
func (r *TicketRepository) snapshot() []domain.Ticket {
	rows := make([]ticketRow, 0, len(r.s.tickets))
	for _, row := range r.s.tickets {
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b ticketRow) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]domain.Ticket, len(rows))
	for i, row := range rows {
		out[i] = row.ticket.Clone()
	}
	return out
}

func (r *TicketRepository) FindAll(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Sort == nil {
		sort := repository.DefaultSort
		filter.Sort = &sort
	}
	r.s.mu.RLock()
	all := r.snapshot()
	r.s.mu.RUnlock()
	return repository.Apply(all, filter), nil
}

func (r *TicketRepository) FindByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.tickets[id]
	if !ok {
		return nil, nil
	}
	ticket := row.ticket.Clone()
	return &ticket, nil
}

func (r *TicketRepository) FindByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	return r.FindAll(ctx, repository.TicketFilter{Status: &status})
}

func (r *TicketRepository) FindByTemplateID(ctx context.Context, templateID string) ([]domain.Ticket, error) {
	return r.FindAll(ctx, repository.TicketFilter{TemplateID: &templateID})
}

func (r *TicketRepository) FindByTag(ctx context.Context, tag string) ([]domain.Ticket, error) {
	return r.FindAll(ctx, repository.TicketFilter{Tag: &tag})
}

func (r *TicketRepository) Save(_ context.Context, ticket domain.Ticket) (domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ticket = ticket.Clone()
	now := r.s.now()
	if ticket.ID == "" {
		ticket.ID = r.s.newID()
	}
	row, exists := r.s.tickets[ticket.ID]
	if !exists {
		row.seq = r.s.next()
	}
	if ticket.CreatedAt.IsZero() {
		if exists {
			ticket.CreatedAt = row.ticket.CreatedAt
		} else {
			ticket.CreatedAt = now
		}
	}
	ticket.UpdatedAt = now
	row.ticket = ticket
	r.s.tickets[ticket.ID] = row
	return ticket.Clone(), nil
}

func (r *TicketRepository) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return false, nil
	}
	delete(r.s.tickets, id)
	return true, nil
}

func (r *TicketRepository) Count(_ context.Context, filter repository.TicketFilter) (int, error) {
	filter = filter.WithoutPaging()
	if err := filter.Validate(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, row := range r.s.tickets {
		if repository.Matches(row.ticket, filter) {
			n++
		}
	}
	return n, nil
}

func (r *TicketRepository) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.tickets[id]
	return ok, nil
}
