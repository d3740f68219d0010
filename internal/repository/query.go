package repository

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Page is one slice of a filtered result together with the totals needed to render paging.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// Matches reports whether ticket satisfies every populated criterion of filter.
// Pagination and sort do not take part.
func Matches(ticket domain.Ticket, filter TicketFilter) bool {
	if filter.Status != nil && ticket.Status != *filter.Status {
		return false
	}
	if filter.TemplateID != nil && (ticket.TemplateID == nil || *ticket.TemplateID != *filter.TemplateID) {
		return false
	}
	if filter.Tag != nil && !ticket.HasTag(*filter.Tag) {
		return false
	}
	if filter.DateRange != nil && !matchesRange(ticket, filter) {
		return false
	}
	if term := filter.searchTerm(); term != "" {
		if !strings.Contains(strings.ToLower(ticket.Title), term) &&
			!strings.Contains(strings.ToLower(ticket.Description), term) {
			return false
		}
	}
	return true
}

// matchesRange checks CreatedAt, or CompletedAt when the filter asks for completed tickets.
func matchesRange(ticket domain.Ticket, filter TicketFilter) bool {
	at := ticket.CreatedAt
	if filter.Status != nil && *filter.Status == domain.TicketStatusCompleted {
		if ticket.CompletedAt == nil {
			return false
		}
		at = *ticket.CompletedAt
	}
	return inRange(at, filter.DateRange.Start, filter.DateRange.End)
}

func inRange(at time.Time, start, end *time.Time) bool {
	if start != nil && at.Before(*start) {
		return false
	}
	if end != nil && at.After(*end) {
		return false
	}
	return true
}

// Filter returns the matching tickets in input order.
func Filter(tickets []domain.Ticket, filter TicketFilter) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		if Matches(ticket, filter) {
			out = append(out, ticket)
		}
	}
	return out
}

// CountMatching counts matches, ignoring pagination and sort.
func CountMatching(tickets []domain.Ticket, filter TicketFilter) int {
	n := 0
	for _, ticket := range tickets {
		if Matches(ticket, filter) {
			n++
		}
	}
	return n
}

// Apply narrows tickets by filter, sorts when filter.Sort is set and cuts the requested page.
// Without a sort the input order is kept.
func Apply(tickets []domain.Ticket, filter TicketFilter) []domain.Ticket {
	out := Filter(tickets, filter)
	if filter.Sort != nil {
		SortTickets(out, *filter.Sort)
	}
	if filter.Pagination != nil {
		out = Paginate(out, *filter.Pagination)
	}
	return out
}

// SortTickets sorts in place. The sort is stable and ties fall back to id ascending
// so repeated paging over the same data is deterministic.
func SortTickets(tickets []domain.Ticket, s Sort) {
	slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
		c := compareField(a, b, s.Field)
		if s.Order == SortDesc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

func compareField(a, b domain.Ticket, field SortField) int {
	switch field {
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByCompletedAt:
		return compareOptionalTime(a.CompletedAt, b.CompletedAt)
	case SortByTitle:
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case SortByStatus:
		return cmp.Compare(a.Status.Rank(), b.Status.Rank())
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// compareOptionalTime orders nil before any time.
func compareOptionalTime(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return a.Compare(*b)
	}
}

// Paginate returns [(page-1)*size, page*size). A page past the end is empty, not an error.
func Paginate[T any](items []T, p Pagination) []T {
	if p.Page < 1 || p.PageSize < 1 {
		return []T{}
	}
	// compare page numbers before multiplying so huge pages cannot overflow
	if p.Page > TotalPages(len(items), p.PageSize) {
		return []T{}
	}
	start := (p.Page - 1) * p.PageSize
	end := start + min(p.PageSize, len(items)-start)
	return items[start:end]
}

// TotalPages is ceil(total/pageSize).
func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// NewPage assembles a Page from one fetched slice and the unpaginated total.
func NewPage[T any](items []T, total int, p *Pagination) Page[T] {
	page := Page[T]{Items: items, Total: total, Page: 1, PageSize: total}
	if p != nil {
		page.Page = p.Page
		page.PageSize = p.PageSize
	}
	page.TotalPages = TotalPages(total, page.PageSize)
	return page
}
