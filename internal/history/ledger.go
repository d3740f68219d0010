// Package history keeps the append-only audit trail of a ticket.
package history

import (
	"slices"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Ledger is the change log of one ticket. Entries are kept in insertion order
// and are never removed. A Ledger is not safe for concurrent mutation.
type Ledger struct {
	ticketID string
	changes  []domain.TicketChange
}

// NewLedger creates an empty ledger owned by ticketID.
func NewLedger(ticketID string, changes ...domain.TicketChange) *Ledger {
	l := &Ledger{ticketID: ticketID}
	for _, change := range changes {
		l.AddChange(change)
	}
	return l
}

// TicketID returns the owning ticket.
func (l *Ledger) TicketID() string {
	return l.ticketID
}

// AddChange appends change. Changes of another ticket are ignored and false is returned.
func (l *Ledger) AddChange(change domain.TicketChange) bool {
	if change.TicketID != l.ticketID {
		return false
	}
	l.changes = append(l.changes, change)
	return true
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.changes)
}

// Changes returns a copy of all entries in insertion order.
func (l *Ledger) Changes() []domain.TicketChange {
	return slices.Clone(l.changes)
}

// GetChangesByType returns entries of changeType in insertion order.
func (l *Ledger) GetChangesByType(changeType domain.ChangeType) []domain.TicketChange {
	out := []domain.TicketChange{}
	for _, change := range l.changes {
		if change.ChangeType == changeType {
			out = append(out, change)
		}
	}
	return out
}

// GetLatestChanges returns up to limit entries, newest first. Entries with the
// same timestamp come back latest-inserted first. The ledger keeps its order.
func (l *Ledger) GetLatestChanges(limit int) []domain.TicketChange {
	if limit <= 0 {
		return []domain.TicketChange{}
	}
	sorted := l.Changes()
	slices.Reverse(sorted)
	// stable on the reversed copy keeps equal timestamps in reverse insertion order
	slices.SortStableFunc(sorted, func(a, b domain.TicketChange) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit < len(sorted) {
		sorted = sorted[:limit]
	}
	return sorted
}

// GetChangesInRange returns entries with start <= Timestamp <= end, in insertion order.
func (l *Ledger) GetChangesInRange(start, end time.Time) []domain.TicketChange {
	out := []domain.TicketChange{}
	for _, change := range l.changes {
		if change.Timestamp.Before(start) || change.Timestamp.After(end) {
			continue
		}
		out = append(out, change)
	}
	return out
}

// Replay returns entries oldest first, ties in insertion order.
func (l *Ledger) Replay() []domain.TicketChange {
	sorted := l.Changes()
	slices.SortStableFunc(sorted, func(a, b domain.TicketChange) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return sorted
}
