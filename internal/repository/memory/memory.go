// Package memory is the in-process reference backend of the repository contract.
// It keeps everything in maps guarded by one lock, so every Save, Delete and
// SetAsDefault is atomic with respect to every reader.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repositories bundles the ticket, template and history stores over shared state.
type Repositories struct {
	Tickets   *TicketRepository
	Templates *TemplateRepository
	History   *HistoryRepository
}

// Option tweaks the backend.
type Option func(*state)

// WithNow replaces the timestamp source used for backend-assigned defaults.
func WithNow(now func() time.Time) Option {
	return func(s *state) { s.now = now }
}

// WithIDGenerator replaces uuid.NewString for backend-assigned ids.
func WithIDGenerator(newID func() string) Option {
	return func(s *state) { s.newID = newID }
}

// NewRepositories creates an empty store.
func NewRepositories(opts ...Option) *Repositories {
	s := &state{
		tickets:   map[string]ticketRow{},
		templates: map[string]templateRow{},
		history:   map[string][]historyRow{},
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return &Repositories{
		Tickets:   &TicketRepository{s: s},
		Templates: &TemplateRepository{s: s},
		History:   &HistoryRepository{s: s},
	}
}

type state struct {
	mu sync.RWMutex

	// seq orders rows by first insertion; replaced rows keep their slot.
	seq       uint64
	tickets   map[string]ticketRow
	templates map[string]templateRow
	history   map[string][]historyRow

	now   func() time.Time
	newID func() string
}

func (s *state) next() uint64 {
	s.seq++
	return s.seq
}
