package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/autosave"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/undo"
)

// EditorConfig sizes editing sessions. Zero values fall back to the defaults.
type EditorConfig struct {
	AutosaveDelay time.Duration
	UndoHistory   int
}

// Editor is one editing session of a ticket. Every edit is recorded for undo
// and handed to the autosave coordinator, which saves through TicketService
// once edits settle. An Editor is safe for concurrent use.
type Editor struct {
	mu       sync.Mutex
	buffer   *undo.Buffer[domain.Ticket]
	autosave *autosave.Coordinator[domain.Ticket]
}

// NewEditor opens a session on ticket. A ticket without an id gets one now so
// that every autosave of the session writes the same record.
func (s *TicketService) NewEditor(ticket domain.Ticket, opts ...autosave.Option[domain.Ticket]) *Editor {
	ticket = ticket.Clone()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}

	depth := s.editor.UndoHistory
	if depth <= 0 {
		depth = undo.DefaultMaxHistorySize
	}
	delay := s.editor.AutosaveDelay
	if delay <= 0 {
		delay = autosave.DefaultDelay
	}

	save := func(ctx context.Context, data domain.Ticket) error {
		_, err := s.Save(ctx, data)
		return err
	}
	base := []autosave.Option[domain.Ticket]{
		autosave.WithDelay[domain.Ticket](delay),
		autosave.WithClock[domain.Ticket](s.clock),
		autosave.WithLogger[domain.Ticket](s.logger.With(zap.String("ticket_id", ticket.ID))),
	}

	e := &Editor{
		buffer:   undo.New(ticket, depth),
		autosave: autosave.New(save, append(base, opts...)...),
	}
	e.autosave.Update(ticket.Clone())
	return e
}

// Edit applies change to a copy of the current state and records the result.
func (e *Editor) Edit(change func(*domain.Ticket)) domain.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.buffer.Current().Clone()
	change(&next)
	e.buffer.Update(next)
	e.autosave.Update(next.Clone())
	return next.Clone()
}

// Undo steps back one edit. The restored state is scheduled for saving like any edit.
func (e *Editor) Undo() (domain.Ticket, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.buffer.Undo()
	if ok {
		e.autosave.Update(state.Clone())
	}
	return state.Clone(), ok
}

// Redo reapplies the last undone edit.
func (e *Editor) Redo() (domain.Ticket, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.buffer.Redo()
	if ok {
		e.autosave.Update(state.Clone())
	}
	return state.Clone(), ok
}

func (e *Editor) Current() domain.Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.Current().Clone()
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buffer.CanRedo()
}

// SaveState reports the autosave status of the session.
func (e *Editor) SaveState() autosave.State {
	return e.autosave.State()
}

// SaveNow persists the current state without waiting for the quiet period.
func (e *Editor) SaveNow(ctx context.Context) error {
	return e.autosave.SaveNow(ctx)
}

// Close saves unsaved edits, if any, and ends the session.
func (e *Editor) Close(ctx context.Context) error {
	err := e.autosave.Flush(ctx)
	e.autosave.Close()
	return err
}
