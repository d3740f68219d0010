package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/autosave"
	"github.com/spec-kit/ticket-tracker/internal/domain"
)

func TestEditorSavesOnceEditsSettle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := h.tickets.NewEditor(domain.Ticket{Title: "Draft"})
	id := editor.Current().ID
	require.NotEmpty(t, id)

	editor.Edit(func(tk *domain.Ticket) { tk.Title = "Draft 1" })
	h.clock.Advance(500 * time.Millisecond)
	editor.Edit(func(tk *domain.Ticket) { tk.Title = "Draft 2" })
	h.clock.Advance(400 * time.Millisecond)
	editor.Edit(func(tk *domain.Ticket) { tk.Description = "details" })

	h.clock.Advance(1999 * time.Millisecond)
	exists, err := h.repos.Tickets.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, autosave.StatusPending, editor.SaveState().Status)

	h.clock.Advance(time.Millisecond)
	stored, err := h.tickets.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Draft 2", stored.Title)
	assert.Equal(t, "details", stored.Description)
	assert.Equal(t, testStart.Add(2900*time.Millisecond), stored.CreatedAt)

	state := editor.SaveState()
	assert.Equal(t, autosave.StatusIdle, state.Status)
	assert.NoError(t, state.Err)

	ledger, err := h.tickets.History(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Len())
}

func TestEditorUndoIsSavedToo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	editor := h.tickets.NewEditor(domain.Ticket{Title: "one"})
	editor.Edit(func(tk *domain.Ticket) { tk.Title = "two" })
	editor.Edit(func(tk *domain.Ticket) { tk.Title = "three" })
	require.NoError(t, editor.SaveNow(ctx))

	restored, ok := editor.Undo()
	require.True(t, ok)
	assert.Equal(t, "two", restored.Title)
	assert.True(t, editor.CanRedo())

	h.clock.Advance(2 * time.Second)
	stored, err := h.tickets.Get(ctx, restored.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", stored.Title)

	redone, ok := editor.Redo()
	require.True(t, ok)
	assert.Equal(t, "three", redone.Title)
	assert.False(t, editor.CanRedo())
	assert.True(t, editor.CanUndo())
}

func TestEditorEditDoesNotLeakState(t *testing.T) {
	h := newHarness(t)
	editor := h.tickets.NewEditor(domain.Ticket{Title: "t", Tags: []string{"a"}})
	got := editor.Edit(func(tk *domain.Ticket) { tk.Tags = append(tk.Tags, "b") })
	got.Tags[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, editor.Current().Tags)

	_, ok := editor.Undo()
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, editor.Current().Tags)
}

func TestEditorCloseFlushesPendingEdits(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	untouched := h.tickets.NewEditor(domain.Ticket{Title: "never edited"})
	require.NoError(t, untouched.Close(ctx))
	exists, err := h.repos.Tickets.Exists(ctx, untouched.Current().ID)
	require.NoError(t, err)
	assert.False(t, exists)

	editor := h.tickets.NewEditor(domain.Ticket{Title: "start"})
	editor.Edit(func(tk *domain.Ticket) { tk.Title = "finish" })
	require.NoError(t, editor.Close(ctx))

	stored, err := h.tickets.Get(ctx, editor.Current().ID)
	require.NoError(t, err)
	assert.Equal(t, "finish", stored.Title)

	editor.Edit(func(tk *domain.Ticket) { tk.Title = "after close" })
	h.clock.Advance(time.Minute)
	stored, err = h.tickets.Get(ctx, editor.Current().ID)
	require.NoError(t, err)
	assert.Equal(t, "finish", stored.Title)
}

func TestEditorReportsSaveFailure(t *testing.T) {
	h := newHarness(t)
	editor := h.tickets.NewEditor(domain.Ticket{Title: "valid"})
	editor.Edit(func(tk *domain.Ticket) { tk.Title = "" })
	h.clock.Advance(2 * time.Second)

	state := editor.SaveState()
	assert.Equal(t, autosave.StatusIdle, state.Status)
	assert.Error(t, state.Err)
}
