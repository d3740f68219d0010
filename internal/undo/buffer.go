// Package undo provides a bounded linear undo/redo history.
package undo

// DefaultMaxHistorySize is the depth used by editing sessions unless configured otherwise.
const DefaultMaxHistorySize = 50

// Buffer holds up to maxSize snapshots and a cursor at the active one.
// Recording a new snapshot while the cursor is not at the tail drops the redo
// branch. Snapshots are stored as given, so callers should hand in values they
// will not mutate afterwards. A Buffer is meant for one editing session and is
// not safe for concurrent use.
type Buffer[T any] struct {
	history []T
	index   int
	maxSize int
}

// New creates a buffer holding initial. A maxSize below 1 is treated as 1.
func New[T any](initial T, maxSize int) *Buffer[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Buffer[T]{history: []T{initial}, maxSize: maxSize}
}

// Current returns the active snapshot.
func (b *Buffer[T]) Current() T {
	return b.history[b.index]
}

// Update records state as the new active snapshot. Snapshots past the cursor are
// discarded first; if the history then exceeds maxSize the oldest one is evicted.
func (b *Buffer[T]) Update(state T) {
	b.history = append(b.history[:b.index+1], state)
	b.index++
	if len(b.history) > b.maxSize {
		var zero T
		b.history[0] = zero
		b.history = b.history[1:]
		b.index--
	}
}

// Undo moves the cursor back one step and returns the snapshot there.
// At the oldest snapshot it does nothing and returns the current one with false.
func (b *Buffer[T]) Undo() (T, bool) {
	if b.index == 0 {
		return b.Current(), false
	}
	b.index--
	return b.Current(), true
}

// Redo moves the cursor forward one step. At the tail it does nothing.
func (b *Buffer[T]) Redo() (T, bool) {
	if b.index == len(b.history)-1 {
		return b.Current(), false
	}
	b.index++
	return b.Current(), true
}

// Reset drops all history and starts over from state.
func (b *Buffer[T]) Reset(state T) {
	b.history = []T{state}
	b.index = 0
}

func (b *Buffer[T]) CanUndo() bool { return b.index > 0 }

func (b *Buffer[T]) CanRedo() bool { return b.index < len(b.history)-1 }

// Len returns the number of stored snapshots.
func (b *Buffer[T]) Len() int { return len(b.history) }

// Index returns the cursor position.
func (b *Buffer[T]) Index() int { return b.index }

// MaxSize returns the configured depth.
func (b *Buffer[T]) MaxSize() int { return b.maxSize }
