// Package autosave persists edited state after a quiet period.
//
// A Coordinator moves between three states:
//
//	Idle --change--> Pending --quiet period--> Saving --done--> Idle
//
// Every change while Pending or Saving re-arms the timer, so only the newest
// state of a burst is saved. At most one save runs at a time; a timer that
// comes due during a save waits for it to finish.
package autosave

import (
	"context"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/clock"
)

// DefaultDelay is the quiet period used when none is configured.
const DefaultDelay = 2 * time.Second

// Status is the coordinator's position in its state machine.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSaving  Status = "saving"
)

// State is what the coordinator exposes to the editing UI.
type State struct {
	Status    Status
	LastSaved time.Time
	Err       error
}

// SaveFunc persists data. The coordinator does not care what it stores.
type SaveFunc[T any] func(ctx context.Context, data T) error

// Option configures a Coordinator.
type Option[T any] func(*Coordinator[T])

func WithDelay[T any](d time.Duration) Option[T] {
	return func(c *Coordinator[T]) { c.delay = d }
}

func WithClock[T any](clk clock.Clock) Option[T] {
	return func(c *Coordinator[T]) { c.clock = clk }
}

// WithEqual replaces reflect.DeepEqual as the change detector.
func WithEqual[T any](equal func(a, b T) bool) Option[T] {
	return func(c *Coordinator[T]) { c.equal = equal }
}

func WithLogger[T any](logger *zap.Logger) Option[T] {
	return func(c *Coordinator[T]) { c.logger = logger }
}

// WithContext sets the context handed to timer-driven saves.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(c *Coordinator[T]) { c.ctx = ctx }
}

// WithStatusListener registers fn to receive every state transition. fn runs
// outside the coordinator's lock and may call State but not block for long.
func WithStatusListener[T any](fn func(State)) Option[T] {
	return func(c *Coordinator[T]) { c.listener = fn }
}

// Coordinator debounces saves of one editing session's state.
type Coordinator[T any] struct {
	save     SaveFunc[T]
	delay    time.Duration
	clock    clock.Clock
	equal    func(a, b T) bool
	logger   *zap.Logger
	ctx      context.Context
	listener func(State)

	mu          sync.Mutex
	initialized bool
	closed      bool
	latest      T
	saved       T
	timer       clock.Timer
	// gen invalidates timer callbacks that were already running when their timer was replaced.
	gen        uint64
	saving     bool
	inflight   T
	flightDone chan struct{}
	deferred   bool
	status     Status
	lastSaved  time.Time
	err        error
}

// New creates a coordinator that calls save. The first Update is the baseline.
func New[T any](save SaveFunc[T], opts ...Option[T]) *Coordinator[T] {
	c := &Coordinator[T]{
		save:   save,
		delay:  DefaultDelay,
		clock:  clock.Real(),
		equal:  func(a, b T) bool { return reflect.DeepEqual(a, b) },
		logger: zap.NewNop(),
		ctx:    context.Background(),
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// State returns the current status, last successful save time and last error.
func (c *Coordinator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Update reports the latest edited state.
func (c *Coordinator[T]) Update(state T) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.latest = state
	if !c.initialized {
		c.initialized = true
		c.saved = state
		c.mu.Unlock()
		return
	}

	c.stopTimerLocked()
	if c.equal(state, c.storedLocked()) {
		// back to what is (or is being) stored: nothing left to save
		c.deferred = false
		if !c.saving {
			c.status = StatusIdle
		}
	} else {
		gen := c.gen
		c.timer = c.clock.AfterFunc(c.delay, func() { c.fire(gen) })
		if !c.saving {
			c.status = StatusPending
		}
	}
	st := c.stateLocked()
	c.mu.Unlock()
	c.emit(st)
}

// SaveNow skips the quiet period and saves the latest state. If a save is in
// flight it waits for that one first, so two saves never overlap.
func (c *Coordinator[T]) SaveNow(ctx context.Context) error {
	return c.saveNow(ctx, false)
}

// Flush is SaveNow limited to unsaved state: it does nothing when the latest
// state is already stored.
func (c *Coordinator[T]) Flush(ctx context.Context) error {
	return c.saveNow(ctx, true)
}

func (c *Coordinator[T]) saveNow(ctx context.Context, onlyDirty bool) error {
	for {
		c.mu.Lock()
		if !c.saving {
			break
		}
		done := c.flightDone
		c.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if !c.initialized || c.closed {
		c.mu.Unlock()
		return nil
	}
	c.stopTimerLocked()
	c.deferred = false
	if onlyDirty && c.equal(c.latest, c.saved) {
		c.status = StatusIdle
		st := c.stateLocked()
		c.mu.Unlock()
		c.emit(st)
		return nil
	}
	data := c.latest
	st := c.beginLocked(data)
	c.mu.Unlock()
	c.emit(st)
	return c.run(ctx, data)
}

// Close cancels a pending save. An in-flight save still runs to completion.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.stopTimerLocked()
}

func (c *Coordinator[T]) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.saving {
		c.deferred = true
		c.mu.Unlock()
		return
	}
	if c.equal(c.latest, c.saved) {
		c.status = StatusIdle
		st := c.stateLocked()
		c.mu.Unlock()
		c.emit(st)
		return
	}
	data := c.latest
	st := c.beginLocked(data)
	c.mu.Unlock()
	c.emit(st)
	_ = c.run(c.ctx, data)
}

// run saves data and then any state whose timer came due meanwhile.
// It returns the error of the first save.
func (c *Coordinator[T]) run(ctx context.Context, data T) error {
	first := c.save(ctx, data)
	err := first
	for {
		next, again := c.finish(data, err)
		if !again {
			return first
		}
		data = next
		err = c.save(c.ctx, data)
	}
}

func (c *Coordinator[T]) finish(data T, err error) (T, bool) {
	c.mu.Lock()
	c.saving = false
	close(c.flightDone)
	if err != nil {
		c.err = err
		c.logger.Warn("autosave failed", zap.Error(err))
	} else {
		c.saved = data
		c.lastSaved = c.clock.Now()
		c.err = nil
		c.logger.Debug("autosave completed", zap.Time("saved_at", c.lastSaved))
	}

	again := c.deferred && c.timer == nil && !c.closed &&
		!c.equal(c.latest, data) && !c.equal(c.latest, c.saved)
	c.deferred = false
	if again {
		next := c.latest
		st := c.beginLocked(next)
		c.mu.Unlock()
		c.emit(st)
		return next, true
	}

	if c.timer != nil {
		c.status = StatusPending
	} else {
		c.status = StatusIdle
	}
	st := c.stateLocked()
	c.mu.Unlock()
	c.emit(st)
	var zero T
	return zero, false
}

// storedLocked is the state the store holds once the in-flight save, if any, succeeds.
func (c *Coordinator[T]) storedLocked() T {
	if c.saving {
		return c.inflight
	}
	return c.saved
}

func (c *Coordinator[T]) beginLocked(data T) State {
	c.saving = true
	c.inflight = data
	c.flightDone = make(chan struct{})
	c.status = StatusSaving
	return c.stateLocked()
}

func (c *Coordinator[T]) stopTimerLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Coordinator[T]) stateLocked() State {
	return State{Status: c.status, LastSaved: c.lastSaved, Err: c.err}
}

func (c *Coordinator[T]) emit(st State) {
	if c.listener != nil {
		c.listener(st)
	}
}
