// Package alarm provides the in-process one-shot timer facility backing the
// trigger scheduler. It is the daemon rendition of a platform alarm
// manager: exact one-shot wake-ups keyed by integer, where registering
// under an existing key replaces the previous registration.
//
// Timers fire on the process monotonic clock; a host suspension that
// outlasts a timer is repaired by the monitoring loop's next reconcile.
package alarm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mohhhamed/tebell/internal/trigger"
)

// ErrClosed is returned when registering against a closed facility.
var ErrClosed = errors.New("alarm: facility closed")

// Handler consumes fired triggers.
type Handler interface {
	HandleTrigger(ctx context.Context, t trigger.Trigger)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, t trigger.Trigger)

// HandleTrigger calls the wrapped function.
func (f HandlerFunc) HandleTrigger(ctx context.Context, t trigger.Trigger) { f(ctx, t) }

type registration struct {
	timer  *time.Timer
	fireAt time.Time
}

// Timers is a keyed registry of pending one-shot timers.
type Timers struct {
	mu      sync.Mutex
	handler Handler
	now     func() time.Time
	logger  *slog.Logger
	pending map[int]*registration
	closed  bool
}

// NewTimers builds the facility. Fired triggers are delivered to handler on
// a fresh goroutine with a background context.
func NewTimers(handler Handler, now func() time.Time, logger *slog.Logger) *Timers {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Timers{
		handler: handler,
		now:     now,
		logger:  logger,
		pending: make(map[int]*registration),
	}
}

// RegisterOneShot arms a timer for the trigger under the given key. An
// existing registration under the same key is cancelled first, so repeated
// derivation of the same trigger never duplicates wake-ups. A fire time not
// in the future fires immediately.
func (t *Timers) RegisterOneShot(key int, fireAt time.Time, tr trigger.Trigger) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if existing, ok := t.pending[key]; ok {
		existing.timer.Stop()
		delete(t.pending, key)
	}

	delay := fireAt.Sub(t.now())
	if delay < 0 {
		delay = 0
	}
	reg := &registration{fireAt: fireAt}
	reg.timer = time.AfterFunc(delay, func() { t.fire(key, tr) })
	t.pending[key] = reg
	return nil
}

// Cancel removes the registration under key. Cancelling an unknown key is
// not an error.
func (t *Timers) Cancel(key int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reg, ok := t.pending[key]; ok {
		reg.timer.Stop()
		delete(t.pending, key)
	}
	return nil
}

// Pending returns the number of armed registrations.
func (t *Timers) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Close stops every pending timer. The facility refuses registrations
// afterwards, so shutdown leaves no dangling wake-ups.
func (t *Timers) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, reg := range t.pending {
		reg.timer.Stop()
		delete(t.pending, key)
	}
	t.closed = true
	return nil
}

func (t *Timers) fire(key int, tr trigger.Trigger) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	delete(t.pending, key)
	handler := t.handler
	t.mu.Unlock()

	if handler == nil {
		t.logger.Warn("trigger fired with no handler", "key", key)
		return
	}
	handler.HandleTrigger(context.Background(), tr)
}
