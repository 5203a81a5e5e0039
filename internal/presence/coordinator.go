// Package presence tracks whether the teacher is inside the school
// geofence. The external region monitor delivers edge-triggered ENTER/EXIT
// events; the coordinator debounces redeliveries and drives trigger
// reconciliation plus the welcome/goodbye notifications on real transitions.
package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// State is the observed relation to the school geofence.
type State int

const (
	// StateUnknown is the boot default before any event or location check.
	StateUnknown State = iota
	// StateInside means the last confirmed event placed the device in the region.
	StateInside
	// StateOutside means the last confirmed event placed the device outside it.
	StateOutside
)

func (s State) String() string {
	switch s {
	case StateInside:
		return "inside"
	case StateOutside:
		return "outside"
	default:
		return "unknown"
	}
}

// EventKind labels a geofence transition edge.
type EventKind int

const (
	// Enter signals a confirmed transition into the region.
	Enter EventKind = iota + 1
	// Exit signals a confirmed transition out of the region.
	Exit
)

func (k EventKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Event is one transition edge reported by the region monitor. Distance is
// the monitor's measured distance to the region center at event time.
type Event struct {
	Kind           EventKind
	DistanceMeters float64
	At             time.Time
}

// Reconciler converges armed triggers to the new presence state.
type Reconciler interface {
	Reconcile(ctx context.Context, state State) error
}

// Notifier receives the presence-change side effect. Calls are
// fire-and-forget; failures are the notifier's concern.
type Notifier interface {
	PresenceChanged(ctx context.Context, inside bool, distanceMeters float64)
}

// Coordinator is the two-state presence machine (plus the Unknown boot
// state). Observe is safe for concurrent use; transitions are serialized.
type Coordinator struct {
	mu         sync.Mutex
	state      State
	reconciler Reconciler
	notifier   Notifier
	logger     *slog.Logger
}

// NewCoordinator wires the coordinator's collaborators. The logger may be
// nil, in which case slog.Default is used.
func NewCoordinator(reconciler Reconciler, notifier Notifier, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		state:      StateUnknown,
		reconciler: reconciler,
		notifier:   notifier,
		logger:     logger,
	}
}

// State returns the current presence state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Observe applies one transition event. Redelivered events that match the
// current state are ignored with no side effect. On a real transition the
// coordinator reconciles triggers for the new state and then emits exactly
// one presence notification. It reports whether the state changed.
//
// A reconcile failure does not roll back the transition: the state is
// already a fact, and the monitoring loop repairs trigger drift on its next
// tick.
func (c *Coordinator) Observe(ctx context.Context, event Event) bool {
	next := StateOutside
	if event.Kind == Enter {
		next = StateInside
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == next {
		c.logger.Debug("ignoring redelivered geofence event",
			"event", event.Kind.String(), "state", c.state.String())
		return false
	}

	previous := c.state
	c.state = next
	c.logger.Info("presence transition",
		"from", previous.String(), "to", next.String(), "distance_m", event.DistanceMeters)

	if c.reconciler != nil {
		if err := c.reconciler.Reconcile(ctx, next); err != nil {
			c.logger.Error("reconcile after presence transition failed", "error", err)
		}
	}
	if c.notifier != nil {
		c.notifier.PresenceChanged(ctx, next == StateInside, event.DistanceMeters)
	}
	return true
}
