package presence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingReconciler struct {
	mu     sync.Mutex
	states []State
	err    error
}

func (r *recordingReconciler) Reconcile(_ context.Context, state State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return r.err
}

func (r *recordingReconciler) calls() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []bool
}

func (n *recordingNotifier) PresenceChanged(_ context.Context, inside bool, _ float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, inside)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changes)
}

func enter() Event {
	return Event{Kind: Enter, DistanceMeters: 12, At: time.Now()}
}

func exit() Event {
	return Event{Kind: Exit, DistanceMeters: 180, At: time.Now()}
}

func TestObserveFirstEnterResolvesUnknown(t *testing.T) {
	t.Parallel()

	rec := &recordingReconciler{}
	note := &recordingNotifier{}
	c := NewCoordinator(rec, note, nil)

	if c.State() != StateUnknown {
		t.Fatalf("expected boot state unknown, got %s", c.State())
	}
	if changed := c.Observe(context.Background(), enter()); !changed {
		t.Fatalf("expected first enter to change state")
	}
	if c.State() != StateInside {
		t.Fatalf("expected inside, got %s", c.State())
	}
	if got := rec.calls(); len(got) != 1 || got[0] != StateInside {
		t.Fatalf("expected one reconcile with inside, got %v", got)
	}
	if note.count() != 1 {
		t.Fatalf("expected one welcome notification, got %d", note.count())
	}
}

func TestObserveDuplicateEnterIsNoOp(t *testing.T) {
	t.Parallel()

	rec := &recordingReconciler{}
	note := &recordingNotifier{}
	c := NewCoordinator(rec, note, nil)

	c.Observe(context.Background(), enter())
	if changed := c.Observe(context.Background(), enter()); changed {
		t.Fatalf("redelivered enter must not change state")
	}
	if len(rec.calls()) != 1 {
		t.Fatalf("expected exactly one reconcile, got %d", len(rec.calls()))
	}
	if note.count() != 1 {
		t.Fatalf("expected exactly one welcome side effect, got %d", note.count())
	}
}

func TestObserveExitAfterEnter(t *testing.T) {
	t.Parallel()

	rec := &recordingReconciler{}
	note := &recordingNotifier{}
	c := NewCoordinator(rec, note, nil)

	c.Observe(context.Background(), enter())
	c.Observe(context.Background(), exit())

	if c.State() != StateOutside {
		t.Fatalf("expected outside, got %s", c.State())
	}
	got := rec.calls()
	if len(got) != 2 || got[1] != StateOutside {
		t.Fatalf("expected reconcile with outside, got %v", got)
	}
	if note.count() != 2 {
		t.Fatalf("expected welcome then goodbye, got %d notifications", note.count())
	}
}

func TestObserveTransitionSurvivesReconcileFailure(t *testing.T) {
	t.Parallel()

	rec := &recordingReconciler{err: errors.New("facility down")}
	note := &recordingNotifier{}
	c := NewCoordinator(rec, note, nil)

	if changed := c.Observe(context.Background(), enter()); !changed {
		t.Fatalf("transition must apply even when reconcile fails")
	}
	if c.State() != StateInside {
		t.Fatalf("expected inside after failed reconcile, got %s", c.State())
	}
	if note.count() != 1 {
		t.Fatalf("expected notification despite reconcile failure")
	}
}

func TestObserveUnknownToOutside(t *testing.T) {
	t.Parallel()

	rec := &recordingReconciler{}
	note := &recordingNotifier{}
	c := NewCoordinator(rec, note, nil)

	if changed := c.Observe(context.Background(), exit()); !changed {
		t.Fatalf("expected unknown to resolve to outside")
	}
	if c.State() != StateOutside {
		t.Fatalf("expected outside, got %s", c.State())
	}
	if got := rec.calls(); len(got) != 1 || got[0] != StateOutside {
		t.Fatalf("expected reconcile with outside, got %v", got)
	}
}
