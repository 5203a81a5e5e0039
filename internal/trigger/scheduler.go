package trigger

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mohhhamed/tebell/internal/presence"
	"github.com/mohhhamed/tebell/internal/timetable"
)

// ErrStaleSchedule indicates a reconcile was invoked with a schedule older
// than one already seen. The call is a no-op; a concurrent newer reload is
// authoritative.
var ErrStaleSchedule = errors.New("trigger: stale schedule version")

// Scheduler converges the timer facility on the trigger set derived from
// the current schedule, presence state, and clock. Every reconcile
// recomputes the full desired set from its inputs; no deltas are carried
// between calls, so a bad earlier derivation heals on the next one.
//
// Reconcile never runs concurrently with itself.
type Scheduler struct {
	mu     sync.Mutex
	timers TimerFacility
	now    func() time.Time
	logger *slog.Logger

	// armed mirrors what the scheduler believes is registered with the
	// facility, keyed by trigger key with the registered fire time.
	armed       map[int]time.Time
	lastVersion uint64
}

// NewScheduler wires the trigger scheduler. A nil clock defaults to
// time.Now and a nil logger to slog.Default.
func NewScheduler(timers TimerFacility, now func() time.Time, logger *slog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		timers: timers,
		now:    now,
		logger: logger,
		armed:  make(map[int]time.Time),
	}
}

// Reconcile computes the triggers that should be armed for the remainder of
// today and issues the minimal register/cancel calls to converge the timer
// facility on that set. With presence anything other than inside, the
// desired set is empty. Boundaries already passed today are never re-armed.
//
// Calling Reconcile twice with unchanged inputs performs no facility calls
// the second time. The returned slice is the desired set ordered by fire
// time.
func (s *Scheduler) Reconcile(ctx context.Context, sched *timetable.Schedule, state presence.State) ([]Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sched != nil {
		if sched.Version() < s.lastVersion {
			s.logger.Warn("ignoring reconcile with stale schedule",
				"version", sched.Version(), "last_seen", s.lastVersion)
			return nil, ErrStaleSchedule
		}
		s.lastVersion = sched.Version()
	}

	desired := s.desiredSet(sched, state)
	s.converge(desired)

	out := make([]Trigger, 0, len(desired))
	for _, t := range desired {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FireAt.Before(out[j].FireAt) })
	return out, nil
}

// DisarmAll cancels every registration the scheduler knows about. Used on
// shutdown so no timer outlives the engine.
func (s *Scheduler) DisarmAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.converge(nil)
}

// Armed returns the keys the scheduler currently believes are registered.
func (s *Scheduler) Armed() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]int, 0, len(s.armed))
	for key := range s.armed {
		keys = append(keys, key)
	}
	sort.Ints(keys)
	return keys
}

func (s *Scheduler) desiredSet(sched *timetable.Schedule, state presence.State) map[int]Trigger {
	if state != presence.StateInside || sched == nil {
		return nil
	}

	now := s.now()
	desired := make(map[int]Trigger)
	for _, lesson := range sched.Day(now.Weekday()) {
		for _, boundary := range []Boundary{BoundaryStart, BoundaryEnd} {
			at := lesson.Start
			if boundary == BoundaryEnd {
				at = lesson.End
			}
			fireAt := at.At(now)
			if !fireAt.After(now) {
				continue
			}
			t := Trigger{
				Day:      lesson.Day,
				Period:   lesson.Period,
				Boundary: boundary,
				FireAt:   fireAt,
				Lesson:   lesson,
			}
			desired[t.Key()] = t
		}
	}
	return desired
}

// converge issues the minimal facility calls to move the registered set to
// the desired one. Registration failures leave the boundary unarmed and
// are retried by the next reconcile rather than in a loop here.
func (s *Scheduler) converge(desired map[int]Trigger) {
	for key := range s.armed {
		if _, keep := desired[key]; keep {
			continue
		}
		if err := s.timers.Cancel(key); err != nil {
			s.logger.Error("failed to cancel trigger", "key", key, "error", err)
			continue
		}
		delete(s.armed, key)
	}

	for key, t := range desired {
		if registered, ok := s.armed[key]; ok && registered.Equal(t.FireAt) {
			continue
		}
		if err := s.timers.RegisterOneShot(key, t.FireAt, t); err != nil {
			s.logger.Error("failed to register trigger",
				"key", key, "fire_at", t.FireAt, "error", err)
			delete(s.armed, key)
			continue
		}
		s.armed[key] = t.FireAt
	}
}
