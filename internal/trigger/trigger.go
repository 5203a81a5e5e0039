// Package trigger derives wake-up triggers from lesson boundaries and keeps
// an external one-shot timer facility converged on the set that should be
// armed right now.
package trigger

import (
	"fmt"
	"time"

	"github.com/mohhhamed/tebell/internal/timetable"
)

// Boundary distinguishes the two instants of a lesson that ring the bell.
type Boundary int

const (
	// BoundaryStart fires when a lesson begins.
	BoundaryStart Boundary = iota + 1
	// BoundaryEnd fires when a lesson ends.
	BoundaryEnd
)

func (b Boundary) String() string {
	switch b {
	case BoundaryStart:
		return "start"
	case BoundaryEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Trigger is a derived, uniquely keyed future wake-up for one lesson
// boundary. Triggers are recomputed from the schedule on every reconcile
// and never persisted.
type Trigger struct {
	Day      time.Weekday
	Period   int
	Boundary Boundary
	FireAt   time.Time
	Lesson   timetable.Lesson
}

// Key maps the trigger identity (day, period, boundary) onto a stable
// integer so the timer facility can cancel-then-replace registrations
// without leaking duplicates. Weekday occupies the thousands, period the
// tens and hundreds, and the boundary flag the ones digit.
func (t Trigger) Key() int {
	flag := 1
	if t.Boundary == BoundaryEnd {
		flag = 2
	}
	return int(t.Day)*1000 + t.Period*10 + flag
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s period %d %s at %s",
		t.Day, t.Period, t.Boundary, t.FireAt.Format("15:04"))
}

// TimerFacility is the external exact one-shot timer boundary. Registering
// under an existing key replaces the previous registration.
type TimerFacility interface {
	RegisterOneShot(key int, fireAt time.Time, t Trigger) error
	Cancel(key int) error
}
