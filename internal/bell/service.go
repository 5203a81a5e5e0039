// Package bell orchestrates the lesson bell: it owns the current schedule
// snapshot, turns presence transitions and timer firings into notifications,
// and keeps the armed trigger set converged with reality.
package bell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mohhhamed/tebell/internal/notify"
	"github.com/mohhhamed/tebell/internal/presence"
	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/timetable"
	"github.com/mohhhamed/tebell/internal/trigger"
)

// ScheduleStore captures the persistence interactions needed by the service.
type ScheduleStore interface {
	Load(ctx context.Context) (store.LoadedSchedule, error)
	Replace(ctx context.Context, doc store.Document) (uint64, error)
	Version(ctx context.Context) (uint64, error)
}

// TriggerReconciler converges the armed timer set with the desired one.
type TriggerReconciler interface {
	Reconcile(ctx context.Context, sched *timetable.Schedule, state presence.State) ([]trigger.Trigger, error)
	DisarmAll(ctx context.Context)
	Armed() []int
}

// Settings holds the behavioural toggles the service consults at runtime.
type Settings struct {
	// ManualMode suppresses automatic bell notifications while still
	// tracking schedule state.
	ManualMode bool
	// SoundEnabled reports whether delivered bells should be audible.
	SoundEnabled bool
	// LocationEnabled gates presence tracking. When disabled the service
	// behaves as if the teacher were always at school.
	LocationEnabled bool
}

// Options wires dependencies for the bell service.
type Options struct {
	Store    ScheduleStore
	Triggers TriggerReconciler
	Notifier notify.Notifier
	Settings Settings
	Now      func() time.Time
	Logger   *slog.Logger
}

// Status is a point-in-time snapshot of the engine for operators.
type Status struct {
	Version          uint64
	TeacherName      string
	SchoolName       string
	LessonCount      int
	Presence         presence.State
	ManualMode       bool
	SoundEnabled     bool
	ArmedTriggers    int
	Current          *timetable.Lesson
	Next             *timetable.Lesson
	RemainingMinutes int
	ProgressPercent  int
	MinutesUntilNext int
}

// Service coordinates schedule imports, trigger firings, and presence
// transitions. All state transitions are serialized through a single mutex.
type Service struct {
	storage  ScheduleStore
	triggers TriggerReconciler
	notifier notify.Notifier
	settings Settings
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	schedule *timetable.Schedule
	state    presence.State
	fired    map[int]struct{}
	firedDay time.Time

	lastCurrent    *timetable.Lesson
	haveResolution bool
}

// NewService wires dependencies for the bell service.
func NewService(opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	state := presence.StateUnknown
	if !opts.Settings.LocationEnabled {
		state = presence.StateInside
	}
	return &Service{
		storage:  opts.Store,
		triggers: opts.Triggers,
		notifier: opts.Notifier,
		settings: opts.Settings,
		now:      opts.Now,
		logger:   opts.Logger,
		schedule: timetable.Empty(0),
		state:    state,
		fired:    make(map[int]struct{}),
	}
}

// LoadFromStore restores the persisted schedule on startup. A store with no
// import yet is not an error; the service starts with an empty schedule.
func (s *Service) LoadFromStore(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("bell service is nil")
	}
	logger := serviceLogger(ctx, s.logger, "load")

	loaded, err := s.storage.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("no persisted schedule, starting empty")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}

	sched, err := timetable.NewSchedule(loaded.Document.LessonInputs(), timetable.BuildOptions{
		Version:     loaded.Version,
		TeacherName: loaded.Document.TeacherName,
		SchoolName:  loaded.Document.SchoolName,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("rebuild persisted schedule: %w", err)
	}

	s.mu.Lock()
	s.schedule = sched
	s.mu.Unlock()

	logger.Info("schedule restored",
		"version", loaded.Version,
		"lessons", sched.Len(),
		"imported_at", loaded.ImportedAt)
	s.reconcileTriggers(ctx, logger)
	return nil
}

// ImportSchedule validates, persists, and activates a new schedule document.
// On any failure the previously active schedule stays in effect.
func (s *Service) ImportSchedule(ctx context.Context, doc store.Document) (*timetable.Schedule, error) {
	if s == nil {
		return nil, fmt.Errorf("bell service is nil")
	}
	logger := serviceLogger(ctx, s.logger, "import", "teacher_name", doc.TeacherName)

	vErr := &ValidationError{}
	if strings.TrimSpace(doc.TeacherName) == "" {
		vErr.add("teacher_name", "teacher name is required")
	}
	if len(doc.Schedule) == 0 {
		vErr.add("schedule", "at least one lesson entry is required")
	}
	if vErr.HasErrors() {
		logger.Warn("import rejected", "error_kind", ErrorKind(vErr))
		return nil, vErr
	}

	// Trial build first so an overlapping document never reaches the store.
	inputs := doc.LessonInputs()
	if _, err := timetable.NewSchedule(inputs, timetable.BuildOptions{Logger: logger}); err != nil {
		logger.Warn("import rejected", "error_kind", ErrorKind(err), "error", err)
		return nil, err
	}

	version, err := s.storage.Replace(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}

	sched, err := timetable.NewSchedule(inputs, timetable.BuildOptions{
		Version:     version,
		TeacherName: doc.TeacherName,
		SchoolName:  doc.SchoolName,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild schedule: %w", err)
	}

	s.mu.Lock()
	s.schedule = sched
	s.fired = make(map[int]struct{})
	s.lastCurrent = nil
	s.haveResolution = false
	s.mu.Unlock()

	logger.Info("schedule imported", "version", version, "lessons", sched.Len())
	s.reconcileTriggers(ctx, logger)
	return sched, nil
}

// ExportDocument returns the persisted schedule document.
func (s *Service) ExportDocument(ctx context.Context) (store.LoadedSchedule, error) {
	loaded, err := s.storage.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return store.LoadedSchedule{}, ErrNoSchedule
	}
	return loaded, err
}

// Status reports the engine state resolved against the current clock.
func (s *Service) Status(ctx context.Context) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := timetable.Resolve(s.schedule, s.now())
	st := Status{
		Version:          s.schedule.Version(),
		TeacherName:      s.schedule.TeacherName(),
		SchoolName:       s.schedule.SchoolName(),
		LessonCount:      s.schedule.Len(),
		Presence:         s.effectiveState(),
		ManualMode:       s.settings.ManualMode,
		SoundEnabled:     s.settings.SoundEnabled,
		Current:          res.Current,
		Next:             res.Next,
		RemainingMinutes: res.RemainingMinutes,
		ProgressPercent:  res.ProgressPercent,
		MinutesUntilNext: res.MinutesUntilNext,
	}
	if s.triggers != nil {
		st.ArmedTriggers = len(s.triggers.Armed())
	}
	return st
}

// Schedule returns the active schedule snapshot.
func (s *Service) Schedule() *timetable.Schedule {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

// HandleTrigger delivers a fired one-shot timer. It implements alarm.Handler.
func (s *Service) HandleTrigger(ctx context.Context, t trigger.Trigger) {
	logger := serviceLogger(ctx, s.logger, "trigger",
		"key", t.Key(), "boundary", t.Boundary.String())

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule.IsEmpty() {
		logger.Warn("dropping trigger with no active schedule")
		return
	}
	s.fireBoundary(ctx, logger, t.Boundary, t.Lesson)
}

// Reconcile re-arms triggers after a presence transition. It implements
// presence.Reconciler; the coordinator calls it with the new state.
func (s *Service) Reconcile(ctx context.Context, state presence.State) error {
	logger := serviceLogger(ctx, s.logger, "presence", "state", state.String())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return s.reconcileLocked(ctx, logger)
}

// Tick is the periodic self-heal pass. It picks up schedule replacements made
// by other processes, detects boundary crossings the timer facility may have
// missed, and re-converges the armed set. It implements monitor.Ticker.
//
// The whole pass runs under the service mutex so the presence state it
// reconciles against cannot go stale between the read and the re-arm.
func (s *Service) Tick(ctx context.Context) error {
	logger := serviceLogger(ctx, s.logger, "tick")

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.refreshFromStoreLocked(ctx, logger); err != nil {
		logger.Error("schedule refresh failed", "error_kind", ErrorKind(err), "error", err)
	}

	now := s.now()
	s.rollFiredDay(now)

	res := timetable.Resolve(s.schedule, now)
	if s.haveResolution && s.effectiveState() == presence.StateInside {
		prev := s.lastCurrent
		if prev != nil && (res.Current == nil || res.Current.Key() != prev.Key()) {
			s.fireBoundary(ctx, logger, trigger.BoundaryEnd, *prev)
		}
		if res.Current != nil && (prev == nil || res.Current.Key() != prev.Key()) {
			s.fireBoundary(ctx, logger, trigger.BoundaryStart, *res.Current)
		}
	}
	s.lastCurrent = res.Current
	s.haveResolution = true

	if err := s.reconcileLocked(ctx, logger); err != nil {
		logger.Error("trigger reconcile failed", "error_kind", ErrorKind(err), "error", err)
		return err
	}
	return nil
}

// refreshFromStoreLocked rebuilds the snapshot when another process has
// replaced the persisted schedule. Callers must hold s.mu.
func (s *Service) refreshFromStoreLocked(ctx context.Context, logger *slog.Logger) error {
	if s.storage == nil {
		return nil
	}
	version, err := s.storage.Version(ctx)
	if err != nil {
		return fmt.Errorf("read schedule version: %w", err)
	}
	if version == s.schedule.Version() {
		return nil
	}

	loaded, err := s.storage.Load(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load schedule: %w", err)
	}
	sched, err := timetable.NewSchedule(loaded.Document.LessonInputs(), timetable.BuildOptions{
		Version:     loaded.Version,
		TeacherName: loaded.Document.TeacherName,
		SchoolName:  loaded.Document.SchoolName,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("rebuild schedule: %w", err)
	}

	s.schedule = sched
	s.fired = make(map[int]struct{})
	s.lastCurrent = nil
	s.haveResolution = false
	logger.Info("schedule refreshed from store", "version", sched.Version(), "lessons", sched.Len())
	return nil
}

// effectiveState folds the location toggle into the presence state.
// Callers must hold s.mu.
func (s *Service) effectiveState() presence.State {
	if !s.settings.LocationEnabled {
		return presence.StateInside
	}
	return s.state
}

// fireBoundary delivers one boundary notification exactly once per day.
// Callers must hold s.mu.
func (s *Service) fireBoundary(ctx context.Context, logger *slog.Logger, b trigger.Boundary, lesson timetable.Lesson) {
	now := s.now()
	s.rollFiredDay(now)

	key := trigger.Trigger{Day: lesson.Day, Period: lesson.Period, Boundary: b}.Key()
	if _, done := s.fired[key]; done {
		logger.Debug("boundary already delivered", "key", key)
		return
	}
	s.fired[key] = struct{}{}

	if s.settings.ManualMode {
		logger.Info("boundary suppressed by manual mode",
			"key", key, "period", lesson.Period, "boundary", b.String())
		return
	}

	logger.Info("bell delivered",
		"key", key, "period", lesson.Period, "boundary", b.String(),
		"audible", s.settings.SoundEnabled)

	switch b {
	case trigger.BoundaryStart:
		s.notifier.LessonStarted(ctx, lesson)
	case trigger.BoundaryEnd:
		s.notifier.LessonEnded(ctx, lesson, timetable.Resolve(s.schedule, now).Next)
	}
}

// rollFiredDay clears the delivered set when the local date changes.
// Callers must hold s.mu.
func (s *Service) rollFiredDay(now time.Time) {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if !day.Equal(s.firedDay) {
		s.firedDay = day
		s.fired = make(map[int]struct{})
	}
}

// reconcileLocked converges the armed set with the schedule and presence
// state as they are right now. Callers must hold s.mu so a concurrent
// presence transition cannot slip between the state read and the re-arm.
func (s *Service) reconcileLocked(ctx context.Context, logger *slog.Logger) error {
	if s.triggers == nil {
		return nil
	}
	armed, err := s.triggers.Reconcile(ctx, s.schedule, s.effectiveState())
	if err != nil {
		return fmt.Errorf("reconcile triggers: %w", err)
	}
	logger.Info("triggers reconciled", "armed", len(armed))
	return nil
}

func (s *Service) reconcileTriggers(ctx context.Context, logger *slog.Logger) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.reconcileLocked(ctx, logger); err != nil {
		logger.Error("trigger reconcile failed", "error_kind", ErrorKind(err), "error", err)
	}
}
