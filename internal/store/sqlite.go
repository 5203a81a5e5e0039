// Package store persists the weekly schedule in SQLite. The schedule is
// owned here; the engine receives immutable snapshots built from what Load
// returns and detects replacements by polling Version. In-process listeners
// may additionally register a Subscribe callback.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load when no schedule has ever been imported.
var ErrNotFound = errors.New("store: no schedule imported")

// Store is a SQLite-backed schedule repository. The whole schedule is
// replaced in one transaction on import; lesson rows are never edited in
// place.
type Store struct {
	db *sql.DB

	mu   sync.Mutex
	subs []func(version uint64)
}

// LoadedSchedule is the result of reading the persisted schedule.
type LoadedSchedule struct {
	Document   Document
	Version    uint64
	ImportID   string
	ImportedAt time.Time
}

// Open opens (creating if needed) the database at path and applies the
// schema. A ":memory:" path yields an ephemeral store for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	// modernc.org/sqlite serializes writes; one writer connection keeps
	// SQLITE_BUSY out of the import path.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teacher (
		id          INTEGER PRIMARY KEY CHECK (id = 1),
		name        TEXT NOT NULL,
		school_name TEXT
	);

	CREATE TABLE IF NOT EXISTS lessons (
		id           TEXT PRIMARY KEY,
		day          INTEGER NOT NULL,
		period       INTEGER NOT NULL,
		start_time   TEXT NOT NULL,
		end_time     TEXT NOT NULL,
		class_name   TEXT,
		subject_name TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_lessons_day ON lessons(day, start_time);

	CREATE TABLE IF NOT EXISTS schedule_meta (
		id          INTEGER PRIMARY KEY CHECK (id = 1),
		version     INTEGER NOT NULL,
		import_id   TEXT NOT NULL,
		imported_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe registers a callback invoked, with the new version, after every
// successful Replace. Callbacks run synchronously on the importing
// goroutine and must not call back into the store.
func (s *Store) Subscribe(fn func(version uint64)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Version reads the persisted schedule version without loading lessons.
// A database with no import yet reports version zero.
func (s *Store) Version(ctx context.Context) (uint64, error) {
	var version uint64
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM schedule_meta WHERE id = 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: load schedule version: %w", err)
	}
	return version, nil
}

// Load reads the persisted schedule. ErrNotFound distinguishes a fresh
// database from a read failure.
func (s *Store) Load(ctx context.Context) (LoadedSchedule, error) {
	var loaded LoadedSchedule
	var importedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT version, import_id, imported_at FROM schedule_meta WHERE id = 1`).
		Scan(&loaded.Version, &loaded.ImportID, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return LoadedSchedule{}, ErrNotFound
	}
	if err != nil {
		return LoadedSchedule{}, fmt.Errorf("store: load schedule meta: %w", err)
	}
	loaded.ImportedAt, _ = time.Parse(time.RFC3339, importedAt)

	var schoolName sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT name, school_name FROM teacher WHERE id = 1`).
		Scan(&loaded.Document.TeacherName, &schoolName)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return LoadedSchedule{}, fmt.Errorf("store: load teacher: %w", err)
	}
	if schoolName.Valid {
		loaded.Document.SchoolName = schoolName.String
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT day, period, start_time, end_time, class_name, subject_name
		 FROM lessons ORDER BY day, start_time, period`)
	if err != nil {
		return LoadedSchedule{}, fmt.Errorf("store: load lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day int
		var lesson DocumentLesson
		var className, subjectName sql.NullString
		if err := rows.Scan(&day, &lesson.Period, &lesson.StartTime, &lesson.EndTime, &className, &subjectName); err != nil {
			return LoadedSchedule{}, fmt.Errorf("store: scan lesson: %w", err)
		}
		lesson.Day = weekdayName(day)
		lesson.ClassName = className.String
		lesson.SubjectName = subjectName.String
		loaded.Document.Schedule = append(loaded.Document.Schedule, lesson)
	}
	if err := rows.Err(); err != nil {
		return LoadedSchedule{}, fmt.Errorf("store: iterate lessons: %w", err)
	}

	return loaded, nil
}

// Replace swaps the whole persisted schedule for doc in one transaction and
// bumps the version. Subscribers are notified after commit.
func (s *Store) Replace(ctx context.Context, doc Document) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin replace: %w", err)
	}
	defer tx.Rollback()

	var version uint64
	err = tx.QueryRowContext(ctx, `SELECT version FROM schedule_meta WHERE id = 1`).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("store: read version: %w", err)
	}
	version++

	if _, err := tx.ExecContext(ctx, `DELETE FROM lessons`); err != nil {
		return 0, fmt.Errorf("store: clear lessons: %w", err)
	}

	var schoolName *string
	if strings.TrimSpace(doc.SchoolName) != "" {
		schoolName = &doc.SchoolName
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO teacher (id, name, school_name) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, school_name = excluded.school_name`,
		doc.TeacherName, schoolName); err != nil {
		return 0, fmt.Errorf("store: upsert teacher: %w", err)
	}

	for _, lesson := range doc.Schedule {
		day, err := dayNumber(lesson.Day)
		if err != nil {
			// Unknown day labels are preserved semantics-free by the
			// timetable builder; the store simply cannot index them.
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lessons (id, day, period, start_time, end_time, class_name, subject_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), day, lesson.Period, lesson.StartTime, lesson.EndTime,
			nullable(lesson.ClassName), nullable(lesson.SubjectName)); err != nil {
			return 0, fmt.Errorf("store: insert lesson: %w", err)
		}
	}

	importID := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schedule_meta (id, version, import_id, imported_at) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET version = excluded.version,
			import_id = excluded.import_id, imported_at = excluded.imported_at`,
		version, importID, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return 0, fmt.Errorf("store: bump version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit replace: %w", err)
	}

	s.mu.Lock()
	subs := append([]func(uint64){}, s.subs...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(version)
	}

	return version, nil
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func weekdayName(day int) string {
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	if day < 0 || day >= len(names) {
		return fmt.Sprintf("%d", day)
	}
	return names[day]
}

func dayNumber(label string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "sunday", "0":
		return 0, nil
	case "monday", "1":
		return 1, nil
	case "tuesday", "2":
		return 2, nil
	case "wednesday", "3":
		return 3, nil
	case "thursday", "4":
		return 4, nil
	case "friday", "5":
		return 5, nil
	case "saturday", "6":
		return 6, nil
	}
	return 0, fmt.Errorf("store: unknown weekday %q", label)
}
