package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohhhamed/tebell/internal/bell"
	"github.com/mohhhamed/tebell/internal/presence"
	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/testfixtures"
	"github.com/mohhhamed/tebell/internal/timetable"
)

type fakeEngine struct {
	status    bell.Status
	sched     *timetable.Schedule
	imported  *store.Document
	importErr error
	exported  store.LoadedSchedule
	exportErr error
}

func (f *fakeEngine) Status(ctx context.Context) bell.Status { return f.status }

func (f *fakeEngine) ImportSchedule(ctx context.Context, doc store.Document) (*timetable.Schedule, error) {
	f.imported = &doc
	if f.importErr != nil {
		return nil, f.importErr
	}
	return f.sched, nil
}

func (f *fakeEngine) ExportDocument(ctx context.Context) (store.LoadedSchedule, error) {
	return f.exported, f.exportErr
}

type fakeCoordinator struct {
	state        presence.State
	transitioned bool
	observed     []presence.Event
}

func (f *fakeCoordinator) Observe(ctx context.Context, event presence.Event) bool {
	f.observed = append(f.observed, event)
	return f.transitioned
}

func (f *fakeCoordinator) State() presence.State { return f.state }

func newTestRouter(engine *fakeEngine, coordinator *fakeCoordinator) http.Handler {
	return NewRouter(RouterConfig{
		Status:   NewStatusHandler(engine, nil),
		Schedule: NewScheduleHandler(engine, nil),
		Presence: NewPresenceHandler(coordinator, testfixtures.NewClock(time.Time{}).NowFunc(), nil),
	})
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the engine snapshot", func(t *testing.T) {
		t.Parallel()
		current := timetable.Lesson{Day: time.Sunday, Period: 1, Start: 8 * 60, End: 8*60 + 40, ClassName: "5A"}
		engine := &fakeEngine{status: bell.Status{
			Version:          3,
			TeacherName:      "Mohammed",
			LessonCount:      3,
			Presence:         presence.StateInside,
			SoundEnabled:     true,
			ArmedTriggers:    2,
			Current:          &current,
			RemainingMinutes: 30,
			ProgressPercent:  25,
		}}
		router := newTestRouter(engine, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp statusResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Version != 3 || resp.Presence != "inside" || resp.ArmedTriggers != 2 {
			t.Fatalf("unexpected response %+v", resp)
		}
		if resp.Current == nil || resp.Current.StartTime != "08:00" || resp.Current.EndTime != "08:40" {
			t.Fatalf("unexpected current lesson %+v", resp.Current)
		}
	})

	t.Run("rejects non-GET methods", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&fakeEngine{}, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("expected 405, got %d", rec.Code)
		}
		if got := rec.Header().Get("Allow"); got != http.MethodGet {
			t.Fatalf("expected Allow header, got %q", got)
		}
	})
}

func TestScheduleImportEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("imports a valid document", func(t *testing.T) {
		t.Parallel()
		engine := &fakeEngine{sched: testfixtures.MustSchedule(t, 1)}
		router := newTestRouter(engine, &fakeCoordinator{})

		body, err := json.Marshal(testfixtures.SampleDocument())
		if err != nil {
			t.Fatalf("marshal document: %v", err)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader(string(body))))

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		var resp importResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Version != 1 || resp.LessonCount != 3 {
			t.Fatalf("unexpected response %+v", resp)
		}
		if engine.imported == nil || engine.imported.TeacherName != "Mohammed" {
			t.Fatalf("service did not receive the document")
		}
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&fakeEngine{}, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader("{not json")))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps overlap rejection to 422", func(t *testing.T) {
		t.Parallel()
		engine := &fakeEngine{importErr: timetable.ErrOverlappingLessons}
		router := newTestRouter(engine, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader("{}")))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})

	t.Run("surfaces field errors for invalid documents", func(t *testing.T) {
		t.Parallel()
		vErr := &bell.ValidationError{FieldErrors: map[string]string{"teacher_name": "teacher name is required"}}
		engine := &fakeEngine{importErr: vErr}
		router := newTestRouter(engine, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/schedule", strings.NewReader("{}")))

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Errors["teacher_name"] == "" {
			t.Fatalf("expected teacher_name field error, got %+v", resp)
		}
	})
}

func TestScheduleExportEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("returns the persisted document", func(t *testing.T) {
		t.Parallel()
		engine := &fakeEngine{exported: store.LoadedSchedule{
			Document:   testfixtures.SampleDocument(),
			Version:    2,
			ImportID:   "f2f5a9e6-3cb1-4a53-9a39-5a4f5f9f2d88",
			ImportedAt: testfixtures.ReferenceTime(),
		}}
		router := newTestRouter(engine, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp exportResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Version != 2 || resp.TeacherName != "Mohammed" || len(resp.Schedule) != 3 {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("maps a missing schedule to 404", func(t *testing.T) {
		t.Parallel()
		engine := &fakeEngine{exportErr: bell.ErrNoSchedule}
		router := newTestRouter(engine, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/schedule", nil))

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestPresenceEventsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("feeds an enter event into the coordinator", func(t *testing.T) {
		t.Parallel()
		coordinator := &fakeCoordinator{state: presence.StateInside, transitioned: true}
		router := newTestRouter(&fakeEngine{}, coordinator)

		body := `{"kind":"enter","distance_meters":12.5}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/presence/events", strings.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if len(coordinator.observed) != 1 {
			t.Fatalf("expected one observed event, got %d", len(coordinator.observed))
		}
		event := coordinator.observed[0]
		if event.Kind != presence.Enter || event.DistanceMeters != 12.5 {
			t.Fatalf("unexpected event %+v", event)
		}
		if event.At.IsZero() {
			t.Fatalf("expected event time to default to the clock")
		}
		var resp presenceEventResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.State != "inside" || !resp.Transitioned {
			t.Fatalf("unexpected response %+v", resp)
		}
	})

	t.Run("honours an explicit observation time", func(t *testing.T) {
		t.Parallel()
		coordinator := &fakeCoordinator{state: presence.StateOutside}
		router := newTestRouter(&fakeEngine{}, coordinator)

		body := `{"kind":"exit","observed_at":"2024-03-03T09:30:00Z"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/presence/events", strings.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		want := time.Date(2024, time.March, 3, 9, 30, 0, 0, time.UTC)
		if got := coordinator.observed[0].At; !got.Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})

	t.Run("rejects unknown event kinds", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&fakeEngine{}, &fakeCoordinator{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/presence/events", strings.NewReader(`{"kind":"wander"}`)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects malformed observation times", func(t *testing.T) {
		t.Parallel()
		router := newTestRouter(&fakeEngine{}, &fakeCoordinator{})

		body := `{"kind":"enter","observed_at":"yesterday"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/presence/events", strings.NewReader(body)))

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}
