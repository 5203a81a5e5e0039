package http

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohhhamed/tebell/internal/logging"
)

func TestRequestLoggerTagsRequests(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	var sawContextLogger bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawContextLogger = logging.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})

	handler := RequestLogger(base)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected handler to run, got %d", rec.Code)
	}
	if !sawContextLogger {
		t.Fatalf("expected logger in request context")
	}
	logged := buf.String()
	for _, want := range []string{"request started", "request completed", "request_id", `"path":"/status"`} {
		if !bytes.Contains([]byte(logged), []byte(want)) {
			t.Fatalf("log output missing %q: %s", want, logged)
		}
	}
}

func TestRouterAppliesMiddlewareInOrder(t *testing.T) {
	t.Parallel()

	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	router := NewRouter(RouterConfig{
		Status:     NewStatusHandler(&fakeEngine{}, nil),
		Middleware: []func(http.Handler) http.Handler{tag("outer"), tag("inner")},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Fatalf("unexpected middleware order %v", order)
	}
}
