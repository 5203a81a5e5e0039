package bell

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mohhhamed/tebell/internal/logging"
	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/timetable"
	"github.com/mohhhamed/tebell/internal/trigger"
)

func serviceLogger(ctx context.Context, base *slog.Logger, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", "bell"}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrNoSchedule), errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, timetable.ErrOverlappingLessons):
		return "overlapping_lessons"
	case errors.Is(err, trigger.ErrStaleSchedule):
		return "stale_schedule"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
