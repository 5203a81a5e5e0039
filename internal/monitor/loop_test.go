package monitor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type countingTicker struct {
	ticks atomic.Int64
	err   error
}

func (c *countingTicker) Tick(ctx context.Context) error {
	c.ticks.Add(1)
	return c.err
}

func waitForTicks(t *testing.T, ticker *countingTicker, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ticker.ticks.Load() >= want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected at least %d ticks, got %d", want, ticker.ticks.Load())
}

func TestLoopTicksImmediatelyAndPeriodically(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{}
	loop := &Loop{ticker: ticker, interval: 5 * time.Millisecond, logger: testLogger()}

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer loop.Stop()

	waitForTicks(t, ticker, 3)
}

func TestLoopStopsCleanly(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{}
	loop := &Loop{ticker: ticker, interval: 5 * time.Millisecond, logger: testLogger()}

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForTicks(t, ticker, 1)
	loop.Stop()

	settled := ticker.ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticker.ticks.Load(); got != settled {
		t.Fatalf("ticks continued after stop: %d then %d", settled, got)
	}

	// Stopping again is a no-op.
	loop.Stop()
}

func TestLoopSurvivesTickErrors(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{err: errors.New("boom")}
	loop := &Loop{ticker: ticker, interval: 5 * time.Millisecond, logger: testLogger()}

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer loop.Stop()

	waitForTicks(t, ticker, 3)
}

func TestLoopRejectsDoubleStart(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{}
	loop := NewLoop(ticker, time.Second, testLogger())

	if err := loop.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer loop.Stop()

	if err := loop.Start(context.Background()); err == nil {
		t.Fatalf("expected second start to fail")
	}
}

func TestNewLoopRaisesTinyIntervals(t *testing.T) {
	t.Parallel()
	loop := NewLoop(&countingTicker{}, time.Millisecond, testLogger())
	if loop.interval != 30*time.Second {
		t.Fatalf("expected default interval, got %v", loop.interval)
	}
}

func TestLoopRespectsContextCancellation(t *testing.T) {
	t.Parallel()
	ticker := &countingTicker{}
	loop := &Loop{ticker: ticker, interval: 5 * time.Millisecond, logger: testLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	if err := loop.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	waitForTicks(t, ticker, 1)
	cancel()

	time.Sleep(30 * time.Millisecond)
	settled := ticker.ticks.Load()
	time.Sleep(30 * time.Millisecond)
	if got := ticker.ticks.Load(); got != settled {
		t.Fatalf("ticks continued after cancellation: %d then %d", settled, got)
	}
	loop.Stop()
}
