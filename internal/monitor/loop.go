// Package monitor runs the periodic self-heal pass: a single goroutine that
// invokes the engine's Tick at a fixed interval. Ticks never overlap and a
// failing tick never stops the loop.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Ticker is the unit of work driven by the loop.
type Ticker interface {
	Tick(ctx context.Context) error
}

// Loop owns the polling goroutine. Start and Stop are safe to call from
// different goroutines; Stop blocks until the worker has exited.
type Loop struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewLoop wires a loop around the ticker. Intervals below one second are
// raised to the default thirty seconds.
func NewLoop(ticker Ticker, interval time.Duration, logger *slog.Logger) *Loop {
	if interval < time.Second {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		ticker:   ticker,
		interval: interval,
		logger:   logger.With("component", "monitor"),
	}
}

// Start launches the worker goroutine. The first tick runs immediately.
func (l *Loop) Start(ctx context.Context) error {
	if l == nil || l.ticker == nil {
		return fmt.Errorf("monitor: no ticker configured")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return fmt.Errorf("monitor: already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.run(runCtx, l.done)

	l.logger.Info("monitor started", "interval", l.interval)
	return nil
}

// Stop cancels the worker and waits for it to exit. Stopping a loop that was
// never started is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	cancel := l.cancel
	done := l.done
	l.cancel = nil
	l.done = nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	l.logger.Info("monitor stopped")
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	l.tickOnce(ctx)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tickOnce(ctx)
		}
	}
}

func (l *Loop) tickOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := l.ticker.Tick(ctx); err != nil {
		l.logger.Error("tick failed", "error", err)
	}
}
