package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mohhhamed/tebell/internal/alarm"
	"github.com/mohhhamed/tebell/internal/bell"
	httptransport "github.com/mohhhamed/tebell/internal/http"
	"github.com/mohhhamed/tebell/internal/monitor"
	"github.com/mohhhamed/tebell/internal/notify"
	"github.com/mohhhamed/tebell/internal/presence"
	"github.com/mohhhamed/tebell/internal/store"
	"github.com/mohhhamed/tebell/internal/trigger"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bell engine daemon",
		Long: "Runs the engine: restores the persisted schedule, arms lesson triggers,\n" +
			"polls for missed boundaries, and serves the HTTP API until interrupted.",
		Run: runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}

	storage, err := store.Open(cfg.SQLitePath)
	if err != nil {
		exitErr("open storage", err)
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	now := func() time.Time { return time.Now().In(cfg.Timezone) }
	notifier := notify.NewLogNotifier(logger, "", "")

	// The timer facility delivers into the service; the service arms timers
	// through the trigger scheduler. The closure breaks the construction cycle.
	var svc *bell.Service
	timers := alarm.NewTimers(alarm.HandlerFunc(func(ctx context.Context, t trigger.Trigger) {
		svc.HandleTrigger(ctx, t)
	}), now, logger)
	defer func() {
		if cerr := timers.Close(); cerr != nil {
			logger.Error("failed to close timer facility", "error", cerr)
		}
	}()

	triggers := trigger.NewScheduler(timers, now, logger)
	svc = bell.NewService(bell.Options{
		Store:    storage,
		Triggers: triggers,
		Notifier: notifier,
		Settings: bell.Settings{
			ManualMode:      cfg.ManualMode,
			SoundEnabled:    cfg.SoundEnabled,
			LocationEnabled: cfg.LocationEnabled,
		},
		Now:    now,
		Logger: logger,
	})
	coordinator := presence.NewCoordinator(svc, notifier, logger)

	if err := svc.LoadFromStore(ctx); err != nil {
		exitErr("restore schedule", err)
	}

	loop := monitor.NewLoop(svc, cfg.PollInterval, logger)
	if err := loop.Start(ctx); err != nil {
		exitErr("start monitor", err)
	}
	defer loop.Stop()
	defer triggers.DisarmAll(context.Background())

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Status:     httptransport.NewStatusHandler(svc, logger),
		Schedule:   httptransport.NewScheduleHandler(svc, logger),
		Presence:   httptransport.NewPresenceHandler(coordinator, now, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("bell engine listening", "addr", server.Addr, "geofence_radius_m", cfg.GeofenceRadiusM)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		exitErr("serve", err)
	}
}
