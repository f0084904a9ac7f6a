package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/db"
	"github.com/offolaunch/launchtrack/internal/handlers"
	"github.com/offolaunch/launchtrack/internal/health"
	"github.com/offolaunch/launchtrack/internal/router"
	"github.com/offolaunch/launchtrack/internal/scheduler"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

type ServeOptions struct {
	*RootOptions
	Migrate     bool
	NoScheduler bool
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the websocket hub and the background jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Migrate, "migrate", true, "migrate the schema before serving")
	cmd.Flags().BoolVar(&opts.NoScheduler, "no-scheduler", false, "do not run the background jobs")

	return cmd
}

func runServe(ctx context.Context, opts *ServeOptions) error {
	cfg, lg := opts.Config, opts.Logger

	if err := cfg.RequireServer(); err != nil {
		return err
	}

	a, err := newApp(cfg, lg, true)
	if err != nil {
		return err
	}
	defer a.close()

	if opts.Migrate {
		if err := db.MigrateDatabase(a.conn); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	sched := scheduler.New(lg, scheduler.Options{
		RunOnStart: cfg.Scheduler.RunInitialChecks,
		Observe:    a.metrics.ObserveJob,
	})
	if err := scheduler.NewTasks(a.svc, lg).Register(sched, cfg.Scheduler); err != nil {
		return err
	}

	reporter := health.NewReporter(health.ReporterOptions{
		DB:        a.sqlDB,
		Realtime:  a.hub,
		Scheduler: sched,
		Limits:    a.agencies,
		Errors:    a.errs,
		Version:   Version,
	})

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := router.NewRouter(router.Deps{
		Handler:        handlers.New(a.svc, lg, handlers.Options{Reporter: reporter, Times: a.times}),
		Users:          a.svc.Users,
		Hub:            a.hub,
		Metrics:        a.metrics,
		Times:          a.times,
		Errors:         a.errs,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         lg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if !opts.NoScheduler {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	serveErr := make(chan error, 1)
	go func() {
		lg.Infow("server listening", "port", cfg.Port, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		lg.Infow("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
