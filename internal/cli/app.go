package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/offolaunch/launchtrack/db"
	"github.com/offolaunch/launchtrack/internal/auth"
	"github.com/offolaunch/launchtrack/internal/config"
	"github.com/offolaunch/launchtrack/internal/handlers"
	"github.com/offolaunch/launchtrack/internal/health"
	"github.com/offolaunch/launchtrack/internal/municipal"
	"github.com/offolaunch/launchtrack/internal/notify"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is the object graph shared by serve and the one-shot commands.
type app struct {
	cfg     *config.Config
	lg      *zap.SugaredLogger
	conn    *gorm.DB
	sqlDB   *sql.DB
	store   *store.Store
	metrics *health.Metrics
	times   *health.ResponseTimes
	errs    *health.ErrorRate
	hub     *realtime.Hub
	svc     *services.Services

	agencies *municipal.AgencyClient
}

func requireDatabase(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is not set")
	}
	return nil
}

func connect(cfg *config.Config, lg *zap.SugaredLogger) (*gorm.DB, *sql.DB, error) {
	if err := requireDatabase(cfg); err != nil {
		return nil, nil, err
	}

	conn, err := db.ConnectDatabase(cfg.DatabaseURL, lg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("database handle: %w", err)
	}
	return conn, sqlDB, nil
}

// newApp connects to the database and wires every service. withTokens is
// false for commands that never sign or verify bearer tokens.
func newApp(cfg *config.Config, lg *zap.SugaredLogger, withTokens bool) (*app, error) {
	conn, sqlDB, err := connect(cfg, lg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		lg:      lg,
		conn:    conn,
		sqlDB:   sqlDB,
		store:   store.New(conn),
		metrics: health.NewMetrics(),
		times:   health.NewResponseTimes(),
		errs:    health.NewErrorRate(nil),
	}

	var tokens *auth.Manager
	if withTokens {
		if tokens, err = auth.NewManager(cfg.JWTSecret, cfg.JWTTTL); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	a.agencies = municipal.NewAgencyClient(municipal.AgencyOptions{
		Agencies:      cfg.Agencies,
		RatePerSecond: cfg.ExternalRatePerSecond,
		Observe:       a.metrics.ObserveExternal,
	})

	directory, err := municipal.NewDirectory(municipal.DirectoryOptions{
		Settings:      cfg.CityTokens,
		RatePerSecond: cfg.ExternalRatePerSecond,
		Observe:       a.metrics.ObserveExternal,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	// The hub and the services need each other; the hub callbacks only run
	// once connections arrive, after svc is set.
	a.hub = realtime.NewHub(lg, realtime.HubOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		Authenticate: func(r *http.Request) (realtime.Identity, error) {
			return handlers.HubAuthenticator(a.svc.Users)(r)
		},
		CanJoin: func(ctx context.Context, userID, projectID string) error {
			return a.svc.Projects.CanJoin(ctx, userID, projectID)
		},
	})

	notifyOpts := notify.Options{Emitter: a.hub, ClientURL: cfg.ClientURL}
	if cfg.SMTP.Enabled() {
		sender, err := notify.NewSMTPSender(cfg.SMTP)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		notifyOpts.Email = sender
	} else {
		lg.Infow("email delivery disabled", "reason", "SMTP_HOST not set")
	}
	if cfg.Twilio.Enabled() {
		notifyOpts.SMS = notify.NewTwilioSender(cfg.Twilio)
	} else {
		lg.Infow("sms delivery disabled", "reason", "Twilio credentials not set")
	}

	a.svc = services.New(services.Deps{
		Store:           a.store,
		Logger:          lg,
		Tokens:          tokens,
		Hub:             a.hub,
		Notifier:        notify.New(a.store, lg, notifyOpts),
		Agencies:        a.agencies,
		Directory:       directory,
		SyncConcurrency: cfg.Scheduler.SyncConcurrency,
	})

	return a, nil
}

func (a *app) close() {
	a.hub.Close()
	if err := a.sqlDB.Close(); err != nil {
		a.lg.Warnw("close database", "err", err)
	}
}
