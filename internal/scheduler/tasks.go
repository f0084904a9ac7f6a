package scheduler

import (
	"context"

	"github.com/offolaunch/launchtrack/internal/config"
	"github.com/offolaunch/launchtrack/internal/services"
	"go.uber.org/zap"
)

const (
	JobSyncPermits         = "sync-permits"
	JobFlagExpiringPermits = "flag-expiring-permits"
	JobRemindInspections   = "remind-upcoming-inspections"
)

// Tasks are the background passes run against the services layer.
type Tasks struct {
	svc *services.Services
	lg  *zap.SugaredLogger
}

func NewTasks(svc *services.Services, lg *zap.SugaredLogger) *Tasks {
	return &Tasks{svc: svc, lg: lg}
}

// SyncPermits runs one sync pass. Individual permit failures are part of
// the summary, not an error.
func (t *Tasks) SyncPermits(ctx context.Context) error {
	summary, err := t.svc.Sync.SyncAll(ctx)
	if err != nil {
		return err
	}
	for _, e := range summary.Errors {
		t.lg.Warnw("permit not synced", "permit_id", e.PermitID, "err", e.Error)
	}
	return nil
}

func (t *Tasks) FlagExpiringPermits(ctx context.Context) error {
	_, err := t.svc.Permits.FlagExpiring(ctx)
	return err
}

func (t *Tasks) RemindUpcomingInspections(ctx context.Context) error {
	_, err := t.svc.Inspections.SendReminders(ctx)
	return err
}

// Jobs pairs each task with its configured interval. A full permit sync
// is not part of the startup checks; it waits for its first tick.
func (t *Tasks) Jobs(cfg config.SchedulerConfig) []Job {
	return []Job{
		{Name: JobSyncPermits, Interval: cfg.PermitSyncInterval, Run: t.SyncPermits, SkipInitialRun: true},
		{Name: JobRemindInspections, Interval: cfg.InspectionCheckInterval, Run: t.RemindUpcomingInspections},
		{Name: JobFlagExpiringPermits, Interval: cfg.ExpiryCheckInterval, Run: t.FlagExpiringPermits},
	}
}

// Register adds every task to s.
func (t *Tasks) Register(s *Scheduler, cfg config.SchedulerConfig) error {
	for _, job := range t.Jobs(cfg) {
		if err := s.Add(job); err != nil {
			return err
		}
	}
	return nil
}
