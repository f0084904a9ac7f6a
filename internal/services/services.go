// Package services holds the operations behind the HTTP API, the
// scheduler and the CLI. Every permit status write goes through
// PermitService so the audit note, the broadcast and the fan-out
// happen the same way for people and for background jobs.
package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/auth"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/municipal"
	"github.com/offolaunch/launchtrack/internal/notify"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Broadcaster pushes an event to everyone viewing a project.
type Broadcaster interface {
	ToProject(projectID, event string, data any)
}

// Notifier fans domain events out to users.
type Notifier interface {
	PermitStatusChanged(ctx context.Context, project *models.Project, permit *models.Permit, oldStatus, newStatus string) notify.Report
	InspectionScheduled(ctx context.Context, project *models.Project, permit *models.Permit, inspection *models.Inspection) notify.Report
	InspectionReminder(ctx context.Context, inspection *models.Inspection) notify.Report
}

type Deps struct {
	Store     *store.Store
	Logger    *zap.SugaredLogger
	Tokens    *auth.Manager
	Hub       Broadcaster
	Notifier  Notifier
	Agencies  *municipal.AgencyClient
	Directory *municipal.Directory
	Now       func() time.Time

	// SyncConcurrency caps parallel permit syncs in one pass; 0 means unbounded.
	SyncConcurrency int
}

type Services struct {
	Users         *UserService
	Projects      *ProjectService
	Permits       *PermitService
	Inspections   *InspectionService
	Sync          *SyncService
	Notifications *NotificationService
	Integrations  *IntegrationService
}

func New(d Deps) *Services {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Hub == nil {
		d.Hub = nopBroadcaster{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Agencies == nil {
		d.Agencies = municipal.NewAgencyClient(municipal.AgencyOptions{})
	}

	now := func() time.Time { return d.Now().UTC() }

	projects := &ProjectService{store: d.Store, hub: d.Hub, now: now, lg: d.Logger}
	permits := &PermitService{
		store:    d.Store,
		projects: projects,
		hub:      d.Hub,
		notifier: d.Notifier,
		now:      now,
		lg:       d.Logger,
	}
	syncer := &SyncService{
		store:       d.Store,
		permits:     permits,
		projects:    projects,
		agencies:    d.Agencies,
		directory:   d.Directory,
		hub:         d.Hub,
		concurrency: d.SyncConcurrency,
		now:         now,
		lg:          d.Logger,
	}
	permits.sync = syncer

	return &Services{
		Users:    &UserService{store: d.Store, tokens: d.Tokens, now: now, lg: d.Logger},
		Projects: projects,
		Permits:  permits,
		Inspections: &InspectionService{
			store:    d.Store,
			projects: projects,
			hub:      d.Hub,
			notifier: d.Notifier,
			now:      now,
			lg:       d.Logger,
		},
		Sync:          syncer,
		Notifications: &NotificationService{store: d.Store, now: now},
		Integrations:  &IntegrationService{directory: d.Directory},
	}
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToProject(string, string, any) {}

type nopNotifier struct{}

func (nopNotifier) PermitStatusChanged(context.Context, *models.Project, *models.Permit, string, string) notify.Report {
	return notify.Report{}
}

func (nopNotifier) InspectionScheduled(context.Context, *models.Project, *models.Permit, *models.Inspection) notify.Report {
	return notify.Report{}
}

func (nopNotifier) InspectionReminder(context.Context, *models.Inspection) notify.Report {
	return notify.Report{}
}

func checkEnum(field, value string, allowed []string) error {
	if value == "" {
		return nil
	}
	for _, v := range allowed {
		if v == value {
			return nil
		}
	}
	return apperr.InvalidEnum(field, value, allowed)
}

func marshalJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
