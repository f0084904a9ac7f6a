package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/auth"
	"github.com/offolaunch/launchtrack/internal/config"
	"github.com/offolaunch/launchtrack/internal/logger"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/municipal"
	"github.com/offolaunch/launchtrack/internal/notify"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/store"
	"github.com/offolaunch/launchtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type event struct {
	projectID string
	name      string
	data      any
}

type recorder struct {
	mu     sync.Mutex
	events []event

	statusChanges []string
	scheduled     int
	reminded      []string
}

func (r *recorder) ToProject(projectID, name string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event{projectID: projectID, name: name, data: data})
}

func (r *recorder) named(name string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) PermitStatusChanged(_ context.Context, _ *models.Project, p *models.Permit, oldStatus, newStatus string) notify.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusChanges = append(r.statusChanges, p.ID+":"+oldStatus+"->"+newStatus)
	return notify.Report{}
}

func (r *recorder) InspectionScheduled(context.Context, *models.Project, *models.Permit, *models.Inspection) notify.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduled++
	return notify.Report{}
}

func (r *recorder) InspectionReminder(_ context.Context, i *models.Inspection) notify.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reminded = append(r.reminded, i.ID)
	return notify.Report{}
}

type fixture struct {
	conn  *gorm.DB
	store *store.Store
	svc   *Services
	rec   *recorder
	clock *testutil.Clock
}

type fixtureOption func(*Deps)

func withAgency(url string, timeouts municipal.Timeouts) fixtureOption {
	return func(d *Deps) {
		d.Agencies = municipal.NewAgencyClient(municipal.AgencyOptions{
			Agencies: map[string]config.AgencyConfig{"health": {BaseURL: url, APIKey: "secret"}},
			Timeouts: timeouts,
		})
	}
}

func withDirectory(t *testing.T, opts municipal.DirectoryOptions) fixtureOption {
	return func(d *Deps) {
		dir, err := municipal.NewDirectory(opts)
		require.NoError(t, err)
		d.Directory = dir
	}
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	conn := testutil.NewDB(t)
	s := store.New(conn)
	rec := &recorder{}
	clock := testutil.NewClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	deps := Deps{
		Store:    s,
		Logger:   logger.Nop(),
		Hub:      rec,
		Notifier: rec,
		Now:      clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	return &fixture{conn: conn, store: s, svc: New(deps), rec: rec, clock: clock}
}

func agencyServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/permits"
}

func underReview(externalID string) func(*models.Permit) {
	return func(p *models.Permit) {
		p.Status = models.PermitUnderReview
		p.Jurisdiction.ExternalID = externalID
	}
}

func TestSyncPermit_ApprovedByAgency(t *testing.T) {
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/permits/HP-1001", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"approved","approval_date":"2025-12-01"}`)
	})
	f := newFixture(t, withAgency(url, municipal.Timeouts{}))

	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, underReview("HP-1001"))

	_, err := f.svc.Sync.SyncPermit(context.Background(), permit.ID)
	require.NoError(t, err)

	got, err := f.store.Permits.FindByID(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitApproved, got.Status)
	require.NotNil(t, got.Timeline.ActualApprovalDate)
	assert.True(t, got.Timeline.ActualApprovalDate.Equal(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, models.SyncSuccess, got.AutomatedTracking.SyncStatus)
	assert.Equal(t, "approved", got.AutomatedTracking.ExternalStatus)
	require.NotNil(t, got.AutomatedTracking.LastSynced)

	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Status changed from under_review to approved", got.Notes[0].Text)
	assert.Equal(t, "system:sync", got.Notes[0].CreatedBy)

	changed := f.rec.named(realtime.EventPermitStatusChanged)
	require.Len(t, changed, 1)
	change, ok := changed[0].data.(StatusChange)
	require.True(t, ok)
	assert.True(t, change.Automated)
	assert.Equal(t, "system:sync", change.ChangedBy)
	assert.Equal(t, []string{permit.ID + ":under_review->approved"}, f.rec.statusChanges)
}

func TestSyncPermit_TimeoutLeavesStatusAndRecordsFailure(t *testing.T) {
	release := make(chan struct{})
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	f := newFixture(t, withAgency(url, municipal.Timeouts{Fetch: 50 * time.Millisecond, Submit: time.Second, Schedule: time.Second, Upload: time.Second}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, underReview("HP-1001"))

	_, err := f.svc.Sync.SyncPermit(context.Background(), permit.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsDependency(err))

	got, err := f.store.Permits.FindByID(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitUnderReview, got.Status)
	assert.Equal(t, models.SyncFailed, got.AutomatedTracking.SyncStatus)
	assert.Contains(t, string(got.AutomatedTracking.Data), "timeout")
	assert.Empty(t, got.Notes)
	assert.Empty(t, f.rec.statusChanges)
}

func TestSyncPermit_CancelledCallerStillRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, underReview("HP-1001"))

	_, err := f.svc.Sync.SyncPermit(ctx, permit.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsDependency(err))
	assert.NotContains(t, err.Error(), "database error")

	got, err := f.store.Permits.FindByID(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitUnderReview, got.Status)
	assert.Equal(t, models.SyncFailed, got.AutomatedTracking.SyncStatus)
	assert.Contains(t, string(got.AutomatedTracking.Data), "error")
}

func TestSubmitPermit_CancelledCallerStillRecordsFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		cancel()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)

	_, err := f.svc.Sync.SubmitPermit(ctx, owner, permit.ID)
	require.Error(t, err)

	got, err := f.store.Permits.FindByID(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitDraft, got.Status)
	assert.Equal(t, models.SyncFailed, got.AutomatedTracking.SyncStatus)
}

func TestSyncPermit_SameStatusWritesNoNote(t *testing.T) {
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"IN_REVIEW"}`)
	})
	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, underReview("HP-7"))

	got, err := f.svc.Sync.SyncPermit(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitUnderReview, got.Status)
	assert.Equal(t, "IN_REVIEW", got.AutomatedTracking.ExternalStatus)
	assert.Empty(t, got.Notes)
	assert.Empty(t, f.rec.named(realtime.EventPermitStatusChanged))
	assert.Len(t, f.rec.named(realtime.EventPermitUpdated), 1)
}

func TestSyncPermit_FallsBackToCityDirectory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FP-9", r.URL.Query().Get("permit_number"))
		_, _ = io.WriteString(w, `[{"permit_number":"FP-9","status":"Denied"}]`)
	}))
	defer srv.Close()

	f := newFixture(t, withDirectory(t, municipal.DirectoryOptions{BaseURLs: map[string]string{"san-francisco": srv.URL}}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) {
		p.Type = "fire"
		p.Status = models.PermitSubmitted
		p.Jurisdiction.ExternalID = "FP-9"
	})

	got, err := f.svc.Sync.SyncPermit(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitRejected, got.Status)
	assert.Equal(t, "Denied", got.AutomatedTracking.ExternalStatus)
}

func TestSyncPermit_UnsupportedCityFails(t *testing.T) {
	f := newFixture(t, withDirectory(t, municipal.DirectoryOptions{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	project.Location = models.Location{City: "Atlanta", State: "GA", Country: "US"}
	require.NoError(t, f.store.Projects.Save(context.Background(), project))
	permit := testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) {
		p.Type = "fire"
		p.Status = models.PermitSubmitted
		p.Jurisdiction.ExternalID = "X-1"
	})

	_, err := f.svc.Sync.SyncPermit(context.Background(), permit.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsDependency(err))

	got, err := f.store.Permits.FindByID(context.Background(), permit.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitSubmitted, got.Status)
	assert.Equal(t, models.SyncFailed, got.AutomatedTracking.SyncStatus)
	assert.Contains(t, string(got.AutomatedTracking.Data), "not supported")
}

func TestSyncPermitFor_RequiresExternalID(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)

	_, err := f.svc.Sync.SyncPermitFor(context.Background(), owner, permit.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestSyncAll_SettlesEveryPermit(t *testing.T) {
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/BAD") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"status":"approved"}`)
	})
	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	f.svc.Sync.concurrency = 2

	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	good1 := testutil.CreatePermit(t, f.conn, project, underReview("G-1"))
	good2 := testutil.CreatePermit(t, f.conn, project, underReview("G-2"))
	bad := testutil.CreatePermit(t, f.conn, project, underReview("BAD"))
	testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) { p.Jurisdiction.ExternalID = "DRAFT" })

	summary, err := f.svc.Sync.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, bad.ID, summary.Errors[0].PermitID)

	for _, id := range []string{good1.ID, good2.ID} {
		got, err := f.store.Permits.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.PermitApproved, got.Status)
	}
	got, err := f.store.Permits.FindByID(context.Background(), bad.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitUnderReview, got.Status)
	assert.Equal(t, models.SyncFailed, got.AutomatedTracking.SyncStatus)
}

func TestSubmitPermit_StoresExternalIDAndTransitions(t *testing.T) {
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = io.WriteString(w, `{"permit_id":"HP-2002","status":"received"}`)
	})
	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)

	got, err := f.svc.Sync.SubmitPermit(context.Background(), owner, permit.ID)
	require.NoError(t, err)
	assert.Equal(t, "HP-2002", got.Jurisdiction.ExternalID)
	assert.Equal(t, models.PermitSubmitted, got.Status)
	require.NotNil(t, got.Timeline.SubmissionDate)
	assert.Equal(t, owner.ID, got.Notes[0].CreatedBy)
}

func TestScheduleInspection_RecordsAgencyReference(t *testing.T) {
	url := agencyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/permits/HP-1001/inspections", r.URL.Path)
		_, _ = io.WriteString(w, `{"inspection_id":"INS-77","status":"booked"}`)
	})
	f := newFixture(t, withAgency(url, municipal.Timeouts{}))
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, underReview("HP-1001"))
	inspection := testutil.CreateInspection(t, f.conn, permit, nil)

	got, err := f.svc.Sync.ScheduleInspection(context.Background(), owner, inspection.ID)
	require.NoError(t, err)
	assert.Equal(t, "INS-77", got.Inspector.ExternalID)
	assert.Len(t, f.rec.named(realtime.EventInspectionUpdated), 1)

	bare := testutil.CreatePermit(t, f.conn, project, nil)
	other := testutil.CreateInspection(t, f.conn, bare, nil)
	_, err = f.svc.Sync.ScheduleInspection(context.Background(), owner, other.ID)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSetStatus_SubmissionDateIsSetOnce(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)
	ctx := context.Background()

	first, err := f.svc.Permits.SetStatus(ctx, owner, permit.ID, models.PermitSubmitted)
	require.NoError(t, err)
	stamped := *first.Timeline.SubmissionDate

	f.clock.Advance(time.Hour)
	second, err := f.svc.Permits.SetStatus(ctx, owner, permit.ID, models.PermitSubmitted)
	require.NoError(t, err)
	assert.True(t, second.Timeline.SubmissionDate.Equal(stamped))
	require.Len(t, second.Notes, 2)
	assert.Equal(t, "Status changed from submitted to submitted", second.Notes[1].Text)

	_, err = f.svc.Permits.SetStatus(ctx, owner, permit.ID, "lost")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindValidation, appErr.Kind)
	assert.Contains(t, appErr.Fields[0].Message, "renewal_required")
}

func TestFlagExpiring_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)

	soon := f.clock.Now().Add(10 * 24 * time.Hour)
	later := f.clock.Now().Add(60 * 24 * time.Hour)
	expiring := testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Timeline.ExpiryDate = &soon
	})
	distant := testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Timeline.ExpiryDate = &later
	})
	ctx := context.Background()

	flagged, err := f.svc.Permits.FlagExpiring(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, flagged)

	first, err := f.store.Permits.FindByID(ctx, expiring.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitRenewalRequired, first.Status)
	require.Len(t, first.Notes, 1)
	assert.Equal(t, "system:expiry", first.Notes[0].CreatedBy)

	f.clock.Advance(24 * time.Hour)
	flagged, err = f.svc.Permits.FlagExpiring(ctx)
	require.NoError(t, err)
	assert.Zero(t, flagged)

	second, err := f.store.Permits.FindByID(ctx, expiring.ID)
	require.NoError(t, err)
	assert.Len(t, second.Notes, 1)
	assert.True(t, second.UpdatedAt.Equal(first.UpdatedAt))
	assert.Equal(t, first.Timeline, second.Timeline)

	untouched, err := f.store.Permits.FindByID(ctx, distant.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PermitApproved, untouched.Status)
}

func TestSendReminders_NotifiesOnce(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)
	now := f.clock.Now()

	inWindow := testutil.CreateInspection(t, f.conn, permit, func(i *models.Inspection) {
		i.ScheduledDate = now.Add(30 * time.Hour)
		i.Attendees = append(i.Attendees, models.Attendee{UserID: owner.ID, Role: "manager"})
	})
	testutil.CreateInspection(t, f.conn, permit, func(i *models.Inspection) { i.ScheduledDate = now.Add(10 * time.Hour) })
	testutil.CreateInspection(t, f.conn, permit, func(i *models.Inspection) { i.ScheduledDate = now.Add(72 * time.Hour) })

	sent, err := f.svc.Inspections.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{inWindow.ID}, f.rec.reminded)

	sent, err = f.svc.Inspections.SendReminders(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sent)

	got, err := f.store.Inspections.FindByID(context.Background(), inWindow.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ReminderSentAt)
}

func TestAccess_OutsidersAreForbiddenAdminsAreNot(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	outsider := testutil.CreateUser(t, f.conn, "outsider")
	admin := testutil.CreateUser(t, f.conn, "admin", testutil.WithRole(models.RoleAdmin))
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)
	ctx := context.Background()

	_, err := f.svc.Permits.Get(ctx, outsider, permit.ID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Permits.Get(ctx, admin, permit.ID)
	assert.NoError(t, err)

	_, err = f.svc.Permits.Get(ctx, owner, "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperr.IsNotFound(err))

	assert.NoError(t, f.svc.Projects.CanJoin(ctx, owner.ID, project.ID))
	assert.Error(t, f.svc.Projects.CanJoin(ctx, outsider.ID, project.ID))
}

func TestDeletePermit_AnnouncesCascade(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)
	testutil.CreateInspection(t, f.conn, permit, nil)
	testutil.CreateInspection(t, f.conn, permit, nil)

	require.NoError(t, f.svc.Permits.Delete(context.Background(), owner, permit.ID))

	assert.Len(t, f.rec.named(realtime.EventInspectionDeleted), 2)
	deleted := f.rec.named(realtime.EventPermitDeleted)
	require.Len(t, deleted, 1)
	assert.Equal(t, project.ID, deleted[0].projectID)
}

func TestProjectDetail_Stats(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	past := f.clock.Now().Add(-24 * time.Hour)

	testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) { p.Status = models.PermitApproved })
	testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) {
		p.Priority = "critical"
		p.Status = models.PermitUnderReview
		p.Timeline.EstimatedApprovalDate = &past
	})
	testutil.CreatePermit(t, f.conn, project, func(p *models.Permit) { p.Status = models.PermitRejected })

	detail, err := f.svc.Projects.Get(context.Background(), owner, project.ID)
	require.NoError(t, err)
	assert.Equal(t, ProjectStats{TotalPermits: 3, Approved: 1, Pending: 1, Critical: 1, Overdue: 1}, detail.Stats)
	assert.Equal(t, "critical", detail.Permits[0].Priority)
}

func TestInspections_FindingsAndStatus(t *testing.T) {
	f := newFixture(t)
	owner := testutil.CreateUser(t, f.conn, "owner")
	project := testutil.CreateProject(t, f.conn, owner)
	permit := testutil.CreatePermit(t, f.conn, project, nil)
	ctx := context.Background()

	inspection, err := f.svc.Inspections.Create(ctx, owner, CreateInspectionInput{
		PermitID:      permit.ID,
		Type:          "fire safety",
		ScheduledDate: f.clock.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, project.ID, inspection.ProjectID)
	assert.Equal(t, 1, f.rec.scheduled)

	withFinding, err := f.svc.Inspections.AddFinding(ctx, owner, inspection.ID, FindingInput{Description: "blocked exit", Severity: "critical"})
	require.NoError(t, err)
	assert.Len(t, f.rec.named(realtime.EventInspectionCriticalFinding), 1)

	findingID := withFinding.Findings[0].ID
	updated, err := f.svc.Inspections.UpdateFinding(ctx, owner, inspection.ID, findingID, FindingUpdate{Status: "resolved", CorrectiveAction: "cleared"})
	require.NoError(t, err)
	assert.Equal(t, "resolved", updated.Findings[0].Status)

	_, err = f.svc.Inspections.UpdateFinding(ctx, owner, inspection.ID, "missing", FindingUpdate{Status: "resolved"})
	assert.True(t, apperr.IsNotFound(err))

	passed, err := f.svc.Inspections.SetStatus(ctx, owner, inspection.ID, models.InspectionPassed)
	require.NoError(t, err)
	require.NotNil(t, passed.ActualDate)
	stamped := *passed.ActualDate

	f.clock.Advance(time.Hour)
	failed, err := f.svc.Inspections.SetStatus(ctx, owner, inspection.ID, models.InspectionFailed)
	require.NoError(t, err)
	assert.True(t, failed.ActualDate.Equal(stamped))

	_, err = f.svc.Inspections.SaveChecklistItem(ctx, owner, inspection.ID, ChecklistInput{Item: "Extinguisher", Status: "pass"})
	require.NoError(t, err)
	withItems, err := f.svc.Inspections.SaveChecklistItem(ctx, owner, inspection.ID, ChecklistInput{Item: "extinguisher", Status: "fail"})
	require.NoError(t, err)
	require.Len(t, withItems.Checklist, 1)
	assert.Equal(t, "fail", withItems.Checklist[0].Status)
}

func TestUsers_RegisterLoginAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens := mustTokens(t)
	f.svc.Users.tokens = tokens

	session, err := f.svc.Users.Register(ctx, RegisterInput{Name: "Dana", Email: "Dana@Example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "dana@example.com", session.User.Email)
	assert.True(t, session.User.Preferences.EmailNotifications)

	_, err = f.svc.Users.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: "hunter22"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = f.svc.Users.Register(ctx, RegisterInput{Name: "Eve", Email: "eve@example.com", Password: "hunter22", Role: models.RoleAdmin})
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.Users.Login(ctx, LoginInput{Email: "dana@example.com", Password: "wrong"})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	login, err := f.svc.Users.Login(ctx, LoginInput{Email: "dana@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.NotNil(t, login.User.LastLogin)

	user, err := f.svc.Users.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, user.ID)

	user.IsActive = false
	require.NoError(t, f.store.Users.Save(ctx, user))
	_, err = f.svc.Users.Authenticate(ctx, login.Token)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
	_, err = f.svc.Users.Login(ctx, LoginInput{Email: "dana@example.com", Password: "hunter22"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func mustTokens(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	return m
}
