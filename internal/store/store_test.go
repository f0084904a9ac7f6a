package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/store"
	"github.com/offolaunch/launchtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers_DuplicateEmailIsConflict(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	u := &models.User{Email: "Dup@Example.com", PasswordHash: "x", Name: "A", Role: models.RoleViewer, IsActive: true}
	require.NoError(t, s.Users.Create(ctx, u))
	assert.Equal(t, "dup@example.com", u.Email)

	again := &models.User{Email: "dup@example.com", PasswordHash: "x", Name: "B", Role: models.RoleViewer, IsActive: true}
	err := s.Users.Create(ctx, again)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	found, err := s.Users.FindByEmail(ctx, " DUP@example.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
}

func TestUsers_ExplicitFalsePreferenceSurvivesInsert(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	u := testutil.CreateUser(t, conn, "quiet", testutil.WithPreferences(models.NotificationPreferences{EmailNotifications: false}))

	found, err := s.Users.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.False(t, found.Preferences.EmailNotifications)
	assert.False(t, found.Preferences.SMSNotifications)
	assert.True(t, found.IsActive)
}

func TestProjects_ListForUserIncludesTeamProjects(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	owner := testutil.CreateUser(t, conn, "owner")
	member := testutil.CreateUser(t, conn, "member")
	stranger := testutil.CreateUser(t, conn, "stranger")
	p := testutil.CreateProject(t, conn, owner, member)

	for _, u := range []*models.User{owner, member} {
		projects, err := s.Projects.ListForUser(ctx, u.ID)
		require.NoError(t, err)
		require.Len(t, projects, 1)
		assert.Equal(t, p.ID, projects[0].ID)
		require.NotNil(t, projects[0].Owner)
		assert.Equal(t, owner.ID, projects[0].Owner.ID)
		require.Len(t, projects[0].Team, 1)
	}

	ids, err := s.Projects.IDsForUser(ctx, stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProjects_AddMemberTwiceIsConflict(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	owner := testutil.CreateUser(t, conn, "owner")
	member := testutil.CreateUser(t, conn, "member")
	p := testutil.CreateProject(t, conn, owner, member)

	err := s.Projects.AddMember(ctx, &models.ProjectMember{ProjectID: p.ID, UserID: member.ID, Role: "member"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestPermits_DeleteCascadesToInspections(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	owner := testutil.CreateUser(t, conn, "owner")
	project := testutil.CreateProject(t, conn, owner)
	permit := testutil.CreatePermit(t, conn, project, nil)
	other := testutil.CreatePermit(t, conn, project, nil)
	testutil.CreateInspection(t, conn, permit, nil)
	testutil.CreateInspection(t, conn, permit, nil)
	kept := testutil.CreateInspection(t, conn, other, nil)

	deleted, removed, err := s.Permits.Delete(ctx, permit.ID)
	require.NoError(t, err)
	assert.Equal(t, permit.ID, deleted.ID)
	assert.Len(t, removed, 2)

	remaining, err := s.Inspections.ListByPermit(ctx, permit.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = s.Inspections.FindByID(ctx, kept.ID)
	assert.NoError(t, err)

	_, _, err = s.Permits.Delete(ctx, permit.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestPermits_FindSyncEligible(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	owner := testutil.CreateUser(t, conn, "owner")
	project := testutil.CreateProject(t, conn, owner)
	eligible := testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitUnderReview
		p.Jurisdiction.ExternalID = "HP-1001"
	})
	testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitSubmitted
	})
	testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Jurisdiction.ExternalID = "HP-1002"
	})

	permits, err := s.Permits.FindSyncEligible(context.Background())
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, eligible.ID, permits[0].ID)
}

func TestPermits_FindExpiring(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in10 := now.Add(10 * 24 * time.Hour)
	in40 := now.Add(40 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	owner := testutil.CreateUser(t, conn, "owner")
	project := testutil.CreateProject(t, conn, owner)
	soon := testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Timeline.ExpiryDate = &in10
	})
	testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Timeline.ExpiryDate = &in40
	})
	testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitApproved
		p.Timeline.ExpiryDate = &past
	})
	testutil.CreatePermit(t, conn, project, func(p *models.Permit) {
		p.Status = models.PermitRejected
		p.Timeline.ExpiryDate = &in10
	})

	permits, err := s.Permits.FindExpiring(context.Background(), now, now.Add(30*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, permits, 1)
	assert.Equal(t, soon.ID, permits[0].ID)
}

func TestPermits_ListByProjectsOrdersByPriority(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	owner := testutil.CreateUser(t, conn, "owner")
	project := testutil.CreateProject(t, conn, owner)
	for _, prio := range []string{"low", "critical", "medium", "high"} {
		prio := prio
		testutil.CreatePermit(t, conn, project, func(p *models.Permit) { p.Priority = prio })
	}

	permits, err := s.Permits.ListByProjects(context.Background(), []string{project.ID}, store.PermitFilter{})
	require.NoError(t, err)
	require.Len(t, permits, 4)

	var got []string
	for _, p := range permits {
		got = append(got, p.Priority)
	}
	assert.Equal(t, []string{"critical", "high", "medium", "low"}, got)

	filtered, err := s.Permits.ListByProjects(context.Background(), []string{project.ID}, store.PermitFilter{Priority: "low"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestInspections_FindReminderCandidates(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	owner := testutil.CreateUser(t, conn, "owner")
	project := testutil.CreateProject(t, conn, owner)
	permit := testutil.CreatePermit(t, conn, project, nil)

	at := func(h int) func(*models.Inspection) {
		return func(i *models.Inspection) { i.ScheduledDate = now.Add(time.Duration(h) * time.Hour) }
	}
	due := testutil.CreateInspection(t, conn, permit, at(30))
	testutil.CreateInspection(t, conn, permit, at(24))
	testutil.CreateInspection(t, conn, permit, at(48))
	testutil.CreateInspection(t, conn, permit, at(12))
	testutil.CreateInspection(t, conn, permit, func(i *models.Inspection) {
		at(36)(i)
		i.Status = models.InspectionCancelled
	})
	testutil.CreateInspection(t, conn, permit, func(i *models.Inspection) {
		at(40)(i)
		sent := now
		i.ReminderSentAt = &sent
	})

	found, err := s.Inspections.FindReminderCandidates(context.Background(), now.Add(24*time.Hour), now.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}

func TestNotifications_MarkOneOfThreeRead(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	user := testutil.CreateUser(t, conn, "reader")
	var created []*models.Notification
	for i := 0; i < 3; i++ {
		n := &models.Notification{
			UserID:  user.ID,
			Type:    models.NotificationUpdate,
			Title:   "Permit Status Updated",
			Content: "Status changed",
			Channel: models.ChannelEmail,
			Status:  models.DeliveryPending,
		}
		require.NoError(t, s.Notifications.Create(ctx, n))
		created = append(created, n)
	}

	before, err := s.Notifications.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, before)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	read, err := s.Notifications.MarkRead(ctx, user.ID, created[1].ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryRead, read.Status)
	require.NotNil(t, read.ReadAt)

	after, err := s.Notifications.UnreadCount(ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, after)

	pending, total, err := s.Notifications.ListForUser(ctx, user.ID, store.NotificationFilter{Status: models.DeliveryPending})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, n := range pending {
		assert.Nil(t, n.ReadAt)
		assert.NotEqual(t, created[1].ID, n.ID)
	}

	again, err := s.Notifications.MarkRead(ctx, user.ID, created[1].ID, now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, again.ReadAt.Equal(*read.ReadAt))
}

func TestNotifications_OtherUsersCannotTouch(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)
	ctx := context.Background()

	owner := testutil.CreateUser(t, conn, "owner")
	other := testutil.CreateUser(t, conn, "other")
	n := &models.Notification{UserID: owner.ID, Type: models.NotificationSystem, Title: "t", Content: "c", Channel: models.ChannelInApp, Status: models.DeliverySent}
	require.NoError(t, s.Notifications.Create(ctx, n))

	_, err := s.Notifications.MarkRead(ctx, other.ID, n.ID, time.Now())
	assert.True(t, apperr.IsNotFound(err))
	assert.True(t, apperr.IsNotFound(s.Notifications.Delete(ctx, other.ID, n.ID)))

	marked, err := s.Notifications.MarkAllRead(ctx, owner.ID, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	deleted, err := s.Notifications.DeleteRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
