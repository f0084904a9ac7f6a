package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/offolaunch/launchtrack/internal/logger"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/store"
	"github.com/offolaunch/launchtrack/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEmail struct{ mock.Mock }

func (m *mockEmail) SendEmail(ctx context.Context, to, subject, html string) error {
	return m.Called(to, subject).Error(0)
}

type mockSMS struct{ mock.Mock }

func (m *mockSMS) SendSMS(ctx context.Context, to, body string) error {
	return m.Called(to, body).Error(0)
}

type pushed struct {
	userID string
	event  string
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []pushed
}

func (e *recordingEmitter) ToUser(userID, event string, data any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, pushed{userID: userID, event: event})
}

func channelCounts(t *testing.T, s *store.Store, userID string) map[string]int {
	t.Helper()
	list, _, err := s.Notifications.ListForUser(context.Background(), userID, store.NotificationFilter{Limit: 100})
	require.NoError(t, err)

	counts := map[string]int{}
	for _, n := range list {
		counts[n.Channel+"/"+n.Status]++
	}
	return counts
}

func TestPermitStatusChanged_RejectedSendsOneSMS(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	withPhone := testutil.CreateUser(t, conn, "alice", testutil.WithPhone("+14155550100"))
	noPhone := testutil.CreateUser(t, conn, "bob")
	project := testutil.CreateProject(t, conn, withPhone, withPhone, noPhone)
	permit := testutil.CreatePermit(t, conn, project, nil)

	email := &mockEmail{}
	email.On("SendEmail", mock.Anything, mock.Anything).Return(nil)
	sms := &mockSMS{}
	sms.On("SendSMS", "+14155550100", "OFFO Alert: Critical: Health Permit status changed to rejected").Return(nil).Once()
	emitter := &recordingEmitter{}

	n := New(s, logger.Nop(), Options{Email: email, SMS: sms, Emitter: emitter})
	report := n.PermitStatusChanged(context.Background(), project, permit, models.PermitUnderReview, models.PermitRejected)

	assert.Equal(t, 2, report.Recipients)
	assert.Equal(t, 2, report.InApp)
	assert.Equal(t, 2, report.Email)
	assert.Equal(t, 1, report.SMS)
	assert.Zero(t, report.Failed)

	sms.AssertNumberOfCalls(t, "SendSMS", 1)
	email.AssertNumberOfCalls(t, "SendEmail", 2)
	assert.Len(t, emitter.events, 2)

	assert.Equal(t, map[string]int{"in-app/sent": 1, "email/sent": 1, "sms/sent": 1}, channelCounts(t, s, withPhone.ID))
	assert.Equal(t, map[string]int{"in-app/sent": 1, "email/sent": 1}, channelCounts(t, s, noPhone.ID))
}

func TestPermitStatusChanged_NonCriticalSkipsSMS(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	owner := testutil.CreateUser(t, conn, "alice", testutil.WithPhone("+14155550100"))
	project := testutil.CreateProject(t, conn, owner)
	permit := testutil.CreatePermit(t, conn, project, nil)

	sms := &mockSMS{}
	n := New(s, logger.Nop(), Options{SMS: sms})
	report := n.PermitStatusChanged(context.Background(), project, permit, models.PermitSubmitted, models.PermitApproved)

	assert.Equal(t, 1, report.InApp)
	assert.Zero(t, report.SMS)
	assert.Zero(t, report.Email)
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything)
}

func TestPermitStatusChanged_RespectsPreferencesAndInactiveUsers(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	quiet := testutil.CreateUser(t, conn, "quiet",
		testutil.WithPhone("+14155550101"),
		testutil.WithPreferences(models.NotificationPreferences{}))
	gone := testutil.CreateUser(t, conn, "gone", testutil.Inactive())
	project := testutil.CreateProject(t, conn, quiet, gone)
	permit := testutil.CreatePermit(t, conn, project, nil)

	email := &mockEmail{}
	sms := &mockSMS{}
	n := New(s, logger.Nop(), Options{Email: email, SMS: sms})
	report := n.PermitStatusChanged(context.Background(), project, permit, models.PermitApproved, models.PermitExpired)

	assert.Equal(t, 1, report.Recipients)
	assert.Equal(t, 1, report.InApp)
	email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
	sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything)
	assert.Empty(t, channelCounts(t, s, gone.ID))
}

func TestPermitStatusChanged_TransportFailureIsRecorded(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	owner := testutil.CreateUser(t, conn, "alice")
	project := testutil.CreateProject(t, conn, owner)
	permit := testutil.CreatePermit(t, conn, project, nil)

	email := &mockEmail{}
	email.On("SendEmail", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	n := New(s, logger.Nop(), Options{Email: email})
	report := n.PermitStatusChanged(context.Background(), project, permit, models.PermitDraft, models.PermitSubmitted)

	assert.Equal(t, 1, report.InApp)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, map[string]int{"in-app/sent": 1, "email/failed": 1}, channelCounts(t, s, owner.ID))
}

func TestInspectionReminder_TargetsAttendees(t *testing.T) {
	conn := testutil.NewDB(t)
	s := store.New(conn)

	owner := testutil.CreateUser(t, conn, "owner")
	attendee := testutil.CreateUser(t, conn, "attendee")
	project := testutil.CreateProject(t, conn, owner)
	permit := testutil.CreatePermit(t, conn, project, nil)
	inspection := testutil.CreateInspection(t, conn, permit, func(i *models.Inspection) {
		i.ScheduledDate = time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
		i.Attendees = append(i.Attendees, models.Attendee{UserID: attendee.ID, Role: "manager"})
	})

	n := New(s, logger.Nop(), Options{})
	report := n.InspectionReminder(context.Background(), inspection)

	assert.Equal(t, 1, report.Recipients)
	list, total, err := s.Notifications.ListForUser(context.Background(), attendee.ID, store.NotificationFilter{Limit: 10})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, models.NotificationReminder, list[0].Type)
	assert.Equal(t, "/inspections/"+inspection.ID, list[0].Metadata.Data().Link)
	assert.Empty(t, channelCounts(t, s, owner.ID))
}
