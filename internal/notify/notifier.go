// Package notify fans a domain event out to the interested users over
// in-app, email and SMS. Delivery is best-effort: a failed channel is logged
// and recorded, and never fails the operation that triggered it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/offolaunch/launchtrack/internal/lifecycle"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// UserEmitter pushes a live event to one user's connections.
type UserEmitter interface {
	ToUser(userID, event string, data any)
}

type Options struct {
	Email     EmailSender
	SMS       SMSSender
	Emitter   UserEmitter
	ClientURL string
	Now       func() time.Time
}

type Notifier struct {
	store     *store.Store
	lg        *zap.SugaredLogger
	email     EmailSender
	sms       SMSSender
	emitter   UserEmitter
	clientURL string
	now       func() time.Time
}

func New(s *store.Store, lg *zap.SugaredLogger, opts Options) *Notifier {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	clientURL := opts.ClientURL
	if clientURL == "" {
		clientURL = "http://localhost:3000"
	}
	return &Notifier{
		store:     s,
		lg:        lg,
		email:     opts.Email,
		sms:       opts.SMS,
		emitter:   opts.Emitter,
		clientURL: clientURL,
		now:       now,
	}
}

// Report counts what one fan-out attempted.
type Report struct {
	Recipients int
	InApp      int
	Email      int
	SMS        int
	Failed     int
}

type message struct {
	kind     string
	title    string
	content  string
	html     string
	sms      string
	metadata models.NotificationMetadata
}

func (n *Notifier) PermitStatusChanged(ctx context.Context, project *models.Project, permit *models.Permit, oldStatus, newStatus string) Report {
	link := fmt.Sprintf("/projects/%s/permits/%s", project.ID, permit.ID)
	msg := message{
		kind:    models.NotificationUpdate,
		title:   "Permit Status Updated: " + permit.Name,
		content: lifecycle.StatusNote(oldStatus, newStatus),
		html: render(permitStatusTmpl, map[string]string{
			"Project": project.Name,
			"Permit":  permit.Name,
			"Old":     oldStatus,
			"New":     newStatus,
			"Link":    n.clientURL + link,
		}),
		metadata: models.NotificationMetadata{
			ProjectID: project.ID,
			PermitID:  permit.ID,
			Link:      link,
			Data:      mustJSON(map[string]string{"oldStatus": oldStatus, "newStatus": newStatus}),
		},
	}
	if lifecycle.IsCritical(newStatus) {
		msg.sms = fmt.Sprintf("Critical: %s status changed to %s", permit.Name, newStatus)
	}

	return n.fanOut(ctx, project.MemberIDs(), msg)
}

func (n *Notifier) InspectionScheduled(ctx context.Context, project *models.Project, permit *models.Permit, inspection *models.Inspection) Report {
	msg := n.inspectionMessage(inspection, "Inspection Scheduled")
	msg.kind = models.NotificationUpdate
	msg.title = fmt.Sprintf("Inspection Scheduled: %s (%s)", inspection.Type, permit.Name)
	msg.metadata.ProjectID = project.ID
	msg.metadata.PermitID = permit.ID

	return n.fanOut(ctx, project.MemberIDs(), msg)
}

// InspectionReminder notifies the inspection's attendees.
func (n *Notifier) InspectionReminder(ctx context.Context, inspection *models.Inspection) Report {
	msg := n.inspectionMessage(inspection, "Inspection Reminder")
	msg.kind = models.NotificationReminder
	msg.title = "Upcoming Inspection: " + inspection.Type
	msg.metadata.ProjectID = inspection.ProjectID
	msg.metadata.PermitID = inspection.PermitID

	return n.fanOut(ctx, inspection.AttendeeIDs(), msg)
}

func (n *Notifier) inspectionMessage(i *models.Inspection, heading string) message {
	link := "/inspections/" + i.ID
	when := i.ScheduledDate.UTC().Format("Mon Jan 2 2006 15:04 MST")

	location := i.Location.Address
	if location == "" {
		location = "TBD"
	}
	inspector := i.Inspector.Name
	if inspector == "" {
		inspector = "TBD"
	}

	return message{
		content: "Scheduled for " + when,
		html: render(inspectionTmpl, map[string]string{
			"Heading":   heading,
			"Type":      i.Type,
			"Date":      when,
			"Location":  location,
			"Inspector": inspector,
			"Link":      n.clientURL + link,
		}),
		metadata: models.NotificationMetadata{
			InspectionID: i.ID,
			Link:         link,
		},
	}
}

func (n *Notifier) fanOut(ctx context.Context, userIDs []string, msg message) Report {
	var report Report

	users, err := n.store.Users.FindByIDs(ctx, userIDs)
	if err != nil {
		n.lg.Errorw("resolve notification recipients", "err", err)
		report.Failed++
		return report
	}

	for i := range users {
		u := &users[i]
		if !u.IsActive {
			continue
		}
		report.Recipients++
		n.deliver(ctx, u, msg, &report)
	}

	n.lg.Infow("notifications dispatched",
		"title", msg.title,
		"recipients", report.Recipients,
		"in_app", report.InApp,
		"email", report.Email,
		"sms", report.SMS,
		"failed", report.Failed,
	)
	return report
}

// deliver handles each channel independently; one failing does not skip the others.
func (n *Notifier) deliver(ctx context.Context, u *models.User, msg message, report *Report) {
	if err := n.inApp(ctx, u, msg); err != nil {
		report.Failed++
		n.lg.Errorw("in-app notification failed", "user_id", u.ID, "err", err)
	} else {
		report.InApp++
	}

	if u.Preferences.EmailNotifications && n.email != nil && msg.html != "" {
		report.Email++
		if err := n.send(ctx, u, msg, models.ChannelEmail, func() error {
			return n.email.SendEmail(ctx, u.Email, msg.title, msg.html)
		}); err != nil {
			report.Failed++
			n.lg.Warnw("email notification failed", "user_id", u.ID, "err", err)
		}
	}

	if msg.sms != "" && u.Phone != "" && u.Preferences.SMSNotifications && n.sms != nil {
		report.SMS++
		smsMsg := msg
		smsMsg.kind = models.NotificationAlert
		smsMsg.title = "SMS Alert"
		smsMsg.content = msg.sms
		if err := n.send(ctx, u, smsMsg, models.ChannelSMS, func() error {
			return n.sms.SendSMS(ctx, u.Phone, "OFFO Alert: "+msg.sms)
		}); err != nil {
			report.Failed++
			n.lg.Warnw("sms notification failed", "user_id", u.ID, "err", err)
		}
	}
}

func (n *Notifier) inApp(ctx context.Context, u *models.User, msg message) error {
	sentAt := n.now().UTC()
	record := &models.Notification{
		UserID:   u.ID,
		Type:     msg.kind,
		Title:    msg.title,
		Content:  msg.content,
		Channel:  models.ChannelInApp,
		Status:   models.DeliverySent,
		Metadata: datatypes.NewJSONType(msg.metadata),
		SentAt:   &sentAt,
	}
	if err := n.store.Notifications.Create(ctx, record); err != nil {
		return err
	}
	if n.emitter != nil {
		n.emitter.ToUser(u.ID, realtime.EventNotificationNew, record)
	}
	return nil
}

// send records a pending notification, runs the transport and records the outcome.
func (n *Notifier) send(ctx context.Context, u *models.User, msg message, channel string, transport func() error) error {
	record := &models.Notification{
		UserID:   u.ID,
		Type:     msg.kind,
		Title:    msg.title,
		Content:  msg.content,
		Channel:  channel,
		Status:   models.DeliveryPending,
		Metadata: datatypes.NewJSONType(msg.metadata),
	}
	if err := n.store.Notifications.Create(ctx, record); err != nil {
		return err
	}

	sendErr := transport()
	if sendErr != nil {
		record.Status = models.DeliveryFailed
	} else {
		sentAt := n.now().UTC()
		record.Status = models.DeliverySent
		record.SentAt = &sentAt
	}

	if err := n.store.Notifications.Save(ctx, record); err != nil {
		n.lg.Warnw("update notification status", "notification_id", record.ID, "err", err)
	}
	return sendErr
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
