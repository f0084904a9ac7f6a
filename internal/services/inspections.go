package services

import (
	"context"
	"strings"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/ids"
	"github.com/offolaunch/launchtrack/internal/lifecycle"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
)

// Reminders go out for inspections scheduled strictly between these offsets from now.
const (
	ReminderWindowStart = 24 * time.Hour
	ReminderWindowEnd   = 48 * time.Hour
)

type InspectionService struct {
	store    *store.Store
	projects *ProjectService
	hub      Broadcaster
	notifier Notifier
	now      func() time.Time
	lg       *zap.SugaredLogger
}

type CreateInspectionInput struct {
	PermitID      string                    `json:"permit" binding:"required"`
	Type          string                    `json:"type" binding:"required"`
	ScheduledDate time.Time                 `json:"scheduledDate" binding:"required"`
	Inspector     models.Contact            `json:"inspector"`
	Location      models.InspectionLocation `json:"location"`
	Attendees     []AttendeeInput           `json:"attendees"`
	Notes         string                    `json:"notes"`
}

type UpdateInspectionInput struct {
	Type               *string                      `json:"type"`
	ScheduledDate      *time.Time                   `json:"scheduledDate"`
	Status             *string                      `json:"status"`
	Inspector          *models.Contact              `json:"inspector"`
	Location           *models.InspectionLocation   `json:"location"`
	Notes              *string                      `json:"notes"`
	FollowUpRequired   *bool                        `json:"followUpRequired"`
	NextInspectionDate *time.Time                   `json:"nextInspectionDate"`
	Documents          *[]models.InspectionDocument `json:"documents"`
}

type ChecklistInput struct {
	Item        string   `json:"item" binding:"required"`
	Requirement string   `json:"requirement"`
	Status      string   `json:"status" binding:"required"`
	Notes       string   `json:"notes"`
	Photos      []string `json:"photos"`
}

type FindingInput struct {
	Type             string     `json:"type"`
	Description      string     `json:"description" binding:"required"`
	Severity         string     `json:"severity" binding:"required"`
	CorrectiveAction string     `json:"correctiveAction"`
	DueDate          *time.Time `json:"dueDate"`
}

type FindingUpdate struct {
	Status           string `json:"status" binding:"required"`
	CorrectiveAction string `json:"correctiveAction"`
}

type AttendeeInput struct {
	UserID string `json:"user" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type InspectionStatusChange struct {
	InspectionID string `json:"inspectionId"`
	PermitID     string `json:"permitId"`
	OldStatus    string `json:"oldStatus"`
	NewStatus    string `json:"newStatus"`
}

func (s *InspectionService) authorize(ctx context.Context, user *models.User, id string) (*models.Inspection, *models.Project, error) {
	inspection, err := s.store.Inspections.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	project, err := s.projects.Authorize(ctx, user, inspection.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return inspection, project, nil
}

func (s *InspectionService) Get(ctx context.Context, user *models.User, id string) (*models.Inspection, error) {
	inspection, _, err := s.authorize(ctx, user, id)
	return inspection, err
}

func (s *InspectionService) ListForPermit(ctx context.Context, user *models.User, permitID string) ([]models.Inspection, error) {
	permit, err := s.store.Permits.FindByID(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.Authorize(ctx, user, permit.ProjectID); err != nil {
		return nil, err
	}
	return s.store.Inspections.ListByPermit(ctx, permitID)
}

// Upcoming lists scheduled inspections across the user's projects.
func (s *InspectionService) Upcoming(ctx context.Context, user *models.User) ([]models.Inspection, error) {
	projectIDs, err := s.store.Projects.IDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.store.Inspections.ListUpcoming(ctx, projectIDs, s.now())
}

func (s *InspectionService) Create(ctx context.Context, user *models.User, in CreateInspectionInput) (*models.Inspection, error) {
	permit, err := s.store.Permits.FindByID(ctx, in.PermitID)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.Authorize(ctx, user, permit.ProjectID)
	if err != nil {
		return nil, err
	}

	inspection := &models.Inspection{
		PermitID:      permit.ID,
		ProjectID:     permit.ProjectID,
		Type:          strings.TrimSpace(in.Type),
		ScheduledDate: in.ScheduledDate.UTC(),
		Status:        models.InspectionScheduled,
		Inspector:     in.Inspector,
		Location:      in.Location,
		Notes:         in.Notes,
	}
	for _, a := range in.Attendees {
		inspection.Attendees = append(inspection.Attendees, models.Attendee{UserID: a.UserID, Role: a.Role})
	}

	if err := s.store.Inspections.Create(ctx, inspection); err != nil {
		return nil, err
	}

	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionCreated, map[string]any{
		"inspection": inspection,
		"permitId":   permit.ID,
	})
	s.notifier.InspectionScheduled(ctx, project, permit, inspection)
	return inspection, nil
}

func (s *InspectionService) Update(ctx context.Context, user *models.User, id string, in UpdateInspectionInput) (*models.Inspection, error) {
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	var change *InspectionStatusChange
	if in.Status != nil {
		old, err := lifecycle.TransitionInspection(inspection, *in.Status, s.now())
		if err != nil {
			return nil, err
		}
		change = &InspectionStatusChange{InspectionID: inspection.ID, PermitID: inspection.PermitID, OldStatus: old, NewStatus: *in.Status}
	}
	if in.Type != nil {
		inspection.Type = strings.TrimSpace(*in.Type)
	}
	if in.ScheduledDate != nil && !in.ScheduledDate.Equal(inspection.ScheduledDate) {
		inspection.ScheduledDate = in.ScheduledDate.UTC()
		inspection.ReminderSentAt = nil
	}
	if in.Inspector != nil {
		inspection.Inspector = *in.Inspector
	}
	if in.Location != nil {
		inspection.Location = *in.Location
	}
	if in.Notes != nil {
		inspection.Notes = *in.Notes
	}
	if in.FollowUpRequired != nil {
		inspection.FollowUpRequired = *in.FollowUpRequired
	}
	if in.NextInspectionDate != nil {
		next := in.NextInspectionDate.UTC()
		inspection.NextInspectionDate = &next
	}
	if in.Documents != nil {
		inspection.Documents = *in.Documents
	}

	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}

	if change != nil {
		s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionStatusChanged, change)
	}
	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionUpdated, inspection)
	return inspection, nil
}

func (s *InspectionService) SetStatus(ctx context.Context, user *models.User, id, status string) (*models.Inspection, error) {
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	old, err := lifecycle.TransitionInspection(inspection, status, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}

	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionStatusChanged, InspectionStatusChange{
		InspectionID: inspection.ID,
		PermitID:     inspection.PermitID,
		OldStatus:    old,
		NewStatus:    status,
	})
	return inspection, nil
}

// SaveChecklistItem adds an item, or replaces the item with the same name.
func (s *InspectionService) SaveChecklistItem(ctx context.Context, user *models.User, id string, in ChecklistInput) (*models.Inspection, error) {
	if err := checkEnum("status", in.Status, models.ChecklistStatuses); err != nil {
		return nil, err
	}
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	item := models.ChecklistItem{
		Item:        strings.TrimSpace(in.Item),
		Requirement: in.Requirement,
		Status:      in.Status,
		Notes:       in.Notes,
		Photos:      in.Photos,
		Timestamp:   s.now(),
	}

	replaced := false
	for i := range inspection.Checklist {
		if strings.EqualFold(inspection.Checklist[i].Item, item.Item) {
			inspection.Checklist[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		inspection.Checklist = append(inspection.Checklist, item)
	}

	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}
	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionUpdated, inspection)
	return inspection, nil
}

func (s *InspectionService) AddFinding(ctx context.Context, user *models.User, id string, in FindingInput) (*models.Inspection, error) {
	if err := checkEnum("severity", in.Severity, models.FindingSeverities); err != nil {
		return nil, err
	}
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	finding := models.Finding{
		ID:               ids.New(),
		Type:             in.Type,
		Description:      strings.TrimSpace(in.Description),
		Severity:         in.Severity,
		CorrectiveAction: in.CorrectiveAction,
		DueDate:          in.DueDate,
		Status:           "open",
	}
	inspection.Findings = append(inspection.Findings, finding)

	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}

	if finding.Severity == "critical" {
		s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionCriticalFinding, map[string]any{
			"inspectionId": inspection.ID,
			"permitId":     inspection.PermitID,
			"finding":      finding,
		})
	}
	return inspection, nil
}

func (s *InspectionService) UpdateFinding(ctx context.Context, user *models.User, id, findingID string, in FindingUpdate) (*models.Inspection, error) {
	if err := checkEnum("status", in.Status, models.FindingStatuses); err != nil {
		return nil, err
	}
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, f := range inspection.Findings {
		if f.ID == findingID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperr.NotFound("finding")
	}

	inspection.Findings[idx].Status = in.Status
	if in.CorrectiveAction != "" {
		inspection.Findings[idx].CorrectiveAction = in.CorrectiveAction
	}

	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}
	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionUpdated, inspection)
	return inspection, nil
}

func (s *InspectionService) AddAttendee(ctx context.Context, user *models.User, id string, in AttendeeInput) (*models.Inspection, error) {
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}
	for _, a := range inspection.Attendees {
		if a.UserID == in.UserID {
			return nil, apperr.Conflict("user is already an attendee")
		}
	}
	if _, err := s.store.Users.FindByID(ctx, in.UserID); err != nil {
		return nil, err
	}

	inspection.Attendees = append(inspection.Attendees, models.Attendee{UserID: in.UserID, Role: in.Role})
	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}
	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionUpdated, inspection)
	return inspection, nil
}

func (s *InspectionService) Delete(ctx context.Context, user *models.User, id string) error {
	inspection, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return err
	}
	if _, err := s.store.Inspections.Delete(ctx, inspection.ID); err != nil {
		return err
	}
	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionDeleted, map[string]string{
		"inspectionId": inspection.ID,
		"permitId":     inspection.PermitID,
	})
	return nil
}

// SendReminders notifies attendees of inspections starting in the reminder
// window and stamps each one so later scans skip it.
func (s *InspectionService) SendReminders(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.store.Inspections.FindReminderCandidates(ctx, now.Add(ReminderWindowStart), now.Add(ReminderWindowEnd))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range candidates {
		inspection := &candidates[i]
		s.notifier.InspectionReminder(ctx, inspection)

		stamped := now
		inspection.ReminderSentAt = &stamped
		if err := s.store.Inspections.Save(ctx, inspection); err != nil {
			s.lg.Errorw("stamp inspection reminder", "inspection_id", inspection.ID, "err", err)
			continue
		}
		sent++
	}

	s.lg.Infow("inspection reminder scan complete", "candidates", len(candidates), "reminded", sent)
	return sent, nil
}
