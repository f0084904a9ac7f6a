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

// ExpiryHorizon is how far ahead the expiry scan looks.
const ExpiryHorizon = 30 * 24 * time.Hour

type PermitService struct {
	store    *store.Store
	projects *ProjectService
	sync     *SyncService
	hub      Broadcaster
	notifier Notifier
	now      func() time.Time
	lg       *zap.SugaredLogger
}

type CreatePermitInput struct {
	ProjectID    string                `json:"project" binding:"required"`
	Name         string                `json:"name" binding:"required"`
	Type         string                `json:"type" binding:"required"`
	Priority     string                `json:"priority"`
	Jurisdiction models.Jurisdiction   `json:"jurisdiction"`
	Timeline     models.PermitTimeline `json:"timeline"`
	Inspector    models.Contact        `json:"inspector"`
	Requirements []models.Requirement  `json:"requirements"`
	Fees         []models.Fee          `json:"fees"`
}

// UpdatePermitInput changes only the fields that are present. A status
// change is applied as a regular transition.
type UpdatePermitInput struct {
	Name         *string                `json:"name"`
	Type         *string                `json:"type"`
	Priority     *string                `json:"priority"`
	Status       *string                `json:"status"`
	Jurisdiction *models.Jurisdiction   `json:"jurisdiction"`
	Timeline     *models.PermitTimeline `json:"timeline"`
	Inspector    *models.Contact        `json:"inspector"`
	Requirements *[]models.Requirement  `json:"requirements"`
	Fees         *[]models.Fee          `json:"fees"`
}

type DocumentInput struct {
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required,url"`
}

type StatusChange struct {
	PermitID  string `json:"permitId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
	ChangedBy string `json:"changedBy"`
	// Automated is true for changes made by sync or the expiry scan.
	Automated bool `json:"automated"`
}

// authorize loads a permit together with its project after checking access.
func (s *PermitService) authorize(ctx context.Context, user *models.User, id string) (*models.Permit, *models.Project, error) {
	permit, err := s.store.Permits.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	project, err := s.projects.Authorize(ctx, user, permit.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return permit, project, nil
}

func (s *PermitService) Get(ctx context.Context, user *models.User, id string) (*models.Permit, error) {
	permit, _, err := s.authorize(ctx, user, id)
	return permit, err
}

// ListForProject returns a project's permits, most urgent first.
func (s *PermitService) ListForProject(ctx context.Context, user *models.User, projectID string, f store.PermitFilter) ([]models.Permit, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if _, err := s.projects.Authorize(ctx, user, projectID); err != nil {
		return nil, err
	}
	return s.store.Permits.ListByProjects(ctx, []string{projectID}, f)
}

// List returns permits across every project the user belongs to.
func (s *PermitService) List(ctx context.Context, user *models.User, f store.PermitFilter) ([]models.Permit, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	projectIDs, err := s.store.Projects.IDsForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.store.Permits.ListByProjects(ctx, projectIDs, f)
}

func validateFilter(f store.PermitFilter) error {
	if err := checkEnum("status", f.Status, models.PermitStatuses); err != nil {
		return err
	}
	if err := checkEnum("type", f.Type, models.PermitTypes); err != nil {
		return err
	}
	return checkEnum("priority", f.Priority, models.PermitPriorities)
}

func (s *PermitService) Create(ctx context.Context, user *models.User, in CreatePermitInput) (*models.Permit, error) {
	if err := checkEnum("type", in.Type, models.PermitTypes); err != nil {
		return nil, err
	}
	if err := checkEnum("priority", in.Priority, models.PermitPriorities); err != nil {
		return nil, err
	}
	if _, err := s.projects.Authorize(ctx, user, in.ProjectID); err != nil {
		return nil, err
	}

	permit := &models.Permit{
		ProjectID:    in.ProjectID,
		Name:         strings.TrimSpace(in.Name),
		Type:         in.Type,
		Jurisdiction: in.Jurisdiction,
		Status:       models.PermitDraft,
		Priority:     in.Priority,
		Timeline:     in.Timeline,
		Inspector:    in.Inspector,
		Requirements: in.Requirements,
		Fees:         in.Fees,
	}
	if permit.Priority == "" {
		permit.Priority = "medium"
	}

	if err := s.store.Permits.Create(ctx, permit); err != nil {
		return nil, err
	}

	s.hub.ToProject(permit.ProjectID, realtime.EventPermitCreated, permit)
	return permit, nil
}

func (s *PermitService) Update(ctx context.Context, user *models.User, id string, in UpdatePermitInput) (*models.Permit, error) {
	permit, project, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		permit.Name = strings.TrimSpace(*in.Name)
	}
	if in.Type != nil {
		if err := checkEnum("type", *in.Type, models.PermitTypes); err != nil {
			return nil, err
		}
		permit.Type = *in.Type
	}
	if in.Priority != nil {
		if err := checkEnum("priority", *in.Priority, models.PermitPriorities); err != nil {
			return nil, err
		}
		permit.Priority = *in.Priority
	}
	if in.Jurisdiction != nil {
		permit.Jurisdiction = *in.Jurisdiction
	}
	if in.Timeline != nil {
		permit.Timeline = *in.Timeline
	}
	if in.Inspector != nil {
		permit.Inspector = *in.Inspector
	}
	if in.Requirements != nil {
		permit.Requirements = *in.Requirements
	}
	if in.Fees != nil {
		permit.Fees = *in.Fees
	}

	if in.Status != nil {
		if err := s.apply(ctx, project, permit, *in.Status, actorOf(user)); err != nil {
			return nil, err
		}
	} else if err := s.store.Permits.Save(ctx, permit); err != nil {
		return nil, err
	}

	s.hub.ToProject(permit.ProjectID, realtime.EventPermitUpdated, permit)
	return permit, nil
}

// SetStatus is the user-facing status transition.
func (s *PermitService) SetStatus(ctx context.Context, user *models.User, id, status string) (*models.Permit, error) {
	permit, project, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, project, permit, status, actorOf(user)); err != nil {
		return nil, err
	}
	return permit, nil
}

// ChangeStatus transitions a permit on behalf of actor without an access check.
func (s *PermitService) ChangeStatus(ctx context.Context, id, status string, actor lifecycle.Actor) (*models.Permit, error) {
	permit, err := s.store.Permits.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.store.Projects.FindByID(ctx, permit.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, project, permit, status, actor); err != nil {
		return nil, err
	}
	return permit, nil
}

// apply transitions a loaded permit, saves every pending change on it,
// then announces the change. Notification failures never fail the write.
func (s *PermitService) apply(ctx context.Context, project *models.Project, permit *models.Permit, status string, actor lifecycle.Actor) error {
	old, err := lifecycle.TransitionPermit(permit, status, actor, s.now())
	if err != nil {
		return err
	}
	if err := s.store.Permits.Save(ctx, permit); err != nil {
		return err
	}

	s.lg.Infow("permit status changed",
		"permit_id", permit.ID,
		"old_status", old,
		"new_status", status,
		"actor", actor.ID,
		"automated", actor.IsSystem(),
	)

	s.hub.ToProject(permit.ProjectID, realtime.EventPermitStatusChanged, StatusChange{
		PermitID:  permit.ID,
		OldStatus: old,
		NewStatus: status,
		ChangedBy: actor.ID,
		Automated: actor.IsSystem(),
	})
	s.notifier.PermitStatusChanged(ctx, project, permit, old, status)
	return nil
}

// AddDocument records a document link and forwards it to the agency when
// the permit is known there. A failed forward leaves the document pending.
func (s *PermitService) AddDocument(ctx context.Context, user *models.User, id string, in DocumentInput) (*models.Permit, error) {
	permit, _, err := s.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	doc := models.PermitDocument{
		ID:         ids.New(),
		Name:       strings.TrimSpace(in.Name),
		URL:        in.URL,
		UploadedAt: s.now(),
		UploadedBy: user.ID,
		Status:     "pending",
	}

	if receipt, err := s.sync.ForwardDocument(ctx, permit, doc); err == nil && receipt != nil {
		doc.ExternalID = receipt.ExternalID
		doc.Status = "submitted"
	} else if err != nil {
		s.lg.Warnw("document forward failed", "permit_id", permit.ID, "err", err)
	}

	permit.Documents = append(permit.Documents, doc)
	if err := s.store.Permits.Save(ctx, permit); err != nil {
		return nil, err
	}

	s.hub.ToProject(permit.ProjectID, realtime.EventPermitDocument, map[string]any{
		"permitId": permit.ID,
		"document": doc,
	})
	return permit, nil
}

// Delete removes a permit with its inspections.
func (s *PermitService) Delete(ctx context.Context, user *models.User, id string) error {
	if _, _, err := s.authorize(ctx, user, id); err != nil {
		return err
	}

	permit, removed, err := s.store.Permits.Delete(ctx, id)
	if err != nil {
		return err
	}

	for _, i := range removed {
		s.hub.ToProject(permit.ProjectID, realtime.EventInspectionDeleted, map[string]string{
			"inspectionId": i.ID,
			"permitId":     permit.ID,
		})
	}
	s.hub.ToProject(permit.ProjectID, realtime.EventPermitDeleted, map[string]string{"permitId": permit.ID})
	return nil
}

// FlagExpiring moves approved permits expiring within the horizon to
// renewal_required. Permits already flagged are left alone.
func (s *PermitService) FlagExpiring(ctx context.Context) (int, error) {
	now := s.now()
	permits, err := s.store.Permits.FindExpiring(ctx, now, now.Add(ExpiryHorizon))
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, p := range permits {
		if p.Status == models.PermitRenewalRequired {
			continue
		}
		if _, err := s.ChangeStatus(ctx, p.ID, models.PermitRenewalRequired, lifecycle.SystemExpiry); err != nil {
			s.lg.Errorw("flag expiring permit", "permit_id", p.ID, "err", err)
			continue
		}
		flagged++
	}

	s.lg.Infow("expiry scan complete", "candidates", len(permits), "flagged", flagged)
	return flagged, nil
}

func actorOf(u *models.User) lifecycle.Actor {
	return lifecycle.Actor{ID: u.ID, Name: u.Name}
}

var errNoExternalID = apperr.Validation("Permit does not have an external ID for syncing",
	apperr.FieldError{Field: "jurisdiction.externalId", Message: "external id is required"})
