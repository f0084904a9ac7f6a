package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/lifecycle"
	"github.com/offolaunch/launchtrack/internal/models"
	"github.com/offolaunch/launchtrack/internal/municipal"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"github.com/offolaunch/launchtrack/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type SyncService struct {
	store       *store.Store
	permits     *PermitService
	projects    *ProjectService
	agencies    *municipal.AgencyClient
	directory   *municipal.Directory
	hub         Broadcaster
	concurrency int
	now         func() time.Time
	lg          *zap.SugaredLogger
}

type SyncError struct {
	PermitID string `json:"permitId"`
	Error    string `json:"error"`
}

// Summary reports one sync pass. Successful + Failed always equals Total.
type Summary struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Errors     []SyncError   `json:"errors"`
	Duration   time.Duration `json:"duration"`
}

// externalResult is what one source said about a permit.
type externalResult struct {
	status       string
	approvalDate *time.Time
	expiryDate   *time.Time
	raw          json.RawMessage
}

// SyncPermitFor is the user-triggered sync of one permit.
func (s *SyncService) SyncPermitFor(ctx context.Context, user *models.User, id string) (*models.Permit, error) {
	permit, _, err := s.permits.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if permit.Jurisdiction.ExternalID == "" {
		return nil, errNoExternalID
	}
	return s.SyncPermit(ctx, id)
}

// SyncPermit fetches the external status of one permit and applies it.
// The agency API for the permit type is preferred; otherwise the city's
// open-data source for the project location is used. On failure the
// error is recorded on the permit, its status is left unchanged and a
// dependency error is returned.
func (s *SyncService) SyncPermit(ctx context.Context, id string) (*models.Permit, error) {
	permit, err := s.store.Permits.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if permit.Jurisdiction.ExternalID == "" {
		return nil, errNoExternalID
	}
	project, err := s.store.Projects.FindByID(ctx, permit.ProjectID)
	if err != nil {
		return nil, err
	}

	permit.AutomatedTracking.SyncStatus = models.SyncInProgress
	if err := s.store.Permits.Save(ctx, permit); err != nil {
		return nil, err
	}

	result, fetchErr := s.fetch(ctx, project, permit)
	now := s.now()

	if fetchErr != nil {
		data, _ := marshalJSON(map[string]string{"error": fetchErr.Error()})
		permit.AutomatedTracking.LastSynced = &now
		permit.AutomatedTracking.SyncStatus = models.SyncFailed
		permit.AutomatedTracking.Data = data
		// The failure is recorded even when the caller has gone away.
		if err := s.store.Permits.Save(context.WithoutCancel(ctx), permit); err != nil {
			return nil, err
		}

		s.lg.Warnw("permit sync failed", "permit_id", permit.ID, "err", fetchErr)
		if apperr.IsDependency(fetchErr) {
			return permit, fetchErr
		}
		return permit, apperr.Dependency("permit sync failed", fetchErr)
	}

	permit.AutomatedTracking.LastSynced = &now
	permit.AutomatedTracking.SyncStatus = models.SyncSuccess
	permit.AutomatedTracking.ExternalStatus = result.status
	permit.AutomatedTracking.Data = []byte(result.raw)

	if result.approvalDate != nil && permit.Timeline.ActualApprovalDate == nil {
		permit.Timeline.ActualApprovalDate = result.approvalDate
	}
	if result.expiryDate != nil {
		permit.Timeline.ExpiryDate = result.expiryDate
	}

	if result.status != "" {
		if next := municipal.NormalizeStatus(result.status); next != permit.Status {
			if err := s.permits.apply(ctx, project, permit, next, lifecycle.SystemSync); err != nil {
				return nil, err
			}
			return permit, nil
		}
	}

	if err := s.store.Permits.Save(ctx, permit); err != nil {
		return nil, err
	}
	s.hub.ToProject(permit.ProjectID, realtime.EventPermitUpdated, permit)
	return permit, nil
}

func (s *SyncService) fetch(ctx context.Context, project *models.Project, permit *models.Permit) (*externalResult, error) {
	externalID := permit.Jurisdiction.ExternalID

	if s.agencies.Configured(permit.Type) {
		status, err := s.agencies.FetchPermitStatus(ctx, permit.Type, externalID)
		if err != nil {
			return nil, err
		}
		return &externalResult{
			status:       status.Status,
			approvalDate: status.ApprovalDate,
			expiryDate:   status.ExpiryDate,
			raw:          status.Raw,
		}, nil
	}

	if s.directory == nil {
		return nil, apperr.Dependency(fmt.Sprintf("API configuration not found for permit type: %s", permit.Type), nil)
	}

	lookup, err := s.directory.PermitStatus(ctx, project.Location, externalID)
	if err != nil {
		return nil, apperr.Dependency("municipal lookup failed", err)
	}
	if !lookup.Supported {
		return nil, apperr.Dependency(lookup.Message, nil)
	}
	if !lookup.Found {
		return nil, apperr.Dependency(fmt.Sprintf("permit %s not found in %s records", externalID, lookup.City), nil)
	}

	raw, err := json.Marshal(lookup)
	if err != nil {
		return nil, apperr.Internal("encode lookup", err)
	}
	return &externalResult{status: lookup.Status, raw: raw}, nil
}

// SyncAll runs one pass over every eligible permit. Each permit is synced
// independently; the pass waits for all of them and never stops early.
func (s *SyncService) SyncAll(ctx context.Context) (*Summary, error) {
	start := time.Now()

	permits, err := s.store.Permits.FindSyncEligible(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(permits), Errors: []SyncError{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for _, p := range permits {
		id := p.ID
		g.Go(func() error {
			_, err := s.SyncPermit(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed++
				summary.Errors = append(summary.Errors, SyncError{PermitID: id, Error: err.Error()})
			} else {
				summary.Successful++
			}
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	s.lg.Infow("permit sync pass complete",
		"total", summary.Total,
		"successful", summary.Successful,
		"failed", summary.Failed,
		"duration", summary.Duration,
	)
	return summary, nil
}

// SubmitPermit sends a permit application to its agency, stores the
// external id the agency assigned and moves the permit to submitted.
func (s *SyncService) SubmitPermit(ctx context.Context, user *models.User, id string) (*models.Permit, error) {
	permit, project, err := s.permits.authorize(ctx, user, id)
	if err != nil {
		return nil, err
	}

	application := map[string]any{
		"name":         permit.Name,
		"type":         permit.Type,
		"priority":     permit.Priority,
		"jurisdiction": permit.Jurisdiction,
		"requirements": permit.Requirements,
		"fees":         permit.Fees,
		"project": map[string]any{
			"name":     project.Name,
			"location": project.Location,
			"category": project.Category,
		},
		"applicant": map[string]string{
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	}

	receipt, err := s.agencies.SubmitApplication(ctx, permit.Type, application)
	now := s.now()
	if err != nil {
		data, _ := marshalJSON(map[string]string{"error": err.Error()})
		permit.AutomatedTracking.LastSynced = &now
		permit.AutomatedTracking.SyncStatus = models.SyncFailed
		permit.AutomatedTracking.Data = data
		if saveErr := s.store.Permits.Save(context.WithoutCancel(ctx), permit); saveErr != nil {
			s.lg.Errorw("record submission failure", "permit_id", permit.ID, "err", saveErr)
		}
		return nil, err
	}

	if receipt.ExternalID != "" {
		permit.Jurisdiction.ExternalID = receipt.ExternalID
	}
	permit.AutomatedTracking.LastSynced = &now
	permit.AutomatedTracking.SyncStatus = models.SyncSuccess
	permit.AutomatedTracking.ExternalStatus = receipt.Status
	permit.AutomatedTracking.Data = []byte(receipt.Raw)

	if err := s.permits.apply(ctx, project, permit, models.PermitSubmitted, actorOf(user)); err != nil {
		return nil, err
	}
	return permit, nil
}

// ScheduleInspection requests an inspection slot from the permit's agency
// and records the agency reference on the inspection.
func (s *SyncService) ScheduleInspection(ctx context.Context, user *models.User, inspectionID string) (*models.Inspection, error) {
	inspection, err := s.store.Inspections.FindByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	permit, _, err := s.permits.authorize(ctx, user, inspection.PermitID)
	if err != nil {
		return nil, err
	}
	if permit.Jurisdiction.ExternalID == "" {
		return nil, errNoExternalID
	}

	request := map[string]any{
		"type":          inspection.Type,
		"scheduledDate": inspection.ScheduledDate,
		"location":      inspection.Location,
		"contact": map[string]string{
			"name":  user.Name,
			"email": user.Email,
			"phone": user.Phone,
		},
	}

	receipt, err := s.agencies.ScheduleInspection(ctx, permit.Type, permit.Jurisdiction.ExternalID, request)
	if err != nil {
		return nil, err
	}

	if receipt.ExternalID != "" {
		inspection.Inspector.ExternalID = receipt.ExternalID
	}
	if err := s.store.Inspections.Save(ctx, inspection); err != nil {
		return nil, err
	}

	s.hub.ToProject(inspection.ProjectID, realtime.EventInspectionUpdated, inspection)
	return inspection, nil
}

// ForwardDocument uploads a document reference to the permit's agency.
// It returns nil, nil when the permit cannot be forwarded.
func (s *SyncService) ForwardDocument(ctx context.Context, permit *models.Permit, doc models.PermitDocument) (*municipal.Receipt, error) {
	if permit.Jurisdiction.ExternalID == "" || !s.agencies.Configured(permit.Type) {
		return nil, nil
	}
	return s.agencies.UploadDocument(ctx, permit.Type, permit.Jurisdiction.ExternalID, map[string]any{
		"name":       doc.Name,
		"url":        doc.URL,
		"uploadedAt": doc.UploadedAt,
	})
}
