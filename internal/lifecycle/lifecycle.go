// Package lifecycle applies status changes to permits and inspections.
// Both lifecycles are flat: any status may follow any other, so the only
// guard is membership in the status set.
package lifecycle

import (
	"fmt"
	"slices"
	"time"

	"github.com/offolaunch/launchtrack/internal/apperr"
	"github.com/offolaunch/launchtrack/internal/models"
)

// Actor is who a transition is attributed to in the permit's note log.
type Actor struct {
	ID   string
	Name string
}

var (
	SystemSync   = Actor{ID: "system:sync", Name: "Automated sync"}
	SystemExpiry = Actor{ID: "system:expiry", Name: "Expiry scan"}
)

func (a Actor) IsSystem() bool {
	return a == SystemSync || a == SystemExpiry
}

// StatusNote is the audit text recorded for every permit transition.
func StatusNote(from, to string) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

func ValidatePermitStatus(status string) error {
	if !slices.Contains(models.PermitStatuses, status) {
		return apperr.InvalidEnum("status", status, models.PermitStatuses)
	}
	return nil
}

func ValidateInspectionStatus(status string) error {
	if !slices.Contains(models.InspectionStatuses, status) {
		return apperr.InvalidEnum("status", status, models.InspectionStatuses)
	}
	return nil
}

// TransitionPermit moves p to status and returns the previous status.
// Entering submitted or approved stamps the matching timeline date once.
// Every call appends exactly one note, including a transition to the same status.
func TransitionPermit(p *models.Permit, status string, actor Actor, now time.Time) (string, error) {
	if err := ValidatePermitStatus(status); err != nil {
		return "", err
	}

	now = now.UTC()
	old := p.Status
	p.Status = status

	switch status {
	case models.PermitSubmitted:
		if p.Timeline.SubmissionDate == nil {
			p.Timeline.SubmissionDate = &now
		}
	case models.PermitApproved:
		if p.Timeline.ActualApprovalDate == nil {
			p.Timeline.ActualApprovalDate = &now
		}
	}

	p.Notes = append(p.Notes, models.Note{
		Text:      StatusNote(old, status),
		CreatedBy: actor.ID,
		CreatedAt: now,
	})

	return old, nil
}

var observedInspectionStatuses = []string{
	models.InspectionCompleted,
	models.InspectionPassed,
	models.InspectionFailed,
}

// TransitionInspection moves i to status and returns the previous status.
// actualDate is stamped on the first entry into completed, passed or failed.
func TransitionInspection(i *models.Inspection, status string, now time.Time) (string, error) {
	if err := ValidateInspectionStatus(status); err != nil {
		return "", err
	}

	old := i.Status
	i.Status = status

	if slices.Contains(observedInspectionStatuses, status) && i.ActualDate == nil {
		at := now.UTC()
		i.ActualDate = &at
	}

	return old, nil
}

// IsCritical reports whether entering status warrants an SMS.
func IsCritical(status string) bool {
	return status == models.PermitRejected || status == models.PermitExpired
}
