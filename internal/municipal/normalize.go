package municipal

import (
	"strings"

	"github.com/offolaunch/launchtrack/internal/models"
)

var statusTable = map[string]string{
	"pending":          models.PermitSubmitted,
	"in_review":        models.PermitUnderReview,
	"under_review":     models.PermitUnderReview,
	"approved":         models.PermitApproved,
	"rejected":         models.PermitRejected,
	"denied":           models.PermitRejected,
	"expired":          models.PermitExpired,
	"renewal_required": models.PermitRenewalRequired,
}

// NormalizeStatus translates an agency status into a permit status.
// Unrecognized values map to submitted so unexpected vocabulary never blocks a sync.
func NormalizeStatus(external string) string {
	if s, ok := statusTable[strings.ToLower(strings.TrimSpace(external))]; ok {
		return s
	}
	return models.PermitSubmitted
}
