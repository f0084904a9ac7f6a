package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PermitDraft           = "draft"
	PermitSubmitted       = "submitted"
	PermitUnderReview     = "under_review"
	PermitApproved        = "approved"
	PermitRejected        = "rejected"
	PermitExpired         = "expired"
	PermitRenewalRequired = "renewal_required"
)

var PermitStatuses = []string{
	PermitDraft, PermitSubmitted, PermitUnderReview, PermitApproved,
	PermitRejected, PermitExpired, PermitRenewalRequired,
}

var PermitTypes = []string{"health", "fire", "zoning", "building", "environmental", "alcohol", "signage", "other"}

var PermitPriorities = []string{"critical", "high", "medium", "low"}

const (
	SyncSuccess    = "success"
	SyncFailed     = "failed"
	SyncInProgress = "in_progress"
)

type Jurisdiction struct {
	Agency       string `json:"agency,omitempty"`
	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	ExternalID   string `gorm:"index" json:"externalId,omitempty"`
}

type PermitTimeline struct {
	ApplicationDate       *time.Time `json:"applicationDate,omitempty"`
	SubmissionDate        *time.Time `json:"submissionDate,omitempty"`
	EstimatedApprovalDate *time.Time `json:"estimatedApprovalDate,omitempty"`
	ActualApprovalDate    *time.Time `json:"actualApprovalDate,omitempty"`
	ExpiryDate            *time.Time `gorm:"index" json:"expiryDate,omitempty"`
	RenewalDate           *time.Time `json:"renewalDate,omitempty"`
}

type Contact struct {
	Name       string `json:"name,omitempty"`
	Agency     string `json:"agency,omitempty"`
	Contact    string `json:"contact,omitempty"`
	ExternalID string `json:"externalId,omitempty"`
}

type PermitDocument struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploadedAt"`
	UploadedBy string    `json:"uploadedBy"`
	Status     string    `json:"status"`
	ExternalID string    `json:"externalId,omitempty"`
}

type Requirement struct {
	Description string     `json:"description"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CompletedBy string     `json:"completedBy,omitempty"`
}

type Fee struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Paid        bool       `json:"paid"`
	PaymentDate *time.Time `json:"paymentDate,omitempty"`
}

// Note is one entry of a permit's append-only log.
type Note struct {
	Text      string    `json:"text"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type AutomatedTracking struct {
	LastSynced     *time.Time `json:"lastSynced,omitempty"`
	SyncStatus     string     `json:"syncStatus,omitempty"`
	ExternalStatus string     `json:"externalStatus,omitempty"`
	// Data is the raw external payload, passed through untouched.
	Data datatypes.JSON `json:"data,omitempty"`
}

type Permit struct {
	BaseModel

	ProjectID    string         `gorm:"type:uuid;not null;index" json:"projectId"`
	Name         string         `gorm:"not null" json:"name"`
	Type         string         `gorm:"not null;index" json:"type"`
	Jurisdiction Jurisdiction   `gorm:"embedded;embeddedPrefix:jurisdiction_" json:"jurisdiction"`
	Status       string         `gorm:"not null;index" json:"status"`
	Priority     string         `gorm:"not null" json:"priority"`
	Timeline     PermitTimeline `gorm:"embedded;embeddedPrefix:timeline_" json:"timeline"`
	Inspector    Contact        `gorm:"embedded;embeddedPrefix:inspector_" json:"inspector"`

	Documents    datatypes.JSONSlice[PermitDocument] `json:"documents"`
	Requirements datatypes.JSONSlice[Requirement]    `json:"requirements"`
	Fees         datatypes.JSONSlice[Fee]            `json:"fees"`
	Notes        datatypes.JSONSlice[Note]           `json:"notes"`

	AutomatedTracking AutomatedTracking `gorm:"embedded;embeddedPrefix:tracking_" json:"automatedTracking"`
}
