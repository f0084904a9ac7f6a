package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProjectPlanning   = "planning"
	ProjectInProgress = "in_progress"
	ProjectDelayed    = "delayed"
	ProjectCompleted  = "completed"
	ProjectCancelled  = "cancelled"
)

var ProjectStatuses = []string{ProjectPlanning, ProjectInProgress, ProjectDelayed, ProjectCompleted, ProjectCancelled}

var ProjectCategories = []string{"restaurant", "retail", "office", "industrial", "residential"}

type Location struct {
	Address string   `json:"address"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	ZipCode string   `json:"zipCode"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
}

type Project struct {
	BaseModel

	Name        string     `gorm:"not null" json:"name"`
	Description string     `json:"description,omitempty"`
	Location    Location   `gorm:"embedded;embeddedPrefix:location_" json:"location"`
	TargetDate  time.Time  `gorm:"not null" json:"targetDate"`
	ActualDate  *time.Time `json:"actualDate,omitempty"`
	Category    string     `gorm:"not null" json:"category"`
	Status      string     `gorm:"not null;index" json:"status"`
	OwnerID     string     `gorm:"type:uuid;not null;index" json:"ownerId"`
	Budget      *float64   `json:"budget,omitempty"`

	Tags         datatypes.JSONSlice[string] `json:"tags"`
	CustomFields datatypes.JSON              `json:"customFields,omitempty"`

	CreatedBy      string `gorm:"type:uuid" json:"createdBy,omitempty"`
	LastModifiedBy string `gorm:"type:uuid" json:"lastModifiedBy,omitempty"`

	// Relationships
	Owner *User           `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE" json:"owner,omitempty"`
	Team  []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"team"`
}

// MemberIDs returns the owner and every team member, deduplicated, owner first.
func (p *Project) MemberIDs() []string {
	seen := map[string]bool{p.OwnerID: true}
	ids := []string{p.OwnerID}
	for _, m := range p.Team {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// HasMember reports whether userID owns or is on the team of the project.
func (p *Project) HasMember(userID string) bool {
	if p.OwnerID == userID {
		return true
	}
	for _, m := range p.Team {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
