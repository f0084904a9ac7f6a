package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	InspectionScheduled   = "scheduled"
	InspectionInProgress  = "in_progress"
	InspectionCompleted   = "completed"
	InspectionPassed      = "passed"
	InspectionFailed      = "failed"
	InspectionCancelled   = "cancelled"
	InspectionRescheduled = "rescheduled"
)

var InspectionStatuses = []string{
	InspectionScheduled, InspectionInProgress, InspectionCompleted, InspectionPassed,
	InspectionFailed, InspectionCancelled, InspectionRescheduled,
}

var ChecklistStatuses = []string{"pending", "pass", "fail", "na"}

var FindingSeverities = []string{"critical", "major", "minor"}

var FindingStatuses = []string{"open", "in_progress", "resolved"}

type InspectionLocation struct {
	Address      string `json:"address,omitempty"`
	MeetingPoint string `json:"meetingPoint,omitempty"`
	Instructions string `json:"instructions,omitempty"`
}

type ChecklistItem struct {
	Item        string    `json:"item"`
	Requirement string    `json:"requirement,omitempty"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes,omitempty"`
	Photos      []string  `json:"photos,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type Finding struct {
	ID               string     `json:"id"`
	Type             string     `json:"type,omitempty"`
	Description      string     `json:"description"`
	Severity         string     `json:"severity"`
	CorrectiveAction string     `json:"correctiveAction,omitempty"`
	DueDate          *time.Time `json:"dueDate,omitempty"`
	Status           string     `json:"status"`
}

type Attendee struct {
	UserID    string `json:"user"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
}

type InspectionDocument struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

type Inspection struct {
	BaseModel

	PermitID      string             `gorm:"type:uuid;not null;index" json:"permitId"`
	ProjectID     string             `gorm:"type:uuid;not null;index" json:"projectId"`
	Type          string             `gorm:"not null" json:"type"`
	ScheduledDate time.Time          `gorm:"not null;index" json:"scheduledDate"`
	ActualDate    *time.Time         `json:"actualDate,omitempty"`
	Status        string             `gorm:"not null;index" json:"status"`
	Inspector     Contact            `gorm:"embedded;embeddedPrefix:inspector_" json:"inspector"`
	Location      InspectionLocation `gorm:"embedded;embeddedPrefix:location_" json:"location"`

	Checklist datatypes.JSONSlice[ChecklistItem]      `json:"checklist"`
	Findings  datatypes.JSONSlice[Finding]            `json:"findings"`
	Attendees datatypes.JSONSlice[Attendee]           `json:"attendees"`
	Documents datatypes.JSONSlice[InspectionDocument] `json:"documents"`

	Notes              string     `json:"notes,omitempty"`
	FollowUpRequired   bool       `json:"followUpRequired"`
	NextInspectionDate *time.Time `json:"nextInspectionDate,omitempty"`
	ReminderSentAt     *time.Time `json:"reminderSentAt,omitempty"`
}

// AttendeeIDs returns attendee user ids, deduplicated, in order.
func (i *Inspection) AttendeeIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, a := range i.Attendees {
		if a.UserID != "" && !seen[a.UserID] {
			seen[a.UserID] = true
			ids = append(ids, a.UserID)
		}
	}
	return ids
}
