package models

import "time"

const (
	RoleAdmin          = "admin"
	RoleProjectManager = "project_manager"
	RoleInspector      = "inspector"
	RoleContractor     = "contractor"
	RoleViewer         = "viewer"
)

var UserRoles = []string{RoleAdmin, RoleProjectManager, RoleInspector, RoleContractor, RoleViewer}

type NotificationPreferences struct {
	EmailNotifications bool `json:"emailNotifications"`
	SMSNotifications   bool `json:"smsNotifications"`
	PushNotifications  bool `json:"pushNotifications"`
}

// DefaultPreferences enables every channel. Set in code rather than as a
// column default so an explicit false survives insert.
func DefaultPreferences() NotificationPreferences {
	return NotificationPreferences{EmailNotifications: true, SMSNotifications: true, PushNotifications: true}
}

type User struct {
	BaseModel

	Email        string                  `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string                  `gorm:"not null" json:"-"`
	Name         string                  `gorm:"not null" json:"name"`
	Role         string                  `gorm:"not null" json:"role"`
	Phone        string                  `json:"phone,omitempty"`
	Avatar       string                  `json:"avatar,omitempty"`
	Organization string                  `json:"organization,omitempty"`
	Preferences  NotificationPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	IsActive     bool                    `gorm:"not null" json:"isActive"`
	LastLogin    *time.Time              `json:"lastLogin,omitempty"`
}
