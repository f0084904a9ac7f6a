package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationSystem   = "system"
	NotificationAlert    = "alert"
	NotificationReminder = "reminder"
	NotificationUpdate   = "update"
	NotificationMessage  = "message"
)

var NotificationTypes = []string{NotificationSystem, NotificationAlert, NotificationReminder, NotificationUpdate, NotificationMessage}

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelPush  = "push"
	ChannelInApp = "in-app"
)

const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
	DeliveryRead    = "read"
)

var NotificationStatuses = []string{DeliveryPending, DeliverySent, DeliveryFailed, DeliveryRead}

type NotificationMetadata struct {
	ProjectID    string `json:"projectId,omitempty"`
	PermitID     string `json:"permitId,omitempty"`
	InspectionID string `json:"inspectionId,omitempty"`
	Link         string `json:"link,omitempty"`
	// Data is an opaque payload; nothing inside the service reads it.
	Data json.RawMessage `json:"data,omitempty"`
}

type Notification struct {
	BaseModel

	UserID   string                                   `gorm:"type:uuid;not null;index:idx_notification_user_status" json:"userId"`
	Type     string                                   `gorm:"not null" json:"type"`
	Title    string                                   `gorm:"not null" json:"title"`
	Content  string                                   `gorm:"not null" json:"content"`
	Channel  string                                   `gorm:"not null" json:"channel"`
	Status   string                                   `gorm:"not null;index:idx_notification_user_status" json:"status"`
	Metadata datatypes.JSONType[NotificationMetadata] `json:"metadata"`
	ReadAt   *time.Time                               `gorm:"index" json:"readAt,omitempty"`
	SentAt   *time.Time                               `json:"sentAt,omitempty"`
}
