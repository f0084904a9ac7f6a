package models

import "gorm.io/datatypes"

type ProjectMember struct {
	BaseModel

	ProjectID   string                      `gorm:"type:uuid;not null;uniqueIndex:idx_member_project" json:"projectId"`
	UserID      string                      `gorm:"type:uuid;not null;uniqueIndex:idx_member_project" json:"userId"`
	Role        string                      `gorm:"not null" json:"role"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"user,omitempty"`
}
