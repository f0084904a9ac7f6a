package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Project{},
		&ProjectMember{},
		&Permit{},
		&Inspection{},
		&Notification{},
	}
}
