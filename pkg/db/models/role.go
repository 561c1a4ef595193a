package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role is a named capability assignment. A user's effective role is computed
// from their assignment rows, never stored on the user.
type Role struct {
	ID   uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name string    `gorm:"column:name;not null;uniqueIndex"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
