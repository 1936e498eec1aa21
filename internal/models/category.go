package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups transactions under a user-defined label.
type Category struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_categories_owner_name,priority:1" json:"owner_id"` // Owning user.
	Name        string    `gorm:"type:text;not null;uniqueIndex:idx_categories_owner_name,priority:2" json:"name"`     // Unique per owner.
	Description string    `gorm:"type:text" json:"description"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}
