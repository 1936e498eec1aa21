package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a registered account.
type User struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex" json:"email"` // Unique login email.
	Name     string `gorm:"type:text;not null" json:"name"`              // Display name.
	Surname  string `gorm:"type:text" json:"surname"`                    // Family name.
	Password string `gorm:"type:text;not null" json:"-"`                 // Hashed password.

	Role Role `gorm:"not null;default:100" json:"role"` // Permission level.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}

// BeforeCreate assigns the identifier and default role.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == 0 {
		u.Role = RoleBasic
	}
	return nil
}
