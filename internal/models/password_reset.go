package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordReset is a one-time token authorizing a single password change.
type PasswordReset struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	OwnerID uuid.UUID `gorm:"type:uuid;not null;index"`       // User the token was issued for.
	Token   string    `gorm:"type:text;not null;uniqueIndex"` // Random hex token.
	Used    bool      `gorm:"not null;default:false"`         // Set once consumed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Issue timestamp.
}

// Expired reports whether the token is older than ttl at now.
func (p *PasswordReset) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(p.CreatedAt) > ttl
}
