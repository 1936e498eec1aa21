package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is an account or card money moves through.
type PaymentMethod struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_payment_methods_owner_name_address,priority:1" json:"owner_id"` // Owning user.
	Name        string    `gorm:"type:text;not null;uniqueIndex:idx_payment_methods_owner_name_address,priority:2" json:"name"`
	Address     string    `gorm:"type:text;not null;uniqueIndex:idx_payment_methods_owner_name_address,priority:3" json:"address"` // IBAN, card number or similar.
	Description string    `gorm:"type:text" json:"description"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}
