package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Subscription day-of-month bounds.
const (
	MinExecuteAt = 1
	MaxExecuteAt = 31
)

// Subscription is a recurring transfer materialized monthly.
type Subscription struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID         uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"` // Owning user.
	CategoryID      uint64    `gorm:"not null;index" json:"category_id"`
	PaymentMethodID uint64    `gorm:"not null;index" json:"payment_method_id"`

	Paused    bool `gorm:"not null;default:false" json:"paused"`
	ExecuteAt int  `gorm:"not null;index;check:chk_subscriptions_execute_at,execute_at >= 1 AND execute_at <= 31" json:"execute_at"` // Day of month, 1..31.

	Receiver       string          `gorm:"type:text" json:"receiver"`
	Description    string          `gorm:"type:text" json:"description"`
	TransferAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"transfer_amount"` // Positive is income.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}

// ValidExecuteAt reports whether day is a usable execution day.
func ValidExecuteAt(day int) bool {
	return day >= MinExecuteAt && day <= MaxExecuteAt
}
