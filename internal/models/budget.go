package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Budget is a monthly spending target for one category.
type Budget struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_owner_category,priority:1" json:"owner_id"` // Owning user.
	CategoryID uint64          `gorm:"not null;uniqueIndex:idx_budgets_owner_category,priority:2" json:"category_id"`        // One budget per category.
	Amount     decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`                                            // Target amount.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}
