package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is a single booked transfer.
type Transaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID         uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"` // Owning user.
	CategoryID      uint64    `gorm:"not null;index" json:"category_id"`
	PaymentMethodID uint64    `gorm:"not null;index" json:"payment_method_id"`
	SubscriptionID  *uint64   `gorm:"index" json:"subscription_id"` // Set when materialized from a subscription.

	ProcessedAt    time.Time       `gorm:"not null;index" json:"processed_at"`
	Receiver       string          `gorm:"type:text" json:"receiver"`
	Description    string          `gorm:"type:text" json:"description"`
	TransferAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"transfer_amount"` // Positive is income.

	Files []TransactionFile `gorm:"foreignKey:TransactionID" json:"files,omitempty"` // Attached files.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"` // Last update timestamp.
}

// TransactionFile describes a stored attachment of a transaction.
type TransactionFile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"` // Primary key.

	OwnerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"` // Owning user.
	TransactionID uint64    `gorm:"not null;index" json:"transaction_id"`

	FileName string `gorm:"type:text;not null" json:"file_name"`
	FileSize int64  `gorm:"not null;default:0" json:"file_size"` // Bytes.
	MimeType string `gorm:"type:text" json:"mime_type"`
	Location string `gorm:"type:text;not null" json:"location"` // Storage URI.

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"` // Creation timestamp.
}
