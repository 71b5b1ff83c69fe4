// internal/models/common.go
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields. IDs are generated in the application so the
// same models migrate on Postgres and SQLite.
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// Enums
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "PENDING"
	PurchaseStatusCompleted PurchaseStatus = "COMPLETED"
	PurchaseStatusFailed    PurchaseStatus = "FAILED"
)

type TransactionType string

const (
	TransactionTypeEarning     TransactionType = "EARNING"
	TransactionTypePlatformFee TransactionType = "PLATFORM_FEE"
)

type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
)
