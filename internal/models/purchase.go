// internal/models/purchase.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase is one buyer's attempt to acquire one exclusive post. At most one
// non-FAILED purchase exists per (buyer, item); see database.createIndexes.
type Purchase struct {
	BaseModel
	BuyerID       uuid.UUID      `json:"buyer_id" gorm:"type:uuid;not null;index"`
	ItemID        uuid.UUID      `json:"item_id" gorm:"type:uuid;not null;index"`
	SellerID      uuid.UUID      `json:"seller_id" gorm:"type:uuid;not null;index"`
	OrderID       *string        `json:"order_id" gorm:"size:64;uniqueIndex"`
	PaymentID     *string        `json:"payment_id,omitempty" gorm:"size:64"`
	Signature     *string        `json:"-" gorm:"size:128"`
	Amount        int64          `json:"amount" gorm:"not null"`
	Currency      string         `json:"currency" gorm:"size:3;not null"`
	Gateway       string         `json:"gateway,omitempty" gorm:"size:20"`
	Receipt       string         `json:"receipt,omitempty" gorm:"size:40"`
	Status        PurchaseStatus `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	FailedAt      *time.Time     `json:"failed_at,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty" gorm:"size:255"`
}

func (Purchase) TableName() string {
	return "purchases"
}

func (p *Purchase) IsTerminal() bool {
	return p.Status == PurchaseStatusCompleted || p.Status == PurchaseStatusFailed
}

// CanTransitionTo reports whether moving from the current status to next is a
// legal step of the purchase state machine.
func (p *Purchase) CanTransitionTo(next PurchaseStatus) bool {
	if p.Status != PurchaseStatusPending {
		return false
	}
	return next == PurchaseStatusCompleted || next == PurchaseStatusFailed
}

func (p *Purchase) GatewayOrderID() string {
	if p.OrderID == nil {
		return ""
	}
	return *p.OrderID
}
