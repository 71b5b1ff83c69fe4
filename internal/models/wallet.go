// internal/models/wallet.go
package models

import (
	"github.com/google/uuid"
)

// Wallet holds a payee's balance in the smallest currency unit. The balance is
// a cached projection of the wallet's transactions and is only moved by
// WalletRepository.Increment inside a ledger transaction.
type Wallet struct {
	BaseModel
	OwnerID  uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;uniqueIndex"`
	Balance  int64     `json:"balance" gorm:"not null;default:0;check:chk_wallets_balance,balance >= 0"`
	Currency string    `json:"currency" gorm:"size:3;not null"`

	// Relationships
	Transactions []Transaction `json:"transactions,omitempty" gorm:"foreignKey:WalletID"`
}

func (Wallet) TableName() string {
	return "wallets"
}
