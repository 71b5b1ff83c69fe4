// internal/models/transaction.go
package models

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrLedgerImmutable = errors.New("ledger transactions are append-only")

// Transaction is an immutable ledger entry against a wallet. The unique
// (reference_id, type) pair means a purchase can be credited at most once per
// entry type.
type Transaction struct {
	BaseModel
	WalletID    uuid.UUID         `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Amount      int64             `json:"amount" gorm:"not null"`
	Type        TransactionType   `json:"type" gorm:"type:varchar(20);not null;uniqueIndex:idx_transactions_reference_type,priority:2"`
	Status      TransactionStatus `json:"status" gorm:"type:varchar(20);not null"`
	ReferenceID uuid.UUID         `json:"reference_id" gorm:"type:uuid;not null;uniqueIndex:idx_transactions_reference_type,priority:1"`
	Metadata    datatypes.JSONMap `json:"metadata"`

	// Relationships
	Wallet *Wallet `json:"wallet,omitempty" gorm:"foreignKey:WalletID"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrLedgerImmutable
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrLedgerImmutable
}
