// internal/services/wallet_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
)

// CreditEntry describes one balance-affecting ledger line.
type CreditEntry struct {
	OwnerID     uuid.UUID
	Amount      int64
	Currency    string
	Type        models.TransactionType
	ReferenceID uuid.UUID
	Metadata    map[string]interface{}
}

// WalletLedger credits wallets on the caller's transaction. Any error must
// abort that transaction.
type WalletLedger interface {
	Credit(ctx context.Context, tx *repository.Store, entry CreditEntry) (*models.Transaction, error)
}

type WalletService struct{}

func NewWalletService() *WalletService {
	return &WalletService{}
}

// Credit gets or creates the owner's wallet, increments its balance in SQL
// and appends the matching transaction. The balance and the log move
// together or not at all because both writes share tx.
func (s *WalletService) Credit(ctx context.Context, tx *repository.Store, entry CreditEntry) (*models.Transaction, error) {
	if entry.Amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, entry.Amount)
	}

	wallet, err := tx.Wallets.Ensure(ctx, entry.OwnerID, entry.Currency)
	if err != nil {
		return nil, err
	}
	if wallet.Currency != entry.Currency {
		return nil, fmt.Errorf("wallet %s holds %s, cannot credit %s", wallet.ID, wallet.Currency, entry.Currency)
	}

	if err := tx.Wallets.Increment(ctx, wallet.ID, entry.Amount); err != nil {
		return nil, err
	}

	txn := &models.Transaction{
		WalletID:    wallet.ID,
		Amount:      entry.Amount,
		Type:        entry.Type,
		Status:      models.TransactionStatusCompleted,
		ReferenceID: entry.ReferenceID,
		Metadata:    datatypes.JSONMap(entry.Metadata),
	}
	if err := tx.Transactions.Append(ctx, txn); err != nil {
		return nil, err
	}

	return txn, nil
}

// Balance returns the owner's wallet, or a zero-balance wallet when the owner
// has never been credited.
func (s *WalletService) Balance(ctx context.Context, store *repository.Store, ownerID uuid.UUID, currency string) (*models.Wallet, error) {
	wallet, err := store.Wallets.FindByOwner(ctx, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Wallet{OwnerID: ownerID, Currency: currency}, nil
	}
	return wallet, err
}
