// internal/repository/wallet_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/inkwell-backend/internal/models"
)

type WalletRepository struct {
	db *gorm.DB
}

// Ensure returns the owner's wallet, creating it on first use, and holds a
// row lock on it for the rest of the transaction. Concurrent first sales for
// the same owner converge on a single row through ON CONFLICT DO NOTHING.
func (r *WalletRepository) Ensure(ctx context.Context, ownerID uuid.UUID, currency string) (*models.Wallet, error) {
	candidate := &models.Wallet{OwnerID: ownerID, Currency: currency}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "owner_id"}}, DoNothing: true}).
		Create(candidate).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", translate(err))
	}

	var wallet models.Wallet
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", translate(err))
	}
	return &wallet, nil
}

// Increment applies delta to the balance in SQL; the balance is never
// read, modified and written back from Go.
func (r *WalletRepository) Increment(ctx context.Context, walletID uuid.UUID, delta int64) error {
	result := r.db.WithContext(ctx).Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance", gorm.Expr("balance + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet balance: %w", result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("wallet %s: %w", walletID, ErrNotFound)
	}
	return nil
}

func (r *WalletRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&wallet).Error; err != nil {
		return nil, translate(err)
	}
	return &wallet, nil
}

func (r *WalletRepository) List(ctx context.Context) ([]models.Wallet, error) {
	var wallets []models.Wallet
	if err := r.db.WithContext(ctx).Order("created_at").Find(&wallets).Error; err != nil {
		return nil, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, nil
}
