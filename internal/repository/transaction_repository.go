// internal/repository/transaction_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/models"
)

type TransactionRepository struct {
	db *gorm.DB
}

func (r *TransactionRepository) Append(ctx context.Context, txn *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		return fmt.Errorf("failed to append %s transaction: %w", txn.Type, translate(err))
	}
	return nil
}

func (r *TransactionRepository) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at").
		Find(&txns).Error
	return txns, err
}

func (r *TransactionRepository) ListByWallet(ctx context.Context, walletID uuid.UUID, txnType models.TransactionType) ([]models.Transaction, error) {
	var txns []models.Transaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND type = ?", walletID, txnType).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

type WalletSum struct {
	WalletID uuid.UUID
	Total    int64
	Count    int64
}

// SumByWallet totals every transaction per wallet.
func (r *TransactionRepository) SumByWallet(ctx context.Context) (map[uuid.UUID]WalletSum, error) {
	var rows []WalletSum
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("wallet_id, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("wallet_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum transactions: %w", err)
	}

	sums := make(map[uuid.UUID]WalletSum, len(rows))
	for _, row := range rows {
		sums[row.WalletID] = row
	}
	return sums, nil
}

func (r *TransactionRepository) SumByType(ctx context.Context, txnType models.TransactionType) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("type = ?", txnType).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// SumByReferences totals transactions per referenced purchase.
func (r *TransactionRepository) SumByReferences(ctx context.Context, referenceIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(referenceIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}

	var rows []struct {
		ReferenceID uuid.UUID
		Total       int64
	}
	err := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("reference_id, COALESCE(SUM(amount), 0) AS total").
		Where("reference_id IN ?", referenceIDs).
		Group("reference_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum purchase credits: %w", err)
	}

	sums := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		sums[row.ReferenceID] = row.Total
	}
	return sums, nil
}
