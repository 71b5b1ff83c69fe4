// internal/repository/purchase_repository.go
package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).First(&purchase, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

func (r *PurchaseRepository) FindByOrderID(ctx context.Context, orderID string) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&purchase).Error; err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

// FindLive returns the buyer's non-FAILED purchase of the item, if any.
func (r *PurchaseRepository) FindLive(ctx context.Context, buyerID, itemID uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND item_id = ? AND status <> ?", buyerID, itemID, models.PurchaseStatusFailed).
		First(&purchase).Error
	if err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

func (r *PurchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	return translate(r.db.WithContext(ctx).Create(purchase).Error)
}

// LockByID reads the purchase with a row lock held until the surrounding
// transaction ends.
func (r *PurchaseRepository) LockByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

// AttachOrder points a PENDING purchase at a freshly opened gateway order.
// It reports false when the purchase is no longer PENDING.
func (r *PurchaseRepository) AttachOrder(ctx context.Context, id uuid.UUID, orderID string, amount int64, currency, gateway, receipt string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, models.PurchaseStatusPending).
		Updates(map[string]interface{}{
			"order_id": orderID,
			"amount":   amount,
			"currency": currency,
			"gateway":  gateway,
			"receipt":  receipt,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Transition moves a purchase from one status to another as a conditional
// update, so two racing writers cannot both apply it. It reports whether this
// call performed the transition.
func (r *PurchaseRepository) Transition(ctx context.Context, id uuid.UUID, from, to models.PurchaseStatus, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range fields {
		updates[k] = v
	}

	result := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *PurchaseRepository) ListCompletedByBuyer(ctx context.Context, buyerID uuid.UUID, params utils.PaginationParams) ([]models.Purchase, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("buyer_id = ? AND status = ?", buyerID, models.PurchaseStatusCompleted)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	allowedSortFields := []string{"created_at", "completed_at", "amount"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var purchases []models.Purchase
	if err := query.Find(&purchases).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch purchases: %w", err)
	}

	return purchases, total, nil
}

type PurchaseTotals struct {
	Count  int64
	Amount int64
}

func (r *PurchaseRepository) CompletedTotals(ctx context.Context) (PurchaseTotals, error) {
	var totals PurchaseTotals
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("status = ?", models.PurchaseStatusCompleted).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Scan(&totals).Error
	return totals, err
}

// CompletedTotalsBySeller sums the seller's COMPLETED sales, including those
// where the platform kept the whole amount.
func (r *PurchaseRepository) CompletedTotalsBySeller(ctx context.Context, sellerID uuid.UUID) (PurchaseTotals, error) {
	var totals PurchaseTotals
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("seller_id = ? AND status = ?", sellerID, models.PurchaseStatusCompleted).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS amount").
		Scan(&totals).Error
	return totals, err
}

// FindCompletedInBatches streams COMPLETED purchases to fn in id order.
func (r *PurchaseRepository) FindCompletedInBatches(ctx context.Context, batchSize int, fn func([]models.Purchase) error) error {
	var batch []models.Purchase
	result := r.db.WithContext(ctx).
		Where("status = ?", models.PurchaseStatusCompleted).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}
