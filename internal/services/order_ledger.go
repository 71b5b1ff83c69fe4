// internal/services/order_ledger.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
)

// OrderLedger owns the purchase state machine:
//
//	PENDING -> COMPLETED
//	PENDING -> FAILED
//
// COMPLETED and FAILED are terminal. Every transition is a conditional update
// on the current status, so concurrent writers cannot both win.
type OrderLedger struct {
	store    *repository.Store
	catalog  ItemCatalog
	currency string
}

// OrderHandle is the live purchase for a (buyer, item) pair together with
// the item as priced right now.
type OrderHandle struct {
	Purchase *models.Purchase
	Item     *Item
	Reused   bool
}

func NewOrderLedger(store *repository.Store, catalog ItemCatalog, currency string) *OrderLedger {
	return &OrderLedger{store: store, catalog: catalog, currency: currency}
}

// CreateOrGetPendingOrder returns the buyer's PENDING purchase of the item,
// creating it at the item's current price when none exists.
func (l *OrderLedger) CreateOrGetPendingOrder(ctx context.Context, buyerID, itemID uuid.UUID) (*OrderHandle, error) {
	item, err := l.catalog.GetPurchasableItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsPurchasable || item.Price <= 0 {
		return nil, ErrItemNotPurchasable
	}
	if item.SellerID == buyerID {
		return nil, ErrOwnItem
	}

	existing, err := l.store.Purchases.FindLive(ctx, buyerID, itemID)
	switch {
	case err == nil:
		return l.reuse(existing, item)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to look up purchase: %w", err)
	}

	purchase := &models.Purchase{
		BuyerID:  buyerID,
		ItemID:   itemID,
		SellerID: item.SellerID,
		Amount:   item.Price,
		Currency: l.currency,
		Status:   models.PurchaseStatusPending,
	}
	err = l.store.Purchases.Create(ctx, purchase)
	if err == nil {
		return &OrderHandle{Purchase: purchase, Item: item}, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	// A concurrent request inserted the live row first; use theirs.
	existing, err = l.store.Purchases.FindLive(ctx, buyerID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to re-read purchase after conflict: %w", err)
	}
	return l.reuse(existing, item)
}

func (l *OrderLedger) reuse(purchase *models.Purchase, item *Item) (*OrderHandle, error) {
	if purchase.Status == models.PurchaseStatusCompleted {
		return nil, ErrAlreadyPurchased
	}
	return &OrderHandle{Purchase: purchase, Item: item, Reused: true}, nil
}

// AttachGatewayOrder points the PENDING purchase at a freshly opened gateway
// order, updating the amount to what that order charges.
func (l *OrderLedger) AttachGatewayOrder(ctx context.Context, purchaseID uuid.UUID, order *GatewayOrder, gateway, receipt string) error {
	ok, err := l.store.Purchases.AttachOrder(ctx, purchaseID, order.ID, order.Amount, order.Currency, gateway, receipt)
	if err != nil {
		return fmt.Errorf("failed to attach gateway order: %w", err)
	}
	if ok {
		return nil
	}

	current, err := l.store.Purchases.FindByID(ctx, purchaseID)
	if err != nil {
		return fmt.Errorf("failed to re-read purchase: %w", err)
	}
	if current.Status == models.PurchaseStatusCompleted {
		return ErrAlreadyPurchased
	}
	return ErrOrderClosed
}

// MarkCompleted moves a PENDING purchase to COMPLETED on tx, recording the
// payment and the seller actually credited. It reports false without error
// when the purchase is already COMPLETED.
func (l *OrderLedger) MarkCompleted(ctx context.Context, tx *repository.Store, purchase *models.Purchase, paymentID, signature string, sellerID uuid.UUID) (bool, error) {
	switch purchase.Status {
	case models.PurchaseStatusCompleted:
		return false, nil
	case models.PurchaseStatusFailed:
		return false, fmt.Errorf("%w: purchase %s is FAILED", ErrIllegalTransition, purchase.ID)
	}

	// Gateways confirmed server side hand back no signature.
	var storedSignature *string
	if signature != "" {
		storedSignature = &signature
	}

	now := time.Now().UTC()
	applied, err := tx.Purchases.Transition(ctx, purchase.ID, models.PurchaseStatusPending, models.PurchaseStatusCompleted, map[string]interface{}{
		"payment_id":   paymentID,
		"signature":    storedSignature,
		"seller_id":    sellerID,
		"completed_at": now,
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete purchase: %w", err)
	}
	if !applied {
		return false, nil
	}

	purchase.Status = models.PurchaseStatusCompleted
	purchase.PaymentID = &paymentID
	purchase.Signature = storedSignature
	purchase.SellerID = sellerID
	purchase.CompletedAt = &now
	return true, nil
}

// MarkFailed moves the purchase holding orderID to FAILED. Failing an already
// FAILED purchase is a no-op; failing a COMPLETED one is ErrIllegalTransition.
func (l *OrderLedger) MarkFailed(ctx context.Context, orderID, reason string) error {
	purchase, err := l.store.Purchases.FindByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load purchase: %w", err)
	}

	if !purchase.CanTransitionTo(models.PurchaseStatusFailed) {
		return l.refuseFailure(purchase)
	}

	now := time.Now().UTC()
	applied, err := l.store.Purchases.Transition(ctx, purchase.ID, models.PurchaseStatusPending, models.PurchaseStatusFailed, map[string]interface{}{
		"failed_at":      now,
		"failure_reason": reason,
	})
	if err != nil {
		return fmt.Errorf("failed to mark purchase failed: %w", err)
	}
	if applied {
		logrus.WithFields(logrus.Fields{
			"purchase_id": purchase.ID,
			"order_id":    orderID,
			"reason":      reason,
		}).Warn("Purchase marked failed")
		return nil
	}

	// Lost a race; report against whatever status won.
	current, err := l.store.Purchases.FindByID(ctx, purchase.ID)
	if err != nil {
		return fmt.Errorf("failed to re-read purchase: %w", err)
	}
	return l.refuseFailure(current)
}

func (l *OrderLedger) refuseFailure(purchase *models.Purchase) error {
	if purchase.Status == models.PurchaseStatusFailed {
		return nil
	}
	logrus.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"order_id":    purchase.GatewayOrderID(),
		"status":      purchase.Status,
	}).Error("Refusing to fail a completed purchase")
	return fmt.Errorf("%w: purchase %s is %s", ErrIllegalTransition, purchase.ID, purchase.Status)
}
