// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/metrics"
	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

const ledgerAttempts = 3

// errAlreadyCompleted unwinds a verification transaction that found the
// purchase completed by a concurrent request.
var errAlreadyCompleted = errors.New("purchase already completed")

// PaymentDeps are the collaborators of PaymentService. Ledger, Wallets and
// Notifier get defaults when left nil.
type PaymentDeps struct {
	Store    *repository.Store
	Catalog  ItemCatalog
	Gateway  PaymentGateway
	Ledger   *OrderLedger
	Wallets  WalletLedger
	Settings *SettingsService
	Notifier Notifier
	Receipts *ReceiptGenerator
	Config   config.PaymentConfig
}

// PaymentService is the single entry point for buying exclusive posts. It
// coordinates the gateway, the order ledger and the wallet ledger.
type PaymentService struct {
	store    *repository.Store
	catalog  ItemCatalog
	gateway  PaymentGateway
	ledger   *OrderLedger
	wallets  WalletLedger
	balances *WalletService
	settings *SettingsService
	notifier Notifier
	receipts *ReceiptGenerator
	config   config.PaymentConfig
}

func NewPaymentService(deps PaymentDeps) *PaymentService {
	s := &PaymentService{
		store:    deps.Store,
		catalog:  deps.Catalog,
		gateway:  deps.Gateway,
		ledger:   deps.Ledger,
		wallets:  deps.Wallets,
		balances: NewWalletService(),
		settings: deps.Settings,
		notifier: deps.Notifier,
		receipts: deps.Receipts,
		config:   deps.Config,
	}
	if s.ledger == nil {
		s.ledger = NewOrderLedger(deps.Store, deps.Catalog, deps.Config.Currency)
	}
	if s.wallets == nil {
		s.wallets = s.balances
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier()
	}
	return s
}

type OrderResponse struct {
	ID           string    `json:"id"`
	Amount       int64     `json:"amount"`
	Currency     string    `json:"currency"`
	KeyID        string    `json:"key_id"`
	Gateway      string    `json:"gateway"`
	PurchaseID   uuid.UUID `json:"purchase_id"`
	ClientSecret string    `json:"client_secret,omitempty"`
}

type VerifyRequest struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
}

type Receipt struct {
	PurchaseID         uuid.UUID             `json:"purchase_id"`
	OrderID            string                `json:"order_id"`
	PaymentID          string                `json:"payment_id"`
	ItemID             uuid.UUID             `json:"item_id"`
	SellerID           uuid.UUID             `json:"seller_id"`
	Status             models.PurchaseStatus `json:"status"`
	Amount             int64                 `json:"amount"`
	Currency           string                `json:"currency"`
	CreatorShare       int64                 `json:"creator_share"`
	PlatformShare      int64                 `json:"platform_share"`
	PlatformFeePercent string                `json:"platform_fee_percent"`
	TransactionID      *uuid.UUID            `json:"transaction_id,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	// Duplicate is set when the purchase had already been verified and this
	// call credited nothing.
	Duplicate bool `json:"duplicate"`
}

type PurchaseSummary struct {
	ID          uuid.UUID             `json:"id"`
	OrderID     string                `json:"order_id"`
	Amount      int64                 `json:"amount"`
	Currency    string                `json:"currency"`
	Status      models.PurchaseStatus `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Item        *ItemSummary          `json:"item"`
}

type EarningLine struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	PurchaseID    uuid.UUID `json:"purchase_id"`
	ItemID        string    `json:"item_id"`
	BuyerID       string    `json:"buyer_id"`
	Description   string    `json:"description"`
	Amount        int64     `json:"amount"`
	GrossAmount   int64     `json:"gross_amount"`
	PlatformShare int64     `json:"platform_share"`
	CreatedAt     time.Time `json:"created_at"`
}

type EarningsSummary struct {
	TotalEarnings      int64           `json:"total_earnings"`
	PlatformFees       int64           `json:"platform_fees"`
	TotalSales         int             `json:"total_sales"`
	PlatformFeePercent decimal.Decimal `json:"platform_fee_percent"`
	Balance            int64           `json:"balance"`
	Currency           string          `json:"currency"`
	Earnings           []EarningLine   `json:"earnings"`
}

// CreateOrder opens a gateway order for the buyer's live purchase of itemID.
// If the gateway fails, the purchase keeps pointing at its previous order (or
// none) and the caller may simply retry.
func (s *PaymentService) CreateOrder(ctx context.Context, buyerID, itemID uuid.UUID) (*OrderResponse, error) {
	handle, err := s.ledger.CreateOrGetPendingOrder(ctx, buyerID, itemID)
	if err != nil {
		metrics.OrdersCreated.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}
	purchase := handle.Purchase

	logger := logrus.WithFields(logrus.Fields{
		"purchase_id": purchase.ID,
		"buyer_id":    buyerID,
		"item_id":     itemID,
	})

	receipt := s.receipts.Next()
	order, err := createGatewayOrder(ctx, s.gateway, s.config.GatewayTimeoutDuration(), OrderRequest{
		Amount:   handle.Item.Price,
		Currency: s.config.Currency,
		Receipt:  receipt,
		Notes:    orderNotes(buyerID, itemID, purchase.ID),
	})
	if err != nil {
		metrics.OrdersCreated.WithLabelValues(metrics.OutcomeError).Inc()
		logger.WithError(err).Warn("Payment gateway failed to open order")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGatewayUnavailable, err)
	}
	if order.Amount != handle.Item.Price {
		metrics.OrdersCreated.WithLabelValues(metrics.OutcomeError).Inc()
		logger.WithFields(logrus.Fields{
			"gateway_order_id": order.ID,
			"gateway_amount":   order.Amount,
			"price":            handle.Item.Price,
		}).Error("Payment gateway opened order for the wrong amount")
		return nil, fmt.Errorf("%w: order amount mismatch", ErrPaymentGatewayUnavailable)
	}

	if err := s.ledger.AttachGatewayOrder(ctx, purchase.ID, order, s.gateway.Name(), receipt); err != nil {
		metrics.OrdersCreated.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	}

	metrics.OrdersCreated.WithLabelValues(metrics.OutcomeCompleted).Inc()
	logger.WithFields(logrus.Fields{
		"gateway_order_id": order.ID,
		"amount":           order.Amount,
		"reused":           handle.Reused,
	}).Info("Gateway order opened")

	return &OrderResponse{
		ID:           order.ID,
		Amount:       order.Amount,
		Currency:     order.Currency,
		KeyID:        s.gateway.PublicKey(),
		Gateway:      s.gateway.Name(),
		PurchaseID:   purchase.ID,
		ClientSecret: order.ClientSecret,
	}, nil
}

// VerifyPayment checks a gateway callback and, when authentic, completes the
// purchase and credits the seller and the platform in one transaction.
// Verifying an already completed purchase returns its receipt again.
func (s *PaymentService) VerifyPayment(ctx context.Context, buyerID uuid.UUID, req VerifyRequest) (*Receipt, error) {
	logger := logrus.WithFields(logrus.Fields{
		"buyer_id":         buyerID,
		"gateway_order_id": req.GatewayOrderID,
		"payment_id":       req.PaymentID,
	})

	purchase, err := s.store.Purchases.FindByOrderID(ctx, req.GatewayOrderID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.Verifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrOrderNotFound
	}
	if err != nil {
		metrics.Verifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}

	if purchase.BuyerID != buyerID {
		metrics.Verifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		logger.WithField("purchase_id", purchase.ID).Warn("Verification attempted by a different buyer")
		return nil, ErrOrderOwnershipMismatch
	}

	switch purchase.Status {
	case models.PurchaseStatusCompleted:
		metrics.Verifications.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		return s.existingReceipt(ctx, purchase)
	case models.PurchaseStatusFailed:
		metrics.Verifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrOrderClosed
	}

	err = confirmGatewayPayment(ctx, s.gateway, s.config.GatewayTimeoutDuration(), PaymentConfirmation{
		GatewayOrderID: req.GatewayOrderID,
		PaymentID:      req.PaymentID,
		Signature:      req.Signature,
		Amount:         purchase.Amount,
		Currency:       purchase.Currency,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidSignature):
		metrics.Verifications.WithLabelValues(metrics.OutcomeInvalidSignature).Inc()
		logger.WithError(err).Warn("Payment rejected by gateway confirmation")
		if err := s.ledger.MarkFailed(ctx, req.GatewayOrderID, "payment not confirmed"); err != nil {
			logger.WithError(err).Error("Could not mark purchase failed after rejected confirmation")
		}
		return nil, ErrInvalidSignature
	case errors.Is(err, ErrPaymentIncomplete):
		metrics.Verifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		logger.WithError(err).Info("Payment not settled yet; purchase left PENDING")
		return nil, err
	case errors.Is(err, ErrPaymentGatewayUnavailable), errors.Is(err, context.DeadlineExceeded):
		metrics.Verifications.WithLabelValues(metrics.OutcomeError).Inc()
		logger.WithError(err).Warn("Payment gateway unavailable during confirmation")
		return nil, fmt.Errorf("%w: %v", ErrPaymentGatewayUnavailable, err)
	default:
		metrics.Verifications.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	var receipt *Receipt
	err = retry.Do(
		func() error {
			return s.store.WithTransaction(ctx, func(tx *repository.Store) error {
				r, err := s.settle(ctx, tx, purchase.ID, req)
				receipt = r
				return err
			})
		},
		retry.Attempts(ledgerAttempts),
		retry.Delay(25*time.Millisecond),
		retry.RetryIf(repository.IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			metrics.LedgerRetries.Inc()
			logger.WithError(err).WithField("attempt", n+1).Warn("Retrying payment verification")
		}),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)

	switch {
	case err == nil:
	case errors.Is(err, errAlreadyCompleted):
		metrics.Verifications.WithLabelValues(metrics.OutcomeDuplicate).Inc()
		current, err := s.store.Purchases.FindByID(ctx, purchase.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload purchase: %w", err)
		}
		return s.existingReceipt(ctx, current)
	case errors.Is(err, ErrOrderClosed), errors.Is(err, ErrOrderNotFound):
		metrics.Verifications.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, err
	default:
		metrics.Verifications.WithLabelValues(metrics.OutcomeError).Inc()
		logger.WithError(err).WithField("purchase_id", purchase.ID).
			Error("Ledger transaction failed; purchase left PENDING")
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailure, err)
	}

	metrics.Verifications.WithLabelValues(metrics.OutcomeCompleted).Inc()
	metrics.CreditedAmount.WithLabelValues(string(models.TransactionTypeEarning)).Add(float64(receipt.CreatorShare))
	metrics.CreditedAmount.WithLabelValues(string(models.TransactionTypePlatformFee)).Add(float64(receipt.PlatformShare))
	logger.WithFields(logrus.Fields{
		"purchase_id":    receipt.PurchaseID,
		"seller_id":      receipt.SellerID,
		"amount":         receipt.Amount,
		"creator_share":  receipt.CreatorShare,
		"platform_share": receipt.PlatformShare,
	}).Info("Payment verified")

	if receipt.CreatorShare > 0 {
		s.notify(ctx, purchase, receipt)
	}
	return receipt, nil
}

// settle is the body of the verification transaction. The fee rate is read
// once up front so a concurrent rate change cannot split one sale two ways.
func (s *PaymentService) settle(ctx context.Context, tx *repository.Store, purchaseID uuid.UUID, req VerifyRequest) (*Receipt, error) {
	fee, err := s.settings.PlatformFeePercent(ctx, tx)
	if err != nil {
		return nil, err
	}

	purchase, err := tx.Purchases.LockByID(ctx, purchaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock purchase: %w", err)
	}
	switch purchase.Status {
	case models.PurchaseStatusCompleted:
		return nil, errAlreadyCompleted
	case models.PurchaseStatusFailed:
		return nil, ErrOrderClosed
	}
	if purchase.GatewayOrderID() != req.GatewayOrderID {
		// A newer createOrder replaced the gateway order being verified.
		return nil, ErrOrderNotFound
	}

	sellerID, title, err := s.resolveSeller(ctx, purchase)
	if err != nil {
		return nil, err
	}
	subject := saleSubject(title, purchase.ItemID)

	applied, err := s.ledger.MarkCompleted(ctx, tx, purchase, req.PaymentID, req.Signature, sellerID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, errAlreadyCompleted
	}

	split, err := ComputeSplit(purchase.Amount, fee)
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{
		PurchaseID:         purchase.ID,
		OrderID:            req.GatewayOrderID,
		PaymentID:          req.PaymentID,
		ItemID:             purchase.ItemID,
		SellerID:           sellerID,
		Status:             purchase.Status,
		Amount:             purchase.Amount,
		Currency:           purchase.Currency,
		CreatorShare:       split.CreatorShare,
		PlatformShare:      split.PlatformShare,
		PlatformFeePercent: fee.String(),
		CompletedAt:        purchase.CompletedAt,
	}

	if split.CreatorShare > 0 {
		earning, err := s.wallets.Credit(ctx, tx, CreditEntry{
			OwnerID:     sellerID,
			Amount:      split.CreatorShare,
			Currency:    purchase.Currency,
			Type:        models.TransactionTypeEarning,
			ReferenceID: purchase.ID,
			Metadata: map[string]interface{}{
				"item_id":              purchase.ItemID.String(),
				"buyer_id":             purchase.BuyerID.String(),
				"order_id":             req.GatewayOrderID,
				"description":          "Sale of " + subject,
				"gross_amount":         purchase.Amount,
				"platform_share":       split.PlatformShare,
				"platform_fee_percent": fee.String(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit seller: %w", err)
		}
		receipt.TransactionID = &earning.ID
	}

	if split.PlatformShare > 0 {
		_, err := s.wallets.Credit(ctx, tx, CreditEntry{
			OwnerID:     s.config.PlatformOwnerID,
			Amount:      split.PlatformShare,
			Currency:    purchase.Currency,
			Type:        models.TransactionTypePlatformFee,
			ReferenceID: purchase.ID,
			Metadata: map[string]interface{}{
				"item_id":              purchase.ItemID.String(),
				"buyer_id":             purchase.BuyerID.String(),
				"seller_id":            sellerID.String(),
				"description":          "Platform fee on sale of " + subject,
				"gross_amount":         purchase.Amount,
				"platform_fee_percent": fee.String(),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to credit platform: %w", err)
		}
	}

	return receipt, nil
}

// resolveSeller returns the item's current seller. A post deleted since the
// order was opened falls back to the seller recorded on the purchase.
func (s *PaymentService) resolveSeller(ctx context.Context, purchase *models.Purchase) (uuid.UUID, string, error) {
	item, err := s.catalog.GetPurchasableItem(ctx, purchase.ItemID)
	if errors.Is(err, ErrItemNotFound) {
		logrus.WithFields(logrus.Fields{
			"purchase_id": purchase.ID,
			"item_id":     purchase.ItemID,
		}).Warn("Purchased item no longer exists; crediting seller recorded at order time")
		return purchase.SellerID, "", nil
	}
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to resolve seller: %w", err)
	}
	return item.SellerID, item.Title, nil
}

// saleSubject names the sold item in ledger descriptions. A deleted post has
// no title left, so its id stands in.
func saleSubject(title string, itemID uuid.UUID) string {
	if title == "" {
		return "item " + itemID.String()
	}
	return fmt.Sprintf("%q", title)
}

// existingReceipt rebuilds the receipt of a completed purchase from the
// ledger without touching it.
func (s *PaymentService) existingReceipt(ctx context.Context, purchase *models.Purchase) (*Receipt, error) {
	txns, err := s.store.Transactions.ListByReference(ctx, purchase.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entries: %w", err)
	}

	receipt := &Receipt{
		PurchaseID:  purchase.ID,
		OrderID:     purchase.GatewayOrderID(),
		ItemID:      purchase.ItemID,
		SellerID:    purchase.SellerID,
		Status:      purchase.Status,
		Amount:      purchase.Amount,
		Currency:    purchase.Currency,
		CompletedAt: purchase.CompletedAt,
		Duplicate:   true,
	}
	if purchase.PaymentID != nil {
		receipt.PaymentID = *purchase.PaymentID
	}

	for i := range txns {
		txn := txns[i]
		switch txn.Type {
		case models.TransactionTypeEarning:
			receipt.CreatorShare = txn.Amount
			receipt.TransactionID = &txn.ID
		case models.TransactionTypePlatformFee:
			receipt.PlatformShare = txn.Amount
		}
		if fee, ok := txn.Metadata["platform_fee_percent"].(string); ok {
			receipt.PlatformFeePercent = fee
		}
	}
	return receipt, nil
}

func (s *PaymentService) notify(ctx context.Context, purchase *models.Purchase, receipt *Receipt) {
	event := EarningEvent{
		Type:          EventEarningCredited,
		PurchaseID:    receipt.PurchaseID,
		OrderID:       receipt.OrderID,
		SellerID:      receipt.SellerID,
		BuyerID:       purchase.BuyerID,
		ItemID:        receipt.ItemID,
		Amount:        receipt.Amount,
		CreatorShare:  receipt.CreatorShare,
		PlatformShare: receipt.PlatformShare,
		Currency:      receipt.Currency,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithField("purchase_id", receipt.PurchaseID).Warn("Failed to publish earning event")
	}
}

// GetHistory lists the buyer's completed purchases, newest first.
func (s *PaymentService) GetHistory(ctx context.Context, buyerID uuid.UUID, params utils.PaginationParams) ([]PurchaseSummary, int64, error) {
	purchases, total, err := s.store.Purchases.ListCompletedByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, 0, err
	}

	itemIDs := make([]uuid.UUID, 0, len(purchases))
	for _, p := range purchases {
		itemIDs = append(itemIDs, p.ItemID)
	}
	items, err := s.catalog.GetItemSummaries(ctx, itemIDs)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]PurchaseSummary, 0, len(purchases))
	for _, p := range purchases {
		summary := PurchaseSummary{
			ID:          p.ID,
			OrderID:     p.GatewayOrderID(),
			Amount:      p.Amount,
			Currency:    p.Currency,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
			CompletedAt: p.CompletedAt,
		}
		if item, ok := items[p.ItemID]; ok {
			summary.Item = &item
		} else {
			summary.Item = &ItemSummary{ID: p.ItemID}
		}
		summaries = append(summaries, summary)
	}
	return summaries, total, nil
}

// GetEarnings reports the seller's EARNING entries together with the current
// platform fee rate. Sales and fees are counted from completed purchases so a
// sale the platform kept entirely still shows up.
func (s *PaymentService) GetEarnings(ctx context.Context, sellerID uuid.UUID) (*EarningsSummary, error) {
	fee, err := s.settings.PlatformFeePercent(ctx, nil)
	if err != nil {
		return nil, err
	}

	sales, err := s.store.Purchases.CompletedTotalsBySeller(ctx, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to total sales: %w", err)
	}

	wallet, err := s.balances.Balance(ctx, s.store, sellerID, s.config.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	summary := &EarningsSummary{
		PlatformFeePercent: fee,
		Balance:            wallet.Balance,
		Currency:           wallet.Currency,
		Earnings:           []EarningLine{},
		TotalSales:         int(sales.Count),
		PlatformFees:       sales.Amount,
	}
	if wallet.ID == uuid.Nil {
		return summary, nil
	}

	txns, err := s.store.Transactions.ListByWallet(ctx, wallet.ID, models.TransactionTypeEarning)
	if err != nil {
		return nil, fmt.Errorf("failed to load earnings: %w", err)
	}

	for _, txn := range txns {
		line := EarningLine{
			TransactionID: txn.ID,
			PurchaseID:    txn.ReferenceID,
			Amount:        txn.Amount,
			GrossAmount:   metadataInt(txn.Metadata, "gross_amount"),
			PlatformShare: metadataInt(txn.Metadata, "platform_share"),
			CreatedAt:     txn.CreatedAt,
		}
		line.ItemID, _ = txn.Metadata["item_id"].(string)
		line.BuyerID, _ = txn.Metadata["buyer_id"].(string)
		line.Description, _ = txn.Metadata["description"].(string)

		summary.TotalEarnings += line.Amount
		summary.Earnings = append(summary.Earnings, line)
	}
	summary.PlatformFees -= summary.TotalEarnings

	return summary, nil
}

// metadataInt reads an integer stored in a JSON column. Decoded JSON numbers
// arrive as float64.
func metadataInt(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}
