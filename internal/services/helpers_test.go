package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/models"
	"github.com/javajoker/inkwell-backend/internal/repository"
	"github.com/javajoker/inkwell-backend/internal/testutil"
	"github.com/javajoker/inkwell-backend/internal/utils"
)

const testSecret = "rzp_test_secret"

type fakeGateway struct {
	calls atomic.Int32
	err   error
	delay time.Duration

	confirmCalls atomic.Int32
	confirmErr   error
}

func (g *fakeGateway) Name() string      { return "razorpay" }
func (g *fakeGateway) PublicKey() string { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	n := g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &GatewayOrder{
		ID:       fmt.Sprintf("order_%s%04d", req.Notes["purchase_id"][:8], n),
		Amount:   req.Amount,
		Currency: req.Currency,
	}, nil
}

// ConfirmPayment checks the HMAC the way Razorpay checkout signs it, unless
// confirmErr overrides the outcome.
func (g *fakeGateway) ConfirmPayment(ctx context.Context, c PaymentConfirmation) error {
	g.confirmCalls.Add(1)
	if g.confirmErr != nil {
		return g.confirmErr
	}
	return NewRazorpayGateway(g.PublicKey(), testSecret).ConfirmPayment(ctx, c)
}

// failingWallets wraps a WalletLedger and fails credits of one entry type
// while armed.
type failingWallets struct {
	inner  WalletLedger
	failOn models.TransactionType
	armed  atomic.Bool
}

func (w *failingWallets) Credit(ctx context.Context, tx *repository.Store, entry CreditEntry) (*models.Transaction, error) {
	if w.armed.Load() && entry.Type == w.failOn {
		return nil, fmt.Errorf("injected failure crediting %s", entry.Type)
	}
	return w.inner.Credit(ctx, tx, entry)
}

type harness struct {
	db       *gorm.DB
	store    *repository.Store
	gateway  *fakeGateway
	cfg      config.PaymentConfig
	settings *SettingsService
	svc      *PaymentService
	seller   uuid.UUID
	buyer    uuid.UUID
	post     *models.Post
}

func newHarness(t *testing.T, configure ...func(*PaymentDeps)) *harness {
	t.Helper()

	db := testutil.NewTestDB(t)
	store := repository.NewStore(db)

	cfg := config.PaymentConfig{
		Provider:           config.ProviderRazorpay,
		Currency:           "INR",
		RazorpayKeyID:      "rzp_test_key",
		RazorpayKeySecret:  testSecret,
		PlatformFeePercent: "30",
		PlatformOwnerID:    uuid.New(),
		GatewayTimeout:     1,
		ReceiptNodeID:      1,
	}

	receipts, err := NewReceiptGenerator(cfg.ReceiptNodeID)
	require.NoError(t, err)

	h := &harness{
		db:       db,
		store:    store,
		gateway:  &fakeGateway{},
		cfg:      cfg,
		settings: NewSettingsService(store, decimal.NewFromInt(30)),
		seller:   uuid.New(),
		buyer:    uuid.New(),
	}
	h.post = testutil.CreatePost(t, db, h.seller, 10000, true)

	catalog := NewPostCatalog(store)
	deps := PaymentDeps{
		Store:    store,
		Catalog:  catalog,
		Gateway:  h.gateway,
		Ledger:   NewOrderLedger(store, catalog, cfg.Currency),
		Settings: h.settings,
		Receipts: receipts,
		Config:   cfg,
	}
	for _, fn := range configure {
		fn(&deps)
	}
	h.svc = NewPaymentService(deps)
	return h
}

func (h *harness) order(t *testing.T) *OrderResponse {
	t.Helper()
	order, err := h.svc.CreateOrder(context.Background(), h.buyer, h.post.ID)
	require.NoError(t, err)
	return order
}

func (h *harness) signedRequest(orderID string) VerifyRequest {
	paymentID := "pay_" + orderID[len(orderID)-8:]
	return VerifyRequest{
		GatewayOrderID: orderID,
		PaymentID:      paymentID,
		Signature:      utils.SignPayment(orderID, paymentID, testSecret),
	}
}

func (h *harness) purchase(t *testing.T, id uuid.UUID) *models.Purchase {
	t.Helper()
	p, err := h.store.Purchases.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) balance(t *testing.T, owner uuid.UUID) int64 {
	t.Helper()
	wallet, err := h.store.Wallets.FindByOwner(context.Background(), owner)
	if errors.Is(err, repository.ErrNotFound) {
		return 0
	}
	require.NoError(t, err)
	return wallet.Balance
}

func (h *harness) transactionCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(&models.Transaction{}).Count(&n).Error)
	return n
}
