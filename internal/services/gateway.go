// internal/services/gateway.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/javajoker/inkwell-backend/internal/config"
	"github.com/javajoker/inkwell-backend/internal/metrics"
)

// OrderRequest asks the gateway to open an order. Notes travel with the
// gateway order so it can be matched to a purchase if local state is lost.
type OrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
	// ClientSecret is set by gateways whose checkout needs one (Stripe).
	ClientSecret string
}

// PaymentConfirmation is what the client reports back after checkout,
// together with the amount the purchase was priced at.
type PaymentConfirmation struct {
	GatewayOrderID string
	PaymentID      string
	Signature      string
	Amount         int64
	Currency       string
}

type PaymentGateway interface {
	Name() string
	// PublicKey is safe to hand to the browser checkout.
	PublicKey() string
	CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error)
	// ConfirmPayment returns nil once the gateway vouches for the payment.
	// ErrInvalidSignature means it never will; ErrPaymentIncomplete means
	// the payment has not settled yet.
	ConfirmPayment(ctx context.Context, c PaymentConfirmation) error
}

func NewPaymentGateway(cfg config.PaymentConfig) (PaymentGateway, error) {
	switch cfg.Provider {
	case config.ProviderRazorpay:
		return NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret), nil
	case config.ProviderStripe:
		return NewStripeGateway(cfg.StripeSecretKey, cfg.StripePublishableKey), nil
	default:
		return nil, fmt.Errorf("unsupported payment provider %q", cfg.Provider)
	}
}

// ReceiptGenerator issues short, time-ordered receipt numbers for gateway
// orders.
type ReceiptGenerator struct {
	node *snowflake.Node
}

func NewReceiptGenerator(nodeID int64) (*ReceiptGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create receipt generator: %w", err)
	}
	return &ReceiptGenerator{node: node}, nil
}

func (g *ReceiptGenerator) Next() string {
	return "rcpt_" + g.node.Generate().Base58()
}

func orderNotes(buyerID, itemID, purchaseID uuid.UUID) map[string]string {
	return map[string]string{
		"buyer_id":    buyerID.String(),
		"item_id":     itemID.String(),
		"purchase_id": purchaseID.String(),
	}
}

// createGatewayOrder bounds the gateway call by timeout and records its
// latency.
func createGatewayOrder(ctx context.Context, gateway PaymentGateway, timeout time.Duration, req OrderRequest) (*GatewayOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	order, err := gateway.CreateOrder(ctx, req)
	metrics.GatewayLatency.WithLabelValues(gateway.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if order == nil || order.ID == "" {
		return nil, fmt.Errorf("%s returned an order without an id", gateway.Name())
	}
	return order, nil
}

// confirmGatewayPayment bounds the confirmation by timeout and records its
// latency.
func confirmGatewayPayment(ctx context.Context, gateway PaymentGateway, timeout time.Duration, c PaymentConfirmation) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := gateway.ConfirmPayment(ctx, c)
	metrics.GatewayLatency.WithLabelValues(gateway.Name()).Observe(time.Since(start).Seconds())
	return err
}
