// internal/services/razorpay_gateway.go
package services

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"

	"github.com/javajoker/inkwell-backend/internal/utils"
)

type RazorpayGateway struct {
	client    *razorpay.Client
	keyID     string
	keySecret string
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{
		client:    razorpay.NewClient(keyID, keySecret),
		keyID:     keyID,
		keySecret: keySecret,
	}
}

func (g *RazorpayGateway) Name() string {
	return "razorpay"
}

func (g *RazorpayGateway) PublicKey() string {
	return g.keyID
}

type razorpayResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder opens a Razorpay order. The SDK takes no context, so the call
// runs in its own goroutine and is abandoned when ctx ends.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    notes,
	}

	done := make(chan razorpayResult, 1)
	go func() {
		body, err := g.client.Order.Create(data, nil)
		done <- razorpayResult{body: body, err: err}
	}()

	var res razorpayResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("razorpay order: %w", ctx.Err())
	}
	if res.err != nil {
		return nil, fmt.Errorf("razorpay order: %w", res.err)
	}

	id, _ := res.body["id"].(string)
	order := &GatewayOrder{
		ID:       id,
		Amount:   req.Amount,
		Currency: req.Currency,
	}
	if amount, ok := res.body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if currency, ok := res.body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	return order, nil
}

// ConfirmPayment checks the checkout signature Razorpay hands the client,
// an HMAC of "order_id|payment_id" keyed with the API secret.
func (g *RazorpayGateway) ConfirmPayment(ctx context.Context, c PaymentConfirmation) error {
	valid, err := utils.VerifyPaymentSignature(c.GatewayOrderID, c.PaymentID, c.Signature, g.keySecret)
	if err != nil {
		return fmt.Errorf("razorpay signature: %w", err)
	}
	if !valid {
		return ErrInvalidSignature
	}
	return nil
}
