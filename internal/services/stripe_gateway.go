// internal/services/stripe_gateway.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// StripeGateway opens a PaymentIntent per order; the intent id plays the role
// of the gateway order id.
type StripeGateway struct {
	intents        paymentintent.Client
	publishableKey string
}

func NewStripeGateway(secretKey, publishableKey string) *StripeGateway {
	return newStripeGateway(stripe.GetBackend(stripe.APIBackend), secretKey, publishableKey)
}

func newStripeGateway(backend stripe.Backend, secretKey, publishableKey string) *StripeGateway {
	return &StripeGateway{
		intents:        paymentintent.Client{B: backend, Key: secretKey},
		publishableKey: publishableKey,
	}
}

func (g *StripeGateway) Name() string {
	return "stripe"
}

func (g *StripeGateway) PublicKey() string {
	return g.publishableKey
}

func (g *StripeGateway) CreateOrder(ctx context.Context, req OrderRequest) (*GatewayOrder, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Receipt),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.Receipt)
	for k, v := range req.Notes {
		params.AddMetadata(k, v)
	}
	params.AddMetadata("receipt", req.Receipt)

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}

	return &GatewayOrder{
		ID:           pi.ID,
		Amount:       pi.Amount,
		Currency:     strings.ToUpper(string(pi.Currency)),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// ConfirmPayment asks Stripe for the PaymentIntent instead of trusting the
// client. Stripe checkout carries no signature, so c.Signature is ignored.
// The payment id may be the intent id or its latest charge.
func (g *StripeGateway) ConfirmPayment(ctx context.Context, c PaymentConfirmation) error {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.intents.Get(c.GatewayOrderID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) &&
			(stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing) {
			return fmt.Errorf("%w: unknown payment intent", ErrInvalidSignature)
		}
		return fmt.Errorf("%w: stripe payment intent: %v", ErrPaymentGatewayUnavailable, err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
	case stripe.PaymentIntentStatusCanceled:
		return fmt.Errorf("%w: payment intent canceled", ErrInvalidSignature)
	default:
		return fmt.Errorf("%w: payment intent is %s", ErrPaymentIncomplete, pi.Status)
	}

	if pi.Amount != c.Amount || !strings.EqualFold(string(pi.Currency), c.Currency) {
		return fmt.Errorf("%w: paid %d %s, expected %d %s",
			ErrInvalidSignature, pi.Amount, pi.Currency, c.Amount, c.Currency)
	}

	if c.PaymentID != pi.ID && (pi.LatestCharge == nil || c.PaymentID != pi.LatestCharge.ID) {
		return fmt.Errorf("%w: payment %s does not belong to %s", ErrInvalidSignature, c.PaymentID, pi.ID)
	}
	return nil
}
