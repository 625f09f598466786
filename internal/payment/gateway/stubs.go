package gateway

import (
	"context"

	"sportsfest/internal/payment/models"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

// unconfigured stands in for a hosted gateway whose integration has not
// shipped. Every call fails with a coded unavailable error so routing a
// payment at one is loud rather than silently lost.
type unconfigured struct {
	name string
}

// NewRazorpay returns the Razorpay gateway stub.
func NewRazorpay() Gateway {
	return &unconfigured{name: models.ProviderRazorpay.String()}
}

// NewStripe returns the Stripe gateway stub.
func NewStripe() Gateway {
	return &unconfigured{name: models.ProviderStripe.String()}
}

func (g *unconfigured) CreateOrder(_ context.Context, _ *models.Payment) (Order, error) {
	return Order{}, dErrors.Newf(dErrors.CodeUnavailable, "%s gateway is not configured", g.name)
}

func (g *unconfigured) Refund(_ context.Context, _ *models.Payment, _ money.Amount, _ string) (RefundReceipt, error) {
	return RefundReceipt{}, dErrors.Newf(dErrors.CodeUnavailable, "%s gateway is not configured", g.name)
}
