// Package gateway abstracts the payment providers a payment can be routed
// through. The festival runs on local collection; the hosted gateways ship
// as stubs until their integrations land.
package gateway

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway

import (
	"context"

	"sportsfest/internal/payment/models"
	"sportsfest/pkg/money"
)

// Order is the provider-side handle created for a payment before the payer
// is sent off to complete it.
type Order struct {
	ProviderOrderID string
}

// RefundReceipt is the provider's acknowledgement of a refund instruction.
type RefundReceipt struct {
	RefundID string
}

// Gateway is one payment provider integration.
//
// CreateOrder registers the payment with the provider and returns the order
// handle to track it by. Refund instructs the provider to return amount to
// the payer; the caller has already validated the amount against the
// payment's refund ledger.
type Gateway interface {
	CreateOrder(ctx context.Context, payment *models.Payment) (Order, error)
	Refund(ctx context.Context, payment *models.Payment, amount money.Amount, reason string) (RefundReceipt, error)
}
