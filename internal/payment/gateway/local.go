package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"sportsfest/internal/payment/models"
	"sportsfest/pkg/money"
)

// Local is the on-site collection path: no provider sits behind it, so
// orders and refunds are acknowledged immediately with synthetic references.
// Settlement still arrives through the webhook surface, posted by festival
// staff when cash or a local UPI transfer clears.
type Local struct{}

func NewLocal() *Local {
	return &Local{}
}

func (*Local) CreateOrder(_ context.Context, payment *models.Payment) (Order, error) {
	return Order{ProviderOrderID: fmt.Sprintf("local_order_%s", payment.ID.String())}, nil
}

func (*Local) Refund(_ context.Context, _ *models.Payment, _ money.Amount, _ string) (RefundReceipt, error) {
	return RefundReceipt{RefundID: fmt.Sprintf("local_refund_%s", uuid.NewString())}, nil
}
