package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
)

var paymentClock = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestPayment(t *testing.T, amount money.Amount) *Payment {
	t.Helper()
	p, err := NewPayment(id.NewPaymentID(), id.NewRegistrationID(), id.InstitutionID{}, amount, "", ProviderLocal, paymentClock)
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		p, err := NewPayment(id.NewPaymentID(), id.NewRegistrationID(), id.InstitutionID{}, money.MustParse("100.00"), "", "", paymentClock)
		require.NoError(t, err)
		assert.Equal(t, StatusInitiated, p.Status)
		assert.Equal(t, "INR", p.Currency)
		assert.Equal(t, ProviderLocal, p.Provider)
		assert.True(t, p.RefundAmount.IsZero())
		assert.True(t, p.ForRegistration())
	})

	t.Run("institution payment", func(t *testing.T) {
		p, err := NewPayment(id.NewPaymentID(), id.RegistrationID{}, id.NewInstitutionID(), money.MustParse("5000.00"), "INR", ProviderRazorpay, paymentClock)
		require.NoError(t, err)
		assert.False(t, p.ForRegistration())
	})

	t.Run("rejects invalid construction", func(t *testing.T) {
		cases := []struct {
			name           string
			registrationID id.RegistrationID
			institutionID  id.InstitutionID
			amount         money.Amount
			provider       Provider
		}{
			{"no owner", id.RegistrationID{}, id.InstitutionID{}, money.MustParse("10.00"), ProviderLocal},
			{"both owners", id.NewRegistrationID(), id.NewInstitutionID(), money.MustParse("10.00"), ProviderLocal},
			{"zero amount", id.NewRegistrationID(), id.InstitutionID{}, money.Zero, ProviderLocal},
			{"negative amount", id.NewRegistrationID(), id.InstitutionID{}, money.MustParse("-1.00"), ProviderLocal},
			{"unknown provider", id.NewRegistrationID(), id.InstitutionID{}, money.MustParse("10.00"), Provider("paypal")},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := NewPayment(id.NewPaymentID(), tc.registrationID, tc.institutionID, tc.amount, "", tc.provider, paymentClock)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			})
		}
	})
}

func TestStatusTransitionMatrix(t *testing.T) {
	all := []Status{StatusInitiated, StatusPending, StatusSuccess, StatusFailed, StatusCancelled, StatusRefunded, StatusPartiallyRefunded}
	allowed := map[Status][]Status{
		StatusInitiated:         {StatusPending, StatusSuccess, StatusFailed, StatusCancelled},
		StatusPending:           {StatusSuccess, StatusFailed},
		StatusSuccess:           {StatusRefunded, StatusPartiallyRefunded},
		StatusPartiallyRefunded: {StatusRefunded, StatusPartiallyRefunded},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	for _, s := range []Status{StatusFailed, StatusCancelled, StatusRefunded} {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}
	for _, s := range []Status{StatusInitiated, StatusPending, StatusSuccess, StatusPartiallyRefunded} {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestPaymentSettlement(t *testing.T) {
	t.Run("initiated to success", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		require.NoError(t, p.CanMarkSuccess())
		p.ApplyMarkSuccess("pay_123", []byte(`{"method":"upi"}`), paymentClock)
		assert.Equal(t, StatusSuccess, p.Status)
		assert.Equal(t, "pay_123", p.ProviderPaymentID)
		assert.True(t, p.WebhookProcessed)
	})

	t.Run("pending to failed", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		require.NoError(t, p.CanMarkPending())
		p.ApplyMarkPending("order_42", paymentClock)
		assert.Equal(t, "order_42", p.ProviderOrderID)

		require.NoError(t, p.CanMarkFailed())
		p.ApplyMarkFailed("card declined", nil, paymentClock)
		assert.Equal(t, StatusFailed, p.Status)
		assert.Equal(t, "card declined", p.FailureReason)
	})

	t.Run("pending cannot cancel", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		p.ApplyMarkPending("order_42", paymentClock)
		err := p.CanMarkCancelled()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("settled payment rejects further outcomes", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		p.ApplyMarkFailed("timeout", nil, paymentClock)

		assert.True(t, dErrors.HasCode(p.CanMarkSuccess(), dErrors.CodeAlreadyTerminal))
		assert.True(t, dErrors.HasCode(p.CanMarkFailed(), dErrors.CodeAlreadyTerminal))
		assert.True(t, dErrors.HasCode(p.CanMarkPending(), dErrors.CodeAlreadyTerminal))
	})

	t.Run("success rejects failure", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		p.ApplyMarkSuccess("pay_1", nil, paymentClock)
		err := p.CanMarkFailed()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

// TestRefundAccounting walks the cumulative refund ledger: 40 then 30 out of
// 100 leaves 70 refunded and the payment partially refunded; another 40 would
// overshoot; the final 30 completes the refund and closes the branch.
func TestRefundAccounting(t *testing.T) {
	p := newTestPayment(t, money.MustParse("100.00"))
	p.ApplyMarkSuccess("pay_1", nil, paymentClock)

	require.NoError(t, p.CanRefund(money.MustParse("40.00")))
	p.ApplyRefund(money.MustParse("40.00"), "duplicate charge", "rfnd_1", paymentClock)
	assert.Equal(t, StatusPartiallyRefunded, p.Status)
	assert.Equal(t, money.MustParse("40.00"), p.RefundAmount)

	require.NoError(t, p.CanRefund(money.MustParse("30.00")))
	p.ApplyRefund(money.MustParse("30.00"), "", "", paymentClock)
	assert.Equal(t, StatusPartiallyRefunded, p.Status)
	assert.Equal(t, money.MustParse("70.00"), p.RefundAmount)
	assert.Equal(t, money.MustParse("30.00"), p.Remaining())

	err := p.CanRefund(money.MustParse("40.00"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRefundExceedsRemaining))
	assert.Equal(t, money.MustParse("70.00"), p.RefundAmount, "rejected refund must not change the ledger")

	require.NoError(t, p.CanRefund(money.MustParse("30.00")))
	p.ApplyRefund(money.MustParse("30.00"), "", "", paymentClock)
	assert.Equal(t, StatusRefunded, p.Status)
	assert.Equal(t, money.MustParse("100.00"), p.RefundAmount)

	err = p.CanRefund(money.MustParse("0.01"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyTerminal))
}

func TestRefundGuards(t *testing.T) {
	t.Run("rejects refund before success", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		err := p.CanRefund(money.MustParse("10.00"))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("100.00"))
		p.ApplyMarkSuccess("pay_1", nil, paymentClock)

		assert.True(t, dErrors.HasCode(p.CanRefund(money.Zero), dErrors.CodeValidation))
		assert.True(t, dErrors.HasCode(p.CanRefund(money.MustParse("-5.00")), dErrors.CodeValidation))
	})

	t.Run("single full refund", func(t *testing.T) {
		p := newTestPayment(t, money.MustParse("250.00"))
		p.ApplyMarkSuccess("pay_1", nil, paymentClock)

		require.NoError(t, p.CanRefund(money.MustParse("250.00")))
		p.ApplyRefund(money.MustParse("250.00"), "event cancelled", "rfnd_9", paymentClock)
		assert.Equal(t, StatusRefunded, p.Status)
		assert.True(t, p.Remaining().IsZero())
	})
}
