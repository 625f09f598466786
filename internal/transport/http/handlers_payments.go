package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	paymentmodels "sportsfest/internal/payment/models"
	paymentservice "sportsfest/internal/payment/service"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// PaymentService settles payments against provider verdicts.
type PaymentService interface {
	GetPayment(ctx context.Context, paymentID id.PaymentID) (*paymentmodels.Payment, error)
	GetPaymentByProviderOrder(ctx context.Context, provider paymentmodels.Provider, orderID string) (*paymentmodels.Payment, error)
	HandleProviderOutcome(ctx context.Context, params paymentservice.OutcomeParams) (*paymentmodels.Payment, error)
}

type paymentHandler struct {
	logger   *slog.Logger
	payments PaymentService
}

func newPaymentHandler(payments PaymentService, logger *slog.Logger) *paymentHandler {
	return &paymentHandler{logger: logger, payments: payments}
}

// register mounts the payment routes. The webhook is unauthenticated: the
// ingress in front of this service verifies provider signatures before the
// request reaches us.
func (h *paymentHandler) register(r chi.Router, g Gates) {
	r.Post("/payments/webhook/{provider}", h.handleWebhook)
	r.With(g.Auth).Get("/payments/{paymentID}", h.handleGet)
}

func (h *paymentHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	paymentID, err := id.ParsePaymentID(chi.URLParam(r, "paymentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), paymentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, payment)
}

type webhookEnvelope struct {
	Event string      `json:"event"`
	Data  webhookData `json:"data"`
}

type webhookData struct {
	PaymentID string `json:"payment_id,omitempty"`
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason,omitempty"`
}

// webhookOutcome maps a provider event name onto a settlement status. The
// second return is false for event types we do not act on.
func webhookOutcome(event string) (paymentmodels.Status, bool) {
	switch event {
	case "payment.success", "payment.captured":
		return paymentmodels.StatusSuccess, true
	case "payment.failed":
		return paymentmodels.StatusFailed, true
	case "payment.cancelled":
		return paymentmodels.StatusCancelled, true
	default:
		return "", false
	}
}

// handleWebhook applies a provider's verdict to the matching payment.
// Settlement is idempotent, so provider redeliveries of an applied outcome
// get a 200 and change nothing. Unrecognized event types are acknowledged
// without action; a 4xx would only make the provider redeliver them
// forever.
func (h *paymentHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	provider, err := paymentmodels.ParseProvider(chi.URLParam(r, "provider"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// The raw body is kept verbatim: the settled payment stores it for
	// reconciliation.
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read request body"))
		return
	}
	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		h.logger.WarnContext(ctx, "malformed webhook payload",
			"provider", provider.String(),
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return
	}

	outcome, actionable := webhookOutcome(envelope.Event)
	if !actionable {
		h.logger.InfoContext(ctx, "webhook event ignored",
			"provider", provider.String(),
			"event", envelope.Event,
			"request_id", requestID,
		)
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if envelope.Data.OrderID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "order_id is required"))
		return
	}
	payment, err := h.payments.GetPaymentByProviderOrder(ctx, provider, envelope.Data.OrderID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	settled, err := h.payments.HandleProviderOutcome(ctx, paymentservice.OutcomeParams{
		PaymentID:         payment.ID,
		Outcome:           outcome,
		ProviderPaymentID: envelope.Data.PaymentID,
		Reason:            envelope.Data.Reason,
		Payload:           payload,
		FromWebhook:       true,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"status":     "processed",
		"payment_id": settled.ID.String(),
	})
}
