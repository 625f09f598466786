package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	otpservice "sportsfest/internal/otp/service"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/httputil"
	"sportsfest/pkg/requestcontext"
)

// AuthService issues and verifies one-time login codes.
type AuthService interface {
	Request(ctx context.Context, address string) (*otpservice.RequestResult, error)
	Verify(ctx context.Context, address, code string) (*otpservice.Token, error)
}

type authHandler struct {
	logger *slog.Logger
	auth   AuthService
}

func newAuthHandler(auth AuthService, logger *slog.Logger) *authHandler {
	return &authHandler{logger: logger, auth: auth}
}

// register mounts the login endpoints. Both are pre-authentication and
// deliberately unguarded; the service enforces the attempt ceiling.
func (h *authHandler) register(r chi.Router) {
	r.Post("/auth/otp/request", h.handleRequestCode)
	r.Post("/auth/otp/verify", h.handleVerifyCode)
}

type otpRequestBody struct {
	Email string `json:"email"`
}

func (b *otpRequestBody) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

func (h *authHandler) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[otpRequestBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.auth.Request(ctx, body.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type otpVerifyBody struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (b *otpVerifyBody) Validate() error {
	if strings.TrimSpace(b.Email) == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(b.Code) == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

func (h *authHandler) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, ok := httputil.DecodeAndPrepare[otpVerifyBody](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.auth.Verify(ctx, body.Email, body.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, token)
}
