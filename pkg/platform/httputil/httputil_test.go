package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "sportsfest/pkg/domain-errors"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestWriteError_StatusMapping(t *testing.T) {
	tests := []struct {
		code   dErrors.Code
		status int
	}{
		{dErrors.CodeValidation, http.StatusBadRequest},
		{dErrors.CodeNotFound, http.StatusNotFound},
		{dErrors.CodeUnauthorized, http.StatusUnauthorized},
		{dErrors.CodeCategoryFull, http.StatusConflict},
		{dErrors.CodePaidRegistration, http.StatusConflict},
		{dErrors.CodeRefundExceedsRemaining, http.StatusConflict},
		{dErrors.CodeIneligible, http.StatusUnprocessableEntity},
		{dErrors.CodeTooManyAttempts, http.StatusTooManyRequests},
		{dErrors.CodeUnavailable, http.StatusServiceUnavailable},
		{dErrors.CodeTimeout, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, dErrors.New(tt.code, "detail"))

			if w.Code != tt.status {
				t.Fatalf("code %s: expected status %d, got %d", tt.code, tt.status, w.Code)
			}
			if got := decodeEnvelope(t, w)["error"]; got != string(tt.code) {
				t.Fatalf("expected error %q in envelope, got %q", tt.code, got)
			}
		})
	}
}

func TestWriteError_Envelope(t *testing.T) {
	t.Run("client errors carry the description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeCategoryFull, "no seats left in under 14 sprint"))

		body := decodeEnvelope(t, w)
		if body["error_description"] != "no seats left in under 14 sprint" {
			t.Fatalf("expected description to pass through, got %q", body["error_description"])
		}
	})

	t.Run("server errors hide the description", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "pq: connection refused"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", w.Code)
		}
		body := decodeEnvelope(t, w)
		if _, leaked := body["error_description"]; leaked {
			t.Fatal("internal detail must not reach the client")
		}
	})

	t.Run("uncoded errors become internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, http.ErrBodyNotAllowed)

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status 500, got %d", w.Code)
		}
		if got := decodeEnvelope(t, w)["error"]; got != string(dErrors.CodeInternal) {
			t.Fatalf("expected internal_error, got %q", got)
		}
	})
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (b *cancelBody) Validate() error {
	if strings.TrimSpace(b.Reason) == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	post := func(body string) (*httptest.ResponseRecorder, *http.Request) {
		r := httptest.NewRequest(http.MethodPost, "/registrations/x/cancel", strings.NewReader(body))
		return httptest.NewRecorder(), r
	}

	t.Run("valid body passes validation", func(t *testing.T) {
		w, r := post(`{"reason":"schedule clash"}`)
		req, ok := DecodeAndPrepare[cancelBody](w, r, logger, r.Context(), "req-1")
		if !ok {
			t.Fatalf("expected ok, response was %d %s", w.Code, w.Body.String())
		}
		if req.Reason != "schedule clash" {
			t.Fatalf("expected decoded reason, got %q", req.Reason)
		}
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		w, r := post(`{"reason":`)
		if _, ok := DecodeAndPrepare[cancelBody](w, r, logger, r.Context(), "req-2"); ok {
			t.Fatal("expected decode to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
		if got := decodeEnvelope(t, w)["error"]; got != string(dErrors.CodeBadRequest) {
			t.Fatalf("expected bad_request, got %q", got)
		}
	})

	t.Run("validation error keeps its own code", func(t *testing.T) {
		w, r := post(`{"reason":"   "}`)
		if _, ok := DecodeAndPrepare[cancelBody](w, r, logger, r.Context(), "req-3"); ok {
			t.Fatal("expected validation to fail")
		}
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", w.Code)
		}
		if got := decodeEnvelope(t, w)["error"]; got != string(dErrors.CodeValidation) {
			t.Fatalf("expected validation_failed, got %q", got)
		}
	})
}
