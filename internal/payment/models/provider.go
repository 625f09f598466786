package models

import (
	"strings"

	dErrors "sportsfest/pkg/domain-errors"
)

// Provider names the payment gateway a payment is routed through.
// Invariant: the value must be one of the supported providers.
type Provider string

// Supported payment providers. Local covers on-site collection with no
// gateway behind it.
const (
	ProviderLocal    Provider = "local"
	ProviderRazorpay Provider = "razorpay"
	ProviderStripe   Provider = "stripe"
)

// validProviders is the single source of truth for valid providers.
var validProviders = map[Provider]bool{
	ProviderLocal:    true,
	ProviderRazorpay: true,
	ProviderStripe:   true,
}

// ParseProvider constructs a Provider from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "payment provider cannot be empty")
	}
	p := Provider(strings.ToLower(s))
	if !p.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid payment provider")
	}
	return p, nil
}

// IsValid checks if the provider is one of the supported enum values.
func (p Provider) IsValid() bool {
	return validProviders[p]
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}
