// Package models defines the outbound notification entity.
package models

import (
	"time"

	"github.com/google/uuid"

	dErrors "sportsfest/pkg/domain-errors"
)

// Kind labels what a notification is about.
type Kind string

const (
	KindLoginCode             Kind = "login_code"
	KindRegistrationConfirmed Kind = "registration_confirmed"
	KindPaymentReceipt        Kind = "payment_receipt"
)

var validKinds = map[Kind]bool{
	KindLoginCode:             true,
	KindRegistrationConfirmed: true,
	KindPaymentReceipt:        true,
}

// IsValid checks if the kind is one of the supported enum values.
func (k Kind) IsValid() bool {
	return validKinds[k]
}

func (k Kind) String() string {
	return string(k)
}

// Notification is one message queued for delivery. Notifications are not
// persisted: a message that cannot be delivered is logged and dropped.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Kind      Kind      `json:"kind"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotification creates a notification ready for the delivery queue.
//
// Errors: returns CodeInvariantViolation when the kind is unknown or any
// field is empty.
func NewNotification(kind Kind, recipient, subject, body string, now time.Time) (*Notification, error) {
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown notification kind")
	}
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification requires a recipient")
	}
	if subject == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification requires a subject")
	}
	if body == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "notification requires a body")
	}
	return &Notification{
		ID:        uuid.New(),
		Kind:      kind,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		CreatedAt: now,
	}, nil
}
