package service

import (
	"context"
	"fmt"
	"time"

	"sportsfest/internal/notification/models"
	"sportsfest/pkg/requestcontext"
)

// NotifyLoginCode queues the one-time login code for delivery. Satisfies
// the OTP service's Notifier interface.
func (s *Service) NotifyLoginCode(ctx context.Context, address, code string, expiresAt time.Time) error {
	now := requestcontext.Now(ctx)
	minutes := int(expiresAt.Sub(now).Round(time.Minute) / time.Minute)
	n, err := models.NewNotification(
		models.KindLoginCode,
		address,
		"Your sports festival login code",
		fmt.Sprintf("Your login code is %s. It expires in %d minutes.", code, minutes),
		now,
	)
	if err != nil {
		return err
	}
	return s.Enqueue(ctx, n)
}

// RegistrationConfirmed queues the seat confirmation notice.
func (s *Service) RegistrationConfirmed(ctx context.Context, address, studentName, categoryName string) error {
	n, err := models.NewNotification(
		models.KindRegistrationConfirmed,
		address,
		fmt.Sprintf("Registration confirmed: %s", categoryName),
		fmt.Sprintf("%s is registered for %s. See you at the festival!", studentName, categoryName),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return err
	}
	return s.Enqueue(ctx, n)
}

// PaymentReceipt queues the fee receipt notice.
func (s *Service) PaymentReceipt(ctx context.Context, address, amountLabel, categoryName string) error {
	n, err := models.NewNotification(
		models.KindPaymentReceipt,
		address,
		fmt.Sprintf("Payment received: %s", categoryName),
		fmt.Sprintf("We received your payment of %s for %s. Your spot is secured.", amountLabel, categoryName),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return err
	}
	return s.Enqueue(ctx, n)
}
