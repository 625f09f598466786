//go:build integration

package payment_test

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	capacitymodels "sportsfest/internal/capacity/models"
	"sportsfest/internal/payment/models"
	paymentstore "sportsfest/internal/payment/store/payment"
	registrationmodels "sportsfest/internal/registration/models"
	registrationstore "sportsfest/internal/registration/store/registration"
	sportmodels "sportsfest/internal/sport/models"
	categorystore "sportsfest/internal/sport/store/category"
	sportstore "sportsfest/internal/sport/store/sport"
	studentmodels "sportsfest/internal/student/models"
	studentstore "sportsfest/internal/student/store/student"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/testutil/containers"
)

type PostgresPaymentSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *paymentstore.PostgresStore
}

func TestPostgresPaymentSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPaymentSuite))
}

func (s *PostgresPaymentSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = paymentstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresPaymentSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"payments", "registrations", "students", "sport_categories", "sports")
	s.Require().NoError(err)
}

// settledInstitutionPayment seeds a success payment collected from an
// institution. Institution payments reference no other rows, so the refund
// tests need no catalog seeding.
func (s *PostgresPaymentSuite) settledInstitutionPayment(amount money.Amount) *models.Payment {
	now := time.Now().UTC()
	payment, err := models.NewPayment(id.NewPaymentID(), id.RegistrationID{}, id.NewInstitutionID(), amount, "", models.ProviderLocal, now)
	s.Require().NoError(err)
	payment.ApplyMarkPending("order_"+payment.ID.String(), now)
	payment.ApplyMarkSuccess("pay_"+payment.ID.String(), nil, now)
	s.Require().NoError(s.store.Create(context.Background(), payment))
	return payment
}

// TestConcurrentPartialRefundsNeverOvershoot drives Execute from many
// goroutines against one payment. The row lock serializes the cumulative
// accounting, so refunds land only while the remaining balance covers them.
func (s *PostgresPaymentSuite) TestConcurrentPartialRefundsNeverOvershoot() {
	ctx := context.Background()
	const goroutines = 8
	chunk := money.FromMinor(3000)

	payment := s.settledInstitutionPayment(money.FromMinor(10000))

	var wg sync.WaitGroup
	var landed atomic.Int32
	var rejected atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.store.Execute(ctx, payment.ID,
				func(p *models.Payment) error { return p.CanRefund(chunk) },
				func(p *models.Payment) { p.ApplyRefund(chunk, "overcharge", "", time.Now().UTC()) },
			)
			switch {
			case err == nil:
				landed.Add(1)
			case dErrors.HasCode(err, dErrors.CodeRefundExceedsRemaining):
				rejected.Add(1)
			default:
				s.Require().NoError(err)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(3), landed.Load(), "three 30.00 refunds fit into 100.00")
	s.Equal(int32(goroutines-3), rejected.Load())

	stored, err := s.store.FindByID(ctx, payment.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPartiallyRefunded, stored.Status)
	s.Equal(money.FromMinor(9000), stored.RefundAmount)
	s.Equal(money.FromMinor(1000), stored.Remaining())
}

func (s *PostgresPaymentSuite) TestExecutePersistsSettlement() {
	ctx := context.Background()
	now := time.Now().UTC()

	payment, err := models.NewPayment(id.NewPaymentID(), id.RegistrationID{}, id.NewInstitutionID(), money.FromMinor(25000), "", models.ProviderLocal, now)
	s.Require().NoError(err)
	payment.Description = "team entry fee"
	s.Require().NoError(s.store.Create(ctx, payment))

	settledAt := now.Add(time.Minute).Truncate(time.Millisecond)
	payload := json.RawMessage(`{"method":"upi"}`)

	_, err = s.store.Execute(ctx, payment.ID,
		func(p *models.Payment) error { return p.CanMarkPending() },
		func(p *models.Payment) { p.ApplyMarkPending("order_41", settledAt) },
	)
	s.Require().NoError(err)

	_, err = s.store.Execute(ctx, payment.ID,
		func(p *models.Payment) error { return p.CanMarkSuccess() },
		func(p *models.Payment) { p.ApplyMarkSuccess("pay_41", payload, settledAt) },
	)
	s.Require().NoError(err)

	stored, err := s.store.FindByProviderOrder(ctx, models.ProviderLocal, "order_41")
	s.Require().NoError(err)
	s.Equal(payment.ID, stored.ID)
	s.Equal(models.StatusSuccess, stored.Status)
	s.Equal("pay_41", stored.ProviderPaymentID)
	s.JSONEq(string(payload), string(stored.ProviderPayload))
	s.Equal("team entry fee", stored.Description)
	s.True(stored.WebhookProcessed)
	s.WithinDuration(settledAt, stored.UpdatedAt, time.Millisecond)
}

// TestOnePaymentPerRegistration covers the partial unique index on
// registration_id and the foreign key behind it.
func (s *PostgresPaymentSuite) TestOnePaymentPerRegistration() {
	ctx := context.Background()
	now := time.Now().UTC()

	sports := sportstore.NewPostgres(s.postgres.DB)
	categories := categorystore.NewPostgres(s.postgres.DB)
	students := studentstore.NewPostgres(s.postgres.DB)
	registrations := registrationstore.NewPostgres(s.postgres.DB)

	sport, err := sportmodels.NewSport(id.NewSportID(), "Chess", "", now)
	s.Require().NoError(err)
	s.Require().NoError(sports.CreateIfNameAvailable(ctx, sport))

	category, err := sportmodels.NewCategory(id.NewCategoryID(), sport.ID, "under 17 open", money.FromMinor(20000), now)
	s.Require().NoError(err)
	s.Require().NoError(categories.Create(ctx, category))

	student, err := studentmodels.NewStudent(id.NewStudentID(), id.NewInstitutionID(), "Meera Pillai", id.GenderFemale, now.AddDate(-16, 0, 0), now)
	s.Require().NoError(err)
	s.Require().NoError(students.Create(ctx, student))

	registration, err := registrationmodels.NewRegistration(
		id.NewRegistrationID(), student.ID, category.ID,
		capacitymodels.NewSeatToken(category.ID), now,
	)
	s.Require().NoError(err)
	s.Require().NoError(registrations.Create(ctx, registration))

	payment, err := models.NewPayment(id.NewPaymentID(), registration.ID, id.InstitutionID{}, money.FromMinor(20000), "", models.ProviderLocal, now)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, payment))

	second, err := models.NewPayment(id.NewPaymentID(), registration.ID, id.InstitutionID{}, money.FromMinor(20000), "", models.ProviderLocal, now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrAlreadyUsed)

	// A payment pointing at a registration that does not exist is refused
	// by the foreign key.
	orphan, err := models.NewPayment(id.NewPaymentID(), id.NewRegistrationID(), id.InstitutionID{}, money.FromMinor(20000), "", models.ProviderLocal, now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(ctx, orphan), sentinel.ErrNotFound)

	found, err := s.store.FindByRegistration(ctx, registration.ID)
	s.Require().NoError(err)
	s.Equal(payment.ID, found.ID)
}

func (s *PostgresPaymentSuite) TestExecuteUnknownPayment() {
	_, err := s.store.Execute(context.Background(), id.NewPaymentID(),
		func(p *models.Payment) error { return nil },
		func(p *models.Payment) {},
	)
	s.ErrorIs(err, sentinel.ErrNotFound)
}
