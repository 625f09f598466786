package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sportsfest/internal/payment/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists payments in PostgreSQL. Execute takes a row lock so
// settlement and refunds on one payment are serialized across instances.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const paymentColumns = `id, registration_id, institution_id, amount_minor, currency, status, provider,
	provider_payment_id, provider_order_id, provider_payload, description, failure_reason,
	refund_amount_minor, refund_reason, refund_id, webhook_received, webhook_processed,
	created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Payment) error {
	query := `
		INSERT INTO payments (
			id, registration_id, institution_id, amount_minor, currency, status, provider,
			provider_payment_id, provider_order_id, provider_payload, description, failure_reason,
			refund_amount_minor, refund_reason, refund_id, webhook_received, webhook_processed,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		p.ID.String(),
		nullableID(p.RegistrationID.IsNil(), p.RegistrationID.String()),
		nullableID(p.InstitutionID.IsNil(), p.InstitutionID.String()),
		p.Amount.Minor(),
		p.Currency,
		p.Status.String(),
		p.Provider.String(),
		nullableString(p.ProviderPaymentID),
		nullableString(p.ProviderOrderID),
		[]byte(p.ProviderPayload),
		nullableString(p.Description),
		nullableString(p.FailureReason),
		p.RefundAmount.Minor(),
		nullableString(p.RefundReason),
		nullableString(p.RefundID),
		p.WebhookReceived,
		p.WebhookProcessed,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return sentinel.ErrAlreadyUsed
			case "foreign_key_violation":
				return sentinel.ErrNotFound
			}
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, paymentID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE registration_id = $1`
	p, err := scanPayment(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, registrationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment by registration: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) FindByProviderOrder(ctx context.Context, provider models.Provider, orderID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider = $1 AND provider_order_id = $2`
	p, err := scanPayment(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, provider.String(), orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment by provider order: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE institution_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, institutionID.String())
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE status = $1 ORDER BY created_at`
	return s.list(ctx, query, status.String())
}

// ListAwaitingBefore returns up to limit payments still awaiting a provider
// outcome that were created before cutoff, oldest first.
func (s *PostgresStore) ListAwaitingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status IN ('initiated', 'pending') AND created_at < $1
		ORDER BY created_at
		LIMIT $2
	`
	return s.list(ctx, query, cutoff, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return out, nil
}

// Execute loads the payment under a row lock, runs validate and mutate, and
// writes the result back within one transaction. When the context already
// carries a transaction the lock is held until that transaction settles.
func (s *PostgresStore) Execute(ctx context.Context, paymentID id.PaymentID, validate func(*models.Payment) error, mutate func(*models.Payment)) (*models.Payment, error) {
	var payment *models.Payment
	err := tx.InTx(ctx, s.db, func(q tx.Queryer) error {
		query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
		loaded, err := scanPayment(q.QueryRowContext(ctx, query, paymentID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock payment: %w", err)
		}
		if err := validate(loaded); err != nil {
			return err
		}
		mutate(loaded)

		update := `
			UPDATE payments
			SET status = $2, provider_payment_id = $3, provider_order_id = $4,
				provider_payload = $5, failure_reason = $6, refund_amount_minor = $7,
				refund_reason = $8, refund_id = $9, webhook_received = $10,
				webhook_processed = $11, updated_at = $12
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			loaded.ID.String(),
			loaded.Status.String(),
			nullableString(loaded.ProviderPaymentID),
			nullableString(loaded.ProviderOrderID),
			[]byte(loaded.ProviderPayload),
			nullableString(loaded.FailureReason),
			loaded.RefundAmount.Minor(),
			nullableString(loaded.RefundReason),
			nullableString(loaded.RefundID),
			loaded.WebhookReceived,
			loaded.WebhookProcessed,
			loaded.UpdatedAt,
		); err != nil {
			return fmt.Errorf("write payment: %w", err)
		}
		payment = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM payments WHERE status = $1`, status.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count payments by status: %w", err)
	}
	return count, nil
}

// CollectedTotal sums the money actually kept: settled amounts minus their
// cumulative refunds.
func (s *PostgresStore) CollectedTotal(ctx context.Context) (money.Amount, error) {
	var totalMinor int64
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_minor - refund_amount_minor), 0)
		FROM payments
		WHERE status IN ('success', 'partially_refunded', 'refunded')
	`).Scan(&totalMinor)
	if err != nil {
		return 0, fmt.Errorf("sum collected payments: %w", err)
	}
	return money.FromMinor(totalMinor), nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableID(isNil bool, s string) sql.NullString {
	return sql.NullString{String: s, Valid: !isNil}
}

type paymentRow interface {
	Scan(dest ...any) error
}

func scanPayment(row paymentRow) (*models.Payment, error) {
	var p models.Payment
	var rawID string
	var rawRegistrationID, rawInstitutionID sql.NullString
	var amountMinor, refundMinor int64
	var rawStatus, rawProvider string
	var providerPaymentID, providerOrderID, description, failureReason, refundReason, refundID sql.NullString
	var payload []byte
	if err := row.Scan(
		&rawID,
		&rawRegistrationID,
		&rawInstitutionID,
		&amountMinor,
		&p.Currency,
		&rawStatus,
		&rawProvider,
		&providerPaymentID,
		&providerOrderID,
		&payload,
		&description,
		&failureReason,
		&refundMinor,
		&refundReason,
		&refundID,
		&p.WebhookReceived,
		&p.WebhookProcessed,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParsePaymentID(rawID)
	if err != nil {
		return nil, err
	}
	p.ID = parsedID
	if rawRegistrationID.Valid {
		registrationID, err := id.ParseRegistrationID(rawRegistrationID.String)
		if err != nil {
			return nil, err
		}
		p.RegistrationID = registrationID
	}
	if rawInstitutionID.Valid {
		institutionID, err := id.ParseInstitutionID(rawInstitutionID.String)
		if err != nil {
			return nil, err
		}
		p.InstitutionID = institutionID
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	provider, err := models.ParseProvider(rawProvider)
	if err != nil {
		return nil, err
	}
	p.Status = status
	p.Provider = provider
	p.Amount = money.FromMinor(amountMinor)
	p.RefundAmount = money.FromMinor(refundMinor)
	p.ProviderPaymentID = providerPaymentID.String
	p.ProviderOrderID = providerOrderID.String
	p.ProviderPayload = payload
	p.Description = description.String
	p.FailureReason = failureReason.String
	p.RefundReason = refundReason.String
	p.RefundID = refundID.String
	return &p, nil
}
