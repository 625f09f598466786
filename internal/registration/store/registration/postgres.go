package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sportsfest/internal/registration/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists registrations in PostgreSQL. A partial unique index
// on (student_id, sport_category_id) over live statuses enforces the
// one-live-registration rule; Execute takes a row lock so the payment
// subscriber and a user cancellation cannot interleave on one row.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const registrationColumns = `id, student_id, sport_category_id, status, payment_id, seat_token_id,
	notes, cancel_reason, reject_reason, archived, registered_at, confirmed_at, cancelled_at, archived_at, updated_at`

// Create inserts the registration. A student may hold only one live
// registration per category.
func (s *PostgresStore) Create(ctx context.Context, r *models.Registration) error {
	query := `
		INSERT INTO registrations (
			id, student_id, sport_category_id, status, payment_id, seat_token_id,
			notes, cancel_reason, reject_reason, archived, registered_at, confirmed_at, cancelled_at, archived_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		r.ID.String(),
		r.StudentID.String(),
		r.CategoryID.String(),
		r.Status.String(),
		nullableID(r.PaymentID.IsNil(), r.PaymentID.String()),
		r.SeatTokenID.String(),
		nullableString(r.Notes),
		nullableString(r.CancelReason),
		nullableString(r.RejectReason),
		r.Archived,
		r.RegisteredAt,
		nullableTime(r.ConfirmedAt),
		nullableTime(r.CancelledAt),
		nullableTime(r.ArchivedAt),
		r.UpdatedAt,
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
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	r, err := scanRegistration(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, registrationID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return r, nil
}

// Listings and counts skip archived rows; FindByID still returns them, so
// nothing a direct reference points at ever disappears.
func (s *PostgresStore) ListByStudent(ctx context.Context, studentID id.StudentID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE student_id = $1 AND NOT archived ORDER BY registered_at DESC`
	return s.list(ctx, query, studentID.String())
}

func (s *PostgresStore) ListByCategory(ctx context.Context, categoryID id.CategoryID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE sport_category_id = $1 AND NOT archived ORDER BY registered_at`
	return s.list(ctx, query, categoryID.String())
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE status = $1 AND NOT archived ORDER BY registered_at`
	return s.list(ctx, query, status.String())
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var out []*models.Registration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return out, nil
}

// Execute loads the registration under a row lock, runs validate and mutate,
// and writes the result back within one transaction.
func (s *PostgresStore) Execute(ctx context.Context, registrationID id.RegistrationID, validate func(*models.Registration) error, mutate func(*models.Registration)) (*models.Registration, error) {
	var registration *models.Registration
	err := tx.InTx(ctx, s.db, func(q tx.Queryer) error {
		query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1 FOR UPDATE`
		loaded, err := scanRegistration(q.QueryRowContext(ctx, query, registrationID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock registration: %w", err)
		}
		if err := validate(loaded); err != nil {
			return err
		}
		mutate(loaded)

		update := `
			UPDATE registrations
			SET status = $2, payment_id = $3, notes = $4, cancel_reason = $5, reject_reason = $6,
				archived = $7, confirmed_at = $8, cancelled_at = $9, archived_at = $10, updated_at = $11
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			loaded.ID.String(),
			loaded.Status.String(),
			nullableID(loaded.PaymentID.IsNil(), loaded.PaymentID.String()),
			nullableString(loaded.Notes),
			nullableString(loaded.CancelReason),
			nullableString(loaded.RejectReason),
			loaded.Archived,
			nullableTime(loaded.ConfirmedAt),
			nullableTime(loaded.CancelledAt),
			nullableTime(loaded.ArchivedAt),
			loaded.UpdatedAt,
		); err != nil {
			return fmt.Errorf("write registration: %w", err)
		}
		registration = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return registration, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE NOT archived`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE status = $1 AND NOT archived`, status.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations by status: %w", err)
	}
	return count, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableID(isNil bool, s string) sql.NullString {
	return sql.NullString{String: s, Valid: !isNil}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type registrationRow interface {
	Scan(dest ...any) error
}

func scanRegistration(row registrationRow) (*models.Registration, error) {
	var r models.Registration
	var rawID, rawStudentID, rawCategoryID, rawStatus, rawSeatTokenID string
	var rawPaymentID sql.NullString
	var notes, cancelReason, rejectReason sql.NullString
	var confirmedAt, cancelledAt, archivedAt sql.NullTime
	if err := row.Scan(
		&rawID,
		&rawStudentID,
		&rawCategoryID,
		&rawStatus,
		&rawPaymentID,
		&rawSeatTokenID,
		&notes,
		&cancelReason,
		&rejectReason,
		&r.Archived,
		&r.RegisteredAt,
		&confirmedAt,
		&cancelledAt,
		&archivedAt,
		&r.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseRegistrationID(rawID)
	if err != nil {
		return nil, err
	}
	studentID, err := id.ParseStudentID(rawStudentID)
	if err != nil {
		return nil, err
	}
	categoryID, err := id.ParseCategoryID(rawCategoryID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	seatTokenID, err := uuid.Parse(rawSeatTokenID)
	if err != nil {
		return nil, err
	}
	if rawPaymentID.Valid {
		paymentID, err := id.ParsePaymentID(rawPaymentID.String)
		if err != nil {
			return nil, err
		}
		r.PaymentID = paymentID
	}
	r.ID = parsedID
	r.StudentID = studentID
	r.CategoryID = categoryID
	r.Status = status
	r.SeatTokenID = seatTokenID
	r.Notes = notes.String
	r.CancelReason = cancelReason.String
	r.RejectReason = rejectReason.String
	r.ConfirmedAt = confirmedAt.Time
	r.CancelledAt = cancelledAt.Time
	r.ArchivedAt = archivedAt.Time
	return &r, nil
}
