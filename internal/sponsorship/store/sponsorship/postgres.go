package sponsorship

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"sportsfest/internal/sponsorship/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists sponsorships in PostgreSQL. Execute takes a row
// lock so a reviewer's verdict and the expiry sweep cannot interleave on one
// application.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sponsorshipColumns = `id, institution_id, sponsor_name, sponsor_contact_person, sponsor_email,
	sponsor_phone, requested_amount_minor, approved_amount_minor, currency, sponsorship_type,
	description, status, reviewed_by, review_notes, rejection_reason, cancel_reason,
	valid_until, reviewed_at, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, sp *models.Sponsorship) error {
	query := `
		INSERT INTO sponsorships (
			id, institution_id, sponsor_name, sponsor_contact_person, sponsor_email,
			sponsor_phone, requested_amount_minor, approved_amount_minor, currency, sponsorship_type,
			description, status, reviewed_by, review_notes, rejection_reason, cancel_reason,
			valid_until, reviewed_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		sp.ID.String(),
		sp.InstitutionID.String(),
		sp.SponsorName,
		nullableString(sp.SponsorContactPerson),
		nullableString(sp.SponsorEmail),
		nullableString(sp.SponsorPhone),
		sp.RequestedAmount.Minor(),
		sp.ApprovedAmount.Minor(),
		sp.Currency,
		nullableString(sp.SponsorshipType),
		nullableString(sp.Description),
		sp.Status.String(),
		nullableString(sp.ReviewedBy),
		nullableString(sp.ReviewNotes),
		nullableString(sp.RejectionReason),
		nullableString(sp.CancelReason),
		nullableTime(sp.ValidUntil),
		nullableTime(sp.ReviewedAt),
		sp.CreatedAt,
		sp.UpdatedAt,
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
		return fmt.Errorf("create sponsorship: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sponsorshipID id.SponsorshipID) (*models.Sponsorship, error) {
	query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE id = $1`
	sp, err := scanSponsorship(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, sponsorshipID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sponsorship: %w", err)
	}
	return sp, nil
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, institutionID id.InstitutionID) ([]*models.Sponsorship, error) {
	query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE institution_id = $1 ORDER BY created_at DESC`
	return s.list(ctx, query, institutionID.String())
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status models.Status) ([]*models.Sponsorship, error) {
	query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE status = $1 ORDER BY created_at`
	return s.list(ctx, query, status.String())
}

// ListApprovedLapsed returns up to limit approved sponsorships whose validity
// window closed on or before asOf, oldest window first.
func (s *PostgresStore) ListApprovedLapsed(ctx context.Context, asOf time.Time, limit int) ([]*models.Sponsorship, error) {
	query := `
		SELECT ` + sponsorshipColumns + `
		FROM sponsorships
		WHERE status = 'approved' AND valid_until IS NOT NULL AND valid_until <= $1
		ORDER BY valid_until
		LIMIT $2
	`
	return s.list(ctx, query, asOf, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Sponsorship, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sponsorships: %w", err)
	}
	defer rows.Close()

	var out []*models.Sponsorship
	for rows.Next() {
		sp, err := scanSponsorship(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sponsorship: %w", err)
		}
		out = append(out, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sponsorships: %w", err)
	}
	return out, nil
}

// Execute loads the sponsorship under a row lock, runs validate and mutate,
// and writes the result back within one transaction.
func (s *PostgresStore) Execute(ctx context.Context, sponsorshipID id.SponsorshipID, validate func(*models.Sponsorship) error, mutate func(*models.Sponsorship)) (*models.Sponsorship, error) {
	var sponsorship *models.Sponsorship
	err := tx.InTx(ctx, s.db, func(q tx.Queryer) error {
		query := `SELECT ` + sponsorshipColumns + ` FROM sponsorships WHERE id = $1 FOR UPDATE`
		loaded, err := scanSponsorship(q.QueryRowContext(ctx, query, sponsorshipID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock sponsorship: %w", err)
		}
		if err := validate(loaded); err != nil {
			return err
		}
		mutate(loaded)

		update := `
			UPDATE sponsorships
			SET approved_amount_minor = $2, status = $3, reviewed_by = $4, review_notes = $5,
				rejection_reason = $6, cancel_reason = $7, valid_until = $8, reviewed_at = $9,
				updated_at = $10
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			loaded.ID.String(),
			loaded.ApprovedAmount.Minor(),
			loaded.Status.String(),
			nullableString(loaded.ReviewedBy),
			nullableString(loaded.ReviewNotes),
			nullableString(loaded.RejectionReason),
			nullableString(loaded.CancelReason),
			nullableTime(loaded.ValidUntil),
			nullableTime(loaded.ReviewedAt),
			loaded.UpdatedAt,
		); err != nil {
			return fmt.Errorf("write sponsorship: %w", err)
		}
		sponsorship = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sponsorship, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM sponsorships`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sponsorships: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountByStatus(ctx context.Context, status models.Status) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sponsorships WHERE status = $1`, status.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sponsorships by status: %w", err)
	}
	return count, nil
}

// ApprovedTotal sums the granted amounts of currently approved sponsorships.
func (s *PostgresStore) ApprovedTotal(ctx context.Context) (money.Amount, error) {
	var totalMinor int64
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(SUM(approved_amount_minor), 0)
		FROM sponsorships
		WHERE status = 'approved'
	`).Scan(&totalMinor)
	if err != nil {
		return 0, fmt.Errorf("sum approved sponsorships: %w", err)
	}
	return money.FromMinor(totalMinor), nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

type sponsorshipRow interface {
	Scan(dest ...any) error
}

func scanSponsorship(row sponsorshipRow) (*models.Sponsorship, error) {
	var sp models.Sponsorship
	var rawID, rawInstitutionID string
	var contactPerson, email, phone, sponsorshipType, description sql.NullString
	var requestedMinor, approvedMinor int64
	var rawStatus string
	var reviewedBy, reviewNotes, rejectionReason, cancelReason sql.NullString
	var validUntil, reviewedAt sql.NullTime
	if err := row.Scan(
		&rawID,
		&rawInstitutionID,
		&sp.SponsorName,
		&contactPerson,
		&email,
		&phone,
		&requestedMinor,
		&approvedMinor,
		&sp.Currency,
		&sponsorshipType,
		&description,
		&rawStatus,
		&reviewedBy,
		&reviewNotes,
		&rejectionReason,
		&cancelReason,
		&validUntil,
		&reviewedAt,
		&sp.CreatedAt,
		&sp.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseSponsorshipID(rawID)
	if err != nil {
		return nil, err
	}
	institutionID, err := id.ParseInstitutionID(rawInstitutionID)
	if err != nil {
		return nil, err
	}
	status, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	sp.ID = parsedID
	sp.InstitutionID = institutionID
	sp.Status = status
	sp.RequestedAmount = money.FromMinor(requestedMinor)
	sp.ApprovedAmount = money.FromMinor(approvedMinor)
	sp.SponsorContactPerson = contactPerson.String
	sp.SponsorEmail = email.String
	sp.SponsorPhone = phone.String
	sp.SponsorshipType = sponsorshipType.String
	sp.Description = description.String
	sp.ReviewedBy = reviewedBy.String
	sp.ReviewNotes = reviewNotes.String
	sp.RejectionReason = rejectionReason.String
	sp.CancelReason = cancelReason.String
	sp.ValidUntil = validUntil.Time
	sp.ReviewedAt = reviewedAt.Time
	return &sp, nil
}
