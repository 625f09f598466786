package category

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/money"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists sport categories in PostgreSQL. The same table row
// carries the occupied seat counter consumed by the capacity ledger.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const categoryColumns = `id, sport_id, name, description, fee_minor, currency, max_participants,
	age_from, age_to, gender_allowed, requires_medical_certificate, requires_guardian_consent,
	is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, category *models.Category) error {
	query := `
		INSERT INTO sport_categories (
			id, sport_id, name, description, fee_minor, currency, max_participants,
			age_from, age_to, gender_allowed, requires_medical_certificate,
			requires_guardian_consent, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		category.ID.String(),
		category.SportID.String(),
		category.Name,
		category.Description,
		category.Fee.Minor(),
		category.Currency,
		category.MaxParticipants,
		category.AgeFrom,
		category.AgeTo,
		category.GenderAllowed.String(),
		category.RequiresMedicalCertificate,
		category.RequiresGuardianConsent,
		category.IsActive,
		category.CreatedAt,
		category.UpdatedAt,
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
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, categoryID id.CategoryID) (*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM sport_categories WHERE id = $1`
	category, err := scanCategory(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, categoryID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

func (s *PostgresStore) ListBySport(ctx context.Context, sportID id.SportID) ([]*models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM sport_categories WHERE sport_id = $1 ORDER BY name`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, sportID.String())
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []*models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, category *models.Category) error {
	query := `
		UPDATE sport_categories
		SET name = $2, description = $3, fee_minor = $4, currency = $5,
			max_participants = $6, age_from = $7, age_to = $8, gender_allowed = $9,
			requires_medical_certificate = $10, requires_guardian_consent = $11,
			is_active = $12, updated_at = $13
		WHERE id = $1
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		category.ID.String(),
		category.Name,
		category.Description,
		category.Fee.Minor(),
		category.Currency,
		category.MaxParticipants,
		category.AgeFrom,
		category.AgeTo,
		category.GenderAllowed.String(),
		category.RequiresMedicalCertificate,
		category.RequiresGuardianConsent,
		category.IsActive,
		category.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update category rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute loads the category under a row lock, runs validate and mutate, and
// writes the result back within one transaction. When the context already
// carries a transaction the lock is held until that transaction settles.
func (s *PostgresStore) Execute(ctx context.Context, categoryID id.CategoryID, validate func(*models.Category) error, mutate func(*models.Category)) (*models.Category, error) {
	var category *models.Category
	err := tx.InTx(ctx, s.db, func(q tx.Queryer) error {
		query := `SELECT ` + categoryColumns + ` FROM sport_categories WHERE id = $1 FOR UPDATE`
		loaded, err := scanCategory(q.QueryRowContext(ctx, query, categoryID.String()))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sentinel.ErrNotFound
			}
			return fmt.Errorf("lock category: %w", err)
		}
		if err := validate(loaded); err != nil {
			return err
		}
		mutate(loaded)

		update := `
			UPDATE sport_categories
			SET name = $2, description = $3, fee_minor = $4, currency = $5,
				max_participants = $6, age_from = $7, age_to = $8, gender_allowed = $9,
				requires_medical_certificate = $10, requires_guardian_consent = $11,
				is_active = $12, updated_at = $13
			WHERE id = $1
		`
		if _, err := q.ExecContext(ctx, update,
			loaded.ID.String(),
			loaded.Name,
			loaded.Description,
			loaded.Fee.Minor(),
			loaded.Currency,
			loaded.MaxParticipants,
			loaded.AgeFrom,
			loaded.AgeTo,
			loaded.GenderAllowed.String(),
			loaded.RequiresMedicalCertificate,
			loaded.RequiresGuardianConsent,
			loaded.IsActive,
			loaded.UpdatedAt,
		); err != nil {
			return fmt.Errorf("write category: %w", err)
		}
		category = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM sport_categories`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}
	return count, nil
}

type categoryRow interface {
	Scan(dest ...any) error
}

func scanCategory(row categoryRow) (*models.Category, error) {
	var category models.Category
	var rawID, rawSportID, rawGender string
	var feeMinor int64
	if err := row.Scan(
		&rawID,
		&rawSportID,
		&category.Name,
		&category.Description,
		&feeMinor,
		&category.Currency,
		&category.MaxParticipants,
		&category.AgeFrom,
		&category.AgeTo,
		&rawGender,
		&category.RequiresMedicalCertificate,
		&category.RequiresGuardianConsent,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, err
	}

	parsedID, err := id.ParseCategoryID(rawID)
	if err != nil {
		return nil, err
	}
	parsedSportID, err := id.ParseSportID(rawSportID)
	if err != nil {
		return nil, err
	}
	gender, err := id.ParseGenderAllowed(rawGender)
	if err != nil {
		return nil, err
	}
	category.ID = parsedID
	category.SportID = parsedSportID
	category.GenderAllowed = gender
	category.Fee = money.FromMinor(feeMinor)
	return &category, nil
}
