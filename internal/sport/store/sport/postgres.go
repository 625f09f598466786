package sport

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"sportsfest/internal/sport/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists sports in PostgreSQL. Statements join the ambient
// transaction when the context carries one.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const sportColumns = `id, name, description, is_active, created_at, updated_at`

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, sport *models.Sport) error {
	query := `
		INSERT INTO sports (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		sport.ID.String(),
		sport.Name,
		sport.Description,
		sport.IsActive,
		sport.CreatedAt,
		sport.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create sport: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sportID id.SportID) (*models.Sport, error) {
	query := `SELECT ` + sportColumns + ` FROM sports WHERE id = $1`
	sport, err := scanSport(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, sportID.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sport: %w", err)
	}
	return sport, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Sport, error) {
	query := `SELECT ` + sportColumns + ` FROM sports ORDER BY name`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}
	defer rows.Close()

	var out []*models.Sport
	for rows.Next() {
		sport, err := scanSport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sport: %w", err)
		}
		out = append(out, sport)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sports: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, sport *models.Sport) error {
	query := `
		UPDATE sports
		SET name = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $1
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		sport.ID.String(),
		sport.Name,
		sport.Description,
		sport.IsActive,
		sport.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update sport: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update sport rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM sports`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sports: %w", err)
	}
	return count, nil
}

type sportRow interface {
	Scan(dest ...any) error
}

func scanSport(row sportRow) (*models.Sport, error) {
	var sport models.Sport
	var rawID string
	if err := row.Scan(
		&rawID,
		&sport.Name,
		&sport.Description,
		&sport.IsActive,
		&sport.CreatedAt,
		&sport.UpdatedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := id.ParseSportID(rawID)
	if err != nil {
		return nil, err
	}
	sport.ID = parsed
	return &sport, nil
}
