package seat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sportsfest/internal/capacity/models"
	id "sportsfest/pkg/domain"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/platform/tx"
	"sportsfest/pkg/requestcontext"
)

// PostgresStore keeps the occupied counter on the sport_categories row and a
// row per outstanding token in capacity_reservations.
//
// Reserve and Release are each a single statement, so they are atomic on
// their own and serialize through the category row lock; when the context
// carries a transaction they additionally commit or roll back with it.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Reserve increments the category's occupied count when it is below the
// row's own ceiling and records the token. The conditional UPDATE re-checks
// the ceiling under the row lock, which is what defuses the last-seat race.
// The max argument is the ceiling callers read from the category; the row's
// persisted ceiling is authoritative here.
func (s *PostgresStore) Reserve(ctx context.Context, token models.SeatToken, max int) error {
	query := `
		WITH claimed AS (
			UPDATE sport_categories
			SET occupied = occupied + 1
			WHERE id = $1 AND occupied < max_participants
			RETURNING id
		)
		INSERT INTO capacity_reservations (token, category_id, created_at)
		SELECT $2, claimed.id, $3 FROM claimed
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		token.CategoryID.String(),
		token.ID.String(),
		requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("reserve seat: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seat rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		check := `SELECT EXISTS (SELECT 1 FROM sport_categories WHERE id = $1)`
		if err := tx.Executor(ctx, s.db).QueryRowContext(ctx, check, token.CategoryID.String()).Scan(&exists); err != nil {
			return fmt.Errorf("reserve seat existence check: %w", err)
		}
		if !exists {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrExhausted
	}
	return nil
}

// Release deletes the token row and decrements the counter it was holding.
// Releasing a token that was never issued, or was already released, affects
// zero rows and reports false.
func (s *PostgresStore) Release(ctx context.Context, token models.SeatToken) (bool, error) {
	query := `
		WITH freed AS (
			DELETE FROM capacity_reservations
			WHERE token = $1
			RETURNING category_id
		)
		UPDATE sport_categories
		SET occupied = GREATEST(occupied - 1, 0)
		WHERE id IN (SELECT category_id FROM freed)
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, token.ID.String())
	if err != nil {
		return false, fmt.Errorf("release seat: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("release seat rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *PostgresStore) Counts(ctx context.Context, categoryID id.CategoryID) (int, int, error) {
	var occupied, max int
	query := `SELECT occupied, max_participants FROM sport_categories WHERE id = $1`
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx, query, categoryID.String()).Scan(&occupied, &max)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, sentinel.ErrNotFound
		}
		return 0, 0, fmt.Errorf("seat counts: %w", err)
	}
	return occupied, max, nil
}
