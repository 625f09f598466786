package event

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"sportsfest/internal/outbox/models"
	"sportsfest/pkg/platform/tx"
)

// PostgresStore persists outbox events. Append joins the caller's ambient
// transaction, which is the whole point of the outbox: the event commits or
// rolls back together with the state change it describes. An AFTER INSERT
// trigger on the table notifies the relay's listener channel.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, event_type, aggregate_id, payload, created_at, published_at`

func (s *PostgresStore) Append(ctx context.Context, e *models.Event) error {
	query := `
		INSERT INTO outbox_events (id, event_type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		e.ID.String(),
		e.EventType,
		e.AggregateID,
		[]byte(e.Payload),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append outbox event: %w", err)
	}
	return nil
}

// ListUnpublished returns up to limit undelivered events, oldest first. Rows
// are locked with SKIP LOCKED so two relay instances never double-deliver a
// batch.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]*models.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list outbox events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list outbox events: %w", err)
	}
	return out, nil
}

// MarkPublished stamps the batch as delivered.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, eventID := range ids {
		raw[i] = eventID.String()
	}
	query := `UPDATE outbox_events SET published_at = $1 WHERE id = ANY($2)`
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox events published: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountUnpublished(ctx context.Context) (int, error) {
	var count int
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM outbox_events WHERE published_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count outbox events: %w", err)
	}
	return count, nil
}

type eventRow interface {
	Scan(dest ...any) error
}

func scanEvent(row eventRow) (*models.Event, error) {
	var e models.Event
	var rawID string
	var payload []byte
	var publishedAt sql.NullTime
	if err := row.Scan(
		&rawID,
		&e.EventType,
		&e.AggregateID,
		&payload,
		&e.CreatedAt,
		&publishedAt,
	); err != nil {
		return nil, err
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, err
	}
	e.ID = eventID
	e.Payload = payload
	e.PublishedAt = publishedAt.Time
	return &e, nil
}
