package service

import (
	"context"
	"errors"

	"sportsfest/internal/capacity/models"
	id "sportsfest/pkg/domain"
	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/sentinel"
	"sportsfest/pkg/requestcontext"
)

// Reserve holds one seat in the category and returns the token representing
// it. maxParticipants is the category's ceiling as read by the caller.
//
// Errors: CodeCategoryFull when the category is at its ceiling, CodeNotFound
// when the counter's backing row is missing. Reserve never partially
// succeeds: when it errors, no token was issued and no seat is held.
func (l *Ledger) Reserve(ctx context.Context, categoryID id.CategoryID, maxParticipants int) (models.SeatToken, error) {
	if maxParticipants <= 0 {
		l.metrics.IncrementRejected()
		return models.SeatToken{}, dErrors.New(dErrors.CodeCategoryFull, "no seats available in category")
	}

	token := models.NewSeatToken(categoryID)
	if err := l.store.Reserve(ctx, token, maxParticipants); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrExhausted):
			l.metrics.IncrementRejected()
			l.logger.InfoContext(ctx, "reservation rejected, category full",
				"category_id", categoryID.String(),
				"request_id", requestcontext.RequestID(ctx),
			)
			return models.SeatToken{}, dErrors.New(dErrors.CodeCategoryFull, "no seats available in category")
		case errors.Is(err, sentinel.ErrNotFound):
			return models.SeatToken{}, dErrors.New(dErrors.CodeNotFound, "category not found")
		default:
			return models.SeatToken{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve seat")
		}
	}

	l.metrics.IncrementReserved()
	return token, nil
}

// Release frees the seat held by token. Releasing an already-released or
// never-issued token is a no-op, which is what makes the payment-failure
// compensation safe to replay.
func (l *Ledger) Release(ctx context.Context, token models.SeatToken) error {
	if token.IsZero() {
		return nil
	}
	released, err := l.store.Release(ctx, token)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release seat")
	}
	if released {
		l.metrics.IncrementReleased()
	}
	return nil
}

// Occupied reports the current number of held seats in the category.
func (l *Ledger) Occupied(ctx context.Context, categoryID id.CategoryID) (int, error) {
	occupied, _, err := l.counts(ctx, categoryID)
	return occupied, err
}

// Available reports the free seats remaining. It never reports a negative
// count, even if an admin lowered the ceiling below current occupancy.
func (l *Ledger) Available(ctx context.Context, categoryID id.CategoryID) (int, error) {
	occupied, max, err := l.counts(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	available := max - occupied
	if available < 0 {
		available = 0
	}
	return available, nil
}

func (l *Ledger) counts(ctx context.Context, categoryID id.CategoryID) (int, int, error) {
	occupied, max, err := l.store.Counts(ctx, categoryID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, 0, dErrors.New(dErrors.CodeNotFound, "category not found")
		}
		return 0, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read seat counts")
	}
	return occupied, max, nil
}
