package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "sportsfest/pkg/domain-errors"
	"sportsfest/pkg/platform/tx"
)

const defaultTxTimeout = 5 * time.Second

// postgresTx is the transaction runner shared by every feature service. It
// opens one database transaction and carries it through the context, so the
// stores invoked inside fn join it via tx.Executor. When the context already
// carries a transaction, fn runs inside that one; commit and rollback stay
// with its owner.
type postgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPostgresTx(db *sql.DB) *postgresTx {
	return &postgresTx{db: db}
}

func (t *postgresTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := tx.From(ctx); ok {
		return fn(ctx)
	}

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}
