package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Stores run their statements against it so the same code serves both
// standalone calls and calls joined to an ambient transaction.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Executor returns the transaction carried by ctx when present, otherwise db.
func Executor(ctx context.Context, db *sql.DB) Queryer {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}

// InTx runs fn inside the transaction carried by ctx when one is present,
// leaving commit/rollback to the transaction's owner. Otherwise it opens its
// own transaction on db, commits when fn succeeds and rolls back when it
// errors. Stores use this for multi-statement sections and row locks.
func InTx(ctx context.Context, db *sql.DB, fn func(q Queryer) error) error {
	if t, ok := From(ctx); ok {
		return fn(t)
	}
	txn, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = txn.Rollback()
	}()
	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// Nop satisfies the services' transaction-runner interfaces without any
// transaction semantics. Memory-backed runs and unit tests use it; the
// server wires database-backed runners instead.
type Nop struct{}

func (Nop) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}
