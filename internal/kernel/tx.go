package kernel

import (
	"context"

	"github.com/giro-sh/license-server/internal/errx"
	"github.com/jmoiron/sqlx"
)

// txKey is the context key under which an in-flight transaction is stashed
// so that repositories across bounded contexts (license, hardware, audit)
// can participate in one atomic unit of work (§5).
type txKey struct{}

// TxManager opens and commits transactions that span multiple repositories.
type TxManager struct {
	db *sqlx.DB
}

func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn inside a single database transaction. If fn returns an
// error the transaction is rolled back and the error propagated unchanged;
// a panic inside fn also rolls back before repropagating. Nesting is
// flattened: calling WithinTx while already inside one reuses the same tx.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errx.Wrap(err, "failed to begin transaction", errx.TypeInternal)
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return errx.Wrap(err, "failed to commit transaction", errx.TypeInternal)
	}
	return nil
}

// Executor returns the in-flight transaction stashed in ctx, or db if none
// is active. Repositories use this instead of calling db methods directly
// so a single call can run standalone or as part of a larger unit of work.
func Executor(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}
