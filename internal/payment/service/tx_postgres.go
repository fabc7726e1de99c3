package service

import (
	"context"
	"database/sql"
	"time"

	dErrors "alumnireg/pkg/domain-errors"
	txcontext "alumnireg/pkg/platform/tx"
)

// PostgresTx runs a payment unit of work in one database transaction. The
// stores pick the transaction up from the ctx handed to fn.
type PostgresTx struct {
	db      *sql.DB
	stores  Stores
	timeout time.Duration
}

func NewPostgresTx(db *sql.DB, stores Stores, timeout time.Duration) *PostgresTx {
	return &PostgresTx{db: db, stores: stores, timeout: timeout}
}

func (t *PostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPaymentTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx), t.stores); err != nil {
		return err
	}
	return tx.Commit()
}
