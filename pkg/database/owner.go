package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// WithOwner runs fn in a transaction scoped to subjectID.
//
// The subject is published as the transaction-local setting app.current_user
// so row-level security policies of the form
//
//	USING (user_id = current_setting('app.current_user')::uuid)
//
// apply alongside the explicit user_id predicates in each query. The
// transaction is placed in the context passed to fn; repositories obtain it
// with Conn.
func (db *DB) WithOwner(ctx context.Context, subjectID string, fn func(context.Context) error) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "SELECT set_config('app.current_user', $1, true)", subjectID); err != nil {
			return fmt.Errorf("failed to set app.current_user: %w", err)
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// Conn returns the owner-scoped transaction from ctx, or the pool when
// called outside WithOwner.
func (db *DB) Conn(ctx context.Context) Queryer {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db.DB
}
