// Package postgres provides the PostgreSQL driver for the MedicalSystem ORM.
// This file defines the postgresTransaction type, which adapts pgx.Tx
// to the core.Transaction interface used by the ORM.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// postgresTransaction wraps a pgx.Tx and implements the core.Transaction
// interface.
//
// It allows the ORM to manage transactions in a driver-agnostic way; the
// driver routes statements through it when it is present in the context.
type postgresTransaction struct {
	transaction pgx.Tx
}

// Commit finalizes the transaction, making all changes permanent.
func (transaction *postgresTransaction) Commit(ctx context.Context) error {
	return transaction.transaction.Commit(ctx)
}

// Rollback reverts the transaction, discarding all changes.
func (transaction *postgresTransaction) Rollback(ctx context.Context) error {
	return transaction.transaction.Rollback(ctx)
}
