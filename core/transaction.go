// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines scoped transaction execution. A transaction travels in
// the context so that drivers route statements through it; RunTransaction
// owns the begin/commit/rollback lifecycle and is what SaveChanges runs its
// flush batch under.
package core

import "context"

// transactionKey is an unexported type used as the key for storing
// a Transaction in a context.Context. Using a private type prevents
// collisions with other context values.
type transactionKey struct{}

// WithTransaction injects a Transaction into the given context. Drivers
// detect the ambient transaction and route statements through it instead
// of their pool.
func WithTransaction(ctx context.Context, tx Transaction) context.Context {
	return context.WithValue(ctx, transactionKey{}, tx)
}

// TransactionFrom extracts a Transaction from the given context, if any.
//
// Returns nil if the context does not contain a transaction.
func TransactionFrom(ctx context.Context) Transaction {
	if v, ok := ctx.Value(transactionKey{}).(Transaction); ok {
		return v
	}
	return nil
}

// TransactionFunc is the callback executed inside a scoped transaction.
// Its context carries the transaction; statements issued through the
// driver with that context join it.
type TransactionFunc func(txCtx context.Context) error

// RunTransaction begins a transaction, runs fn with the transaction bound
// to the context, and commits. If fn returns an error the transaction is
// rolled back and the error propagates unchanged; begin and commit
// failures surface as QueryExecutionError.
//
// SaveChanges flushes its whole Added/Modified/Deleted batch through this
// helper, which is what makes the batch atomic.
func RunTransaction(ctx context.Context, driver Driver, fn TransactionFunc) error {
	tx, err := driver.Begin(ctx)
	if err != nil {
		return NewQueryExecutionError("BEGIN", err)
	}
	txCtx := WithTransaction(ctx, tx)

	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return NewQueryExecutionError("COMMIT", err)
	}
	return nil
}
