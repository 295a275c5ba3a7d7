// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the minimal SQL executor contract the ORM consumes.
// Driver internals (connection handling, placeholder dialect, scanning) live
// behind these interfaces; the core never talks to a database directly.
package core

import "context"

// Rows is a forward-only cursor over a query result.
//
// Implementations must release their resources when Close is called,
// regardless of how far the cursor was advanced.
type Rows interface {
	// Next advances the cursor and reports whether a row is available.
	Next() bool
	// Columns returns the result column names in result order.
	Columns() []string
	// Values returns the driver-native values of the current row.
	Values() ([]any, error)
	// Close releases the cursor.
	Close()
	// Err returns the first error encountered during iteration.
	Err() error
}

// Transaction defines the contract for database transaction management.
//
// Implementations must provide atomic commit and rollback semantics.
type Transaction interface {
	// Commit finalizes the transaction and makes all changes permanent.
	Commit(ctx context.Context) error
	// Rollback reverts the transaction, discarding all changes.
	Rollback(ctx context.Context) error
}

// Executor is the minimal statement-execution surface.
//
// Statements are given in the driver's native placeholder dialect ($1, $2, …
// for PostgreSQL) with values bound positionally. Implementations route a
// statement through an ambient Transaction when one is present in the
// context (see WithTransaction).
type Executor interface {
	// Execute runs a statement and returns the number of affected rows.
	Execute(ctx context.Context, sql string, args ...any) (int64, error)
	// Query runs a statement and returns a cursor over its result.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	// Scalar runs a statement and returns the first column of the first
	// row, or nil when the result is empty.
	Scalar(ctx context.Context, sql string, args ...any) (any, error)
}

// Driver extends Executor with connectivity and transaction control. Each
// backend (e.g. the pgx-based postgres driver) implements this interface.
type Driver interface {
	Executor

	// Ping checks if the underlying database is reachable.
	Ping(ctx context.Context) error
	// Close terminates the connection and releases resources.
	Close(ctx context.Context) error
	// Begin starts a new database transaction.
	Begin(ctx context.Context) (Transaction, error)
}
