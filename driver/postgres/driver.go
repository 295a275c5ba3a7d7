// Package postgres provides the PostgreSQL driver for the MedicalSystem ORM,
// implementing the core executor contract over a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinmerunka/MedicalSystem/core"
)

// Driver executes statements against PostgreSQL through a pgxpool.Pool.
//
// When the context carries an ambient core.Transaction (see
// core.WithTransaction), statements are routed through it instead of the
// pool, which is how SaveChanges keeps its whole batch in one transaction.
type Driver struct {
	pool *pgxpool.Pool
}

var _ core.Driver = (*Driver)(nil)

// Open parses the connection string, creates the pool, and verifies
// connectivity with a ping.
func Open(ctx context.Context, connString string) (*Driver, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Driver{pool: pool}, nil
}

// Ping checks if the database is reachable.
func (driver *Driver) Ping(ctx context.Context) error {
	return driver.pool.Ping(ctx)
}

// Close releases the pool and all its connections.
func (driver *Driver) Close(ctx context.Context) error {
	driver.pool.Close()
	return nil
}

// Begin starts a new database transaction.
func (driver *Driver) Begin(ctx context.Context) (core.Transaction, error) {
	tx, err := driver.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &postgresTransaction{transaction: tx}, nil
}

// Execute runs a statement and returns the number of affected rows.
func (driver *Driver) Execute(ctx context.Context, sqlQuery string, args ...any) (int64, error) {
	if tx := ambientTx(ctx); tx != nil {
		tag, err := tx.transaction.Exec(ctx, sqlQuery, args...)
		return tag.RowsAffected(), err
	}
	tag, err := driver.pool.Exec(ctx, sqlQuery, args...)
	return tag.RowsAffected(), err
}

// Query runs a statement and returns a cursor over its result.
func (driver *Driver) Query(ctx context.Context, sqlQuery string, args ...any) (core.Rows, error) {
	var rows pgx.Rows
	var err error
	if tx := ambientTx(ctx); tx != nil {
		rows, err = tx.transaction.Query(ctx, sqlQuery, args...)
	} else {
		rows, err = driver.pool.Query(ctx, sqlQuery, args...)
	}
	if err != nil {
		return nil, err
	}
	return &pgxRows{rows: rows}, nil
}

// Scalar runs a statement and returns the first column of the first row,
// or nil when the result is empty.
func (driver *Driver) Scalar(ctx context.Context, sqlQuery string, args ...any) (any, error) {
	var row pgx.Row
	if tx := ambientTx(ctx); tx != nil {
		row = tx.transaction.QueryRow(ctx, sqlQuery, args...)
	} else {
		row = driver.pool.QueryRow(ctx, sqlQuery, args...)
	}

	var value any
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

// ambientTx extracts the pgx-backed transaction from the context, if any.
func ambientTx(ctx context.Context) *postgresTransaction {
	if tx := core.TransactionFrom(ctx); tx != nil {
		if pgTx, ok := tx.(*postgresTransaction); ok {
			return pgTx
		}
	}
	return nil
}

// pgxRows adapts pgx.Rows to the core.Rows cursor contract.
type pgxRows struct {
	rows pgx.Rows
}

func (r *pgxRows) Next() bool {
	return r.rows.Next()
}

func (r *pgxRows) Columns() []string {
	descriptionList := r.rows.FieldDescriptions()
	columnNameList := make([]string, len(descriptionList))
	for index, description := range descriptionList {
		columnNameList[index] = string(description.Name)
	}
	return columnNameList
}

func (r *pgxRows) Values() ([]any, error) {
	return r.rows.Values()
}

func (r *pgxRows) Close() {
	r.rows.Close()
}

func (r *pgxRows) Err() error {
	return r.rows.Err()
}
