// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the error taxonomy shared by the whole library: metadata
// problems, failed statement execution, migration conflicts, and snapshot
// serialization failures.
package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Standard sentinel errors for common failure classes.
var (
	// ErrMetadata is returned when an entity declaration is unusable,
	// e.g. it lacks a primary key or contains an unsupported field shape.
	ErrMetadata = errors.New("core: invalid entity metadata")

	// ErrQueryExecution is returned when the database driver reports an
	// error while executing a statement (syntax, constraint, connectivity).
	ErrQueryExecution = errors.New("core: query execution failed")

	// ErrMigrationConflict is returned when a rollback targets a missing
	// version or a version that is not below the current one.
	ErrMigrationConflict = errors.New("core: migration conflict")

	// ErrSerialization is returned when a schema snapshot cannot be
	// encoded to or decoded from JSON.
	ErrSerialization = errors.New("core: snapshot serialization failed")
)

// MetadataError describes a defect in an entity declaration.
type MetadataError struct {
	Entity string // Struct or table name the defect was found on
	Reason string
}

// Error returns the error string.
func (e *MetadataError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("core: entity %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("core: %s", e.Reason)
}

// Is reports whether the target error matches MetadataError.
// This allows errors.Is(err, ErrMetadata) to return true.
func (e *MetadataError) Is(err error) bool {
	return err == ErrMetadata
}

// NewMetadataError returns a new MetadataError for the given entity.
func NewMetadataError(entity, reason string) *MetadataError {
	return &MetadataError{Entity: entity, Reason: reason}
}

// QueryExecutionError wraps a driver error together with the statement that
// caused it and, when the driver exposes one, the PostgreSQL SQLSTATE code.
type QueryExecutionError struct {
	SQL      string
	SQLState string
	Err      error
}

// Error returns the error string.
func (e *QueryExecutionError) Error() string {
	if e.SQLState != "" {
		return fmt.Sprintf("core: execute %q: %v (SQLSTATE %s)", e.SQL, e.Err, e.SQLState)
	}
	return fmt.Sprintf("core: execute %q: %v", e.SQL, e.Err)
}

// Is reports whether the target error matches QueryExecutionError.
func (e *QueryExecutionError) Is(err error) bool {
	return err == ErrQueryExecution
}

// Unwrap exposes the underlying driver error.
func (e *QueryExecutionError) Unwrap() error {
	return e.Err
}

// NewQueryExecutionError wraps err for the given statement. When err carries
// a pgconn.PgError the SQLSTATE code is extracted for classification.
func NewQueryExecutionError(sql string, err error) *QueryExecutionError {
	var pgErr *pgconn.PgError
	state := ""
	if errors.As(err, &pgErr) {
		state = pgErr.Code
	}
	return &QueryExecutionError{SQL: sql, SQLState: state, Err: err}
}

// IsUniqueViolation reports whether err is a unique-constraint violation
// (SQLSTATE 23505), either as a raw pgconn.PgError or wrapped in a
// QueryExecutionError.
func IsUniqueViolation(err error) bool {
	var queryErr *QueryExecutionError
	if errors.As(err, &queryErr) && queryErr.SQLState == "23505" {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// MigrationConflictError describes an invalid rollback request.
type MigrationConflictError struct {
	Target  int
	Current int
	Reason  string
}

// Error returns the error string.
func (e *MigrationConflictError) Error() string {
	return fmt.Sprintf("core: cannot roll back to version %d (current %d): %s", e.Target, e.Current, e.Reason)
}

// Is reports whether the target error matches MigrationConflictError.
func (e *MigrationConflictError) Is(err error) bool {
	return err == ErrMigrationConflict
}

// SerializationError wraps a JSON encode/decode failure of a schema snapshot.
type SerializationError struct {
	Err error
}

// Error returns the error string.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("core: snapshot serialization: %v", e.Err)
}

// Is reports whether the target error matches SerializationError.
func (e *SerializationError) Is(err error) bool {
	return err == ErrSerialization
}

// Unwrap exposes the underlying JSON error.
func (e *SerializationError) Unwrap() error {
	return e.Err
}
