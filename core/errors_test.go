package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/tinmerunka/MedicalSystem/core"
)

func TestMetadataError(t *testing.T) {
	err := core.NewMetadataError("Patients", "no primary key column")
	assert.Equal(t, "core: entity Patients: no primary key column", err.Error())
	assert.True(t, errors.Is(err, core.ErrMetadata))

	wrapped := fmt.Errorf("building schema: %w", err)
	assert.True(t, errors.Is(wrapped, core.ErrMetadata))
}

func TestQueryExecutionError(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	err := core.NewQueryExecutionError(`INSERT INTO "Patients" …`, pgErr)

	assert.True(t, errors.Is(err, core.ErrQueryExecution))
	assert.Equal(t, "23505", err.SQLState)
	assert.Contains(t, err.Error(), "SQLSTATE 23505")

	var target *pgconn.PgError
	assert.True(t, errors.As(err, &target))
}

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505"}
	assert.True(t, core.IsUniqueViolation(pgErr))
	assert.True(t, core.IsUniqueViolation(core.NewQueryExecutionError("INSERT", pgErr)))

	assert.False(t, core.IsUniqueViolation(nil))
	assert.False(t, core.IsUniqueViolation(errors.New("other")))
	assert.False(t, core.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestMigrationConflictError(t *testing.T) {
	err := &core.MigrationConflictError{Target: 5, Current: 3, Reason: "target must be below the current version"}
	assert.True(t, errors.Is(err, core.ErrMigrationConflict))
	assert.Contains(t, err.Error(), "version 5")
}

func TestSerializationError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := &core.SerializationError{Err: cause}
	assert.True(t, errors.Is(err, core.ErrSerialization))
	assert.True(t, errors.Is(err, cause))
}
