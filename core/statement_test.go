package core_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinmerunka/MedicalSystem/core"
)

func TestStatementTranslate(t *testing.T) {
	t.Run("placeholders become positional in first-appearance order", func(t *testing.T) {
		statement := core.NewStatement(
			`SELECT * FROM "Patients" WHERE "LastName" = @p1 AND "FirstName" = @p0;`,
			map[string]any{"p0": "Ana", "p1": "Kovač"})

		sql, args, err := statement.Translate()
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "Patients" WHERE "LastName" = $1 AND "FirstName" = $2;`, sql)
		assert.Equal(t, []any{"Kovač", "Ana"}, args)
	})

	t.Run("repeated placeholder binds once", func(t *testing.T) {
		statement := core.NewStatement(
			`SELECT * FROM "Patients" WHERE "FirstName" = @p0 OR "LastName" = @p0;`,
			map[string]any{"p0": "Ana"})

		sql, args, err := statement.Translate()
		require.NoError(t, err)
		assert.Equal(t, `SELECT * FROM "Patients" WHERE "FirstName" = $1 OR "LastName" = $1;`, sql)
		assert.Equal(t, []any{"Ana"}, args)
	})

	t.Run("reserved pId placeholder", func(t *testing.T) {
		statement := core.NewStatement(
			`UPDATE "Patients" SET "LastName" = @p0 WHERE "Id" = @pId;`,
			map[string]any{"p0": "Novak", "pId": 3})

		sql, args, err := statement.Translate()
		require.NoError(t, err)
		assert.Equal(t, `UPDATE "Patients" SET "LastName" = $1 WHERE "Id" = $2;`, sql)
		assert.Equal(t, []any{"Novak", 3}, args)
	})

	t.Run("multi-digit placeholders", func(t *testing.T) {
		statement := core.NewStatement(`SELECT @p9, @p10, @p11;`, map[string]any{
			"p9": 9, "p10": 10, "p11": 11,
		})
		translated, args, err := statement.Translate()
		require.NoError(t, err)
		assert.Equal(t, `SELECT $1, $2, $3;`, translated)
		assert.Equal(t, []any{9, 10, 11}, args)
	})

	t.Run("missing parameter is a QueryExecutionError", func(t *testing.T) {
		statement := core.NewStatement(`SELECT * FROM "Patients" WHERE "OIB" = @p0;`, nil)
		_, _, err := statement.Translate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrQueryExecution))
		assert.Contains(t, err.Error(), "@p0")

		var queryErr *core.QueryExecutionError
		require.True(t, errors.As(err, &queryErr))
		assert.Contains(t, queryErr.SQL, `"OIB"`)
	})

	t.Run("no placeholders", func(t *testing.T) {
		statement := core.NewStatement(`SELECT COUNT(*) FROM "Patients";`, nil)
		sql, args, err := statement.Translate()
		require.NoError(t, err)
		assert.Equal(t, `SELECT COUNT(*) FROM "Patients";`, sql)
		assert.Empty(t, args)
	})
}
