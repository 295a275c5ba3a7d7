package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinmerunka/MedicalSystem/core"
)

func patientColumns() []string {
	return []string{"Id", "FirstName", "LastName", "OIB", "DoctorId"}
}

func TestEntitySetToList(t *testing.T) {
	driver := &fakeDriver{queryQueue: []fakeResult{{
		columns: patientColumns(),
		rows: [][]any{
			{int32(1), "Ana", "Kovač", "123", nil},
			{int32(2), "Ivan", "Horvat", "456", int32(9)},
		},
	}}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	results, err := patients.ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 1, results[0].Id)
	assert.Equal(t, "Ana", results[0].FirstName)
	assert.Nil(t, results[0].DoctorId) // NULL materializes as nil pointer

	require.NotNil(t, results[1].DoctorId)
	assert.Equal(t, 9, *results[1].DoctorId)

	assert.Equal(t, `SELECT "Id", "FirstName", "LastName", "OIB", "DoctorId" FROM "Patients";`, driver.executed[0].sql)

	// reads do not register entities with the tracker
	assert.Empty(t, session.Tracker().Entries())
}

func TestEntitySetMissingColumnLeavesZeroValue(t *testing.T) {
	driver := &fakeDriver{queryQueue: []fakeResult{{
		columns: []string{"Id", "OIB"}, // FirstName/LastName absent from result
		rows:    [][]any{{int32(3), "789"}},
	}}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	results, err := patients.ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 3, results[0].Id)
	assert.Equal(t, "789", results[0].OIB)
	assert.Empty(t, results[0].FirstName)
}

func TestEntitySetColumnLookupIsCaseInsensitive(t *testing.T) {
	driver := &fakeDriver{queryQueue: []fakeResult{{
		columns: []string{"id", "firstname"},
		rows:    [][]any{{int32(4), "Maja"}},
	}}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	results, err := patients.ToList(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 4, results[0].Id)
	assert.Equal(t, "Maja", results[0].FirstName)
}

func TestEntitySetFind(t *testing.T) {
	t.Run("hit", func(t *testing.T) {
		driver := &fakeDriver{queryQueue: []fakeResult{{
			columns: patientColumns(),
			rows:    [][]any{{int32(1), "Ana", "Kovač", "123", nil}},
		}}}
		session := core.NewSession(driver)
		patients := core.NewEntitySet(session, patientSchema())

		patient, err := patients.Find(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, patient)
		assert.Equal(t, "Kovač", patient.LastName)

		statement := driver.executed[0]
		assert.Contains(t, statement.sql, `WHERE "Id" = $1`)
		assert.Equal(t, []any{1}, statement.args)
	})

	t.Run("miss returns nil", func(t *testing.T) {
		driver := &fakeDriver{}
		session := core.NewSession(driver)
		patients := core.NewEntitySet(session, patientSchema())

		patient, err := patients.Find(context.Background(), 42)
		require.NoError(t, err)
		assert.Nil(t, patient)
	})
}

func TestEntitySetWhere(t *testing.T) {
	driver := &fakeDriver{queryQueue: []fakeResult{{
		columns: patientColumns(),
		rows:    [][]any{{int32(2), "Ivan", "Horvat", "456", nil}},
	}}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	results, err := patients.Where(context.Background(),
		`"LastName" = @p0`, map[string]any{"p0": "Horvat"}, core.OrderBy("FirstName"))
	require.NoError(t, err)
	require.Len(t, results, 1)

	statement := driver.executed[0]
	assert.Equal(t,
		`SELECT "Id", "FirstName", "LastName", "OIB", "DoctorId" FROM "Patients" WHERE "LastName" = $1 ORDER BY "FirstName" ASC;`,
		statement.sql)
	assert.Equal(t, []any{"Horvat"}, statement.args)
}

func TestEntitySetFirstOrDefault(t *testing.T) {
	driver := &fakeDriver{queryQueue: []fakeResult{{
		columns: patientColumns(),
		rows: [][]any{
			{int32(5), "Ana", "Kovač", "111", nil},
			{int32(6), "Ana", "Anić", "222", nil},
		},
	}}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	patient, err := patients.FirstOrDefault(context.Background(), `"FirstName" = @p0`, map[string]any{"p0": "Ana"})
	require.NoError(t, err)
	require.NotNil(t, patient)
	assert.Equal(t, 5, patient.Id)

	missing, err := patients.FirstOrDefault(context.Background(), `"FirstName" = @p0`, map[string]any{"p0": "Nobody"})
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestEntitySetCountAndAny(t *testing.T) {
	driver := &fakeDriver{scalarQueue: []any{int64(3), int64(0)}}
	session := core.NewSession(driver)
	patients := core.NewEntitySet(session, patientSchema())

	count, err := patients.Count(context.Background(), "", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, `SELECT COUNT(*) FROM "Patients";`, driver.executed[0].sql)

	exists, err := patients.Any(context.Background(), `"DoctorId" = @p0`, map[string]any{"p0": 1})
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, `SELECT COUNT(*) FROM "Patients" WHERE "DoctorId" = $1;`, driver.executed[1].sql)
}
