package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinmerunka/MedicalSystem/core"
)

func TestSchemaConventions(t *testing.T) {
	schema := patientSchema()

	assert.Equal(t, "Patients", schema.TableName())

	primaryKey, err := schema.PrimaryKey()
	require.NoError(t, err)
	assert.Equal(t, "Id", primaryKey.DatabaseColumnName)
	assert.True(t, primaryKey.IsPrimaryKey)
	assert.True(t, primaryKey.IsAutoIncrement)
}

func TestSchemaExplicitTableAndTag(t *testing.T) {
	type Appointment struct {
		Id        int
		StartsAt  time.Time `db:"starts_at"`
		PatientId int       `db:"patient_id"`
	}
	schema := core.Schema[Appointment](core.Table[Appointment]("appointments"))

	assert.Equal(t, "appointments", schema.TableName())
	assert.NotNil(t, schema.FieldByColumn("starts_at"))
	assert.NotNil(t, schema.FieldByColumn("STARTS_AT")) // case-insensitive
	assert.Nil(t, schema.FieldByColumn("StartsAt"))
}

func TestSchemaFieldOptions(t *testing.T) {
	type Device struct {
		Serial   string
		Label    *string
		Kind     string
		AddedOn  time.Time
		Comments string
	}
	schema := core.Schema[Device](
		core.OverrideField(func(d *Device) *string { return &d.Serial }, core.PrimaryKey()),
		core.OverrideField(func(d *Device) **string { return &d.Label }, core.Required()),
		core.OverrideField(func(d *Device) *string { return &d.Kind }, core.Length(40), core.Default("generic")),
		core.OverrideField(func(d *Device) *time.Time { return &d.AddedOn }, core.SQLType("TIMESTAMPTZ")),
		core.OverrideField(func(d *Device) *string { return &d.Comments }, core.Nullable()),
	)

	serial := schema.FieldByColumn("Serial")
	require.NotNil(t, serial)
	assert.True(t, serial.IsPrimaryKey)
	assert.False(t, serial.IsAutoIncrement)

	label := schema.FieldByColumn("Label")
	assert.False(t, label.Nullable()) // pointer type, but Required wins

	kind := schema.FieldByColumn("Kind")
	assert.Equal(t, "VARCHAR(40)", kind.SQLType)
	assert.True(t, kind.HasDefault)

	assert.Equal(t, "TIMESTAMPTZ", schema.FieldByColumn("AddedOn").SQLType)
	assert.True(t, schema.FieldByColumn("Comments").Nullable())
}

func TestSchemaForeignKey(t *testing.T) {
	history := medicalHistorySchema()
	patientId := history.FieldByColumn("PatientId")
	require.NotNil(t, patientId)
	require.NotNil(t, patientId.ForeignKey)
	assert.Equal(t, "Patients", patientId.ForeignKey.RefTable)
	assert.Equal(t, "Id", patientId.ForeignKey.RefColumn)
}

func TestPrimaryKeyValidation(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		type Note struct {
			Text string
		}
		schema := core.Schema[Note]()
		_, err := schema.PrimaryKey()
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrMetadata))
	})

	t.Run("duplicated", func(t *testing.T) {
		type Pair struct {
			A int
			B int
		}
		schema := core.Schema[Pair](
			core.OverrideField(func(p *Pair) *int { return &p.A }, core.PrimaryKey()),
			core.OverrideField(func(p *Pair) *int { return &p.B }, core.PrimaryKey()),
		)
		_, err := schema.PrimaryKey()
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrMetadata))
	})
}

func TestMappedColumnsFilterNavigations(t *testing.T) {
	type Attachment struct {
		Id   int
		Blob []byte
	}
	type Visit struct {
		Id          int
		Notes       string
		Fingerprint []byte
		At          time.Time
		Ref         uuid.UUID
		Tags        []string       // container: filtered
		Attachments []Attachment   // collection navigation: filtered
		Doctor      *Doctor        // entity navigation: filtered
		Extra       map[string]any // container: filtered
	}
	schema := core.Schema[Visit]()

	columnNameList := []string{}
	for _, field := range schema.MappedColumns() {
		columnNameList = append(columnNameList, field.DatabaseColumnName)
	}
	assert.Equal(t, []string{"Id", "Notes", "Fingerprint", "At", "Ref"}, columnNameList)
}

func TestColumnDefinition(t *testing.T) {
	schema := patientSchema()
	schemaCore := &schema.SchemaCore

	t.Run("serial primary key has no further modifiers", func(t *testing.T) {
		primaryKey, err := schemaCore.PrimaryKey()
		require.NoError(t, err)
		assert.Equal(t, `"Id" SERIAL PRIMARY KEY`, schemaCore.ColumnDefinition(primaryKey))
	})

	t.Run("modifier order", func(t *testing.T) {
		type Tagged struct {
			Id   int
			Code string
		}
		tagged := core.Schema[Tagged](
			core.OverrideField(func(x *Tagged) *string { return &x.Code },
				core.Unique(), core.Default("n/a"), core.Length(10)),
		)
		code := tagged.FieldByColumn("Code")
		assert.Equal(t, `"Code" VARCHAR(10) NOT NULL UNIQUE DEFAULT 'n/a'`, tagged.ColumnDefinition(code))
	})
}

func TestFormatLiteral(t *testing.T) {
	assert.Equal(t, `'Kovač'`, core.FormatLiteral("Kovač"))
	assert.Equal(t, `'it''s'`, core.FormatLiteral("it's"))
	assert.Equal(t, "TRUE", core.FormatLiteral(true))
	assert.Equal(t, "FALSE", core.FormatLiteral(false))
	assert.Equal(t, "42", core.FormatLiteral(42))
	assert.Equal(t, "2.5", core.FormatLiteral(2.5))
	assert.Equal(t, "NULL", core.FormatLiteral(nil))

	at := time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)
	assert.Equal(t, `'2024-03-01 13:30:00'`, core.FormatLiteral(at))
}
