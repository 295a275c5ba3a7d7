// Package migrate implements schema evolution for the MedicalSystem ORM:
// snapshot construction from entity metadata, diffing against the stored
// snapshot, forward/reverse DDL generation, and a versioned migration
// history persisted in the database.
//
// This file defines the snapshot model: the typed, JSON-serializable
// description of the database schema at one point in time.
package migrate

import (
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/tinmerunka/MedicalSystem/core"
)

// ColumnSnapshot describes one column. Its identity is the column name,
// compared case-insensitively.
type ColumnSnapshot struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Nullable      bool    `json:"nullable"`
	PrimaryKey    bool    `json:"primaryKey"`
	AutoIncrement bool    `json:"autoIncrement"`
	Unique        bool    `json:"unique"`
	DefaultValue  *string `json:"defaultValue"`
}

// Equal reports whether two column snapshots describe the same column
// shape. Type is compared case-sensitively; primary key and auto-increment
// are excluded, since they cannot be altered in place.
func (c *ColumnSnapshot) Equal(other *ColumnSnapshot) bool {
	if c.Type != other.Type || c.Nullable != other.Nullable || c.Unique != other.Unique {
		return false
	}
	if (c.DefaultValue == nil) != (other.DefaultValue == nil) {
		return false
	}
	return c.DefaultValue == nil || *c.DefaultValue == *other.DefaultValue
}

// TableSnapshot describes one table and its columns in declaration order.
type TableSnapshot struct {
	TableName string           `json:"tableName"`
	Columns   []ColumnSnapshot `json:"columns"`
}

// Column finds a column by name, case-insensitively. Returns nil when the
// table has no such column.
func (t *TableSnapshot) Column(name string) *ColumnSnapshot {
	for index := range t.Columns {
		if strings.EqualFold(t.Columns[index].Name, name) {
			return &t.Columns[index]
		}
	}
	return nil
}

// Snapshot is the schema description persisted with every migration.
type Snapshot struct {
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	Tables    []TableSnapshot `json:"tables"`
}

// Table finds a table by name, case-insensitively. Returns nil when the
// snapshot has no such table.
func (s *Snapshot) Table(name string) *TableSnapshot {
	for index := range s.Tables {
		if strings.EqualFold(s.Tables[index].TableName, name) {
			return &s.Tables[index]
		}
	}
	return nil
}

// FromSchemas builds a snapshot from entity metadata, with tables and
// columns in declaration order.
//
// Every entity must declare exactly one primary key; a defect surfaces as
// a MetadataError.
func FromSchemas(version int, createdAt time.Time, schemaList ...*core.SchemaCore) (*Snapshot, error) {
	snapshot := &Snapshot{Version: version, CreatedAt: createdAt}

	for _, schema := range schemaList {
		if _, err := schema.PrimaryKey(); err != nil {
			return nil, err
		}

		table := TableSnapshot{TableName: schema.TableName()}
		for _, field := range schema.MappedColumns() {
			column := ColumnSnapshot{
				Name:          field.DatabaseColumnName,
				Type:          field.SQLType,
				Nullable:      field.Nullable(),
				PrimaryKey:    field.IsPrimaryKey,
				AutoIncrement: field.IsAutoIncrement,
				Unique:        field.IsUnique,
			}
			if field.HasDefault {
				literal := core.FormatLiteral(field.DefaultValue)
				column.DefaultValue = &literal
			}
			table.Columns = append(table.Columns, column)
		}
		snapshot.Tables = append(snapshot.Tables, table)
	}
	return snapshot, nil
}

// ToJSON serializes the snapshot for storage in a history row.
func (s *Snapshot) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", &core.SerializationError{Err: err}
	}
	return string(data), nil
}

// ParseSnapshot deserializes a snapshot from a history row.
func ParseSnapshot(data string) (*Snapshot, error) {
	snapshot := &Snapshot{}
	if err := json.Unmarshal([]byte(data), snapshot); err != nil {
		return nil, &core.SerializationError{Err: err}
	}
	return snapshot, nil
}
