// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file exposes the metadata accessors used by the query builder and the
// migration engine: mapped columns, primary-key lookup, and DDL fragments.
package core

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// TableName returns the database table name for the schema.
func (s *SchemaCore) TableName() string {
	return s.Table
}

// MappedColumns returns the persisted columns in declaration order.
//
// Navigation members are filtered out: any container-shaped field and any
// field whose type is another entity struct. Strings and byte slices are
// scalars and are never filtered.
func (s *SchemaCore) MappedColumns() []*Field {
	columnList := make([]*Field, 0, len(s.Fields))
	for _, field := range s.Fields {
		if isNavigation(field.Type) {
			continue
		}
		columnList = append(columnList, field)
	}
	return columnList
}

// PrimaryKey returns the single primary-key column of the schema.
//
// It returns a MetadataError when the entity declares no primary key or
// more than one.
func (s *SchemaCore) PrimaryKey() (*Field, error) {
	var primaryKey *Field
	for _, field := range s.MappedColumns() {
		if !field.IsPrimaryKey {
			continue
		}
		if primaryKey != nil {
			return nil, NewMetadataError(s.Table, "more than one primary key column")
		}
		primaryKey = field
	}
	if primaryKey == nil {
		return nil, NewMetadataError(s.Table, "no primary key column")
	}
	return primaryKey, nil
}

// FieldByColumn finds a mapped column by database name, case-insensitively.
// Returns nil when no such column exists.
func (s *SchemaCore) FieldByColumn(name string) *Field {
	for _, field := range s.MappedColumns() {
		if strings.EqualFold(field.DatabaseColumnName, name) {
			return field
		}
	}
	return nil
}

// FieldByStructName finds a field by its Go struct field name.
// Returns nil when no such field exists.
func (s *SchemaCore) FieldByStructName(name string) *Field {
	for _, field := range s.Fields {
		if field.StructFieldName == name {
			return field
		}
	}
	return nil
}

// ColumnDefinition produces the DDL fragment for one column.
//
// An auto-increment primary key collapses to `"name" SERIAL PRIMARY KEY`
// with no further modifiers. Every other column is rendered as
// `"name" <type>` followed, in this order, by PRIMARY KEY, NOT NULL,
// UNIQUE, and DEFAULT <literal>.
func (s *SchemaCore) ColumnDefinition(f *Field) string {
	if f.IsPrimaryKey && f.IsAutoIncrement {
		return fmt.Sprintf("%q SERIAL PRIMARY KEY", f.DatabaseColumnName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%q %s", f.DatabaseColumnName, f.SQLType)
	if f.IsPrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if !f.Nullable() {
		b.WriteString(" NOT NULL")
	}
	if f.IsUnique {
		b.WriteString(" UNIQUE")
	}
	if f.HasDefault {
		b.WriteString(" DEFAULT " + FormatLiteral(f.DefaultValue))
	}
	return b.String()
}

// FormatLiteral renders a default value as a SQL literal: strings are
// single-quoted (with embedded quotes doubled), booleans become TRUE/FALSE,
// timestamps use 'YYYY-MM-DD HH:MM:SS', and numerics render as decimal.
func FormatLiteral(value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case bool:
		if v {
			return "TRUE"
		}
		return "FALSE"
	case time.Time:
		return "'" + v.Format("2006-01-02 15:04:05") + "'"
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	}
	return "'" + strings.ReplaceAll(fmt.Sprintf("%v", value), "'", "''") + "'"
}
