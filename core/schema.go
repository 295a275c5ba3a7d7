// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the schema system, which maps Go structs to database
// tables, describes columns and constraints, and supports schema building.
package core

import "reflect"

// ForeignKey describes a reference from a column to another table's column.
type ForeignKey struct {
	RefTable  string // Referenced table name
	RefColumn string // Referenced column name, "Id" by default
}

// Field represents a struct field mapped to a database column.
//
// It contains metadata such as the Go field name, database column name,
// type information, the resolved SQL type, and column constraints
// (primary key, auto-increment, unique, nullability, default, length).
type Field struct {
	StructFieldName    string       // Name of the field in the Go struct
	DatabaseColumnName string       // Name of the column in the database
	Type               reflect.Type // Go type of the field
	SQLType            string       // SQL type resolved via the type map
	IsPrimaryKey       bool         // Whether this field is the primary key
	IsAutoIncrement    bool         // Whether the key is database-generated (SERIAL)
	IsUnique           bool         // Whether this field is unique
	IsRequired         bool         // Whether this field is NOT NULL
	HasDefault         bool         // Whether a default value is set
	DefaultValue       any          // Default value literal (if HasDefault)
	Length             int          // VARCHAR length; 0 means unbounded (TEXT)
	ForeignKey         *ForeignKey  // Referenced table/column (if any)
	MemoryOffset       uintptr      // Memory offset within the struct

	requiredSet bool // Whether nullability was overridden explicitly
}

// Nullable reports whether the column accepts NULL. An explicit
// Required()/Nullable() override wins; otherwise pointer-typed fields are
// nullable and value-typed fields are not.
func (f *Field) Nullable() bool {
	if f.requiredSet {
		return !f.IsRequired
	}
	return f.Type != nil && f.Type.Kind() == reflect.Pointer
}

// FieldOption is a function used to configure a Field.
type FieldOption func(*Field)

// PrimaryKey marks the field as the primary key.
func PrimaryKey() FieldOption {
	return func(f *Field) { f.IsPrimaryKey = true }
}

// AutoIncrement marks the field as database-generated (SERIAL).
func AutoIncrement() FieldOption {
	return func(f *Field) { f.IsAutoIncrement = true }
}

// Unique marks the field as unique.
func Unique() FieldOption {
	return func(f *Field) { f.IsUnique = true }
}

// Required marks the field as NOT NULL.
func Required() FieldOption {
	return func(f *Field) {
		f.IsRequired = true
		f.requiredSet = true
	}
}

// Nullable marks the field as accepting NULL, overriding the default
// derived from the Go type.
func Nullable() FieldOption {
	return func(f *Field) {
		f.IsRequired = false
		f.requiredSet = true
	}
}

// Default sets a default value literal for the field.
func Default(value any) FieldOption {
	return func(f *Field) {
		f.HasDefault = true
		f.DefaultValue = value
	}
}

// Length bounds a string column to VARCHAR(n) instead of TEXT.
func Length(n int) FieldOption {
	return func(f *Field) { f.Length = n }
}

// SQLType overrides the SQL type derived from the Go type
// (e.g. "DECIMAL", "CHAR(1)", "TIMESTAMPTZ").
func SQLType(sqlType string) FieldOption {
	return func(f *Field) { f.SQLType = sqlType }
}

// References marks the field as a foreign key to the given table's "Id" column.
func References(table string) FieldOption {
	return func(f *Field) { f.ForeignKey = &ForeignKey{RefTable: table, RefColumn: "Id"} }
}

// ReferencesColumn marks the field as a foreign key to an explicit column.
func ReferencesColumn(table, column string) FieldOption {
	return func(f *Field) { f.ForeignKey = &ForeignKey{RefTable: table, RefColumn: column} }
}

// SchemaCore contains the schema information required at runtime.
//
// It includes the table name, the struct type, all reflected fields
// (mapped columns and navigation members alike), and a map of fields
// indexed by their memory offsets.
type SchemaCore struct {
	Table          string
	StructType     reflect.Type
	Fields         []*Field
	fieldsByOffset map[uintptr]*Field
}

// SchemaMeta extends SchemaCore with typed runtime metadata: the hooks
// registered for the entity type.
type SchemaMeta[T any] struct {
	SchemaCore
	PreHookList  map[PreHook][]func(*T) error
	PostHookList map[PostHook][]func(*T) error
}

// RegisterPreHook registers a pre-operation hook for the schema.
func (s *SchemaMeta[T]) RegisterPreHook(hook PreHook, fn func(*T) error) {
	s.PreHookList[hook] = append(s.PreHookList[hook], fn)
}

// RegisterPostHook registers a post-operation hook for the schema.
func (s *SchemaMeta[T]) RegisterPostHook(hook PostHook, fn func(*T) error) {
	s.PostHookList[hook] = append(s.PostHookList[hook], fn)
}

// SchemaBuilder is used to construct a schema definition from a Go struct.
//
// It collects field metadata using reflection and applies customization
// through SchemaOptions.
type SchemaBuilder[T any] struct {
	table          string
	tagKey         string
	structType     reflect.Type
	fields         []*Field
	fieldsByOffset map[uintptr]*Field
}

// SchemaOption represents a function that customizes the schema builder.
type SchemaOption[T any] func(*SchemaBuilder[T])

// TagKey sets the struct tag key to use for database column mapping.
func TagKey[T any](key string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.tagKey = key }
}

// Table sets the database table name for the schema. When absent, the
// table name defaults to the struct name plus a plural "s".
func Table[T any](name string) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) { schemaBuilder.table = name }
}

// OverrideField allows modifying the metadata of a specific field
// (e.g., making it required, unique, auto-increment, etc.).
func OverrideField[T any, F any](selector func(*T) *F, opts ...FieldOption) SchemaOption[T] {
	return func(schemaBuilder *SchemaBuilder[T]) {
		if len(schemaBuilder.fields) == 0 {
			// options run once before reflection and once after; field
			// overrides only take effect on the second pass
			return
		}
		offset := offsetOf(selector)
		field, ok := schemaBuilder.fieldsByOffset[offset]
		if !ok {
			panic("core: OverrideField: field not found by selector")
		}
		for _, opt := range opts {
			opt(field)
		}
	}
}

// Schema builds a SchemaMeta[T] by reflecting on struct fields
// and applying the given SchemaOptions.
//
// Column names come from the `db` struct tag (or the tag configured with
// TagKey), falling back to the Go field name. When no field is marked as
// primary key, a field named "Id" with an integer type is promoted to an
// auto-increment primary key. SQL types for mapped columns are resolved
// through the type map unless overridden with SQLType.
func Schema[T any](options ...SchemaOption[T]) *SchemaMeta[T] {
	structType := reflect.TypeOf((*T)(nil)).Elem()
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	builder := &SchemaBuilder[T]{
		structType:     structType,
		fieldsByOffset: make(map[uintptr]*Field),
	}

	// Apply options before building fields (Table/TagKey/etc.)
	for _, option := range options {
		option(builder)
	}

	// Reflect fields from struct type
	for _, sf := range reflect.VisibleFields(structType) {
		dbName := ""
		if builder.tagKey != "" {
			dbName = sf.Tag.Get(builder.tagKey)
		} else {
			dbName = sf.Tag.Get("db")
		}
		if dbName == "" {
			dbName = sf.Name
		}

		field := &Field{
			StructFieldName:    sf.Name,
			DatabaseColumnName: dbName,
			Type:               sf.Type,
			MemoryOffset:       sf.Offset,
		}
		builder.fields = append(builder.fields, field)
		builder.fieldsByOffset[sf.Offset] = field
	}

	// Re-apply options so that OverrideField can work after fields exist
	for _, option := range options {
		option(builder)
	}

	table := builder.table
	if table == "" {
		table = structType.Name() + "s"
	}

	meta := &SchemaMeta[T]{
		SchemaCore: SchemaCore{
			Table:          table,
			StructType:     structType,
			Fields:         builder.fields,
			fieldsByOffset: builder.fieldsByOffset,
		},
		PreHookList:  make(map[PreHook][]func(*T) error),
		PostHookList: make(map[PostHook][]func(*T) error),
	}

	meta.applyKeyConvention()
	meta.resolveSQLTypes()

	return meta
}

// applyKeyConvention promotes a field named "Id" to an auto-increment
// primary key when no field was marked explicitly.
func (s *SchemaCore) applyKeyConvention() {
	for _, f := range s.Fields {
		if f.IsPrimaryKey {
			return
		}
	}
	for _, f := range s.Fields {
		if equalFold(f.StructFieldName, "Id") && isIntegerKind(f.Type) {
			f.IsPrimaryKey = true
			f.IsAutoIncrement = true
			return
		}
	}
}

// resolveSQLTypes fills the SQLType of every mapped column that has no
// explicit override.
func (s *SchemaCore) resolveSQLTypes() {
	for _, f := range s.Fields {
		if f.SQLType != "" || isNavigation(f.Type) {
			continue
		}
		f.SQLType = SQLTypeFor(f.Type, f.Length)
	}
}
