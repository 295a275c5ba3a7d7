// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the IncludeQuery, the eager loader for navigation
// members: collections of related entities and single related entities,
// resolved through primary-key/foreign-key correspondence.
package core

import (
	"context"
	"fmt"
	"reflect"
)

// IncludeQuery accumulates navigation members to eager-load alongside the
// root entities of one read.
//
// Loading is deliberately naive: one query per (root, navigation) pair,
// with no JOINs or batching.
//
// Example:
//
//	patient, err := patients.
//		Include(func(p *Patient) any { return &p.MedicalHistories }).
//		Include(func(p *Patient) any { return &p.Doctor }).
//		Find(ctx, 7)
type IncludeQuery[T any] struct {
	set            *EntitySet[T]
	navigationList []string // Go struct field names, in include order
}

// Include adds another navigation member to load.
func (q *IncludeQuery[T]) Include(selector func(*T) any) *IncludeQuery[T] {
	name := fieldNameFromSelectorFor[T](selector)
	if name != "" {
		q.navigationList = append(q.navigationList, name)
	}
	return q
}

// Find loads the root by primary key, then its navigations.
func (q *IncludeQuery[T]) Find(ctx context.Context, id any) (*T, error) {
	root, err := q.set.Find(ctx, id)
	if err != nil || root == nil {
		return nil, err
	}
	if err := q.loadNavigations(ctx, []*T{root}); err != nil {
		return nil, err
	}
	return root, nil
}

// ToList loads all roots, then their navigations.
func (q *IncludeQuery[T]) ToList(ctx context.Context) ([]T, error) {
	results, err := q.set.ToList(ctx)
	if err != nil {
		return nil, err
	}
	if err := q.loadForSlice(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// Where loads the roots matching a raw fragment, then their navigations.
func (q *IncludeQuery[T]) Where(ctx context.Context, fragment string, params map[string]any, options ...QueryOption) ([]T, error) {
	results, err := q.set.Where(ctx, fragment, params, options...)
	if err != nil {
		return nil, err
	}
	if err := q.loadForSlice(ctx, results); err != nil {
		return nil, err
	}
	return results, nil
}

// FirstOrDefault loads the first root matching the fragment, then its
// navigations; nil when nothing matches.
func (q *IncludeQuery[T]) FirstOrDefault(ctx context.Context, fragment string, params map[string]any) (*T, error) {
	root, err := q.set.FirstOrDefault(ctx, fragment, params)
	if err != nil || root == nil {
		return nil, err
	}
	if err := q.loadNavigations(ctx, []*T{root}); err != nil {
		return nil, err
	}
	return root, nil
}

// loadForSlice adapts loadNavigations to a materialized value slice.
func (q *IncludeQuery[T]) loadForSlice(ctx context.Context, results []T) error {
	rootList := make([]*T, len(results))
	for index := range results {
		rootList[index] = &results[index]
	}
	return q.loadNavigations(ctx, rootList)
}

// loadNavigations populates every accumulated navigation member on every
// root, one query per (root, navigation) pair.
func (q *IncludeQuery[T]) loadNavigations(ctx context.Context, rootList []*T) error {
	ownerSchema := &q.set.schema.SchemaCore

	for _, root := range rootList {
		rootValue := reflect.ValueOf(root).Elem()
		for _, navigationName := range q.navigationList {
			field := ownerSchema.FieldByStructName(navigationName)
			if field == nil {
				continue
			}

			navigationValue := rootValue.FieldByName(navigationName)
			if !navigationValue.IsValid() || !navigationValue.CanSet() {
				continue
			}

			var err error
			if navigationValue.Kind() == reflect.Slice {
				err = q.loadCollection(ctx, root, navigationName, navigationValue)
			} else {
				err = q.loadSingle(ctx, root, navigationName, navigationValue)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// loadCollection loads a collection navigation: all related rows whose
// foreign-key column named "<OwnerType>Id" equals the root's primary key.
// A related type with no such column is skipped.
func (q *IncludeQuery[T]) loadCollection(ctx context.Context, root *T, navigationName string, navigationValue reflect.Value) error {
	ownerSchema := &q.set.schema.SchemaCore

	relatedStructType := navigationValue.Type().Elem()
	if relatedStructType.Kind() == reflect.Pointer {
		relatedStructType = relatedStructType.Elem()
	}
	relatedSchema := q.relatedSchema(relatedStructType, navigationName)

	foreignKey := relatedSchema.FieldByColumn(ownerSchema.StructType.Name() + "Id")
	if foreignKey == nil {
		return nil
	}

	primaryKey, err := ownerSchema.PrimaryKey()
	if err != nil {
		return err
	}

	where := NewWhere(quoteIdent(foreignKey.DatabaseColumnName)+" = @p0",
		map[string]any{"p0": columnValue(root, primaryKey)})
	relatedList, err := q.queryRelated(ctx, relatedSchema, where)
	if err != nil {
		return err
	}

	slice := reflect.MakeSlice(navigationValue.Type(), 0, len(relatedList))
	for _, related := range relatedList {
		if navigationValue.Type().Elem().Kind() == reflect.Pointer {
			ptr := reflect.New(relatedStructType)
			ptr.Elem().Set(related)
			slice = reflect.Append(slice, ptr)
		} else {
			slice = reflect.Append(slice, related)
		}
	}
	navigationValue.Set(slice)
	return nil
}

// loadSingle loads a single-entity navigation: the related row whose
// primary key equals the root's local "<navName>Id" field. A missing or
// NULL local key is skipped.
func (q *IncludeQuery[T]) loadSingle(ctx context.Context, root *T, navigationName string, navigationValue reflect.Value) error {
	ownerSchema := &q.set.schema.SchemaCore

	var localKey *Field
	for _, field := range ownerSchema.MappedColumns() {
		if equalFold(field.StructFieldName, navigationName+"Id") {
			localKey = field
			break
		}
	}
	if localKey == nil {
		return nil
	}
	localValue := columnValue(root, localKey)
	if localValue == nil {
		return nil
	}

	relatedStructType := navigationValue.Type()
	if relatedStructType.Kind() == reflect.Pointer {
		relatedStructType = relatedStructType.Elem()
	}
	relatedSchema := q.relatedSchema(relatedStructType, navigationName)

	relatedPrimaryKey, err := relatedSchema.PrimaryKey()
	if err != nil {
		return err
	}

	where := NewWhere(quoteIdent(relatedPrimaryKey.DatabaseColumnName)+" = @p0",
		map[string]any{"p0": localValue})
	relatedList, err := q.queryRelated(ctx, relatedSchema, where)
	if err != nil || len(relatedList) == 0 {
		return err
	}

	if navigationValue.Kind() == reflect.Pointer {
		ptr := reflect.New(relatedStructType)
		ptr.Elem().Set(relatedList[0])
		navigationValue.Set(ptr)
	} else {
		navigationValue.Set(relatedList[0])
	}
	return nil
}

// relatedSchema resolves the schema registered for a related struct type,
// falling back to a convention-built schema when the session has no entity
// set for it.
func (q *IncludeQuery[T]) relatedSchema(relatedStructType reflect.Type, navigationName string) *SchemaCore {
	if schema := q.set.session.schemaFor(reflect.PointerTo(relatedStructType)); schema != nil {
		return schema
	}
	return reflectSchemaCore(relatedStructType)
}

// queryRelated executes a filtered select against the related schema and
// materializes the rows as reflect values of the related struct type.
//
// Related rows load with SELECT * rather than an enumerated column list;
// materialization resolves result columns by name, so the wildcard shape
// is safe here.
func (q *IncludeQuery[T]) queryRelated(ctx context.Context, relatedSchema *SchemaCore, where *Where) ([]reflect.Value, error) {
	statement := NewStatement(
		fmt.Sprintf("SELECT * FROM %q WHERE %s;", relatedSchema.Table, where.Fragment),
		where.Params)
	sql, args, err := statement.Translate()
	if err != nil {
		return nil, err
	}
	rows, err := q.set.session.driver.Query(ctx, sql, args...)
	if err != nil {
		return nil, NewQueryExecutionError(sql, err)
	}
	defer rows.Close()

	return materializeRows(rows, relatedSchema)
}

// reflectSchemaCore builds an untyped, convention-only schema for a struct
// type that was never registered through an entity set.
func reflectSchemaCore(structType reflect.Type) *SchemaCore {
	schema := &SchemaCore{
		Table:          structType.Name() + "s",
		StructType:     structType,
		fieldsByOffset: make(map[uintptr]*Field),
	}
	for _, sf := range reflect.VisibleFields(structType) {
		dbName := sf.Tag.Get("db")
		if dbName == "" {
			dbName = sf.Name
		}
		field := &Field{
			StructFieldName:    sf.Name,
			DatabaseColumnName: dbName,
			Type:               sf.Type,
			MemoryOffset:       sf.Offset,
		}
		schema.Fields = append(schema.Fields, field)
		schema.fieldsByOffset[sf.Offset] = field
	}
	schema.applyKeyConvention()
	schema.resolveSQLTypes()
	return schema
}
