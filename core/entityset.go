// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the EntitySet[T], the typed collection facade over one
// table: staging writes against the change tracker and executing reads.
package core

import (
	"context"
	"reflect"
)

// EntitySet represents the collection of entities of type T in one table.
//
// Write methods (Add, Update, Remove) only stage intent on the session's
// change tracker; nothing touches the database until SaveChanges. Read
// methods execute immediately. Materialized entities are not registered
// with the tracker; there is no identity map.
type EntitySet[T any] struct {
	session *Session
	schema  *SchemaMeta[T]
}

// NewEntitySet creates the entity set for T on the given session and
// registers the type's flush dispatch table, enabling SaveChanges to
// persist tracked instances of T.
//
// Example:
//
//	patients := core.NewEntitySet(session, patientSchema)
func NewEntitySet[T any](session *Session, schema *SchemaMeta[T]) *EntitySet[T] {
	set := &EntitySet[T]{session: session, schema: schema}

	schemaCore := &schema.SchemaCore
	session.registerFlusher(reflect.TypeOf((*T)(nil)), &entityFlusher{
		schema:      schemaCore,
		buildInsert: func(entity any) (Statement, error) { return BuildInsert(schemaCore, entity) },
		buildUpdate: func(entity any) (Statement, error) { return BuildUpdate(schemaCore, entity) },
		buildDelete: func(entity any) (Statement, error) { return BuildDelete(schemaCore, entity) },
		autoKey:     set.hasAutoKey(),
		assignKey:   set.assignKey,
		runPre:      set.runPreAny,
		runPost:     set.runPostAny,
	})
	return set
}

// Add stages an entity for insertion.
func (set *EntitySet[T]) Add(doc *T) {
	set.session.tracker.TrackAdd(doc, &set.schema.SchemaCore)
}

// AddRange stages multiple entities for insertion, in order.
func (set *EntitySet[T]) AddRange(docs ...*T) {
	for _, doc := range docs {
		set.Add(doc)
	}
}

// Update stages an entity for update. An entity staged as Added stays
// Added: its pending insert already carries the current values.
func (set *EntitySet[T]) Update(doc *T) {
	set.session.tracker.TrackModify(doc, &set.schema.SchemaCore)
}

// Remove stages an entity for deletion. Removing an entity that was only
// Added cancels the insert outright.
func (set *EntitySet[T]) Remove(doc *T) {
	set.session.tracker.TrackDelete(doc, &set.schema.SchemaCore)
}

// RemoveRange stages multiple entities for deletion, in order.
func (set *EntitySet[T]) RemoveRange(docs ...*T) {
	for _, doc := range docs {
		set.Remove(doc)
	}
}

// Attach registers an entity as Unchanged, e.g. one materialized earlier,
// so a later Update/Remove can stage work against it.
func (set *EntitySet[T]) Attach(doc *T) {
	set.session.tracker.TrackUnchanged(doc, &set.schema.SchemaCore)
}

// ToList loads every row of the table, with columns in declaration order.
func (set *EntitySet[T]) ToList(ctx context.Context) ([]T, error) {
	return set.queryList(ctx, BuildSelectAll(&set.schema.SchemaCore))
}

// Find loads the row with the given primary-key value, or nil when no such
// row exists.
func (set *EntitySet[T]) Find(ctx context.Context, id any) (*T, error) {
	statement, err := BuildSelectByID(&set.schema.SchemaCore, id)
	if err != nil {
		return nil, err
	}
	results, err := set.queryList(ctx, statement)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

// Where loads the rows matching a raw WHERE fragment with bound parameters,
// optionally ordered.
//
// Example:
//
//	minors, err := patients.Where(ctx, `"Age" < @p0`, map[string]any{"p0": 18},
//		core.OrderBy("LastName"))
func (set *EntitySet[T]) Where(ctx context.Context, fragment string, params map[string]any, options ...QueryOption) ([]T, error) {
	where := NewWhere(fragment, params, options...)
	return set.queryList(ctx, BuildSelectWhere(&set.schema.SchemaCore, where))
}

// FirstOrDefault loads the first row matching the fragment, or nil when
// nothing matches.
func (set *EntitySet[T]) FirstOrDefault(ctx context.Context, fragment string, params map[string]any) (*T, error) {
	results, err := set.Where(ctx, fragment, params)
	if err != nil || len(results) == 0 {
		return nil, err
	}
	return &results[0], nil
}

// Count returns the number of rows matching the fragment; an empty
// fragment counts the whole table.
func (set *EntitySet[T]) Count(ctx context.Context, fragment string, params map[string]any) (int64, error) {
	statement := BuildCount(&set.schema.SchemaCore, NewWhere(fragment, params))
	sql, args, err := statement.Translate()
	if err != nil {
		return 0, err
	}
	value, err := set.session.driver.Scalar(ctx, sql, args...)
	if err != nil {
		return 0, NewQueryExecutionError(sql, err)
	}
	return toInt64(value), nil
}

// Any reports whether at least one row matches the fragment; an empty
// fragment tests the whole table.
func (set *EntitySet[T]) Any(ctx context.Context, fragment string, params map[string]any) (bool, error) {
	count, err := set.Count(ctx, fragment, params)
	return count > 0, err
}

// Include starts an eager-loading query rooted at this set. The selector
// designates a navigation field of T.
//
// Example:
//
//	patient, err := patients.
//		Include(func(p *Patient) any { return &p.MedicalHistories }).
//		Find(ctx, 7)
func (set *EntitySet[T]) Include(selector func(*T) any) *IncludeQuery[T] {
	query := &IncludeQuery[T]{set: set}
	return query.Include(selector)
}

// queryList translates and executes a SELECT statement and materializes the
// result rows, dispatching through the middleware chain and running the
// find hooks.
func (set *EntitySet[T]) queryList(ctx context.Context, statement Statement) ([]T, error) {
	var zero T
	_ = set.runPre(PreFind, &zero)

	var results []T
	info := OperationInfo{Op: OperationFind, Table: set.schema.Table}
	err := set.session.dispatch(ctx, info, func() error {
		sql, args, err := statement.Translate()
		if err != nil {
			return err
		}
		rows, err := set.session.driver.Query(ctx, sql, args...)
		if err != nil {
			return NewQueryExecutionError(sql, err)
		}
		defer rows.Close()

		results, err = scanRows[T](rows, &set.schema.SchemaCore)
		return err
	})
	if err != nil {
		return nil, err
	}

	for index := range results {
		_ = set.runPost(PostFind, &results[index])
	}
	Emit(EventFind, FindPayload{Schema: &set.schema.SchemaCore, Count: len(results)})
	return results, nil
}

// scanRows materializes every row of the cursor into fresh T instances.
func scanRows[T any](rows Rows, schema *SchemaCore) ([]T, error) {
	valueList, err := materializeRows(rows, schema)
	if err != nil {
		return nil, err
	}
	var results []T
	for _, value := range valueList {
		results = append(results, value.Interface().(T))
	}
	return results, nil
}

// materializeRows materializes every row of the cursor into fresh values of
// the schema's struct type.
//
// Column ordinals are resolved by case-insensitive name lookup; a mapped
// column missing from the result leaves its field at the zero value, and
// NULL values materialize as nil pointers.
func materializeRows(rows Rows, schema *SchemaCore) ([]reflect.Value, error) {
	mappedColumns := schema.MappedColumns()
	columnNames := rows.Columns()

	ordinalList := make([]int, len(mappedColumns))
	for index, field := range mappedColumns {
		ordinalList[index] = -1
		for columnIndex, name := range columnNames {
			if equalFold(name, field.DatabaseColumnName) {
				ordinalList[index] = columnIndex
				break
			}
		}
	}

	var results []reflect.Value
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}

		entity := reflect.New(schema.StructType).Elem()
		for index, field := range mappedColumns {
			ordinal := ordinalList[index]
			if ordinal < 0 || ordinal >= len(values) {
				continue
			}
			if err := setFieldFromDB(entity.FieldByName(field.StructFieldName), values[ordinal]); err != nil {
				return nil, err
			}
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}

// hasAutoKey reports whether T's primary key is database-generated.
func (set *EntitySet[T]) hasAutoKey() bool {
	primaryKey, err := set.schema.PrimaryKey()
	return err == nil && primaryKey.IsAutoIncrement
}

// assignKey writes a generated key value back onto the entity's
// primary-key field after INSERT … RETURNING.
func (set *EntitySet[T]) assignKey(entity any, generated any) error {
	primaryKey, err := set.schema.PrimaryKey()
	if err != nil {
		return err
	}
	entityValue := reflect.ValueOf(entity).Elem()
	return setFieldFromDB(entityValue.FieldByName(primaryKey.StructFieldName), generated)
}

// runPre executes all registered PreHooks for the given token.
func (set *EntitySet[T]) runPre(hook PreHook, doc *T) error {
	for _, fn := range set.schema.PreHookList[hook] {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// runPost executes all registered PostHooks for the given token.
func (set *EntitySet[T]) runPost(hook PostHook, doc *T) error {
	for _, fn := range set.schema.PostHookList[hook] {
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

// runPreAny adapts runPre to the untyped flusher signature.
func (set *EntitySet[T]) runPreAny(hook PreHook, entity any) error {
	doc, ok := entity.(*T)
	if !ok {
		return nil
	}
	return set.runPre(hook, doc)
}

// runPostAny adapts runPost to the untyped flusher signature.
func (set *EntitySet[T]) runPostAny(hook PostHook, entity any) error {
	doc, ok := entity.(*T)
	if !ok {
		return nil
	}
	return set.runPost(hook, doc)
}

// toInt64 normalizes the driver-native COUNT result.
func toInt64(value any) int64 {
	switch v := value.(type) {
	case int64:
		return v
	case int32:
		return int64(v)
	case int:
		return int64(v)
	}
	rv := reflect.ValueOf(value)
	if rv.IsValid() && rv.CanInt() {
		return rv.Int()
	}
	return 0
}
