// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines lifecycle hooks that allow custom logic to be executed
// before or after persistence operations such as insert, update, delete, and find.
package core

// PreHook represents a lifecycle hook that runs before a persistence operation.
//
// Hooks are identified by string tokens (e.g., "pre:insert") and can be
// registered per entity schema. They allow validation, transformation,
// or side effects to be applied before the operation is executed. An insert,
// update or delete hook returning an error aborts the operation; inside
// SaveChanges this rolls back the whole transaction. Errors returned by
// find hooks are ignored.
type PreHook string

// PostHook represents a lifecycle hook that runs after a persistence operation.
//
// Hooks are identified by string tokens (e.g., "post:update") and can be
// registered per entity schema.
type PostHook string

const (
	// PreInsert is executed before an entity is inserted.
	PreInsert PreHook = "pre:insert"
	// PreUpdate is executed before an entity is updated.
	PreUpdate PreHook = "pre:update"
	// PreDelete is executed before an entity is deleted.
	PreDelete PreHook = "pre:delete"
	// PreFind is executed before a query (find operation) is performed.
	PreFind PreHook = "pre:find"

	// PostInsert is executed after an entity is inserted.
	PostInsert PostHook = "post:insert"
	// PostUpdate is executed after an entity is updated.
	PostUpdate PostHook = "post:update"
	// PostDelete is executed after an entity is deleted.
	PostDelete PostHook = "post:delete"
	// PostFind is executed after a query (find operation) has been executed.
	PostFind PostHook = "post:find"
)

// preHookFor maps a flush operation to its pre hook token.
func preHookFor(op Operation) PreHook {
	switch op {
	case OperationInsert:
		return PreInsert
	case OperationUpdate:
		return PreUpdate
	case OperationDelete:
		return PreDelete
	}
	return PreFind
}

// postHookFor maps a flush operation to its post hook token.
func postHookFor(op Operation) PostHook {
	switch op {
	case OperationInsert:
		return PostInsert
	case OperationUpdate:
		return PostUpdate
	case OperationDelete:
		return PostDelete
	}
	return PostFind
}
