// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines lifecycle events emitted after persistence operations,
// with a global dispatcher for registering handlers.
package core

import "sync"

// Event represents a lifecycle event that can be emitted by the ORM.
//
// Events are triggered after successful insert, update, delete, and find
// operations. They allow users to register custom handlers to observe or
// react to changes in the persistence layer.
type Event string

const (
	// EventInsert is emitted after an entity is inserted.
	EventInsert Event = "insert"
	// EventUpdate is emitted after an entity is updated.
	EventUpdate Event = "update"
	// EventDelete is emitted after an entity is deleted.
	EventDelete Event = "delete"
	// EventFind is emitted after entities are retrieved.
	EventFind Event = "find"
)

// EventHandler defines the callback signature for event listeners.
// The payload argument varies depending on the event type (EntityPayload
// or FindPayload).
type EventHandler func(payload any)

// EventDispatcher manages a list of event handlers and dispatches them
// when the corresponding events are emitted.
type EventDispatcher struct {
	mutex       sync.RWMutex
	handlerList map[Event][]EventHandler
}

// globalDispatcher is the shared event dispatcher used by the ORM.
var globalDispatcher = &EventDispatcher{
	handlerList: make(map[Event][]EventHandler),
}

// On registers an EventHandler for a specific Event.
//
// Example:
//
//	core.On(core.EventInsert, func(payload any) {
//	    if p, ok := payload.(core.EntityPayload); ok {
//	        log.Printf("inserted into %s: %+v", p.Schema.Table, p.Entity)
//	    }
//	})
func On(event Event, handler EventHandler) {
	globalDispatcher.mutex.Lock()
	defer globalDispatcher.mutex.Unlock()
	globalDispatcher.handlerList[event] = append(globalDispatcher.handlerList[event], handler)
}

// Emit triggers all registered handlers for the given Event.
//
// Handlers are executed asynchronously in separate goroutines.
func Emit(event Event, payload any) {
	globalDispatcher.mutex.RLock()
	defer globalDispatcher.mutex.RUnlock()
	if hs, ok := globalDispatcher.handlerList[event]; ok {
		for _, h := range hs {
			go h(payload)
		}
	}
}

// EntityPayload is passed to EventInsert, EventUpdate, and EventDelete
// handlers after the enclosing transaction commits.
type EntityPayload struct {
	Schema *SchemaCore
	Entity any
}

// FindPayload is passed to EventFind handlers after a read completes.
type FindPayload struct {
	Schema *SchemaCore
	Count  int // Number of rows materialized
}
