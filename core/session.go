// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the Session, the unit-of-work scope that owns the change
// tracker and flushes staged mutations inside a single database transaction.
package core

import (
	"context"
	"reflect"

	"go.uber.org/zap"
)

// entityFlusher is the per-entity-type dispatch table used by SaveChanges.
//
// Entity sets register one when they are created, so the session can build
// and execute statements for any tracked entity without knowing its static
// type.
type entityFlusher struct {
	schema      *SchemaCore
	buildInsert func(entity any) (Statement, error)
	buildUpdate func(entity any) (Statement, error)
	buildDelete func(entity any) (Statement, error)
	assignKey   func(entity any, generated any) error
	autoKey     bool
	runPre      func(hook PreHook, entity any) error
	runPost     func(hook PostHook, entity any) error
}

// Session is one unit-of-work scope over a database.
//
// It owns a ChangeTracker and the entity sets created against it. Staged
// mutations are translated into parameterized statements and executed by
// SaveChanges within one transaction. A session is single-writer: it must
// not be shared between goroutines.
type Session struct {
	driver         Driver
	tracker        *ChangeTracker
	flusherByType  map[reflect.Type]*entityFlusher
	middlewareList []Middleware
	logger         *zap.SugaredLogger
}

// SessionOption customizes a Session.
type SessionOption func(*Session)

// WithLogger attaches a zap logger used for statement-level debug logging.
func WithLogger(logger *zap.SugaredLogger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a Session over the given driver.
//
// Example:
//
//	driver, _ := postgres.Open(ctx, dsn)
//	session := core.NewSession(driver)
//	patients := core.NewEntitySet(session, patientSchema)
func NewSession(driver Driver, options ...SessionOption) *Session {
	session := &Session{
		driver:        driver,
		tracker:       NewChangeTracker(),
		flusherByType: make(map[reflect.Type]*entityFlusher),
		logger:        zap.NewNop().Sugar(),
	}
	for _, option := range options {
		option(session)
	}
	return session
}

// Tracker exposes the session's change tracker.
func (s *Session) Tracker() *ChangeTracker {
	return s.tracker
}

// Driver exposes the session's driver.
func (s *Session) Driver() Driver {
	return s.driver
}

// registerFlusher installs the flush dispatch table for an entity type.
// Called by NewEntitySet; the last registration for a type wins.
func (s *Session) registerFlusher(entityType reflect.Type, flusher *entityFlusher) {
	s.flusherByType[entityType] = flusher
}

// schemaFor returns the registered schema for an entity type, or nil when
// no entity set was created for it.
func (s *Session) schemaFor(entityType reflect.Type) *SchemaCore {
	if flusher, ok := s.flusherByType[entityType]; ok {
		return flusher.schema
	}
	return nil
}

// SaveChanges flushes all staged mutations inside one transaction and
// returns the total number of affected rows.
//
// Entries flush in state order Added, Modified, Deleted; within a state,
// insertion order into the tracker is preserved. Generated keys from
// INSERT … RETURNING are written back onto the entities. On success the
// tracker accepts all changes; on any failure the transaction is rolled
// back, the error propagates, and the tracker is left untouched so the
// caller may fix the cause and retry.
func (s *Session) SaveChanges(ctx context.Context) (int64, error) {
	if !s.tracker.HasChanges() {
		return 0, nil
	}

	type flushedEntry struct {
		event  Event
		schema *SchemaCore
		entity any
	}
	var total int64
	var flushedList []flushedEntry

	phases := []struct {
		state EntityState
		op    Operation
		event Event
	}{
		{StateAdded, OperationInsert, EventInsert},
		{StateModified, OperationUpdate, EventUpdate},
		{StateDeleted, OperationDelete, EventDelete},
	}

	err := RunTransaction(ctx, s.driver, func(txCtx context.Context) error {
		for _, phase := range phases {
			for _, entry := range s.tracker.EntriesIn(phase.state) {
				affected, err := s.flushEntry(txCtx, phase.op, entry)
				if err != nil {
					return err
				}
				total += affected
				flushedList = append(flushedList, flushedEntry{phase.event, entry.Schema, entry.Entity})
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.tracker.AcceptAllChanges()
	for _, flushed := range flushedList {
		Emit(flushed.event, EntityPayload{Schema: flushed.schema, Entity: flushed.entity})
	}
	return total, nil
}

// flushEntry builds, translates, and executes the statement for one tracked
// entry, running its pre/post hooks and dispatching through the middleware
// chain.
func (s *Session) flushEntry(ctx context.Context, op Operation, entry *EntityEntry) (int64, error) {
	flusher, ok := s.flusherByType[reflect.TypeOf(entry.Entity)]
	if !ok {
		return 0, NewMetadataError(entry.Schema.Table, "entity type has no registered entity set")
	}

	var affected int64
	info := OperationInfo{Op: op, Table: entry.Schema.Table, Entity: entry.Entity}
	err := s.dispatch(ctx, info, func() error {
		if err := flusher.runPre(preHookFor(op), entry.Entity); err != nil {
			return err
		}

		var statement Statement
		var err error
		switch op {
		case OperationInsert:
			statement, err = flusher.buildInsert(entry.Entity)
		case OperationUpdate:
			statement, err = flusher.buildUpdate(entry.Entity)
		default:
			statement, err = flusher.buildDelete(entry.Entity)
		}
		if err != nil {
			return err
		}

		sql, args, err := statement.Translate()
		if err != nil {
			return err
		}
		s.logger.Debugw("flush", "op", op, "sql", sql)

		if op == OperationInsert && flusher.autoKey {
			generated, err := s.driver.Scalar(ctx, sql, args...)
			if err != nil {
				return NewQueryExecutionError(sql, err)
			}
			if err := flusher.assignKey(entry.Entity, generated); err != nil {
				return err
			}
			affected = 1
		} else {
			affected, err = s.driver.Execute(ctx, sql, args...)
			if err != nil {
				return NewQueryExecutionError(sql, err)
			}
		}

		return flusher.runPost(postHookFor(op), entry.Entity)
	})
	return affected, err
}

// ExecuteSQL runs a raw statement with @pN placeholders bound from the
// given parameter map and returns the number of affected rows.
func (s *Session) ExecuteSQL(ctx context.Context, sql string, params map[string]any) (int64, error) {
	nativeSQL, args, err := NewStatement(sql, params).Translate()
	if err != nil {
		return 0, err
	}
	affected, err := s.driver.Execute(ctx, nativeSQL, args...)
	if err != nil {
		return 0, NewQueryExecutionError(nativeSQL, err)
	}
	return affected, nil
}

// TableExists reports whether a table with the given name exists, by
// querying information_schema.
func (s *Session) TableExists(ctx context.Context, name string) (bool, error) {
	statement := NewStatement(
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = @p0);",
		map[string]any{"p0": name},
	)
	sql, args, err := statement.Translate()
	if err != nil {
		return false, err
	}
	value, err := s.driver.Scalar(ctx, sql, args...)
	if err != nil {
		return false, NewQueryExecutionError(sql, err)
	}
	exists, _ := value.(bool)
	return exists, nil
}

// Dispose clears the change tracker. The session must not be used after
// Dispose except to be discarded.
func (s *Session) Dispose() {
	s.tracker.Clear()
}
