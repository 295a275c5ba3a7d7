// Package core provides the fundamental building blocks of the MedicalSystem ORM.
// This file defines the session middleware pipeline. Each Session owns its
// own chain; every flush and read dispatches through it with a typed
// description of the operation, so cross-cutting concerns (logging,
// auditing, metrics) can observe which table and entity are being touched.
package core

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Operation represents the type of operation being executed by the ORM.
type Operation string

const (
	// OperationInsert corresponds to flushing an Added entity.
	OperationInsert Operation = "insert"
	// OperationUpdate corresponds to flushing a Modified entity.
	OperationUpdate Operation = "update"
	// OperationDelete corresponds to flushing a Deleted entity.
	OperationDelete Operation = "delete"
	// OperationFind corresponds to a read (select) operation.
	OperationFind Operation = "find"
)

// OperationInfo describes one operation passing through the pipeline.
type OperationInfo struct {
	Op     Operation
	Table  string // Table the operation targets
	Entity any    // Staged entity pointer for flushes; nil for reads
}

// Handler is the function signature executed by the pipeline.
type Handler func(ctx context.Context, info OperationInfo) error

// Middleware wraps a Handler with additional logic, decorator style.
type Middleware func(next Handler) Handler

// chain composes the middleware list around the final handler. The most
// recently added middleware is outermost and runs first.
func chain(middlewareList []Middleware, final Handler) Handler {
	h := final
	for _, mw := range middlewareList {
		h = mw(h)
	}
	return h
}

// Use adds a middleware to this session's pipeline. It applies to every
// subsequent flush and read issued through the session's entity sets.
//
// Example:
//
//	session.Use(core.DebugMiddleware(logger.Sugar()))
func (s *Session) Use(mw Middleware) {
	s.middlewareList = append(s.middlewareList, mw)
}

// dispatch runs exec through the session's middleware chain, handing each
// middleware the operation description.
func (s *Session) dispatch(ctx context.Context, info OperationInfo, exec func() error) error {
	handler := chain(s.middlewareList, func(ctx context.Context, info OperationInfo) error {
		return exec()
	})
	return handler(ctx, info)
}

// DebugMiddleware logs every operation on the given zap logger with its
// target table and execution time, for both success and error cases.
func DebugMiddleware(logger *zap.SugaredLogger) Middleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(next Handler) Handler {
		return func(ctx context.Context, info OperationInfo) error {
			start := time.Now()
			err := next(ctx, info)
			elapsed := time.Since(start)
			if err != nil {
				logger.Errorw("operation failed",
					"op", info.Op, "table", info.Table, "elapsed", elapsed, "error", err)
			} else {
				logger.Debugw("operation completed",
					"op", info.Op, "table", info.Table, "elapsed", elapsed)
			}
			return err
		}
	}
}
