// Package migrate implements schema evolution for the MedicalSystem ORM.
// This file defines the migration engine: the lifecycle driver that builds
// snapshots from entity metadata, applies diffs, records every applied
// migration in the __MigrationHistory table, and rolls back using the
// per-migration reverse SQL.
package migrate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tinmerunka/MedicalSystem/core"
)

// HistoryTable is the migration history table name.
const HistoryTable = "__MigrationHistory"

// historyDDL creates the history table on first use; the statement is
// idempotent.
const historyDDL = `CREATE TABLE IF NOT EXISTS "__MigrationHistory" (` +
	`"Id" SERIAL PRIMARY KEY, ` +
	`"Version" INTEGER NOT NULL, ` +
	`"Name" VARCHAR(255) NOT NULL, ` +
	`"AppliedAt" TIMESTAMP NOT NULL DEFAULT NOW(), ` +
	`"SnapshotJson" TEXT NOT NULL, ` +
	`"SqlUp" TEXT NOT NULL, ` +
	`"SqlDown" TEXT NOT NULL);`

// HistoryEntry is one applied migration as listed by History.
type HistoryEntry struct {
	ID        int
	Version   int
	Name      string
	AppliedAt time.Time
}

// Engine drives the migration lifecycle for a fixed set of entity schemas.
//
// Statements execute one at a time through the driver, without a wrapping
// transaction; no single connection is held for the run, so each statement
// may use any connection of the driver's pool. A failing change aborts the
// run before the history
// row is written, and schema changes already applied are not reverted.
// Operators are expected to run one migration at a time; the history table
// carries no advisory lock.
type Engine struct {
	driver     core.Driver
	schemaList []*core.SchemaCore
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLogger attaches a zap logger for per-change success/failure markers.
func WithLogger(logger *zap.SugaredLogger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the time source used for snapshot timestamps and
// generated migration names.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine over the given driver and entity schemas.
// Schema order is declaration order: diffs and Reset honor it.
func NewEngine(driver core.Driver, schemaList []*core.SchemaCore, options ...EngineOption) *Engine {
	engine := &Engine{
		driver:     driver,
		schemaList: schemaList,
		logger:     zap.NewNop().Sugar(),
		now:        time.Now,
	}
	for _, option := range options {
		option(engine)
	}
	return engine
}

// EnsureHistory creates the history table when it does not exist yet.
func (e *Engine) EnsureHistory(ctx context.Context) error {
	if _, err := e.driver.Execute(ctx, historyDDL); err != nil {
		return core.NewQueryExecutionError(historyDDL, err)
	}
	return nil
}

// CurrentVersion returns the highest applied migration version, 0 when no
// migration was applied yet.
func (e *Engine) CurrentVersion(ctx context.Context) (int, error) {
	sql := `SELECT COALESCE(MAX("Version"), 0) FROM "__MigrationHistory";`
	value, err := e.driver.Scalar(ctx, sql)
	if err != nil {
		return 0, core.NewQueryExecutionError(sql, err)
	}
	return asInt(value), nil
}

// latestSnapshot loads and parses the snapshot stored with the given
// version; nil when version is 0.
func (e *Engine) latestSnapshot(ctx context.Context, version int) (*Snapshot, error) {
	if version == 0 {
		return nil, nil
	}
	sql := `SELECT "SnapshotJson" FROM "__MigrationHistory" WHERE "Version" = $1;`
	value, err := e.driver.Scalar(ctx, sql, version)
	if err != nil {
		return nil, core.NewQueryExecutionError(sql, err)
	}
	if value == nil {
		return nil, &core.MigrationConflictError{Target: version, Current: version,
			Reason: "history row for current version is missing"}
	}
	return ParseSnapshot(asString(value))
}

// Plan computes the pending change list without executing anything.
func (e *Engine) Plan(ctx context.Context) ([]Change, error) {
	if err := e.EnsureHistory(ctx); err != nil {
		return nil, err
	}
	current, err := e.CurrentVersion(ctx)
	if err != nil {
		return nil, err
	}
	oldSnapshot, err := e.latestSnapshot(ctx, current)
	if err != nil {
		return nil, err
	}
	newSnapshot, err := FromSchemas(current+1, e.now().UTC(), e.schemaList...)
	if err != nil {
		return nil, err
	}
	return Compare(oldSnapshot, newSnapshot), nil
}

// MigrateAll computes the diff between the stored snapshot and the current
// entity metadata and applies it, then records a new history row carrying
// the snapshot and the aggregated forward and reverse SQL.
//
// A failing change aborts the run before the history row is written, so
// the operator can fix the cause and rerun.
func (e *Engine) MigrateAll(ctx context.Context) error {
	if err := e.EnsureHistory(ctx); err != nil {
		return err
	}
	current, err := e.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	oldSnapshot, err := e.latestSnapshot(ctx, current)
	if err != nil {
		return err
	}
	newSnapshot, err := FromSchemas(current+1, e.now().UTC(), e.schemaList...)
	if err != nil {
		return err
	}

	changeList := Compare(oldSnapshot, newSnapshot)
	if len(changeList) == 0 {
		e.logger.Infow("schema up to date", "version", current)
		return nil
	}

	upParts := make([]string, 0, len(changeList))
	downParts := make([]string, 0, len(changeList))
	for _, change := range changeList {
		upParts = append(upParts, change.UpSQL())
		downParts = append(downParts, change.DownSQL())
	}

	for _, change := range changeList {
		if err := e.executeScript(ctx, change.UpSQL()); err != nil {
			e.logger.Errorw("change failed", "change", change.String(), "error", err)
			return err
		}
		e.logger.Infow("change applied", "change", change.String())
	}

	snapshotJSON, err := newSnapshot.ToJSON()
	if err != nil {
		return err
	}
	name := MigrationName(changeList, e.now())

	insert := core.NewStatement(
		`INSERT INTO "__MigrationHistory" ("Version", "Name", "SnapshotJson", "SqlUp", "SqlDown") `+
			`VALUES (@p0, @p1, @p2, @p3, @p4);`,
		map[string]any{
			"p0": current + 1,
			"p1": name,
			"p2": snapshotJSON,
			"p3": strings.Join(upParts, "\n"),
			"p4": strings.Join(downParts, "\n"),
		})
	sql, args, err := insert.Translate()
	if err != nil {
		return err
	}
	if _, err := e.driver.Execute(ctx, sql, args...); err != nil {
		return core.NewQueryExecutionError(sql, err)
	}

	e.logger.Infow("migration applied", "version", current+1, "name", name, "changes", len(changeList))
	return nil
}

// Rollback reverts the most recent migration. It is a no-op when no
// migration was applied yet.
func (e *Engine) Rollback(ctx context.Context) error {
	current, err := e.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if current == 0 {
		e.logger.Infow("nothing to roll back")
		return nil
	}
	return e.RollbackTo(ctx, current-1)
}

// RollbackTo reverts migrations from the current version down to (and
// excluding) the target, executing each migration's reverse SQL and
// deleting its history row. The target must be at least 0 and below the
// current version.
//
// A failing statement aborts before the history row is deleted, so the
// operator can inspect the schema state and retry.
func (e *Engine) RollbackTo(ctx context.Context, target int) error {
	current, err := e.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if target < 0 || target >= current {
		return &core.MigrationConflictError{Target: target, Current: current,
			Reason: "target must be at least 0 and below the current version"}
	}

	for version := current; version > target; version-- {
		name, downSQL, err := e.loadMigration(ctx, version)
		if err != nil {
			return err
		}

		if err := e.executeScript(ctx, downSQL); err != nil {
			e.logger.Errorw("rollback failed", "version", version, "name", name, "error", err)
			return err
		}

		deleteSQL := `DELETE FROM "__MigrationHistory" WHERE "Version" = $1;`
		if _, err := e.driver.Execute(ctx, deleteSQL, version); err != nil {
			return core.NewQueryExecutionError(deleteSQL, err)
		}
		e.logger.Infow("migration rolled back", "version", version, "name", name)
	}
	return nil
}

// Reset drops every entity table in reverse declaration order, clears the
// history, and migrates from scratch.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.EnsureHistory(ctx); err != nil {
		return err
	}
	for index := len(e.schemaList) - 1; index >= 0; index-- {
		statement := core.BuildDropTable(e.schemaList[index])
		if _, err := e.driver.Execute(ctx, statement.SQL); err != nil {
			return core.NewQueryExecutionError(statement.SQL, err)
		}
		e.logger.Infow("table dropped", "table", e.schemaList[index].TableName())
	}
	clearSQL := `DELETE FROM "__MigrationHistory";`
	if _, err := e.driver.Execute(ctx, clearSQL); err != nil {
		return core.NewQueryExecutionError(clearSQL, err)
	}
	return e.MigrateAll(ctx)
}

// History lists the applied migrations in version order.
func (e *Engine) History(ctx context.Context) ([]HistoryEntry, error) {
	if err := e.EnsureHistory(ctx); err != nil {
		return nil, err
	}
	sql := `SELECT "Id", "Version", "Name", "AppliedAt" FROM "__MigrationHistory" ORDER BY "Version";`
	rows, err := e.driver.Query(ctx, sql)
	if err != nil {
		return nil, core.NewQueryExecutionError(sql, err)
	}
	defer rows.Close()

	entryList := []HistoryEntry{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		if len(values) < 4 {
			continue
		}
		entry := HistoryEntry{
			ID:      asInt(values[0]),
			Version: asInt(values[1]),
			Name:    asString(values[2]),
		}
		if appliedAt, ok := values[3].(time.Time); ok {
			entry.AppliedAt = appliedAt
		}
		entryList = append(entryList, entry)
	}
	return entryList, rows.Err()
}

// loadMigration reads the name and reverse SQL of one history row.
func (e *Engine) loadMigration(ctx context.Context, version int) (string, string, error) {
	sql := `SELECT "Name", "SqlDown" FROM "__MigrationHistory" WHERE "Version" = $1;`
	rows, err := e.driver.Query(ctx, sql, version)
	if err != nil {
		return "", "", core.NewQueryExecutionError(sql, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", "", &core.MigrationConflictError{Target: version, Current: version,
			Reason: fmt.Sprintf("history row for version %d is missing", version)}
	}
	values, err := rows.Values()
	if err != nil {
		return "", "", err
	}
	return asString(values[0]), asString(values[1]), rows.Err()
}

// executeScript runs a newline-separated script statement by statement,
// skipping blank lines.
func (e *Engine) executeScript(ctx context.Context, script string) error {
	for _, statement := range strings.Split(script, "\n") {
		statement = strings.TrimSpace(statement)
		if statement == "" {
			continue
		}
		if _, err := e.driver.Execute(ctx, statement); err != nil {
			return core.NewQueryExecutionError(statement, err)
		}
	}
	return nil
}

// asInt normalizes a driver-native integer value.
func asInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

// asString normalizes a driver-native text value.
func asString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	}
	return fmt.Sprintf("%v", value)
}
