package core_test

import (
	"context"
	"strings"

	"github.com/tinmerunka/MedicalSystem/core"
)

// fakeRows is a scripted core.Rows cursor.
type fakeRows struct {
	columns []string
	rows    [][]any
	index   int
}

func (r *fakeRows) Next() bool {
	r.index++
	return r.index <= len(r.rows)
}

func (r *fakeRows) Columns() []string { return r.columns }

func (r *fakeRows) Values() ([]any, error) { return r.rows[r.index-1], nil }

func (r *fakeRows) Close() {}

func (r *fakeRows) Err() error { return nil }

// fakeResult scripts one query response.
type fakeResult struct {
	columns []string
	rows    [][]any
}

// executedStatement records one statement the ORM handed to the driver.
type executedStatement struct {
	sql  string
	args []any
}

// fakeTx records transaction outcomes.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(ctx context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(ctx context.Context) error { t.rolledBack = true; return nil }

// fakeDriver is a scripted core.Driver: queries and scalars pop queued
// responses, every statement is recorded, and failOn injects an error for
// any statement containing the configured substring.
type fakeDriver struct {
	executed    []executedStatement
	queryQueue  []fakeResult
	scalarQueue []any
	txList      []*fakeTx
	failOn      string
	failWith    error
}

func (d *fakeDriver) fail(sql string) error {
	if d.failOn != "" && strings.Contains(sql, d.failOn) {
		return d.failWith
	}
	return nil
}

func (d *fakeDriver) record(sql string, args []any) {
	d.executed = append(d.executed, executedStatement{sql: sql, args: args})
}

func (d *fakeDriver) Execute(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := d.fail(sql); err != nil {
		return 0, err
	}
	d.record(sql, args)
	return 1, nil
}

func (d *fakeDriver) Query(ctx context.Context, sql string, args ...any) (core.Rows, error) {
	if err := d.fail(sql); err != nil {
		return nil, err
	}
	d.record(sql, args)
	if len(d.queryQueue) == 0 {
		return &fakeRows{}, nil
	}
	result := d.queryQueue[0]
	d.queryQueue = d.queryQueue[1:]
	return &fakeRows{columns: result.columns, rows: result.rows}, nil
}

func (d *fakeDriver) Scalar(ctx context.Context, sql string, args ...any) (any, error) {
	if err := d.fail(sql); err != nil {
		return nil, err
	}
	d.record(sql, args)
	if len(d.scalarQueue) == 0 {
		return nil, nil
	}
	value := d.scalarQueue[0]
	d.scalarQueue = d.scalarQueue[1:]
	return value, nil
}

func (d *fakeDriver) Ping(ctx context.Context) error  { return nil }
func (d *fakeDriver) Close(ctx context.Context) error { return nil }

func (d *fakeDriver) Begin(ctx context.Context) (core.Transaction, error) {
	tx := &fakeTx{}
	d.txList = append(d.txList, tx)
	return tx, nil
}

// statements returns every recorded SQL string in execution order.
func (d *fakeDriver) statements() []string {
	sqlList := make([]string, 0, len(d.executed))
	for _, statement := range d.executed {
		sqlList = append(sqlList, statement.sql)
	}
	return sqlList
}
