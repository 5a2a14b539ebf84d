package dbtrace

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface check.
var _ dbapi.Cursor = (*Cursor)(nil)

// Cursor wraps one underlying cursor and traces its Execute, ExecuteMany,
// and CallProc operations. Every traced call produces exactly one span,
// finished before the call returns, success or failure.
type Cursor struct {
	cursor dbapi.Cursor
	cfg    *config
	flags  cursorFlags

	// conn is the underlying connection the cursor belongs to, passed as
	// rendering context for composed statements. Nil for free-standing
	// cursors wrapped directly.
	conn dbapi.Conn

	// name is the display type name used in span names, resolved once from
	// the underlying cursor's concrete type.
	name string
}

// cursorFlags are the resolved per-operation trace switches for one cursor.
type cursorFlags struct {
	execute     bool
	executeMany bool
	callProc    bool
}

// WrapCursor wraps an already-constructed cursor with tracing. Use
// Conn.Cursor instead when the cursor comes from a traced connection, so it
// shares the connection's tracer and tags.
func WrapCursor(cursor dbapi.Cursor, opts ...Option) *Cursor {
	cfg := newConfig(opts...)
	return newCursor(cursor, nil, cfg, cursorFlags{
		execute:     cfg.TraceExecute,
		executeMany: cfg.TraceExecuteMany,
		callProc:    cfg.TraceCallProc,
	})
}

func newCursor(cursor dbapi.Cursor, conn dbapi.Conn, cfg *config, flags cursorFlags) *Cursor {
	return &Cursor{
		cursor: cursor,
		cfg:    cfg,
		flags:  flags,
		conn:   conn,
		name:   typeName(cursor, "Cursor"),
	}
}

// Execute runs one statement on the underlying cursor. When execute tracing
// is enabled it records one client span named
// "<CursorType>.execute(<keyword>)" tagged with the full statement text and,
// on success, the cursor's row count.
func (c *Cursor) Execute(ctx context.Context, stmt any, args ...any) error {
	if !c.flags.execute {
		return c.cursor.Execute(ctx, stmt, args...)
	}

	return c.traced(ctx, "execute", statementFragment(stmt), fullStatement(stmt, c.conn),
		func(ctx context.Context) error {
			return c.cursor.Execute(ctx, stmt, args...)
		})
}

// ExecuteMany runs the statement once per argument batch on the underlying
// cursor, under one span covering the whole batch.
func (c *Cursor) ExecuteMany(ctx context.Context, stmt any, batches [][]any) error {
	if !c.flags.executeMany {
		return c.cursor.ExecuteMany(ctx, stmt, batches)
	}

	return c.traced(ctx, "executemany", statementFragment(stmt), fullStatement(stmt, c.conn),
		func(ctx context.Context) error {
			return c.cursor.ExecuteMany(ctx, stmt, batches)
		})
}

// CallProc invokes a stored procedure on the underlying cursor. The full
// procedure name is used both as the operation-name fragment and as the
// db.statement tag.
func (c *Cursor) CallProc(ctx context.Context, proc any, args ...any) error {
	if !c.flags.callProc {
		return c.cursor.CallProc(ctx, proc, args...)
	}

	name := fullStatement(proc, c.conn)
	return c.traced(ctx, "callproc", name, name,
		func(ctx context.Context) error {
			return c.cursor.CallProc(ctx, proc, args...)
		})
}

// traced runs fn under one client span. On success the span is tagged with
// the underlying cursor's post-call row count; on failure it is tagged as
// errored and fn's error is returned unchanged.
func (c *Cursor) traced(
	ctx context.Context,
	op, fragment, statement string,
	fn func(context.Context) error,
) error {
	start := time.Now()

	ctx, span := c.cfg.startSpan(ctx, operationName(c.name, op, fragment),
		attribute.String(dbStatementKey, c.cfg.sanitize(statement)),
	)
	defer span.End()

	err := fn(ctx)

	c.cfg.Metrics.recordOperationDuration(ctx, time.Since(start), op, err)

	if err != nil {
		c.cfg.recordError(span, err)
		return err
	}

	span.SetAttributes(attribute.Int64(rowsProducedKey, c.cursor.RowCount()))
	return nil
}

// RowCount reports the underlying cursor's row count.
func (c *Cursor) RowCount() int64 {
	return c.cursor.RowCount()
}

// Close releases the underlying cursor. Closing is never traced.
func (c *Cursor) Close() error {
	return c.cursor.Close()
}

// Unwrap returns the underlying cursor, for access to capabilities beyond
// the dbapi.Cursor contract.
func (c *Cursor) Unwrap() dbapi.Cursor {
	return c.cursor
}
