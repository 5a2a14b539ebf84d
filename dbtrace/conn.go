package dbtrace

import (
	"context"
	"time"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Conn wraps one underlying connection with traced commit and rollback and a
// factory for traced cursors. Its configuration is immutable for the
// lifetime of the instance: per-cursor overrides never touch it.
type Conn struct {
	conn dbapi.Conn
	cfg  *config

	// Operation names for commit and rollback never change, so they are
	// computed once at construction.
	commitName   string
	rollbackName string
}

// WrapConn wraps an already-constructed connection with tracing. The
// underlying connection keeps exclusive ownership semantics: the wrapper
// holds it 1:1 for its lifetime.
func WrapConn(conn dbapi.Conn, opts ...Option) *Conn {
	return newConn(conn, newConfig(opts...))
}

func newConn(conn dbapi.Conn, cfg *config) *Conn {
	name := typeName(conn, "Conn")
	return &Conn{
		conn:         conn,
		cfg:          cfg,
		commitName:   operationName(name, "commit", ""),
		rollbackName: operationName(name, "rollback", ""),
	}
}

// Cursor obtains a cursor from the underlying connection and wraps it in a
// traced cursor sharing this connection's tracer and static tags. Options
// override trace flags and the cursor factory for the returned cursor only.
func (c *Conn) Cursor(opts ...CursorOption) (*Cursor, error) {
	cc := cursorConfig{
		TraceExecute:     c.cfg.TraceExecute,
		TraceExecuteMany: c.cfg.TraceExecuteMany,
		TraceCallProc:    c.cfg.TraceCallProc,
		Factory:          c.cfg.CursorFactory,
	}
	for _, opt := range opts {
		opt(&cc)
	}

	factory := cc.Factory
	if factory == nil {
		factory = func(conn dbapi.Conn) (dbapi.Cursor, error) {
			return conn.Cursor()
		}
	}

	cursor, err := factory(c.conn)
	if err != nil {
		return nil, err
	}

	return newCursor(cursor, c.conn, c.cfg, cursorFlags{
		execute:     cc.TraceExecute,
		executeMany: cc.TraceExecuteMany,
		callProc:    cc.TraceCallProc,
	}), nil
}

// Commit commits the underlying connection, recording one span when commit
// tracing is enabled. Transaction control spans carry no statement or row
// count tags.
func (c *Conn) Commit(ctx context.Context) error {
	if !c.cfg.TraceCommit {
		return c.conn.Commit(ctx)
	}
	return c.tracedTxOp(ctx, c.commitName, "commit", c.conn.Commit)
}

// Rollback rolls back the underlying connection, recording one span when
// rollback tracing is enabled.
func (c *Conn) Rollback(ctx context.Context) error {
	if !c.cfg.TraceRollback {
		return c.conn.Rollback(ctx)
	}
	return c.tracedTxOp(ctx, c.rollbackName, "rollback", c.conn.Rollback)
}

// tracedTxOp runs a transaction control operation under one client span.
// The operation's error is returned unchanged after the span is finished.
func (c *Conn) tracedTxOp(
	ctx context.Context,
	name, op string,
	fn func(context.Context) error,
) error {
	start := time.Now()

	ctx, span := c.cfg.startSpan(ctx, name)
	defer span.End()

	err := fn(ctx)

	c.cfg.Metrics.recordOperationDuration(ctx, time.Since(start), op, err)

	if err != nil {
		c.cfg.recordError(span, err)
	}
	return err
}

// WithCursor runs fn with a new default cursor and ends the unit of work the
// way the scoped-resource protocol prescribes: commit when fn returns nil,
// rollback when fn returns an error or panics. The commit and rollback
// follow the connection's trace flags. fn's error or panic always propagates
// unchanged; a rollback failure on the error path is logged, not returned.
func (c *Conn) WithCursor(ctx context.Context, fn func(*Cursor) error) error {
	cursor, err := c.Cursor()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cursor.Close(); cerr != nil {
			c.cfg.Logger.Warn().Err(cerr).Msg("dbtrace: cursor close failed")
		}
	}()

	done := false
	defer func() {
		if done {
			return
		}
		// fn panicked. Roll back before the panic continues to propagate.
		if rerr := c.Rollback(ctx); rerr != nil {
			c.cfg.Logger.Error().Err(rerr).Msg("dbtrace: rollback after panic failed")
		}
	}()

	if err := fn(cursor); err != nil {
		done = true
		if rerr := c.Rollback(ctx); rerr != nil {
			c.cfg.Logger.Error().Err(rerr).Msg("dbtrace: rollback failed")
		}
		return err
	}
	done = true

	return c.Commit(ctx)
}

// Close releases the underlying connection. Closing is never traced.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// Unwrap returns the underlying connection, for access to capabilities
// beyond the dbapi.Conn contract.
func (c *Conn) Unwrap() dbapi.Conn {
	return c.conn
}
