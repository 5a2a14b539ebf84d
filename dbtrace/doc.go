// Package dbtrace instruments cursor-style database clients with
// OpenTelemetry tracing and metrics. It wraps connections and cursors
// conforming to the dbapi contracts so that every statement execution,
// batch execution, stored-procedure call, commit, and rollback is recorded
// as one client span with standardized tags.
//
// # Quick Start
//
// Wrap an already-constructed connection:
//
//	conn := dbtrace.WrapConn(raw,
//	    dbtrace.WithSpanTags(map[string]string{"peer.service": "orders-db"}),
//	)
//
//	cursor, _ := conn.Cursor()
//	err := cursor.Execute(ctx, "insert into t values (?)", 1)
//
// Or instrument the construction path, preserving the underlying
// connection's optional capabilities on the wrapped value:
//
//	conn, err := dbtrace.Connect(ctx, dbapi.ConnectorFunc(openConn))
//	if p, ok := conn.(dbapi.Pinger); ok {
//	    _ = p.Ping(ctx)
//	}
//
// # Spans
//
// Span names follow "<Type>.<operation>(<keyword>)", where the type is the
// underlying object's concrete type and the keyword is the statement's
// leading token:
//
//	DictCursor.execute(insert)
//	connection.commit()
//
// Every span carries db.type="sql", client span kind, the configured static
// tags, and for execute-family operations the full statement in
// db.statement plus db.rows_produced on success. A failing operation is
// tagged as errored and its error is returned to the caller unchanged:
// the instrumentation never swallows, wraps, or retries anything.
//
// # Trace flags
//
// Each operation kind has an independent switch, enabled by default.
// A disabled operation is a plain pass-through call with no span:
//
//	conn := dbtrace.WrapConn(raw, dbtrace.WithTraceCommit(false))
//
// Cursor-level flags can also be overridden per cursor:
//
//	cursor, _ := conn.Cursor(dbtrace.WithCursorTraceExecute(false))
//
// # Scoped units of work
//
// WithCursor gives the cursor a scope whose exit commits on success and
// rolls back on error or panic, under the same tracing rules:
//
//	err := conn.WithCursor(ctx, func(cursor *dbtrace.Cursor) error {
//	    return cursor.Execute(ctx, "insert into t values (?)", 1)
//	})
package dbtrace
