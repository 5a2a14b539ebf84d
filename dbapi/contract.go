package dbapi

import "context"

// Row is a single result row produced by a cursor.
type Row []any

// Column describes one column of a cursor's current result set.
// TypeName is the driver-reported database type and may be empty when the
// driver does not report one.
type Column struct {
	Name     string
	TypeName string
}

// Conn is the connection contract consumed by the tracing instrumentation.
// A connection owns at most one in-flight unit of work: Commit and Rollback
// end whatever its cursors have executed since the last boundary.
type Conn interface {
	// Cursor produces a new cursor bound to this connection.
	Cursor() (Cursor, error)

	// Commit makes the work executed since the last transaction boundary
	// permanent.
	Commit(ctx context.Context) error

	// Rollback discards the work executed since the last transaction
	// boundary.
	Rollback(ctx context.Context) error

	// Close releases the connection. Pending work is discarded.
	Close() error
}

// Cursor is the statement-execution contract consumed by the tracing
// instrumentation. Statements may be plain strings, byte slices, or
// Composed values.
type Cursor interface {
	// Execute runs one statement with the given arguments.
	Execute(ctx context.Context, stmt any, args ...any) error

	// ExecuteMany runs the statement once per argument batch.
	ExecuteMany(ctx context.Context, stmt any, batches [][]any) error

	// CallProc invokes a stored procedure by name with the given arguments.
	// The name may be a string or a byte slice.
	CallProc(ctx context.Context, proc any, args ...any) error

	// RowCount reports the row count of the most recent operation: rows
	// produced for queries, rows affected for other statements, -1 when no
	// operation has run or the driver cannot tell.
	RowCount() int64

	// Close releases the cursor and any buffered results.
	Close() error
}

// Pinger is an optional connection capability for liveness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Validator is an optional connection capability reporting whether the
// connection is still usable.
type Validator interface {
	IsValid() bool
}

// Fetcher is an optional cursor capability for reading buffered query
// results. FetchOne returns io.EOF once the result set is exhausted.
type Fetcher interface {
	FetchOne() (Row, error)
	FetchAll() ([]Row, error)
}

// Descriptor is an optional cursor capability describing the columns of the
// current result set.
type Descriptor interface {
	Description() []Column
}

// Connector establishes the underlying connection. It is the construction
// path instrumented by dbtrace.Connect: the connector always runs for real,
// so a wrapped connection is a genuinely established one.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ConnectorFunc adapts a function to the Connector interface.
type ConnectorFunc func(ctx context.Context) (Conn, error)

// Connect implements Connector.
func (f ConnectorFunc) Connect(ctx context.Context) (Conn, error) {
	return f(ctx)
}
