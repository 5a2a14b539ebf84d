package dbtrace

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// mockCursor is a hand-rolled cursor fake. Its type name is what span names
// are asserted against.
type mockCursor struct {
	rowcount int64
	err      error

	executeCalls     int
	executeManyCalls int
	callProcCalls    int
	lastStatement    any
	closed           bool
}

func (m *mockCursor) Execute(_ context.Context, stmt any, _ ...any) error {
	m.executeCalls++
	m.lastStatement = stmt
	return m.err
}

func (m *mockCursor) ExecuteMany(_ context.Context, stmt any, _ [][]any) error {
	m.executeManyCalls++
	m.lastStatement = stmt
	return m.err
}

func (m *mockCursor) CallProc(_ context.Context, proc any, _ ...any) error {
	m.callProcCalls++
	m.lastStatement = proc
	return m.err
}

func (m *mockCursor) RowCount() int64 { return m.rowcount }

func (m *mockCursor) Close() error {
	m.closed = true
	return nil
}

// fetchCursor adds the Fetcher capability on top of mockCursor.
type fetchCursor struct {
	mockCursor
	rows []dbapi.Row
	next int
}

func (f *fetchCursor) FetchOne() (dbapi.Row, error) {
	if f.next >= len(f.rows) {
		return nil, io.EOF
	}
	row := f.rows[f.next]
	f.next++
	return row, nil
}

func (f *fetchCursor) FetchAll() ([]dbapi.Row, error) {
	rows := f.rows[f.next:]
	f.next = len(f.rows)
	return rows, nil
}

// mockConn is a hand-rolled connection fake.
type mockConn struct {
	cursor    dbapi.Cursor
	cursorErr error

	commitErr   error
	rollbackErr error

	commitCalls   int
	rollbackCalls int
	closed        bool
}

func (m *mockConn) Cursor() (dbapi.Cursor, error) {
	if m.cursorErr != nil {
		return nil, m.cursorErr
	}
	if m.cursor == nil {
		m.cursor = &mockCursor{}
	}
	return m.cursor, nil
}

func (m *mockConn) Commit(_ context.Context) error {
	m.commitCalls++
	return m.commitErr
}

func (m *mockConn) Rollback(_ context.Context) error {
	m.rollbackCalls++
	return m.rollbackErr
}

func (m *mockConn) Close() error {
	m.closed = true
	return nil
}

// pingConn adds the Pinger capability on top of mockConn.
type pingConn struct {
	mockConn
	pingCalls int
	pingErr   error
}

func (p *pingConn) Ping(_ context.Context) error {
	p.pingCalls++
	return p.pingErr
}

// validConn adds the Validator capability on top of mockConn.
type validConn struct {
	mockConn
	valid bool
}

func (v *validConn) IsValid() bool { return v.valid }

// newTestTracer returns a span recorder and a tracer provider feeding it.
func newTestTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	recorder := tracetest.NewSpanRecorder()
	return recorder, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
}

// attrMap flattens a recorded span's attributes for lookup by key.
func attrMap(span sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	m := make(map[attribute.Key]attribute.Value, len(span.Attributes()))
	for _, kv := range span.Attributes() {
		m[kv.Key] = kv.Value
	}
	return m
}
