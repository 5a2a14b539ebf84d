package sqlapi

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface checks.
var (
	_ dbapi.Cursor     = (*Cursor)(nil)
	_ dbapi.Fetcher    = (*Cursor)(nil)
	_ dbapi.Descriptor = (*Cursor)(nil)
)

// Cursor executes statements on its connection's implicit transaction and
// buffers query results for fetching. A cursor is not safe for concurrent
// use; open one cursor per goroutine.
type Cursor struct {
	conn *Conn

	// rowCount is the row count of the most recent operation: rows
	// produced for queries, rows affected otherwise, -1 before the first
	// operation and when the driver cannot tell.
	rowCount int64

	columns []dbapi.Column
	rows    []dbapi.Row
	next    int
	closed  bool
}

// Execute implements dbapi.Cursor. Statements whose leading keyword reads
// rows (SELECT, WITH, SHOW, EXPLAIN) run as queries and buffer their result
// set; everything else runs as a plain exec.
func (c *Cursor) Execute(ctx context.Context, stmt any, args ...any) error {
	if c.closed {
		return sql.ErrConnDone
	}

	text, err := statementText(stmt, c.conn)
	if err != nil {
		return err
	}

	tx, err := c.conn.transaction(ctx)
	if err != nil {
		return err
	}

	if isQuery(text) {
		return c.query(ctx, tx, text, args...)
	}
	return c.exec(ctx, tx, text, args...)
}

// ExecuteMany implements dbapi.Cursor. The statement runs once per batch on
// the same transaction; the row count is the total rows affected.
func (c *Cursor) ExecuteMany(ctx context.Context, stmt any, batches [][]any) error {
	if c.closed {
		return sql.ErrConnDone
	}

	text, err := statementText(stmt, c.conn)
	if err != nil {
		return err
	}

	tx, err := c.conn.transaction(ctx)
	if err != nil {
		return err
	}

	c.reset()

	var total int64
	for _, batch := range batches {
		res, err := tx.ExecContext(ctx, text, batch...)
		if err != nil {
			c.rowCount = -1
			return err
		}
		if affected, err := res.RowsAffected(); err == nil {
			total += affected
		}
	}
	c.rowCount = total
	return nil
}

// CallProc implements dbapi.Cursor. The procedure is invoked with a CALL
// statement carrying one placeholder per argument.
func (c *Cursor) CallProc(ctx context.Context, proc any, args ...any) error {
	name, err := statementText(proc, c.conn)
	if err != nil {
		return err
	}

	placeholders := make([]string, len(args))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	call := fmt.Sprintf("CALL %s(%s)", name, strings.Join(placeholders, ", "))

	return c.Execute(ctx, call, args...)
}

// query runs text as a row-producing statement and buffers the full result
// set, so the cursor's rows survive past the database iterator.
func (c *Cursor) query(ctx context.Context, tx *sql.Tx, text string, args ...any) error {
	rows, err := tx.QueryContext(ctx, text, args...)
	if err != nil {
		c.reset()
		c.rowCount = -1
		return err
	}
	defer rows.Close()

	c.reset()

	names, err := rows.Columns()
	if err != nil {
		c.rowCount = -1
		return err
	}

	c.columns = make([]dbapi.Column, len(names))
	for i, name := range names {
		c.columns[i] = dbapi.Column{Name: name}
	}
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			c.columns[i].TypeName = ct.DatabaseTypeName()
		}
	}

	for rows.Next() {
		values := make(dbapi.Row, len(names))
		ptrs := make([]any, len(names))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			c.rowCount = -1
			return err
		}
		c.rows = append(c.rows, values)
	}
	if err := rows.Err(); err != nil {
		c.rowCount = -1
		return err
	}

	c.rowCount = int64(len(c.rows))
	return nil
}

// exec runs text as a non-query statement.
func (c *Cursor) exec(ctx context.Context, tx *sql.Tx, text string, args ...any) error {
	c.reset()

	res, err := tx.ExecContext(ctx, text, args...)
	if err != nil {
		c.rowCount = -1
		return err
	}

	if affected, err := res.RowsAffected(); err == nil {
		c.rowCount = affected
	} else {
		c.rowCount = -1
	}
	return nil
}

// reset clears buffered results before a new operation.
func (c *Cursor) reset() {
	c.columns = nil
	c.rows = nil
	c.next = 0
}

// FetchOne implements dbapi.Fetcher. It returns io.EOF once the buffered
// result set is exhausted.
func (c *Cursor) FetchOne() (dbapi.Row, error) {
	if c.next >= len(c.rows) {
		return nil, io.EOF
	}
	row := c.rows[c.next]
	c.next++
	return row, nil
}

// FetchAll implements dbapi.Fetcher, returning the remaining buffered rows.
func (c *Cursor) FetchAll() ([]dbapi.Row, error) {
	rows := c.rows[c.next:]
	c.next = len(c.rows)
	return rows, nil
}

// Description implements dbapi.Descriptor for the current result set. It is
// nil before the first query.
func (c *Cursor) Description() []dbapi.Column {
	return c.columns
}

// RowCount implements dbapi.Cursor.
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// Close implements dbapi.Cursor. Closing discards buffered results; the
// connection's pending transaction is untouched.
func (c *Cursor) Close() error {
	c.closed = true
	c.reset()
	return nil
}

// statementText renders a statement of any supported form to its text. Byte
// slices pass through as-is; composed statements render with the connection
// as dialect context.
func statementText(stmt any, conn *Conn) (string, error) {
	switch s := stmt.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case dbapi.Composed:
		return s.Render(conn), nil
	default:
		return "", fmt.Errorf("sqlapi: unsupported statement type %T", stmt)
	}
}

// queryKeywords are the leading keywords of row-producing statements.
var queryKeywords = map[string]struct{}{
	"SELECT":  {},
	"WITH":    {},
	"SHOW":    {},
	"EXPLAIN": {},
}

// isQuery reports whether the statement produces rows, judged by its
// leading keyword.
func isQuery(text string) bool {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n\r"); i >= 0 {
		text = text[:i]
	}
	_, ok := queryKeywords[strings.ToUpper(text)]
	return ok
}
