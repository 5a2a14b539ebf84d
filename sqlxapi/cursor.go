package sqlxapi

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface checks.
var (
	_ dbapi.Cursor     = (*Cursor)(nil)
	_ dbapi.Fetcher    = (*Cursor)(nil)
	_ dbapi.Descriptor = (*Cursor)(nil)
)

// Cursor executes statements on its connection's implicit transaction
// through sqlx. Row-producing statements buffer their full result set via
// SliceScan. A cursor is not safe for concurrent use.
type Cursor struct {
	conn *Conn

	rowCount int64
	columns  []dbapi.Column
	rows     []dbapi.Row
	next     int
	closed   bool
}

// Execute implements dbapi.Cursor. Placeholders in the statement are
// rebound to the driver's style before execution.
func (c *Cursor) Execute(ctx context.Context, stmt any, args ...any) error {
	if c.closed {
		return sql.ErrConnDone
	}

	text, err := statementText(stmt, c.conn)
	if err != nil {
		return err
	}
	text = c.conn.Rebind(text)

	tx, err := c.conn.transaction(ctx)
	if err != nil {
		return err
	}

	if isQuery(text) {
		return c.queryx(ctx, tx, text, args...)
	}
	return c.exec(ctx, tx, text, args...)
}

// ExecuteNamed runs a statement with sqlx named parameters bound from arg,
// which may be a map or a struct with db tags.
func (c *Cursor) ExecuteNamed(ctx context.Context, query string, arg any) error {
	if c.closed {
		return sql.ErrConnDone
	}

	bound, args, err := sqlx.Named(query, arg)
	if err != nil {
		return err
	}
	return c.Execute(ctx, bound, args...)
}

// ExecuteMany implements dbapi.Cursor.
func (c *Cursor) ExecuteMany(ctx context.Context, stmt any, batches [][]any) error {
	if c.closed {
		return sql.ErrConnDone
	}

	text, err := statementText(stmt, c.conn)
	if err != nil {
		return err
	}
	text = c.conn.Rebind(text)

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

// CallProc implements dbapi.Cursor.
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

// queryx runs text as a row-producing statement, buffering rows through
// sqlx's SliceScan.
func (c *Cursor) queryx(ctx context.Context, tx *sqlx.Tx, text string, args ...any) error {
	rows, err := tx.QueryxContext(ctx, text, args...)
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
		values, err := rows.SliceScan()
		if err != nil {
			c.rowCount = -1
			return err
		}
		c.rows = append(c.rows, dbapi.Row(values))
	}
	if err := rows.Err(); err != nil {
		c.rowCount = -1
		return err
	}

	c.rowCount = int64(len(c.rows))
	return nil
}

// exec runs text as a non-query statement.
func (c *Cursor) exec(ctx context.Context, tx *sqlx.Tx, text string, args ...any) error {
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

// Description implements dbapi.Descriptor for the current result set.
func (c *Cursor) Description() []dbapi.Column {
	return c.columns
}

// RowCount implements dbapi.Cursor.
func (c *Cursor) RowCount() int64 {
	return c.rowCount
}

// Close implements dbapi.Cursor.
func (c *Cursor) Close() error {
	c.closed = true
	c.reset()
	return nil
}

// statementText renders a statement of any supported form to its text.
func statementText(stmt any, conn *Conn) (string, error) {
	switch s := stmt.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	case dbapi.Composed:
		return s.Render(conn), nil
	default:
		return "", fmt.Errorf("sqlxapi: unsupported statement type %T", stmt)
	}
}

// queryKeywords are the leading keywords of row-producing statements.
var queryKeywords = map[string]struct{}{
	"SELECT":  {},
	"WITH":    {},
	"SHOW":    {},
	"EXPLAIN": {},
}

func isQuery(text string) bool {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n\r"); i >= 0 {
		text = text[:i]
	}
	_, ok := queryKeywords[strings.ToUpper(text)]
	return ok
}
