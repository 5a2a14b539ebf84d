package database

import (
	"context"
	"fmt"

	"github.com/kroma-labs/dbtrace-go/dbapi"
	"github.com/kroma-labs/dbtrace-go/dbtrace"
)

// CreateTable sets up the example schema.
func (db *DB) CreateTable(ctx context.Context) error {
	cursor, err := db.conn.Cursor()
	if err != nil {
		return err
	}
	defer cursor.Close()

	err = cursor.Execute(ctx, `CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL
	)`)
	if err != nil {
		return err
	}
	return db.conn.Commit(ctx)
}

// InsertUsers inserts a batch of rows through one executemany span.
func (db *DB) InsertUsers(ctx context.Context, names ...string) error {
	cursor, err := db.conn.Cursor()
	if err != nil {
		return err
	}
	defer cursor.Close()

	batches := make([][]any, len(names))
	for i, name := range names {
		batches[i] = []any{name}
	}

	if err := cursor.ExecuteMany(ctx, "INSERT INTO users (name) VALUES ($1)", batches); err != nil {
		if rerr := db.conn.Rollback(ctx); rerr != nil {
			return fmt.Errorf("rollback after insert failure: %w", rerr)
		}
		return err
	}
	return db.conn.Commit(ctx)
}

// QueryUsers reads all user names back through the cursor's fetch
// capability.
func (db *DB) QueryUsers(ctx context.Context) ([]string, error) {
	cursor, err := db.conn.Cursor()
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	if err := cursor.Execute(ctx, "SELECT name FROM users ORDER BY id"); err != nil {
		return nil, err
	}

	rows, err := cursor.(dbapi.Fetcher).FetchAll()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if name, ok := row[0].(string); ok {
			names = append(names, name)
		}
	}
	return names, db.conn.Commit(ctx)
}

// RefreshRollups invokes a stored procedure; the span is named after the
// full procedure name.
func (db *DB) RefreshRollups(ctx context.Context) error {
	cursor, err := db.conn.Cursor()
	if err != nil {
		return err
	}
	defer cursor.Close()

	if err := cursor.CallProc(ctx, "refresh_rollups"); err != nil {
		return err
	}
	return db.conn.Commit(ctx)
}

// scopedConn is the scoped unit-of-work capability the traced connection
// promotes from its wrapper.
type scopedConn interface {
	WithCursor(ctx context.Context, fn func(*dbtrace.Cursor) error) error
}

// RenameUser runs one scoped unit of work: commit on success, rollback on
// error or panic.
func (db *DB) RenameUser(ctx context.Context, id int, name string) error {
	return db.conn.(scopedConn).WithCursor(ctx, func(cursor *dbtrace.Cursor) error {
		return cursor.Execute(ctx, "UPDATE users SET name = $1 WHERE id = $2", name, id)
	})
}
