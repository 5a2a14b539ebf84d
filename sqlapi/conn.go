package sqlapi

import (
	"context"
	"database/sql"
	"sync"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface checks.
var (
	_ dbapi.Conn   = (*Conn)(nil)
	_ dbapi.Pinger = (*Conn)(nil)
)

// Conn adapts a database/sql handle to the dbapi.Conn contract. Statements
// executed through its cursors run inside an implicit transaction, started
// lazily on the first statement and ended by Commit or Rollback. With no
// statement executed since the last boundary, Commit and Rollback are
// no-ops.
type Conn struct {
	db *sql.DB

	// owned marks handles opened by this package; only those are closed
	// when the connection is closed.
	owned bool

	mu sync.Mutex
	tx *sql.Tx
}

// Open opens a database handle with the given driver and DSN and adapts it.
// The handle is owned by the returned connection and closed with it.
func Open(driverName, dsn string) (*Conn, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db, owned: true}, nil
}

// WrapDB adapts an existing database handle. The handle stays owned by the
// caller; closing the connection only discards pending work.
func WrapDB(db *sql.DB) *Conn {
	return &Conn{db: db}
}

// NewConnector returns a connector that opens a fresh adapted connection on
// each Connect call.
func NewConnector(driverName, dsn string) dbapi.Connector {
	return dbapi.ConnectorFunc(func(context.Context) (dbapi.Conn, error) {
		return Open(driverName, dsn)
	})
}

// Cursor implements dbapi.Conn.
func (c *Conn) Cursor() (dbapi.Cursor, error) {
	return &Cursor{conn: c, rowCount: -1}, nil
}

// transaction returns the in-flight implicit transaction, starting one when
// none is pending.
func (c *Conn) transaction(ctx context.Context) (*sql.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		return c.tx, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	c.tx = tx
	return tx, nil
}

// Commit implements dbapi.Conn. Committing with no pending work is a no-op.
func (c *Conn) Commit(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return nil
	}

	err := c.tx.Commit()
	c.tx = nil
	return err
}

// Rollback implements dbapi.Conn. Rolling back with no pending work is a
// no-op.
func (c *Conn) Rollback(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx == nil {
		return nil
	}

	err := c.tx.Rollback()
	c.tx = nil
	return err
}

// Ping implements dbapi.Pinger.
func (c *Conn) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close implements dbapi.Conn. Pending work is rolled back; the underlying
// handle is closed only when this package opened it.
func (c *Conn) Close() error {
	c.mu.Lock()
	tx := c.tx
	c.tx = nil
	c.mu.Unlock()

	var err error
	if tx != nil {
		err = tx.Rollback()
	}

	if c.owned {
		if cerr := c.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// DB returns the underlying database handle.
func (c *Conn) DB() *sql.DB {
	return c.db
}
