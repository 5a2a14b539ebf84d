package sqlxapi

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface checks.
var (
	_ dbapi.Conn   = (*Conn)(nil)
	_ dbapi.Pinger = (*Conn)(nil)
)

// Conn adapts a *sqlx.DB to the dbapi.Conn contract. It follows the same
// implicit-transaction model as the sqlapi adapter but executes through
// sqlx, which adds named-parameter binding and driver-aware placeholder
// rebinding to its cursors.
type Conn struct {
	db    *sqlx.DB
	owned bool

	mu sync.Mutex
	tx *sqlx.Tx
}

// Open opens a database handle through sqlx and adapts it. The handle is
// owned by the returned connection and closed with it.
func Open(driverName, dsn string) (*Conn, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return &Conn{db: db, owned: true}, nil
}

// WrapDB adapts an existing *sqlx.DB. The handle stays owned by the caller.
func WrapDB(db *sqlx.DB) *Conn {
	return &Conn{db: db}
}

// NewDB wraps an existing database/sql handle with sqlx and adapts it.
// The driver name selects the placeholder style used for rebinding.
func NewDB(db *sql.DB, driverName string) *Conn {
	return &Conn{db: sqlx.NewDb(db, driverName)}
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
func (c *Conn) transaction(ctx context.Context) (*sqlx.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tx != nil {
		return c.tx, nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
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

// DB returns the underlying sqlx handle.
func (c *Conn) DB() *sqlx.DB {
	return c.db
}

// Rebind translates "?" placeholders to the driver's placeholder style.
func (c *Conn) Rebind(query string) string {
	return c.db.Rebind(query)
}
