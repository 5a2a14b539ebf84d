package database

import (
	"context"

	"github.com/kroma-labs/dbtrace-go/dbapi"
	"github.com/kroma-labs/dbtrace-go/dbtrace"
	"github.com/kroma-labs/dbtrace-go/example/dbapi/internal/config"
	"github.com/kroma-labs/dbtrace-go/sqlapi"
	_ "github.com/lib/pq" // Register postgres driver
	"github.com/rs/zerolog"
)

// DB holds a traced connection to the example database.
type DB struct {
	conn dbapi.Conn
}

// New establishes a traced database connection. Spans go to the global
// tracer provider; the metrics histogram goes to the global meter provider.
func New(ctx context.Context, logger zerolog.Logger) (*DB, error) {
	conn, err := dbtrace.Connect(ctx,
		sqlapi.NewConnector(config.DefaultDriver, config.DefaultDSN),
		dbtrace.WithSpanTags(map[string]string{
			"peer.service": "example-db",
		}),
		dbtrace.WithQuerySanitizer(dbtrace.DefaultQuerySanitizer),
		dbtrace.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// Close releases the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive. The capability survives the
// tracing wrapper.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.(dbapi.Pinger).Ping(ctx)
}
