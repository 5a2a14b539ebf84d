package dbtrace

import (
	"context"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Compile-time interface checks for the composed connection shapes.
var (
	_ dbapi.Conn       = connShell{}
	_ dbapi.Pinger     = pingerConn{}
	_ dbapi.Validator  = validatorConn{}
	_ dbapi.Pinger     = pingerValidatorConn{}
	_ dbapi.Validator  = pingerValidatorConn{}
	_ dbapi.Cursor     = fetcherCursor{}
	_ dbapi.Fetcher    = fetcherCursor{}
	_ dbapi.Descriptor = descriptorCursor{}
	_ dbapi.Fetcher    = fetcherDescriptorCursor{}
	_ dbapi.Descriptor = fetcherDescriptorCursor{}
)

// Connect establishes the underlying connection through the connector and
// returns it wrapped with tracing. The connector always runs for real, so
// the returned connection is genuinely established; a connector failure
// propagates unmodified and leaves the registry untouched.
//
// The returned value satisfies the same optional capabilities (dbapi.Pinger,
// dbapi.Validator) as the underlying connection, and the cursors it hands
// out satisfy the capabilities (dbapi.Fetcher, dbapi.Descriptor) of the
// underlying cursors. Type assertions in application code that knows nothing
// about tracing keep working.
//
// Example:
//
//	conn, err := dbtrace.Connect(ctx,
//	    dbapi.ConnectorFunc(func(ctx context.Context) (dbapi.Conn, error) {
//	        return sqlapi.Open("postgres", dsn)
//	    }),
//	    dbtrace.WithSpanTags(map[string]string{"peer.service": "orders-db"}),
//	)
func Connect(ctx context.Context, connector dbapi.Connector, opts ...Option) (dbapi.Conn, error) {
	cfg := newConfig(opts...)

	conn, err := connector.Connect(ctx)
	if err != nil {
		return nil, err
	}

	return cfg.Registry.wrapConn(newConn(conn, cfg)), nil
}
