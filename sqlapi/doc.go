// Package sqlapi adapts database/sql handles to the dbapi connection and
// cursor contracts, so standard drivers can be instrumented with dbtrace.
//
// Statements run inside an implicit transaction started lazily on the first
// statement; Conn.Commit and Conn.Rollback end it. Query results are
// buffered on the cursor and read back through FetchOne and FetchAll.
//
// # Quick Start
//
//	conn, err := sqlapi.Open("postgres", dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	traced := dbtrace.WrapConn(conn)
//
//	cursor, err := traced.Cursor()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cursor.Close()
//
//	if err := cursor.Execute(ctx, "SELECT id, name FROM users"); err != nil {
//	    log.Fatal(err)
//	}
//	rows, _ := cursor.Unwrap().(dbapi.Fetcher).FetchAll()
//
// Or construct through dbtrace.Connect to keep the Fetcher and Pinger
// capabilities on the wrapped values:
//
//	conn, err := dbtrace.Connect(ctx, sqlapi.NewConnector("postgres", dsn))
package sqlapi
