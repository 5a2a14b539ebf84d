// Package sqlxapi adapts jmoiron/sqlx handles to the dbapi connection and
// cursor contracts, for instrumenting sqlx-based code with dbtrace.
//
// It mirrors the sqlapi adapter and adds what sqlx brings: named-parameter
// binding through Cursor.ExecuteNamed and driver-aware placeholder
// rebinding, so statements written with "?" run unchanged against
// PostgreSQL and friends.
//
//	conn, err := sqlxapi.Open("postgres", dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	traced := dbtrace.WrapConn(conn)
package sqlxapi
