// Package dbapi defines the contracts between cursor-style database clients
// and the tracing instrumentation in package dbtrace.
//
// A client exposes a Conn that hands out Cursors; cursors execute
// statements, batches, and stored procedures and report a row count.
// Optional capabilities (Pinger, Validator, Fetcher, Descriptor) are
// separate interfaces so that wrappers can preserve exactly the capability
// set of the object they wrap.
//
// Statements are plain strings, byte slices, or Composed values built from
// parts:
//
//	stmt := dbapi.Compose(
//	    dbapi.SQL("select * from"),
//	    dbapi.Identifier{"users"},
//	    dbapi.SQL("where id ="),
//	    dbapi.Placeholder{},
//	)
package dbapi
