package dbapi

import (
	"fmt"
	"strings"
)

// Composed is a statement assembled from parts rather than written as a
// single string. Drivers that build statements dynamically (identifier
// injection, generated column lists) implement this instead of handing the
// instrumentation a plain string.
type Composed interface {
	// Parts returns the textual form of each part. An empty slice is valid
	// and renders to the empty string.
	Parts() []string

	// Render produces the full statement text. The connection is passed as
	// context so parts that quote per server dialect can use it.
	Render(conn any) string
}

// Composable is one element of a composed statement.
type Composable interface {
	String() string
}

// ConnRenderer is implemented by composable parts whose textual form depends
// on the connection, such as identifiers quoted per server dialect.
type ConnRenderer interface {
	RenderConn(conn any) string
}

// IdentifierQuoter is implemented by connections that quote identifiers for
// their server dialect.
type IdentifierQuoter interface {
	QuoteIdentifier(name string) string
}

// SQL is a raw snippet of statement text.
type SQL string

// String implements Composable.
func (s SQL) String() string { return string(s) }

// Identifier is a database object name, quoted when rendered. Multiple
// elements render as a dotted path (schema.table.column).
type Identifier []string

// String implements Composable using double-quote escaping, the common SQL
// standard form.
func (i Identifier) String() string {
	quoted := make([]string, len(i))
	for n, part := range i {
		quoted[n] = `"` + strings.ReplaceAll(part, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ".")
}

// RenderConn implements ConnRenderer, deferring to the connection's quoting
// rules when it has any.
func (i Identifier) RenderConn(conn any) string {
	quoter, ok := conn.(IdentifierQuoter)
	if !ok {
		return i.String()
	}
	quoted := make([]string, len(i))
	for n, part := range i {
		quoted[n] = quoter.QuoteIdentifier(part)
	}
	return strings.Join(quoted, ".")
}

// Literal is a value rendered inline into the statement text.
type Literal struct {
	Value any
}

// String implements Composable.
func (l Literal) String() string {
	switch v := l.Value.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(v, "'", "''") + "'"
	case []byte:
		return "'" + strings.ReplaceAll(string(v), "'", "''") + "'"
	default:
		return fmt.Sprint(v)
	}
}

// Placeholder is a positional parameter marker.
type Placeholder struct{}

// String implements Composable.
func (Placeholder) String() string { return "?" }

// Compose joins parts into a Composed statement. Parts are joined with a
// single space when rendered.
func Compose(parts ...Composable) Composed {
	return composed(parts)
}

type composed []Composable

// Parts implements Composed.
func (c composed) Parts() []string {
	out := make([]string, len(c))
	for i, p := range c {
		out[i] = p.String()
	}
	return out
}

// Render implements Composed.
func (c composed) Render(conn any) string {
	out := make([]string, len(c))
	for i, p := range c {
		if r, ok := p.(ConnRenderer); ok {
			out[i] = r.RenderConn(conn)
			continue
		}
		out[i] = p.String()
	}
	return strings.Join(out, " ")
}
