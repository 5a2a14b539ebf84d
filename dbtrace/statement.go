package dbtrace

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// operationName builds the span name for a traced call.
//
// Example:
//
//	operationName("DictCursor", "execute", "insert") // "DictCursor.execute(insert)"
//	operationName("connection", "commit", "")        // "connection.commit()"
func operationName(typeName, op, fragment string) string {
	return fmt.Sprintf("%s.%s(%s)", typeName, op, fragment)
}

// typeName returns the concrete type name of the wrapped object so that span
// names identify what the application actually talks to, not the wrapper.
func typeName(v any, fallback string) string {
	if v == nil {
		return fallback
	}
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return fallback
}

// statementFragment returns the first whitespace-delimited token of the
// statement, used inside the operation name. It never fails: byte slices
// decode lossily and a composed statement with no parts yields "".
func statementFragment(stmt any) string {
	switch s := stmt.(type) {
	case string:
		return firstToken(s)
	case []byte:
		return firstToken(decodeLossy(s))
	case dbapi.Composed:
		parts := s.Parts()
		if len(parts) == 0 {
			return ""
		}
		return firstToken(parts[0])
	default:
		return firstToken(fmt.Sprint(stmt))
	}
}

// fullStatement renders the statement for the db.statement tag. Plain text
// passes through unchanged, byte slices decode lossily, and composed
// statements render with the connection as context.
func fullStatement(stmt any, conn any) string {
	switch s := stmt.(type) {
	case string:
		return s
	case []byte:
		return decodeLossy(s)
	case dbapi.Composed:
		return s.Render(conn)
	default:
		return fmt.Sprint(stmt)
	}
}

// firstToken returns the first whitespace-delimited token of s. The token's
// case is preserved.
func firstToken(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, " \t\n\r"); i >= 0 {
		return s[:i]
	}
	return s
}

// decodeLossy decodes b as UTF-8, replacing each invalid byte with the
// Unicode replacement character. It never fails on malformed input.
func decodeLossy(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size <= 1 {
			sb.WriteRune(utf8.RuneError)
			b = b[1:]
			continue
		}
		sb.WriteRune(r)
		b = b[size:]
	}
	return sb.String()
}
