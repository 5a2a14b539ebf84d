package dbtrace

import (
	"context"
	"fmt"
	"regexp"
	"runtime/debug"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span tag keys. These must match the keys existing dashboards filter on.
const (
	dbTypeKey       = "db.type"
	dbStatementKey  = "db.statement"
	rowsProducedKey = "db.rows_produced"

	errorMessageKey = "sfx.error.message"
	errorObjectKey  = "sfx.error.object"
	errorKindKey    = "sfx.error.kind"
	errorStackKey   = "sfx.error.stack"
)

// dbType is the value of the db.type tag on every span this package
// produces.
const dbType = "sql"

// Regex patterns for query sanitization.
var (
	// stringLiteralRegex matches single-quoted strings, handling escaped quotes.
	// Example matches: 'hello', 'it\'s', 'foo''bar'
	stringLiteralRegex = regexp.MustCompile(`'(?:[^'\\]|\\.)*'`)

	// numericLiteralRegex matches numeric literals (integers and floats).
	// Example matches: 123, 45.67, 0.5
	numericLiteralRegex = regexp.MustCompile(`\b\d+\.?\d*\b`)

	// hexLiteralRegex matches hex literals.
	// Example matches: 0xDEADBEEF, 0xFF, 0x1a2b
	hexLiteralRegex = regexp.MustCompile(`0[xX][0-9a-fA-F]+`)
)

// DefaultQuerySanitizer is a basic query sanitizer that replaces
// literal values with placeholders to prevent sensitive data from
// appearing in traces.
//
// What it sanitizes:
//   - String literals: 'john' → '?'
//   - Numeric literals: 123, 45.67 → ?
//   - Hex literals: 0xDEADBEEF → ?
//
// Example:
//
//	DefaultQuerySanitizer("SELECT * FROM users WHERE id = 123")
//	// returns "SELECT * FROM users WHERE id = ?"
//
// Note: This is a simple regex-based implementation. For production use
// with complex queries, consider using a proper SQL parser.
func DefaultQuerySanitizer(query string) string {
	query = stringLiteralRegex.ReplaceAllString(query, "'?'")
	query = numericLiteralRegex.ReplaceAllString(query, "?")
	query = hexLiteralRegex.ReplaceAllString(query, "?")

	return query
}

// startSpan opens one client span for a traced operation, pre-tagged with
// the database type, any operation-specific attributes, and the configured
// static tags. The span becomes a child of whatever span is active in ctx.
func (cfg *config) startSpan(
	ctx context.Context,
	name string,
	extra ...attribute.KeyValue,
) (context.Context, trace.Span) {
	attrs := make([]attribute.KeyValue, 0, len(extra)+len(cfg.SpanTags)+1)
	attrs = append(attrs, attribute.String(dbTypeKey, dbType))
	attrs = append(attrs, extra...)
	attrs = append(attrs, cfg.SpanTags...)

	return cfg.Tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// recordError marks the span as failed and attaches the error detail in the
// configured reporting mode. The error itself is always handed back to the
// caller unchanged; this only produces span bookkeeping.
func (cfg *config) recordError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())

	stack := string(debug.Stack())
	if cfg.ErrorEvent {
		span.AddEvent("error", trace.WithAttributes(
			attribute.String("error.object", stack),
		))
		return
	}

	span.SetAttributes(
		attribute.String(errorMessageKey, err.Error()),
		attribute.String(errorObjectKey, fmt.Sprintf("%T", err)),
		attribute.String(errorKindKey, typeName(err, "error")),
		attribute.String(errorStackKey, stack),
	)
}
