package dbtrace

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	// This identifies the library in traces and metrics.
	scope = "github.com/kroma-labs/dbtrace-go/dbtrace"
)

// CursorFactory produces the underlying cursor for a traced connection.
// The default factory calls Conn.Cursor on the underlying connection.
type CursorFactory func(conn dbapi.Conn) (dbapi.Cursor, error)

// config holds the configuration shared by a traced connection and the
// cursors it produces. No field is mutated after newConfig returns;
// per-cursor overrides operate on copies resolved at the call site.
type config struct {
	// TracerProvider is the tracer provider to use.
	// If not set, uses the global provider via otel.GetTracerProvider().
	TracerProvider trace.TracerProvider

	// MeterProvider is the meter provider to use.
	// If not set, uses the global provider via otel.GetMeterProvider().
	MeterProvider metric.MeterProvider

	// Tracer is the tracer instance created from TracerProvider.
	Tracer trace.Tracer

	// Meter is the meter instance created from MeterProvider.
	Meter metric.Meter

	// Metrics holds the metric instruments.
	Metrics *metrics

	// SpanTags are static attributes added to every span this
	// configuration produces, after the standard tags.
	SpanTags []attribute.KeyValue

	// Per-operation trace flags. All default to true. A false flag makes
	// the corresponding operation a plain pass-through call: no span, no
	// statement normalization.
	TraceCommit      bool
	TraceRollback    bool
	TraceExecute     bool
	TraceExecuteMany bool
	TraceCallProc    bool

	// QuerySanitizer rewrites statement text before it is recorded in the
	// db.statement tag. If nil, statements are recorded as-is.
	QuerySanitizer func(query string) string

	// ErrorEvent selects the error-reporting mode: false (default) records
	// failures as discrete span attributes, true as a single structured
	// span event carrying the stack trace.
	ErrorEvent bool

	// CursorFactory overrides how underlying cursors are obtained.
	CursorFactory CursorFactory

	// Registry resolves capability-preserving wrapper shapes for
	// connections and cursors instrumented through Connect.
	Registry *Registry

	// Logger receives diagnostics from paths that must not fail the
	// caller, such as a rollback error during scoped cleanup.
	Logger zerolog.Logger
}

// newConfig creates a new config with defaults and applies options.
func newConfig(opts ...Option) *config {
	cfg := &config{
		TracerProvider:   otel.GetTracerProvider(),
		MeterProvider:    otel.GetMeterProvider(),
		TraceCommit:      true,
		TraceRollback:    true,
		TraceExecute:     true,
		TraceExecuteMany: true,
		TraceCallProc:    true,
		Registry:         DefaultRegistry,
		Logger:           zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	// Initialize tracer and meter after options are applied. Without a
	// configured global provider these are no-op implementations.
	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Initialize metrics (ignore errors, will just be nil if fails)
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// sanitize applies the configured query sanitizer, if any.
func (cfg *config) sanitize(query string) string {
	if cfg.QuerySanitizer != nil {
		return cfg.QuerySanitizer(query)
	}
	return query
}

// Option configures the instrumentation.
type Option func(*config)

// WithTracerProvider sets a custom tracer provider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *config) {
		cfg.TracerProvider = tp
	}
}

// WithMeterProvider sets a custom meter provider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *config) {
		cfg.MeterProvider = mp
	}
}

// WithSpanTags adds static string tags to every span produced under this
// configuration, alongside the standard db.type and statement tags.
//
// Example:
//
//	conn := dbtrace.WrapConn(raw,
//	    dbtrace.WithSpanTags(map[string]string{"peer.service": "orders-db"}),
//	)
func WithSpanTags(tags map[string]string) Option {
	return func(cfg *config) {
		for k, v := range tags {
			cfg.SpanTags = append(cfg.SpanTags, attribute.String(k, v))
		}
	}
}

// WithAttributes adds static attributes to every span produced under this
// configuration. Use this instead of WithSpanTags for non-string values.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(cfg *config) {
		cfg.SpanTags = append(cfg.SpanTags, attrs...)
	}
}

// WithTraceCommit enables or disables spans for commit operations.
// Enabled by default.
func WithTraceCommit(enabled bool) Option {
	return func(cfg *config) {
		cfg.TraceCommit = enabled
	}
}

// WithTraceRollback enables or disables spans for rollback operations.
// Enabled by default.
func WithTraceRollback(enabled bool) Option {
	return func(cfg *config) {
		cfg.TraceRollback = enabled
	}
}

// WithTraceExecute enables or disables spans for Execute operations.
// Enabled by default.
func WithTraceExecute(enabled bool) Option {
	return func(cfg *config) {
		cfg.TraceExecute = enabled
	}
}

// WithTraceExecuteMany enables or disables spans for ExecuteMany operations.
// Enabled by default.
func WithTraceExecuteMany(enabled bool) Option {
	return func(cfg *config) {
		cfg.TraceExecuteMany = enabled
	}
}

// WithTraceCallProc enables or disables spans for CallProc operations.
// Enabled by default.
func WithTraceCallProc(enabled bool) Option {
	return func(cfg *config) {
		cfg.TraceCallProc = enabled
	}
}

// WithQuerySanitizer sets a sanitizer applied to statement text before it is
// recorded in the db.statement tag. The operation-name fragment is not
// sanitized; it only ever contains the leading statement keyword.
func WithQuerySanitizer(fn func(string) string) Option {
	return func(cfg *config) {
		cfg.QuerySanitizer = fn
	}
}

// WithErrorEvent switches error reporting from discrete span attributes
// (sfx.error.message, sfx.error.object, sfx.error.kind, sfx.error.stack) to
// a single structured span event carrying the stack trace as error.object.
func WithErrorEvent() Option {
	return func(cfg *config) {
		cfg.ErrorEvent = true
	}
}

// WithCursorFactory sets the default factory used to obtain underlying
// cursors. Individual Cursor calls may still override it.
func WithCursorFactory(factory CursorFactory) Option {
	return func(cfg *config) {
		cfg.CursorFactory = factory
	}
}

// WithRegistry sets the capability registry used by Connect to resolve
// wrapper shapes. If not called, the process-wide DefaultRegistry is used.
func WithRegistry(r *Registry) Option {
	return func(cfg *config) {
		cfg.Registry = r
	}
}

// WithLogger sets the logger for diagnostics on paths that must not fail
// the caller. Defaults to a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.Logger = logger
	}
}

// cursorConfig is the per-cursor view of the trace configuration, resolved
// at each Cursor call from the connection's config plus call-site overrides.
type cursorConfig struct {
	TraceExecute     bool
	TraceExecuteMany bool
	TraceCallProc    bool
	Factory          CursorFactory
}

// CursorOption overrides cursor behavior for a single Cursor call without
// mutating the connection's configuration.
type CursorOption func(*cursorConfig)

// WithCursorTraceExecute overrides the execute trace flag for one cursor.
func WithCursorTraceExecute(enabled bool) CursorOption {
	return func(cc *cursorConfig) {
		cc.TraceExecute = enabled
	}
}

// WithCursorTraceExecuteMany overrides the executemany trace flag for one
// cursor.
func WithCursorTraceExecuteMany(enabled bool) CursorOption {
	return func(cc *cursorConfig) {
		cc.TraceExecuteMany = enabled
	}
}

// WithCursorTraceCallProc overrides the callproc trace flag for one cursor.
func WithCursorTraceCallProc(enabled bool) CursorOption {
	return func(cc *cursorConfig) {
		cc.TraceCallProc = enabled
	}
}

// WithCursorFactoryOverride overrides the cursor factory for one cursor.
func WithCursorFactoryOverride(factory CursorFactory) CursorOption {
	return func(cc *cursorConfig) {
		cc.Factory = factory
	}
}
