package dbtrace

import (
	"context"
	"reflect"
	"sync"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

// Registry resolves, once per underlying concrete type, the wrapper shape
// whose static type satisfies exactly the optional capabilities (Pinger and
// Validator for connections, Fetcher and Descriptor for cursors) that the
// underlying type satisfies. Application code that type-asserts those
// capabilities on a connection it did not wrap keeps working.
//
// A Registry is safe for concurrent use. Both maps are guarded by one lock,
// held only for the check-and-insert step; resolving a shape never calls
// into the underlying driver.
type Registry struct {
	mu      sync.Mutex
	conns   map[reflect.Type]connShape
	cursors map[reflect.Type]cursorShape
}

// DefaultRegistry is the process-wide registry used when no registry is
// configured explicitly.
var DefaultRegistry = NewRegistry()

// NewRegistry creates an empty capability registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:   make(map[reflect.Type]connShape),
		cursors: make(map[reflect.Type]cursorShape),
	}
}

type connShape uint8

const (
	connCapPing connShape = 1 << iota
	connCapValidate
)

type cursorShape uint8

const (
	cursorCapFetch cursorShape = 1 << iota
	cursorCapDescribe
)

var (
	pingerType     = reflect.TypeOf((*dbapi.Pinger)(nil)).Elem()
	validatorType  = reflect.TypeOf((*dbapi.Validator)(nil)).Elem()
	fetcherType    = reflect.TypeOf((*dbapi.Fetcher)(nil)).Elem()
	descriptorType = reflect.TypeOf((*dbapi.Descriptor)(nil)).Elem()
)

// connShapeFor returns the cached shape for the given underlying connection
// type, computing and caching it on first sight.
func (r *Registry) connShapeFor(t reflect.Type) connShape {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shape, ok := r.conns[t]; ok {
		return shape
	}

	var shape connShape
	if t.Implements(pingerType) {
		shape |= connCapPing
	}
	if t.Implements(validatorType) {
		shape |= connCapValidate
	}
	r.conns[t] = shape
	return shape
}

// cursorShapeFor returns the cached shape for the given underlying cursor
// type, computing and caching it on first sight.
func (r *Registry) cursorShapeFor(t reflect.Type) cursorShape {
	r.mu.Lock()
	defer r.mu.Unlock()

	if shape, ok := r.cursors[t]; ok {
		return shape
	}

	var shape cursorShape
	if t.Implements(fetcherType) {
		shape |= cursorCapFetch
	}
	if t.Implements(descriptorType) {
		shape |= cursorCapDescribe
	}
	r.cursors[t] = shape
	return shape
}

// wrapConn dresses a traced connection in the shape matching its underlying
// type's capabilities.
func (r *Registry) wrapConn(c *Conn) dbapi.Conn {
	shell := connShell{c}
	switch r.connShapeFor(reflect.TypeOf(c.conn)) {
	case connCapPing:
		return pingerConn{shell}
	case connCapValidate:
		return validatorConn{shell}
	case connCapPing | connCapValidate:
		return pingerValidatorConn{shell}
	default:
		return shell
	}
}

// wrapCursor dresses a traced cursor in the shape matching its underlying
// type's capabilities.
func (r *Registry) wrapCursor(c *Cursor) dbapi.Cursor {
	switch r.cursorShapeFor(reflect.TypeOf(c.cursor)) {
	case cursorCapFetch:
		return fetcherCursor{c}
	case cursorCapDescribe:
		return descriptorCursor{c}
	case cursorCapFetch | cursorCapDescribe:
		return fetcherDescriptorCursor{c}
	default:
		return c
	}
}

// connShell adapts *Conn to the dbapi.Conn contract; the cursors it hands
// out are registry-wrapped so their capabilities survive too. It is the base
// every composed connection shape embeds.
type connShell struct {
	*Conn
}

// Cursor implements dbapi.Conn.
func (s connShell) Cursor() (dbapi.Cursor, error) {
	cursor, err := s.Conn.Cursor()
	if err != nil {
		return nil, err
	}
	return s.Conn.cfg.Registry.wrapCursor(cursor), nil
}

type pingerConn struct {
	connShell
}

// Ping delegates to the underlying connection. Liveness checks are not
// traced operations.
func (c pingerConn) Ping(ctx context.Context) error {
	return c.Conn.conn.(dbapi.Pinger).Ping(ctx)
}

type validatorConn struct {
	connShell
}

// IsValid delegates to the underlying connection.
func (c validatorConn) IsValid() bool {
	return c.Conn.conn.(dbapi.Validator).IsValid()
}

type pingerValidatorConn struct {
	connShell
}

func (c pingerValidatorConn) Ping(ctx context.Context) error {
	return c.Conn.conn.(dbapi.Pinger).Ping(ctx)
}

func (c pingerValidatorConn) IsValid() bool {
	return c.Conn.conn.(dbapi.Validator).IsValid()
}

type fetcherCursor struct {
	*Cursor
}

// FetchOne delegates to the underlying cursor. Fetches are not traced
// operations; they read rows the traced execute already produced.
func (c fetcherCursor) FetchOne() (dbapi.Row, error) {
	return c.Cursor.cursor.(dbapi.Fetcher).FetchOne()
}

// FetchAll delegates to the underlying cursor.
func (c fetcherCursor) FetchAll() ([]dbapi.Row, error) {
	return c.Cursor.cursor.(dbapi.Fetcher).FetchAll()
}

type descriptorCursor struct {
	*Cursor
}

// Description delegates to the underlying cursor.
func (c descriptorCursor) Description() []dbapi.Column {
	return c.Cursor.cursor.(dbapi.Descriptor).Description()
}

type fetcherDescriptorCursor struct {
	*Cursor
}

func (c fetcherDescriptorCursor) FetchOne() (dbapi.Row, error) {
	return c.Cursor.cursor.(dbapi.Fetcher).FetchOne()
}

func (c fetcherDescriptorCursor) FetchAll() ([]dbapi.Row, error) {
	return c.Cursor.cursor.(dbapi.Fetcher).FetchAll()
}

func (c fetcherDescriptorCursor) Description() []dbapi.Column {
	return c.Cursor.cursor.(dbapi.Descriptor).Description()
}
