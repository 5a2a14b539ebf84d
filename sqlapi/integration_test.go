package sqlapi_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kroma-labs/dbtrace-go/dbapi"
	"github.com/kroma-labs/dbtrace-go/dbtrace"
	"github.com/kroma-labs/dbtrace-go/sqlapi"
)

func TestTracedAdapter_EndToEnd(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select id from users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectCommit()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx := context.Background()
	conn, err := dbtrace.Connect(ctx,
		dbapi.ConnectorFunc(func(context.Context) (dbapi.Conn, error) {
			return sqlapi.WrapDB(db), nil
		}),
		dbtrace.WithTracerProvider(tp),
		dbtrace.WithRegistry(dbtrace.NewRegistry()),
	)
	require.NoError(t, err)

	_, ok := conn.(dbapi.Pinger)
	assert.True(t, ok, "the adapter's Ping capability survives wrapping")

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	require.NoError(t, cursor.Execute(ctx, "select id from users"))

	fetcher, ok := cursor.(dbapi.Fetcher)
	require.True(t, ok, "the adapter's Fetcher capability survives wrapping")

	rows, err := fetcher.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, dbapi.Row{int64(7)}, rows[0])

	require.NoError(t, conn.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "Cursor.execute(select)", spans[0].Name())
	assert.Equal(t, "Conn.commit()", spans[1].Name())

	var statement string
	for _, kv := range spans[0].Attributes() {
		if string(kv.Key) == "db.statement" {
			statement = kv.Value.AsString()
		}
	}
	assert.Equal(t, "select id from users", statement)
}

func TestTracedAdapter_ScopedUnitOfWork(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("insert into t values (?)").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	conn := dbtrace.WrapConn(sqlapi.WrapDB(db))
	ctx := context.Background()

	err = conn.WithCursor(ctx, func(cursor *dbtrace.Cursor) error {
		return cursor.Execute(ctx, "insert into t values (?)", 1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
