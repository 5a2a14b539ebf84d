package sqlapi

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/dbtrace-go/dbapi"
)

func TestCursor_Execute_Query(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, name from users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ada").
			AddRow(int64(2), "grace"))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	require.NoError(t, cursor.Execute(context.Background(), "select id, name from users"))
	assert.Equal(t, int64(2), cursor.RowCount())

	fetcher := cursor.(dbapi.Fetcher)

	first, err := fetcher.FetchOne()
	require.NoError(t, err)
	assert.Equal(t, dbapi.Row{int64(1), "ada"}, first)

	rest, err := fetcher.FetchAll()
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, dbapi.Row{int64(2), "grace"}, rest[0])

	_, err = fetcher.FetchOne()
	assert.ErrorIs(t, err, io.EOF)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursor_Execute_Exec(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectExec("update users set name = ? where id = ?").
		WithArgs("ada", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	require.NoError(t, cursor.Execute(context.Background(),
		"update users set name = ? where id = ?", "ada", 1))
	assert.Equal(t, int64(1), cursor.RowCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursor_Execute_Error(t *testing.T) {
	conn, mock := newMockConn(t)

	errSyntax := errors.New("syntax error at or near")
	mock.ExpectBegin()
	mock.ExpectExec("update users set").WillReturnError(errSyntax)

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	err = cursor.Execute(context.Background(), "update users set")
	require.ErrorIs(t, err, errSyntax)
	assert.Equal(t, int64(-1), cursor.RowCount())
}

func TestCursor_Execute_StatementForms(t *testing.T) {
	type args struct {
		stmt any
	}

	tests := []struct {
		name     string
		args     args
		wantText string
		wantErr  bool
	}{
		{
			name:     "given byte statement, then passes through as text",
			args:     args{stmt: []byte("delete from t")},
			wantText: "delete from t",
		},
		{
			name: "given composed statement, then renders with the connection",
			args: args{stmt: dbapi.Compose(
				dbapi.SQL("delete from"), dbapi.Identifier{"t"},
			)},
			wantText: `delete from "t"`,
		},
		{
			name:    "given unsupported statement type, then fails without touching the database",
			args:    args{stmt: 42},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock := newMockConn(t)
			if !tt.wantErr {
				mock.ExpectBegin()
				mock.ExpectExec(tt.wantText).
					WillReturnResult(sqlmock.NewResult(0, 0))
			}

			cursor, err := conn.Cursor()
			require.NoError(t, err)

			err = cursor.Execute(context.Background(), tt.args.stmt)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCursor_ExecuteMany(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into t values (?)").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into t values (?)").
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into t values (?)").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	err = cursor.ExecuteMany(context.Background(), "insert into t values (?)",
		[][]any{{1}, {2}, {3}})
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor.RowCount(),
		"the row count totals the whole batch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursor_CallProc(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectExec("CALL refresh_rollups(?, ?)").
		WithArgs("daily", 7).
		WillReturnResult(sqlmock.NewResult(0, 0))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	err = cursor.CallProc(context.Background(), "refresh_rollups", "daily", 7)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCursor_Description(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, name from users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	require.NoError(t, cursor.Execute(context.Background(), "select id, name from users"))

	desc := cursor.(dbapi.Descriptor).Description()
	require.Len(t, desc, 2)
	assert.Equal(t, "id", desc[0].Name)
	assert.Equal(t, "name", desc[1].Name)
}

func TestCursor_ResetBetweenOperations(t *testing.T) {
	conn, mock := newMockConn(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id from users").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("delete from users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	cursor, err := conn.Cursor()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, cursor.Execute(ctx, "select id from users"))
	require.NoError(t, cursor.Execute(ctx, "delete from users"))

	_, err = cursor.(dbapi.Fetcher).FetchOne()
	assert.ErrorIs(t, err, io.EOF, "a new operation discards the previous result set")
	assert.Nil(t, cursor.(dbapi.Descriptor).Description())
}

func TestCursor_ClosedCursorRejectsWork(t *testing.T) {
	conn, _ := newMockConn(t)

	cursor, err := conn.Cursor()
	require.NoError(t, err)
	require.NoError(t, cursor.Close())

	assert.Error(t, cursor.Execute(context.Background(), "select 1"))
}

func TestIsQuery(t *testing.T) {
	type args struct {
		text string
	}

	tests := []struct {
		name string
		args args
		want bool
	}{
		{name: "given select, then query", args: args{text: "select 1"}, want: true},
		{name: "given WITH cte, then query", args: args{text: "WITH c AS (select 1) select * from c"}, want: true},
		{name: "given show, then query", args: args{text: "show tables"}, want: true},
		{name: "given insert, then not a query", args: args{text: "insert into t values (1)"}, want: false},
		{name: "given leading whitespace, then keyword still found", args: args{text: "  SELECT 1"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isQuery(tt.args.text))
		})
	}
}
