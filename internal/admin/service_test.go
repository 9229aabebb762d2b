package admin

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/config"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.ApplyDefaults()

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewService(db, cfg, logger.Discard()), mock
}

func exact(query string) string {
	return "^" + regexp.QuoteMeta(query) + "$"
}

func expectType(mock sqlmock.Sqlmock, column, dataType, udtName string) {
	mock.ExpectQuery("FROM information_schema.columns").
		WithArgs("public", "pets", column).
		WillReturnRows(sqlmock.NewRows([]string{"data_type", "udt_schema", "udt_name"}).
			AddRow(dataType, "pg_catalog", udtName))
}

func expectLockAndCount(mock sqlmock.Sqlmock, id string, count int) {
	mock.ExpectExec(exact(advisoryLockQuery)).
		WithArgs("pets", id).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(exact(`SELECT COUNT(*) FROM "public"."pets" WHERE "id" = $1`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
}

func TestCreateTable(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(exact(`CREATE TABLE "public"."pets" ("id" SERIAL PRIMARY KEY, "name" VARCHAR NOT NULL, "age" INTEGER)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.CreateTable(context.Background(), schema.TableSpec{
		Name: "pets",
		Fields: []schema.FieldSpec{
			{Name: "name", SQLType: "VARCHAR", NotNull: true},
			{Name: "age", SQLType: "INTEGER"},
		},
	})
	require.NoError(t, err)
}

func TestCreateTableBackendFailure(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("CREATE TABLE").
		WillReturnError(&pq.Error{Code: "42P07", Message: `relation "pets" already exists`})

	err := svc.CreateTable(context.Background(), schema.TableSpec{
		Name:   "pets",
		Fields: []schema.FieldSpec{{Name: "name", SQLType: "TEXT"}},
	})
	require.ErrorIs(t, err, apperr.ErrBackendExecution)
	assert.Contains(t, err.Error(), `relation "pets" already exists`)

	var pqErr *pq.Error
	assert.True(t, errors.As(err, &pqErr), "driver error stays in the chain")
}

func TestCreateTableValidatesBeforeExecuting(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.CreateTable(context.Background(), schema.TableSpec{Name: ""})
	assert.ErrorIs(t, err, apperr.ErrSchemaValidation)
}

func TestDeleteTable(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(exact(`DROP TABLE IF EXISTS "public"."pets" CASCADE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.DeleteTable(context.Background(), "pets"))
}

func TestAddColumnsRunsInOneTransaction(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec(exact(`ALTER TABLE "public"."pets" ADD COLUMN "owner" VARCHAR(255) NOT NULL`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(exact(`ALTER TABLE "public"."pets" ADD COLUMN "born" DATE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := svc.AddColumns(context.Background(), "pets", []schema.ColumnSpec{
		{Name: "owner", SQLType: "VARCHAR(255)", NotNull: true},
		{Name: "born", SQLType: "DATE"},
	})
	require.NoError(t, err)
}

func TestAddColumnsReportsFailingColumn(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectBegin()
	mock.ExpectExec("ADD COLUMN \"owner\"").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("ADD COLUMN \"age\"").
		WillReturnError(&pq.Error{Code: "42701", Message: `column "age" of relation "pets" already exists`})
	mock.ExpectRollback()

	err := svc.AddColumns(context.Background(), "pets", []schema.ColumnSpec{
		{Name: "owner", SQLType: "TEXT"},
		{Name: "age", SQLType: "INTEGER"},
	})

	var stepErr *apperr.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Step)
	assert.Equal(t, 2, stepErr.Total)
	assert.Equal(t, "age", stepErr.Target)
	assert.ErrorIs(t, err, apperr.ErrBackendExecution)
}

func TestDeleteColumn(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(exact(`ALTER TABLE "public"."pets" DROP COLUMN "age" CASCADE`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.DeleteColumn(context.Background(), "pets", "age"))
}

func TestDeleteColumns(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec(exact(`ALTER TABLE "public"."pets" DROP COLUMN "age"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, svc.DeleteColumns(context.Background(), "pets", []string{"age"}))

	err := svc.DeleteColumns(context.Background(), "pets", []string{"id"})
	assert.ErrorIs(t, err, apperr.ErrInvalidColumn)
	assert.Equal(t, apperr.KindInvalidColumn, apperr.KindOf(err))
}

func TestListTables(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM information_schema.tables").
		WithArgs("public", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("owners").AddRow("pets"))

	tables, err := svc.ListTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"owners", "pets"}, tables)
}

func TestGetTableData(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(exact(`SELECT * FROM "public"."pets"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Rex").AddRow(int64(2), nil))

	result, err := svc.GetTableData(context.Background(), "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, result.Columns)
	assert.Equal(t, []rows.Row{
		{"id": int64(1), "name": "Rex"},
		{"id": int64(2), "name": nil},
	}, result.Rows)
}

func TestSearchRowsByColumnBindsPattern(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(exact(`SELECT * FROM "public"."pets" WHERE CAST("name" AS TEXT) ILIKE $1`)).
		WithArgs(`%r\_x%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "R_X"))

	result, err := svc.SearchRowsByColumn(context.Background(), "pets", "name", "r_x")
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "R_X", result.Rows[0]["name"])
}

func TestSearchRejectsUnsafeColumn(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SearchRowsByColumn(context.Background(), "pets", "name) OR 1=1 --", "x")
	assert.ErrorIs(t, err, apperr.ErrSchemaValidation)
}

func TestQueryTimeoutIsClassified(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT").
		WillReturnError(&pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"})

	_, err := svc.GetTableData(context.Background(), "pets")
	assert.ErrorIs(t, err, apperr.ErrBackendTimeout)
	assert.Equal(t, apperr.KindBackendTimeout, apperr.KindOf(err))
}

func TestDescribeTable(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT column_name, data_type").
		WithArgs("public", "pets").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "ordinal_position"}).
			AddRow("id", "integer", "NO", "nextval('pets_id_seq'::regclass)", nil, 1).
			AddRow("name", "character varying", "YES", nil, 40, 2))
	mock.ExpectQuery("FROM information_schema.key_column_usage").
		WithArgs("public", "pets").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery(exact(`SELECT COUNT(*) FROM "public"."pets"`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	info, err := svc.DescribeTable(context.Background(), "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, info.PrimaryKeys)
	assert.Equal(t, int64(3), info.RowCount)
	require.Len(t, info.Columns, 2)
	assert.False(t, info.Columns[0].IsNullable)
	require.NotNil(t, info.Columns[1].MaxLength)
	assert.Equal(t, 40, *info.Columns[1].MaxLength)
}
