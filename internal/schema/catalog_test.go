package schema

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func typeRows(dataType, udtSchema, udtName string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"upper", "udt_schema", "udt_name"}).AddRow(dataType, udtSchema, udtName)
}

func TestResolveColumnTypeNormalizesSynonyms(t *testing.T) {
	cases := []struct {
		dataType, udtSchema, udtName string
		want                         string
	}{
		{"CHARACTER VARYING", "pg_catalog", "varchar", "VARCHAR"},
		{"CHARACTER", "pg_catalog", "bpchar", "BPCHAR"},
		{"BIT", "pg_catalog", "bit", "VARBIT"},
		{"INTEGER", "pg_catalog", "int4", "INTEGER"},
		{"TIMESTAMP WITHOUT TIME ZONE", "pg_catalog", "timestamp", "TIMESTAMP WITHOUT TIME ZONE"},
		{"ARRAY", "pg_catalog", "_int4", "int4[]"},
		{"USER-DEFINED", "public", "mood", `"public"."mood"`},
	}

	catalog := NewCatalog("public", nil, logger.Discard())
	for _, tc := range cases {
		db, mock := newMockDB(t)
		mock.ExpectQuery(resolveTypeQuery).
			WithArgs("public", "pets", "col").
			WillReturnRows(typeRows(tc.dataType, tc.udtSchema, tc.udtName))

		got, err := catalog.ResolveColumnType(context.Background(), db, "pets", "col")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		require.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestResolveColumnTypeQueryShape(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT UPPER(data_type), udt_schema, udt_name FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 AND column_name = $3`).
		WithArgs("warehouse", "pets", "name").
		WillReturnRows(typeRows("TEXT", "pg_catalog", "text"))

	got, err := NewCatalog("warehouse", nil, logger.Discard()).ResolveColumnType(context.Background(), db, "pets", "name")
	require.NoError(t, err)
	assert.Equal(t, "TEXT", got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveColumnTypeUnknownColumn(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(resolveTypeQuery).
		WithArgs("public", "pets", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"upper", "udt_schema", "udt_name"}))

	_, err := NewCatalog("public", nil, logger.Discard()).ResolveColumnType(context.Background(), db, "pets", "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTypeResolution)
	assert.Contains(t, err.Error(), `"ghost"`)
}

func TestResolveColumnTypeQueryFailure(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(resolveTypeQuery).
		WithArgs("public", "pets", "name").
		WillReturnError(errors.New("connection reset by peer"))

	_, err := NewCatalog("public", nil, logger.Discard()).ResolveColumnType(context.Background(), db, "pets", "name")
	assert.ErrorIs(t, err, apperr.ErrTypeResolution)
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestResolveColumnTypeTimeout(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(resolveTypeQuery).
		WithArgs("public", "pets", "name").
		WillReturnError(&pq.Error{Code: "57014", Message: "canceling statement due to statement timeout"})

	_, err := NewCatalog("public", nil, logger.Discard()).ResolveColumnType(context.Background(), db, "pets", "name")
	assert.ErrorIs(t, err, apperr.ErrBackendTimeout)
	assert.NotErrorIs(t, err, apperr.ErrTypeResolution)
	assert.Equal(t, apperr.KindBackendTimeout, apperr.KindOf(err))
}

func TestListTablesExcludesHidden(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(listTablesQuery).
		WithArgs("public", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("owners").AddRow("pets"))

	tables, err := NewCatalog("public", []string{"saved_queries"}, logger.Discard()).ListTables(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, []string{"owners", "pets"}, tables)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListTablesEmpty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(listTablesQuery).
		WithArgs("public", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	tables, err := NewCatalog("public", nil, logger.Discard()).ListTables(context.Background(), db)
	require.NoError(t, err)
	assert.NotNil(t, tables)
	assert.Empty(t, tables)
}

func TestListColumnsUsesZeroRowProjection(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT * FROM "public"."pets" LIMIT 0`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "age"}))

	columns, err := NewCatalog("public", nil, logger.Discard()).ListColumns(context.Background(), db, "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "age"}, columns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListColumnsRejectsUnsafeTable(t *testing.T) {
	db, _ := newMockDB(t)
	_, err := NewCatalog("public", nil, logger.Discard()).ListColumns(context.Background(), db, `pets" --`)
	assert.ErrorIs(t, err, apperr.ErrSchemaValidation)
}

func TestDescribeTable(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(columnsQuery).
		WithArgs("public", "pets").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "ordinal_position"}).
			AddRow("id", "integer", "NO", "nextval('pets_id_seq'::regclass)", nil, 1).
			AddRow("name", "character varying", "NO", nil, 255, 2).
			AddRow("age", "integer", "YES", nil, nil, 3))
	mock.ExpectQuery(primaryKeysQuery).
		WithArgs("public", "pets").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	mock.ExpectQuery(`SELECT COUNT(*) FROM "public"."pets"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	info, err := NewCatalog("public", nil, logger.Discard()).DescribeTable(context.Background(), db, "pets")
	require.NoError(t, err)

	require.Len(t, info.Columns, 3)
	assert.Equal(t, "name", info.Columns[1].Name)
	assert.False(t, info.Columns[1].IsNullable)
	require.NotNil(t, info.Columns[1].MaxLength)
	assert.Equal(t, 255, *info.Columns[1].MaxLength)
	assert.True(t, info.Columns[2].IsNullable)
	require.NotNil(t, info.Columns[0].DefaultValue)
	assert.Equal(t, []string{"id"}, info.PrimaryKeys)
	assert.Equal(t, int64(3), info.RowCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDescribeMissingTable(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(columnsQuery).
		WithArgs("public", "ghost").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "column_default", "character_maximum_length", "ordinal_position"}))

	_, err := NewCatalog("public", nil, logger.Discard()).DescribeTable(context.Background(), db, "ghost")
	assert.ErrorIs(t, err, apperr.ErrSchemaValidation)
}
