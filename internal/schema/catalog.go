package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

const resolveTypeQuery = `
	SELECT UPPER(data_type), udt_schema, udt_name
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2 AND column_name = $3
`

const listTablesQuery = `
	SELECT t.table_name
	FROM information_schema.tables t
	WHERE t.table_type = 'BASE TABLE'
	AND t.table_schema = $1
	AND t.table_schema NOT IN ('information_schema', 'pg_catalog', 'pg_toast')
	AND NOT (t.table_name = ANY($2))
	ORDER BY t.table_name
`

const columnsQuery = `
	SELECT
		column_name,
		data_type,
		is_nullable,
		column_default,
		character_maximum_length,
		ordinal_position
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position
`

const primaryKeysQuery = `
	SELECT column_name
	FROM information_schema.key_column_usage
	WHERE table_schema = $1 AND table_name = $2
	AND constraint_name IN (
		SELECT constraint_name
		FROM information_schema.table_constraints
		WHERE table_schema = $1 AND table_name = $2
		AND constraint_type = 'PRIMARY KEY'
	)
	ORDER BY ordinal_position
`

// Catalog reads table and column metadata from information_schema. Nothing
// is cached: every call goes back to the catalog so a schema change is seen
// by the next write.
type Catalog struct {
	schema  string
	hidden  []string
	builder *Builder
	logger  *logger.Logger
}

func NewCatalog(schemaName string, hidden []string, logger *logger.Logger) *Catalog {
	return &Catalog{
		schema:  schemaName,
		hidden:  hidden,
		builder: NewBuilder(schemaName),
		logger:  logger,
	}
}

func (c *Catalog) Schema() string {
	return c.schema
}

// ResolveColumnType returns the canonical SQL type token of table.column.
// An unknown column or a failing catalog query yields ErrTypeResolution,
// except for timeouts, which are reported as ErrBackendTimeout.
func (c *Catalog) ResolveColumnType(ctx context.Context, q Querier, table, column string) (string, error) {
	var dataType, udtSchema, udtName string
	err := q.QueryRowContext(ctx, resolveTypeQuery, c.schema, table, column).Scan(&dataType, &udtSchema, &udtName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: column %q not found in table %q", apperr.ErrTypeResolution, column, table)
	}
	if err != nil {
		if classified := apperr.Backend(err); errors.Is(classified, apperr.ErrBackendTimeout) {
			return "", fmt.Errorf("failed to query type of %s.%s: %w", table, column, classified)
		}
		return "", fmt.Errorf("%w: failed to query type of %s.%s: %w", apperr.ErrTypeResolution, table, column, err)
	}

	sqlType, err := normalizeType(dataType, udtSchema, udtName)
	if err != nil {
		return "", fmt.Errorf("%w: column %q of table %q: %v", apperr.ErrTypeResolution, column, table, err)
	}

	c.logger.Debugf("Resolved %s.%s as %s", table, column, sqlType)
	return sqlType, nil
}

func normalizeType(dataType, udtSchema, udtName string) (string, error) {
	switch dataType {
	case "CHARACTER VARYING":
		return "VARCHAR", nil
	case "CHARACTER":
		// bare CHARACTER means CHAR(1) in a cast and would truncate
		return "BPCHAR", nil
	case "BIT", "BIT VARYING":
		return "VARBIT", nil
	case "ARRAY":
		element := strings.TrimPrefix(udtName, "_")
		if !identifierPattern.MatchString(element) {
			return "", fmt.Errorf("unsupported array element type %q", udtName)
		}
		return element + "[]", nil
	case "USER-DEFINED":
		if !identifierPattern.MatchString(udtSchema) || !identifierPattern.MatchString(udtName) {
			return "", fmt.Errorf("unsupported user-defined type %q.%q", udtSchema, udtName)
		}
		return pq.QuoteIdentifier(udtSchema) + "." + pq.QuoteIdentifier(udtName), nil
	case "":
		return "", fmt.Errorf("catalog returned an empty data type")
	default:
		return dataType, nil
	}
}

// ListTables returns base tables of the configured schema ordered by name,
// without system schemas or hidden bookkeeping tables.
func (c *Catalog) ListTables(ctx context.Context, q Querier) ([]string, error) {
	rows, err := q.QueryContext(ctx, listTablesQuery, c.schema, pq.Array(c.hidden))
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to read table metadata: %w", err)
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

// ListColumns projects zero rows of the table and reports its column names
// in declaration order.
func (c *Catalog) ListColumns(ctx context.Context, q Querier, table string) ([]string, error) {
	tableName, err := c.builder.Qualify(table)
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to project columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read column names: %w", err)
	}
	return columns, rows.Err()
}

// DescribeTable gathers columns, primary key and row count of one table.
func (c *Catalog) DescribeTable(ctx context.Context, q Querier, table string) (*TableInfo, error) {
	tableName, err := c.builder.Qualify(table)
	if err != nil {
		return nil, err
	}

	info := &TableInfo{Name: table, Schema: c.schema}

	if err := c.extractColumns(ctx, q, info); err != nil {
		return nil, err
	}
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("%w: table %q not found in schema %q", apperr.ErrSchemaValidation, table, c.schema)
	}

	if err := c.extractPrimaryKeys(ctx, q, info); err != nil {
		return nil, err
	}

	if err := q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)).Scan(&info.RowCount); err != nil {
		return nil, fmt.Errorf("failed to query row count: %w", err)
	}

	return info, nil
}

func (c *Catalog) extractColumns(ctx context.Context, q Querier, table *TableInfo) error {
	rows, err := q.QueryContext(ctx, columnsQuery, table.Schema, table.Name)
	if err != nil {
		return fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var col Column
		var isNullable string
		var defaultValue sql.NullString
		var maxLength sql.NullInt64

		err := rows.Scan(
			&col.Name,
			&col.DataType,
			&isNullable,
			&defaultValue,
			&maxLength,
			&col.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to read column metadata: %w", err)
		}

		col.IsNullable = isNullable == "YES"
		if defaultValue.Valid {
			col.DefaultValue = &defaultValue.String
		}
		if maxLength.Valid {
			length := int(maxLength.Int64)
			col.MaxLength = &length
		}

		table.Columns = append(table.Columns, col)
	}

	return rows.Err()
}

func (c *Catalog) extractPrimaryKeys(ctx context.Context, q Querier, table *TableInfo) error {
	rows, err := q.QueryContext(ctx, primaryKeysQuery, table.Schema, table.Name)
	if err != nil {
		return fmt.Errorf("failed to query primary key metadata: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var columnName string
		if err := rows.Scan(&columnName); err != nil {
			return fmt.Errorf("failed to read primary key metadata: %w", err)
		}
		table.PrimaryKeys = append(table.PrimaryKeys, columnName)
	}

	return rows.Err()
}
