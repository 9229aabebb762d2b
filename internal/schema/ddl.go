package schema

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
)

const surrogateKeyDefinition = `"id" SERIAL PRIMARY KEY`

// Builder renders DDL for tables inside one schema. It never executes
// anything; every identifier is validated before it is quoted into the text.
type Builder struct {
	schema string
}

func NewBuilder(schemaName string) *Builder {
	return &Builder{schema: schemaName}
}

// Qualify returns the schema qualified, quoted table name.
func (b *Builder) Qualify(table string) (string, error) {
	quotedSchema, err := QuoteIdentifier("schema", b.schema)
	if err != nil {
		return "", err
	}
	quotedTable, err := QuoteIdentifier("table", table)
	if err != nil {
		return "", err
	}
	return quotedSchema + "." + quotedTable, nil
}

// CreateTable emits one CREATE TABLE statement. Fields marked primary are
// combined into a single composite PRIMARY KEY in field order; without any,
// a SERIAL id column is declared first.
func (b *Builder) CreateTable(spec TableSpec) (string, error) {
	tableName, err := b.Qualify(spec.Name)
	if err != nil {
		return "", err
	}

	var columnDefs []string
	var primaryKeys []string
	seen := make(map[string]bool, len(spec.Fields))

	for _, field := range spec.Fields {
		colName, err := QuoteIdentifier("column", field.Name)
		if err != nil {
			return "", err
		}
		if seen[field.Name] {
			return "", fmt.Errorf("%w: column %q is declared more than once", apperr.ErrSchemaValidation, field.Name)
		}
		seen[field.Name] = true

		sqlType, err := ValidateSQLType(field.SQLType)
		if err != nil {
			return "", fmt.Errorf("column %q: %w", field.Name, err)
		}

		colDef := colName + " " + sqlType
		if field.NotNull {
			colDef += " NOT NULL"
		}
		if field.Unique {
			colDef += " UNIQUE"
		}
		if field.DefaultValue != nil {
			colDef += " DEFAULT " + pq.QuoteLiteral(*field.DefaultValue)
		}
		if field.IsPrimaryKey {
			primaryKeys = append(primaryKeys, colName)
		}

		columnDefs = append(columnDefs, colDef)
	}

	if len(primaryKeys) == 0 {
		if seen[SurrogateKey] {
			return "", fmt.Errorf("%w: column %q collides with the generated surrogate key; mark a primary key or rename it",
				apperr.ErrSchemaValidation, SurrogateKey)
		}
		columnDefs = append([]string{surrogateKeyDefinition}, columnDefs...)
	} else {
		columnDefs = append(columnDefs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(primaryKeys, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", tableName, strings.Join(columnDefs, ", ")), nil
}

// DropTable is idempotent: dropping a missing table is not an error.
func (b *Builder) DropTable(table string) (string, error) {
	tableName, err := b.Qualify(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", tableName), nil
}

// AddColumns returns one ALTER TABLE statement per column. The statements are
// meant to run independently; nothing is rolled back if a later one fails.
func (b *Builder) AddColumns(table string, columns []ColumnSpec) ([]string, error) {
	tableName, err := b.Qualify(table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns to add", apperr.ErrSchemaValidation)
	}

	statements := make([]string, 0, len(columns))
	for _, col := range columns {
		colName, err := QuoteIdentifier("column", col.Name)
		if err != nil {
			return nil, err
		}
		sqlType, err := ValidateSQLType(col.SQLType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}

		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", tableName, colName, sqlType)
		if col.NotNull {
			stmt += " NOT NULL"
		}
		statements = append(statements, stmt)
	}

	return statements, nil
}

func (b *Builder) DropColumn(table, column string) (string, error) {
	tableName, err := b.Qualify(table)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(column) == "" {
		return "", fmt.Errorf("%w: column name is empty", apperr.ErrInvalidColumn)
	}
	colName, err := QuoteIdentifier("column", column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s CASCADE", tableName, colName), nil
}

// DropColumns drops every column in one statement. The surrogate key can
// never be part of the list.
func (b *Builder) DropColumns(table string, columns []string) (string, error) {
	tableName, err := b.Qualify(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("%w: no columns to drop", apperr.ErrInvalidColumn)
	}

	clauses := make([]string, 0, len(columns))
	for _, column := range columns {
		if strings.TrimSpace(column) == "" {
			return "", fmt.Errorf("%w: blank column name in drop list", apperr.ErrInvalidColumn)
		}
		if strings.EqualFold(strings.TrimSpace(column), SurrogateKey) {
			return "", fmt.Errorf("%w: column %q is the surrogate key and cannot be dropped", apperr.ErrInvalidColumn, column)
		}
		colName, err := QuoteIdentifier("column", column)
		if err != nil {
			return "", err
		}
		clauses = append(clauses, "DROP COLUMN "+colName)
	}

	return fmt.Sprintf("ALTER TABLE %s %s", tableName, strings.Join(clauses, ", ")), nil
}
