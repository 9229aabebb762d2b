package schema

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
)

// maxIdentifierLength mirrors PostgreSQL's NAMEDATALEN-1.
const maxIdentifierLength = 63

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	sqlTypePattern    = regexp.MustCompile(`(?i)^(` +
		`(DOUBLE\s+PRECISION)` +
		`|((CHARACTER|CHAR|BIT)\s+VARYING(\s*\(\s*\d+\s*\))?)` +
		`|((TIMESTAMP|TIME)(\s*\(\s*\d+\s*\))?\s+(WITH|WITHOUT)\s+TIME\s+ZONE)` +
		`|(INTERVAL(\s+(YEAR|MONTH|DAY|HOUR|MINUTE|SECOND)(\s+TO\s+(MONTH|HOUR|MINUTE|SECOND))?)?(\s*\(\s*\d+\s*\))?)` +
		`|([A-Za-z_][A-Za-z0-9_]*(\s*\(\s*\d+(\s*,\s*\d+)?\s*\))?)` +
		`)(\s*\[\d*\])*$`)

	// constraintKeywords may never stand in for a type name.
	constraintKeywords = map[string]bool{
		"PRIMARY": true, "KEY": true, "REFERENCES": true, "DEFAULT": true, "CHECK": true,
		"NOT": true, "NULL": true, "UNIQUE": true, "CONSTRAINT": true, "COLLATE": true,
		"GENERATED": true, "FOREIGN": true,
	}
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ValidateIdentifier rejects anything but letters, digits and underscores
// not starting with a digit. Identifiers cannot be bound as parameters, so
// every table or column name passes through here before it reaches SQL text.
func ValidateIdentifier(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is empty", apperr.ErrSchemaValidation, kind)
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("%w: %s name %q exceeds %d characters", apperr.ErrSchemaValidation, kind, name, maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s name %q may only contain letters, digits and underscores and must not start with a digit",
			apperr.ErrSchemaValidation, kind, name)
	}
	return nil
}

// QuoteIdentifier validates name and returns it double quoted.
func QuoteIdentifier(kind, name string) (string, error) {
	if err := ValidateIdentifier(kind, name); err != nil {
		return "", err
	}
	return pq.QuoteIdentifier(name), nil
}

// ValidateSQLType accepts engine type tokens such as INTEGER, VARCHAR(255),
// NUMERIC(10, 2), TIMESTAMP WITH TIME ZONE or TEXT[]. Multi-word tokens are
// limited to the standard multi-word type names, so no constraint clause
// can ride along with a type.
func ValidateSQLType(sqlType string) (string, error) {
	trimmed := strings.TrimSpace(sqlType)
	if trimmed == "" {
		return "", fmt.Errorf("%w: column type is empty", apperr.ErrSchemaValidation)
	}
	name, _, _ := strings.Cut(trimmed, "(")
	name, _, _ = strings.Cut(name, "[")
	if !sqlTypePattern.MatchString(trimmed) || constraintKeywords[strings.ToUpper(strings.TrimSpace(name))] {
		return "", fmt.Errorf("%w: column type %q is not a recognised type token", apperr.ErrSchemaValidation, sqlType)
	}
	return trimmed, nil
}
