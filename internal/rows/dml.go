package rows

import (
	"fmt"
	"strings"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

// Statements renders row level SQL. Values are always bound; only validated
// identifiers reach the statement text.
type Statements struct {
	builder *schema.Builder
}

func NewStatements(schemaName string) *Statements {
	return &Statements{builder: schema.NewBuilder(schemaName)}
}

var quotedKey = `"` + schema.SurrogateKey + `"`

func (s *Statements) Insert(table string, params []Param) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return "", fmt.Errorf("%w: nothing to insert into %s", apperr.ErrSchemaValidation, table)
	}

	columnNames := make([]string, len(params))
	placeholders := make([]string, len(params))
	for i, p := range params {
		quoted, err := schema.QuoteIdentifier("column", p.Column)
		if err != nil {
			return "", err
		}
		columnNames[i] = quoted
		placeholders[i] = p.Cast
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columnNames, ", "),
		strings.Join(placeholders, ", "),
	), nil
}

// Update sets every param and matches the row by surrogate key, which is
// bound to the placeholder following the last param.
func (s *Statements) Update(table string, params []Param) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return "", fmt.Errorf("%w: nothing to update in %s", apperr.ErrSchemaValidation, table)
	}

	setClauses := make([]string, len(params))
	for i, p := range params {
		quoted, err := schema.QuoteIdentifier("column", p.Column)
		if err != nil {
			return "", err
		}
		setClauses[i] = quoted + " = " + p.Cast
	}

	return fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $%d",
		tableName,
		strings.Join(setClauses, ", "),
		quotedKey,
		len(params)+1,
	), nil
}

func (s *Statements) Delete(table string) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s = $1", tableName, quotedKey), nil
}

func (s *Statements) Count(table string) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = $1", tableName, quotedKey), nil
}

func (s *Statements) SelectAll(table string) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	return "SELECT * FROM " + tableName, nil
}

// Search matches rows whose column, rendered as text, contains the bound
// pattern case-insensitively.
func (s *Statements) Search(table, column string) (string, error) {
	tableName, err := s.builder.Qualify(table)
	if err != nil {
		return "", err
	}
	colName, err := schema.QuoteIdentifier("column", column)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT * FROM %s WHERE CAST(%s AS TEXT) ILIKE $1", tableName, colName), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into an ILIKE pattern matching it as a
// literal substring.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
