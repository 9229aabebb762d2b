package rows

import (
	"database/sql"
	"fmt"
	"time"
)

// Row maps column names to scanned values.
type Row map[string]any

// ResultSet keeps the column order the database reported next to the rows.
type ResultSet struct {
	Columns []string
	Rows    []Row
}

// Scan drains rows into a ResultSet. Byte slices become strings.
func Scan(rows *sql.Rows) (*ResultSet, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch column metadata: %w", err)
	}

	result := &ResultSet{Columns: columns, Rows: []Row{}}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
			} else {
				row[column] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Strings renders every row in column order.
func (r *ResultSet) Strings() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		cells := make([]string, len(r.Columns))
		for j, column := range r.Columns {
			cells[j] = FormatValue(row[column])
		}
		out[i] = cells
	}
	return out
}

func FormatValue(value any) string {
	if value == nil {
		return "NULL"
	}
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
