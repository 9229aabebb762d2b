package rows

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

// RowData is loosely typed row input keyed by column name. Blank values
// stand for NULL.
type RowData map[string]string

// Columns returns the keys in a stable order so generated statements are
// deterministic.
func (d RowData) Columns() []string {
	columns := make([]string, 0, len(d))
	for column := range d {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// Without returns a copy of d lacking the given column.
func (d RowData) Without(column string) RowData {
	out := make(RowData, len(d))
	for k, v := range d {
		if k != column {
			out[k] = v
		}
	}
	return out
}

// ParseID parses a row identifier in its string form.
func ParseID(id string) (int64, error) {
	parsed, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", apperr.ErrInvalidIdentifier, id)
	}
	return parsed, nil
}

// TypeResolver looks up the declared SQL type of a column.
type TypeResolver interface {
	ResolveColumnType(ctx context.Context, q schema.Querier, table, column string) (string, error)
}

// Param is one encoded column: the cast expression holding its placeholder
// and the value bound to it.
type Param struct {
	Column string
	Cast   string
	Value  Value
}

type Codec struct {
	types TypeResolver
}

func NewCodec(types TypeResolver) *Codec {
	return &Codec{types: types}
}

// EncodeForWrite resolves the type of every column in data and wraps its
// placeholder in an explicit cast, numbering placeholders from
// firstPlaceholder. The surrogate key is always bound as an integer.
func (c *Codec) EncodeForWrite(ctx context.Context, q schema.Querier, table string, data RowData, firstPlaceholder int) ([]Param, error) {
	params := make([]Param, 0, len(data))

	for i, column := range data.Columns() {
		if err := schema.ValidateIdentifier("column", column); err != nil {
			return nil, err
		}

		sqlType, err := c.types.ResolveColumnType(ctx, q, table, column)
		if err != nil {
			return nil, err
		}

		var value Value
		if column == schema.SurrogateKey {
			id, err := ParseID(data[column])
			if err != nil {
				return nil, err
			}
			value = Integer(id)
		} else {
			value = Decode(data[column], KindFor(sqlType))
		}

		params = append(params, Param{
			Column: column,
			Cast:   fmt.Sprintf("CAST($%d AS %s)", firstPlaceholder+i, sqlType),
			Value:  value,
		})
	}

	return params, nil
}

// Args returns the bound values of params in placeholder order.
func Args(params []Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Value.Arg()
	}
	return args
}
