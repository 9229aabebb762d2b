package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/export"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

// ParseFieldSpec reads name:TYPE[:notnull][:unique][:primary][:default=value].
// Everything after default= belongs to the value, colons included.
func ParseFieldSpec(input string) (schema.FieldSpec, error) {
	parts := strings.Split(input, ":")
	if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return schema.FieldSpec{}, fmt.Errorf("%w: field %q must look like name:TYPE[:flags]", apperr.ErrSchemaValidation, input)
	}

	field := schema.FieldSpec{
		Name:    strings.TrimSpace(parts[0]),
		SQLType: strings.TrimSpace(parts[1]),
	}

	for i := 2; i < len(parts); i++ {
		flag := strings.TrimSpace(parts[i])
		if value, ok := strings.CutPrefix(flag, "default="); ok {
			value = strings.Join(append([]string{value}, parts[i+1:]...), ":")
			field.DefaultValue = &value
			break
		}
		switch strings.ToLower(flag) {
		case "notnull", "not_null":
			field.NotNull = true
		case "unique":
			field.Unique = true
		case "primary", "pk":
			field.IsPrimaryKey = true
		default:
			return schema.FieldSpec{}, fmt.Errorf("%w: unknown flag %q in field %q", apperr.ErrSchemaValidation, flag, input)
		}
	}
	return field, nil
}

// ParseColumnSpec reads name:TYPE[:notnull] for columns added to an
// existing table.
func ParseColumnSpec(input string) (schema.ColumnSpec, error) {
	field, err := ParseFieldSpec(input)
	if err != nil {
		return schema.ColumnSpec{}, err
	}
	if field.Unique || field.IsPrimaryKey || field.DefaultValue != nil {
		return schema.ColumnSpec{}, fmt.Errorf("%w: only the notnull flag applies to added columns (%q)", apperr.ErrSchemaValidation, input)
	}
	return schema.ColumnSpec{Name: field.Name, SQLType: field.SQLType, NotNull: field.NotNull}, nil
}

// ParseAssignments turns key=value arguments into row data. An empty value
// means NULL.
func ParseAssignments(args []string) (rows.RowData, error) {
	data := make(rows.RowData, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q is not a column=value pair", apperr.ErrSchemaValidation, arg)
		}
		if _, dup := data[key]; dup {
			return nil, fmt.Errorf("%w: column %q is assigned twice", apperr.ErrSchemaValidation, key)
		}
		data[key] = value
	}
	return data, nil
}

// ReadRowsFile loads a batch of rows from a .json array of objects or a
// .csv file with a header row.
func ReadRowsFile(path string) ([]rows.RowData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rows file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return export.ReadCSV(file)
	case ".json":
		dec := json.NewDecoder(file)
		dec.UseNumber()

		var objects []map[string]any
		if err := dec.Decode(&objects); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		batch := make([]rows.RowData, len(objects))
		for i, object := range objects {
			row := make(rows.RowData, len(object))
			for key, value := range object {
				text, err := jsonText(value)
				if err != nil {
					return nil, fmt.Errorf("row %d column %s: %w", i+1, key, err)
				}
				row[key] = text
			}
			batch[i] = row
		}
		return batch, nil
	default:
		return nil, fmt.Errorf("unsupported rows file %q (use .json or .csv)", path)
	}
}

// jsonText renders a decoded JSON value the way a user would type it.
// Objects and arrays stay JSON so json/jsonb columns receive them intact.
func jsonText(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case json.Number:
		return numberText(v), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v); err != nil {
			return "", err
		}
		return strings.TrimSpace(buf.String()), nil
	}
}

// numberText writes integral numbers such as 1.0 or 1e0 as plain integers,
// so they stay usable as row ids. Other numbers keep their text.
func numberText(n json.Number) string {
	text := n.String()
	if _, err := n.Int64(); err == nil {
		return text
	}
	if r, ok := new(big.Rat).SetString(text); ok && r.IsInt() {
		return r.Num().String()
	}
	return text
}
