package rows

import (
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindInteger
	KindFloat
	KindBool
	// KindRaw is text whose conversion is left entirely to the database cast,
	// e.g. dates, numerics, JSON or enums.
	KindRaw
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "raw"
	}
}

// Value is a column value decoded from loosely typed input.
type Value struct {
	kind Kind
	text string
	i    int64
	f    float64
	b    bool
}

func Null() Value { return Value{kind: KindNull} }
func Text(s string) Value { return Value{kind: KindText, text: s} }
func Integer(i int64) Value { return Value{kind: KindInteger, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Raw(s string) Value { return Value{kind: KindRaw, text: s} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Arg returns the value in the form handed to the driver.
func (v Value) Arg() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	default:
		return v.text
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.text
	}
}

// KindFor maps a resolved SQL type token onto the variant used to carry
// values of that column.
func KindFor(sqlType string) Kind {
	switch strings.ToUpper(strings.TrimSpace(sqlType)) {
	case "SMALLINT", "INTEGER", "BIGINT", "INT", "INT2", "INT4", "INT8",
		"SMALLSERIAL", "SERIAL", "BIGSERIAL":
		return KindInteger
	case "REAL", "DOUBLE PRECISION", "FLOAT4", "FLOAT8":
		return KindFloat
	case "BOOLEAN", "BOOL":
		return KindBool
	case "TEXT", "VARCHAR", "BPCHAR", "CHAR", "CITEXT", "NAME":
		return KindText
	default:
		return KindRaw
	}
}

var (
	trueLiterals  = map[string]bool{"t": true, "true": true, "y": true, "yes": true, "on": true, "1": true}
	falseLiterals = map[string]bool{"f": true, "false": true, "n": true, "no": true, "off": true, "0": true}
)

// Decode turns raw input into a Value of the given kind. Empty or all
// whitespace input is NULL. Input that does not parse as the expected kind
// is kept as Raw so the database cast reports the problem.
func Decode(raw string, kind Kind) Value {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Null()
	}

	switch kind {
	case KindInteger:
		if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			return Integer(i)
		}
	case KindFloat:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return Float(f)
		}
	case KindBool:
		lower := strings.ToLower(trimmed)
		if trueLiterals[lower] {
			return Bool(true)
		}
		if falseLiterals[lower] {
			return Bool(false)
		}
	case KindText:
		return Text(raw)
	}
	return Raw(raw)
}
