package schema

// SurrogateKey is the column injected when a table has no declared primary key.
// Row operations address rows through it.
const SurrogateKey = "id"

// TableSpec describes a table to be created.
type TableSpec struct {
	Name   string
	Fields []FieldSpec
}

type FieldSpec struct {
	Name         string
	SQLType      string
	NotNull      bool
	Unique       bool
	IsPrimaryKey bool
	DefaultValue *string
}

// ColumnSpec is a column added to an existing table.
type ColumnSpec struct {
	Name    string
	SQLType string
	NotNull bool
}

type TableInfo struct {
	Name        string
	Schema      string
	Columns     []Column
	PrimaryKeys []string
	RowCount    int64
}

type Column struct {
	Name         string
	DataType     string
	IsNullable   bool
	DefaultValue *string
	MaxLength    *int
	Position     int
}
