package app

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/kadirbelkuyu/tableadmin/internal/rows"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
)

// maxCellWidth truncates long values in table output only.
const maxCellWidth = 48

// Printer writes command results either as aligned text tables or as JSON.
type Printer struct {
	out    io.Writer
	format string
}

func NewPrinter(out io.Writer, format string) (*Printer, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "", FormatTable:
		format = FormatTable
	case FormatJSON:
	default:
		return nil, fmt.Errorf("unsupported output format %q (use table or json)", format)
	}
	return &Printer{out: out, format: format}, nil
}

func (p *Printer) JSON() bool {
	return p.format == FormatJSON
}

// Result prints a result set. JSON output keeps native values; NULL is null.
func (p *Printer) Result(result *rows.ResultSet) error {
	if p.JSON() {
		return p.Value(result.Rows)
	}
	p.Table(result.Columns, result.Strings())
	fmt.Fprintf(p.out, "(%d rows)\n", len(result.Rows))
	return nil
}

// List prints one value per line, or a JSON array.
func (p *Printer) List(items []string) error {
	if p.JSON() {
		return p.Value(items)
	}
	for _, item := range items {
		fmt.Fprintln(p.out, item)
	}
	return nil
}

// Value prints v as indented JSON regardless of the format.
func (p *Printer) Value(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Message prints a line in table mode and an {"status": msg} object in JSON
// mode.
func (p *Printer) Message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p.JSON() {
		return p.Value(map[string]string{"status": msg})
	}
	_, err := fmt.Fprintln(p.out, msg)
	return err
}

// Table aligns cells by display width so wide runes line up.
func (p *Printer) Table(header []string, cells [][]string) {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range cells {
		for i := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], min(runewidth.StringWidth(row[i]), maxCellWidth))
			}
		}
	}

	writeRow := func(values []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			value := ""
			if i < len(values) {
				value = strings.ReplaceAll(values[i], "\n", " ")
			}
			value = runewidth.Truncate(value, widths[i], "…")
			parts[i] = runewidth.FillRight(value, widths[i])
		}
		fmt.Fprintln(p.out, strings.TrimRight(strings.Join(parts, " | "), " "))
	}

	writeRow(header)
	separators := make([]string, len(widths))
	for i, w := range widths {
		separators[i] = strings.Repeat("-", w)
	}
	fmt.Fprintln(p.out, strings.Join(separators, "-+-"))
	for _, row := range cells {
		writeRow(row)
	}
}
