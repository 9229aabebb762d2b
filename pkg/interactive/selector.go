package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kadirbelkuyu/tableadmin/internal/backup"
)

// Prompter asks line based questions on a terminal.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

func NewPrompter() *Prompter {
	return NewPrompterWith(os.Stdin, os.Stdout)
}

func NewPrompterWith(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(in), out: out}
}

// Confirm defaults to no; only "y" or "yes" confirm.
func (p *Prompter) Confirm(action, target string) bool {
	fmt.Fprintf(p.out, "\nConfirm %s of %s (y/N): ", action, target)
	return p.yes(false)
}

// SelectTable lists tables with a number each and returns the chosen one.
func (p *Prompter) SelectTable(tables []string) (string, error) {
	if len(tables) == 0 {
		return "", fmt.Errorf("no tables found")
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Available tables:")
	fmt.Fprintln(p.out, strings.Repeat("=", 40))
	for i, table := range tables {
		fmt.Fprintf(p.out, "%-4d %s\n", i+1, table)
	}
	fmt.Fprintln(p.out, strings.Repeat("=", 40))

	for {
		fmt.Fprintf(p.out, "\nSelect the table number (1-%d): ", len(tables))

		input, err := p.reader.ReadString('\n')
		if err != nil && strings.TrimSpace(input) == "" {
			return "", fmt.Errorf("unable to read input: %w", err)
		}
		input = strings.TrimSpace(input)

		if input == "" {
			fmt.Fprintln(p.out, "Please enter a number.")
			continue
		}

		choice, err := strconv.Atoi(input)
		if err != nil {
			fmt.Fprintln(p.out, "Please enter a valid number.")
			continue
		}
		if choice < 1 || choice > len(tables) {
			fmt.Fprintf(p.out, "Please select a number between 1 and %d.\n", len(tables))
			continue
		}

		return tables[choice-1], nil
	}
}

// DumpOptions asks for the parts of a dump that are not given as flags.
func (p *Prompter) DumpOptions(defaultDir string) backup.DumpOptions {
	options := backup.DumpOptions{Verbose: true}

	fmt.Fprint(p.out, "Dump schema only? (y/N): ")
	options.SchemaOnly = p.yes(false)

	if !options.SchemaOnly {
		fmt.Fprint(p.out, "Dump data only? (y/N): ")
		options.DataOnly = p.yes(false)
	}

	fmt.Fprintf(p.out, "Output path (leave empty to auto-create under %s/): ", defaultDir)
	options.OutputPath = p.line()

	return options
}

func (p *Prompter) line() string {
	input, _ := p.reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func (p *Prompter) yes(fallback bool) bool {
	switch strings.ToLower(p.line()) {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return fallback
	}
}
