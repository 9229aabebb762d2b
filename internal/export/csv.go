// Package export writes table contents to CSV files and reads such files
// back as row data. It only sees the tables through Source.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
	"github.com/kadirbelkuyu/tableadmin/pkg/progress"
)

const defaultWorkers = 4

type Source interface {
	ListTables(ctx context.Context) ([]string, error)
	GetTableData(ctx context.Context, table string) (*rows.ResultSet, error)
}

type Exporter struct {
	source  Source
	log     *logger.Logger
	workers int
	// Progress draws the bar for ExportAll. Nil means no bar.
	Progress func(total int64) *progress.Bar
}

func NewExporter(source Source, log *logger.Logger, workers int) *Exporter {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Exporter{source: source, log: log, workers: workers}
}

// WriteCSV writes a header row followed by every row in column order. NULL
// is written as an empty field so that reading the file back yields NULL.
func WriteCSV(w io.Writer, result *rows.ResultSet) error {
	out := csv.NewWriter(w)
	if err := out.Write(result.Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i, column := range result.Columns {
			value := row[column]
			if value == nil {
				record[i] = ""
			} else {
				record[i] = rows.FormatValue(value)
			}
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	out.Flush()
	return out.Error()
}

// ReadCSV parses a file written by WriteCSV, or any CSV with a header row,
// into row data keyed by the header names.
func ReadCSV(r io.Reader) ([]rows.RowData, error) {
	in := csv.NewReader(r)
	header, err := in.Read()
	if err == io.EOF {
		return []rows.RowData{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	batch := []rows.RowData{}
	for {
		record, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(batch)+1, err)
		}

		row := make(rows.RowData, len(header))
		for i, column := range header {
			row[column] = record[i]
		}
		batch = append(batch, row)
	}
	return batch, nil
}

// ExportTable writes table into dir/<table>.csv and returns the file path.
func (e *Exporter) ExportTable(ctx context.Context, table, dir string) (string, error) {
	start := time.Now()

	result, err := e.source.GetTableData(ctx, table)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, table+".csv")
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	if err := WriteCSV(file, result); err != nil {
		return "", fmt.Errorf("failed to export %s: %w", table, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to finish %s: %w", path, err)
	}

	e.log.WithField("table", table).Infof("Exported %d rows to %s in %s", len(result.Rows), path, time.Since(start).Round(time.Millisecond))
	return path, nil
}

// ExportAll exports every listed table concurrently, at most workers at a
// time. The first failure cancels the remaining exports.
func (e *Exporter) ExportAll(ctx context.Context, dir string) ([]string, error) {
	tables, err := e.source.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	var bar *progress.Bar
	if e.Progress != nil {
		bar = e.Progress(int64(len(tables)))
		defer bar.Finish()
	}

	paths := make([]string, len(tables))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, table := range tables {
		g.Go(func() error {
			path, err := e.ExportTable(gctx, table, dir)
			if err != nil {
				return fmt.Errorf("table %s: %w", table, err)
			}
			paths[i] = path
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
