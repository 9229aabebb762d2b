package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
	"github.com/kadirbelkuyu/tableadmin/pkg/progress"
)

type fakeSource struct {
	mu      sync.Mutex
	tables  map[string]*rows.ResultSet
	fail    string
	fetched []string
}

func (f *fakeSource) ListTables(context.Context) ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name)
	}
	return names, nil
}

func (f *fakeSource) GetTableData(_ context.Context, table string) (*rows.ResultSet, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, table)
	f.mu.Unlock()

	if table == f.fail {
		return nil, errors.New("backend execution failed: permission denied")
	}
	return f.tables[table], nil
}

func pets() *rows.ResultSet {
	return &rows.ResultSet{
		Columns: []string{"id", "name", "note"},
		Rows: []rows.Row{
			{"id": int64(1), "name": "Rex", "note": "likes, commas"},
			{"id": int64(2), "name": "Max", "note": nil},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, pets()))

	assert.Equal(t, "id,name,note\n1,Rex,\"likes, commas\"\n2,Max,\n", buf.String())
}

func TestReadCSVRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, pets()))

	batch, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []rows.RowData{
		{"id": "1", "name": "Rex", "note": "likes, commas"},
		{"id": "2", "name": "Max", "note": ""},
	}, batch)
}

func TestReadCSVRejectsRaggedRows(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,name\n1\n"))
	assert.Error(t, err)

	batch, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestExportAll(t *testing.T) {
	source := &fakeSource{tables: map[string]*rows.ResultSet{
		"pets":   pets(),
		"owners": {Columns: []string{"id"}, Rows: []rows.Row{}},
	}}
	exporter := NewExporter(source, logger.Discard(), 2)
	exporter.Progress = progress.Discard

	dir := t.TempDir()
	paths, err := exporter.ExportAll(context.Background(), dir)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{filepath.Join(dir, "pets.csv"), filepath.Join(dir, "owners.csv")}, paths)

	content, err := os.ReadFile(filepath.Join(dir, "owners.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id\n", string(content))
}

func TestExportAllReportsFailingTable(t *testing.T) {
	source := &fakeSource{
		tables: map[string]*rows.ResultSet{"pets": pets()},
		fail:   "pets",
	}
	exporter := NewExporter(source, logger.Discard(), 0)

	_, err := exporter.ExportAll(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table pets")
}
