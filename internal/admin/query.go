package admin

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

func (s *Service) ListTables(ctx context.Context) ([]string, error) {
	ctx, cancel, entry := s.begin(ctx, "list_tables", "")
	defer cancel()

	tables, err := s.catalog.ListTables(ctx, s.db)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Failed to list tables")
		return nil, err
	}

	entry.WithField("tables", len(tables)).Debug("Tables listed")
	return tables, nil
}

// ListColumns returns the column names of table in declaration order.
func (s *Service) ListColumns(ctx context.Context, table string) ([]string, error) {
	ctx, cancel, entry := s.begin(ctx, "list_columns", table)
	defer cancel()

	columns, err := s.catalog.ListColumns(ctx, s.db, table)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Failed to list columns")
		return nil, err
	}
	return columns, nil
}

func (s *Service) DescribeTable(ctx context.Context, table string) (*schema.TableInfo, error) {
	ctx, cancel, entry := s.begin(ctx, "describe_table", table)
	defer cancel()

	info, err := s.catalog.DescribeTable(ctx, s.db, table)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Failed to describe table")
		return nil, err
	}

	entry.WithFields(logrus.Fields{
		"columns":   len(info.Columns),
		"row_count": info.RowCount,
	}).Debug("Table described")
	return info, nil
}

// GetTableData returns every row of table. The result is not paginated.
func (s *Service) GetTableData(ctx context.Context, table string) (*rows.ResultSet, error) {
	query, err := s.stmts.SelectAll(table)
	if err != nil {
		return nil, err
	}

	ctx, cancel, entry := s.begin(ctx, "get_table_data", table)
	defer cancel()

	return s.query(ctx, entry, query)
}

// SearchRowsByColumn returns the rows whose column, rendered as text,
// contains term regardless of case. The term is bound, never interpolated.
func (s *Service) SearchRowsByColumn(ctx context.Context, table, column, term string) (*rows.ResultSet, error) {
	query, err := s.stmts.Search(table, column)
	if err != nil {
		return nil, err
	}

	ctx, cancel, entry := s.begin(ctx, "search_rows", table)
	defer cancel()
	entry = entry.WithField("column", column)

	return s.query(ctx, entry, query, rows.ContainsPattern(term))
}

func (s *Service) query(ctx context.Context, entry *logrus.Entry, query string, args ...any) (*rows.ResultSet, error) {
	entry.WithField("sql", query).Debug("Running query")

	cursor, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Query failed")
		return nil, err
	}
	defer cursor.Close()

	result, err := rows.Scan(cursor)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Failed to read rows")
		return nil, err
	}

	entry.WithField("rows", len(result.Rows)).Debug("Query finished")
	return result, nil
}
