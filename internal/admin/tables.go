package admin

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

func (s *Service) CreateTable(ctx context.Context, spec schema.TableSpec) error {
	query, err := s.builder.CreateTable(spec)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "create_table", spec.Name)
	defer cancel()

	if _, err := s.exec(ctx, s.db, entry, query); err != nil {
		entry.WithError(err).Error("Failed to create table")
		return err
	}

	entry.WithField("columns", len(spec.Fields)).Info("Table created")
	return nil
}

// DeleteTable drops the table and everything depending on it. Dropping a
// missing table succeeds.
func (s *Service) DeleteTable(ctx context.Context, table string) error {
	query, err := s.builder.DropTable(table)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "delete_table", table)
	defer cancel()

	if _, err := s.exec(ctx, s.db, entry, query); err != nil {
		entry.WithError(err).Error("Failed to drop table")
		return err
	}

	entry.Info("Table dropped")
	return nil
}

// AddColumns applies one ALTER TABLE per column inside a single transaction.
// A failure rolls every column back and names the failing one.
func (s *Service) AddColumns(ctx context.Context, table string, columns []schema.ColumnSpec) error {
	statements, err := s.builder.AddColumns(table, columns)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "add_columns", table)
	defer cancel()

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		for i, query := range statements {
			if _, err := s.exec(ctx, tx, entry, query); err != nil {
				return &apperr.StepError{Step: i, Total: len(statements), Target: columns[i].Name, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		entry.WithError(err).Error("Failed to add columns")
		return err
	}

	entry.WithField("columns", len(columns)).Info("Columns added")
	return nil
}

func (s *Service) DeleteColumn(ctx context.Context, table, column string) error {
	query, err := s.builder.DropColumn(table, column)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "delete_column", table)
	defer cancel()

	if _, err := s.exec(ctx, s.db, entry, query); err != nil {
		entry.WithError(err).Errorf("Failed to drop column %s", column)
		return err
	}

	entry.WithField("column", column).Info("Column dropped")
	return nil
}

// DeleteColumns drops several columns in one statement. The surrogate key
// can never be part of the list.
func (s *Service) DeleteColumns(ctx context.Context, table string, columns []string) error {
	query, err := s.builder.DropColumns(table, columns)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "delete_columns", table)
	defer cancel()

	if _, err := s.exec(ctx, s.db, entry, query); err != nil {
		entry.WithError(err).Error("Failed to drop columns")
		return fmt.Errorf("failed to drop %d columns from %s: %w", len(columns), table, err)
	}

	entry.WithField("columns", columns).Info("Columns dropped")
	return nil
}
