package admin

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
)

// advisoryLockQuery serialises writers of one (table, id) pair until the
// surrounding transaction ends.
const advisoryLockQuery = `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`

// Outcome tells what an upsert did to the row.
type Outcome string

const (
	Inserted Outcome = "inserted"
	Updated  Outcome = "updated"
	// Unchanged means the row exists and data held nothing besides the id.
	Unchanged Outcome = "unchanged"
)

// Upsert inserts the row with the given id when it is absent and updates
// the columns in data otherwise. The existence check and the write run in
// one transaction holding an advisory lock on the identifier, so concurrent
// upserts of the same row are applied one after another.
func (s *Service) Upsert(ctx context.Context, table, id string, data rows.RowData) (Outcome, error) {
	key, err := rows.ParseID(id)
	if err != nil {
		return "", err
	}
	countQuery, err := s.stmts.Count(table)
	if err != nil {
		return "", err
	}

	ctx, cancel, entry := s.begin(ctx, "upsert", table)
	defer cancel()
	entry = entry.WithField("id", key)

	var outcome Outcome
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.exec(ctx, tx, entry, advisoryLockQuery, table, strconv.FormatInt(key, 10)); err != nil {
			return fmt.Errorf("failed to lock row %d: %w", key, err)
		}

		var count int64
		entry.WithField("sql", countQuery).Debug("Checking row existence")
		if err := tx.QueryRowContext(ctx, countQuery, key).Scan(&count); err != nil {
			return fmt.Errorf("failed to check row %d: %w", key, apperr.Backend(err))
		}

		if count == 0 {
			outcome = Inserted
			return s.insertRow(ctx, tx, entry, table, key, data)
		}

		changes := data.Without(schema.SurrogateKey)
		if len(changes) == 0 {
			outcome = Unchanged
			return nil
		}
		outcome = Updated
		return s.updateRow(ctx, tx, entry, table, key, changes)
	})
	if err != nil {
		entry.WithError(err).Error("Upsert failed")
		return "", err
	}

	entry.WithField("outcome", outcome).Info("Row upserted")
	return outcome, nil
}

func (s *Service) insertRow(ctx context.Context, q schema.Querier, entry *logrus.Entry, table string, key int64, data rows.RowData) error {
	merged := data.Without(schema.SurrogateKey)
	merged[schema.SurrogateKey] = strconv.FormatInt(key, 10)

	params, err := s.codec.EncodeForWrite(ctx, q, table, merged, 1)
	if err != nil {
		return err
	}
	query, err := s.stmts.Insert(table, params)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, q, entry, query, rows.Args(params)...)
	return err
}

func (s *Service) updateRow(ctx context.Context, q schema.Querier, entry *logrus.Entry, table string, key int64, changes rows.RowData) error {
	params, err := s.codec.EncodeForWrite(ctx, q, table, changes, 1)
	if err != nil {
		return err
	}
	query, err := s.stmts.Update(table, params)
	if err != nil {
		return err
	}

	args := append(rows.Args(params), key)
	_, err = s.exec(ctx, q, entry, query, args...)
	return err
}

// DeleteRow removes the row with the given id. Deleting a row that does not
// exist is not an error.
func (s *Service) DeleteRow(ctx context.Context, table, id string) error {
	key, err := rows.ParseID(id)
	if err != nil {
		return err
	}
	query, err := s.stmts.Delete(table)
	if err != nil {
		return err
	}

	ctx, cancel, entry := s.begin(ctx, "delete_row", table)
	defer cancel()
	entry = entry.WithField("id", key)

	affected, err := s.exec(ctx, s.db, entry, query, key)
	if err != nil {
		entry.WithError(err).Error("Failed to delete row")
		return err
	}

	entry.WithField("rows_affected", affected).Info("Row deleted")
	return nil
}

// ApplySummary counts what ApplyRows did.
type ApplySummary struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// ApplyRows upserts a batch of rows, each keyed by its own id column. Every
// row is checked for a usable id before anything is written; a row without
// one fails the whole batch. Rows are then upserted in order and the first
// failure stops the batch.
func (s *Service) ApplyRows(ctx context.Context, table string, batch []rows.RowData) (ApplySummary, error) {
	var summary ApplySummary

	for i, row := range batch {
		id, ok := row[schema.SurrogateKey]
		if !ok || strings.TrimSpace(id) == "" {
			return summary, &apperr.StepError{
				Step:   i,
				Total:  len(batch),
				Target: "row",
				Err:    fmt.Errorf("%w: row has no %s", apperr.ErrInvalidIdentifier, schema.SurrogateKey),
			}
		}
		if _, err := rows.ParseID(id); err != nil {
			return summary, &apperr.StepError{Step: i, Total: len(batch), Target: "row", Err: err}
		}
	}

	for i, row := range batch {
		id := row[schema.SurrogateKey]
		outcome, err := s.Upsert(ctx, table, id, row.Without(schema.SurrogateKey))
		if err != nil {
			return summary, &apperr.StepError{Step: i, Total: len(batch), Target: "id " + strings.TrimSpace(id), Err: err}
		}

		switch outcome {
		case Inserted:
			summary.Inserted++
		case Updated:
			summary.Updated++
		default:
			summary.Unchanged++
		}
	}

	return summary, nil
}
