// Package admin runs the table administration operations against a pooled
// PostgreSQL connection: DDL, row upserts and deletes, and table queries.
package admin

import (
	"context"
	"database/sql"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/config"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

// Service is safe for concurrent use. It holds no per-call state; every
// operation checks a connection out of the pool for its own duration.
type Service struct {
	db      *sql.DB
	timeout time.Duration
	log     *logger.Logger

	catalog *schema.Catalog
	builder *schema.Builder
	codec   *rows.Codec
	stmts   *rows.Statements
}

func NewService(db *sql.DB, cfg *config.Config, log *logger.Logger) *Service {
	schemaName := cfg.Admin.Schema
	if schemaName == "" {
		schemaName = config.DefaultSchema
	}

	catalog := schema.NewCatalog(schemaName, cfg.HiddenTables(), log)
	return &Service{
		db:      db,
		timeout: cfg.StatementTimeout(),
		log:     log,
		catalog: catalog,
		builder: schema.NewBuilder(schemaName),
		codec:   rows.NewCodec(catalog),
		stmts:   rows.NewStatements(schemaName),
	}
}

func (s *Service) Schema() string {
	return s.catalog.Schema()
}

// begin bounds an operation by the statement timeout and opens its log entry.
func (s *Service) begin(ctx context.Context, op, table string) (context.Context, context.CancelFunc, *logrus.Entry) {
	entry := s.log.Operation(op)
	if table != "" {
		entry = entry.WithField("table", table)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return ctx, cancel, entry
}

func (s *Service) exec(ctx context.Context, q schema.Querier, entry *logrus.Entry, query string, args ...any) (int64, error) {
	entry.WithField("sql", query).Debug("Executing statement")
	if len(args) > 0 {
		entry.Debugf("Bound arguments: %v", args)
	}

	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperr.Backend(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		// DDL reports no row count
		return 0, nil
	}
	return affected, nil
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (s *Service) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Backend(err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Backend(err)
	}
	return nil
}
