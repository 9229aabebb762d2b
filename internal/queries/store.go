// Package queries keeps named SQL snippets in a bookkeeping table next to
// the administered tables and runs them on demand.
package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
	"github.com/kadirbelkuyu/tableadmin/internal/config"
	"github.com/kadirbelkuyu/tableadmin/internal/rows"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

var ErrNotFound = errors.New("saved query not found")

type SavedQuery struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Text string `json:"query_text"`
}

type Store struct {
	db      *sql.DB
	table   string
	timeout time.Duration
	log     *logger.Logger
}

func NewStore(db *sql.DB, cfg *config.Config, log *logger.Logger) (*Store, error) {
	table, err := schema.NewBuilder(cfg.Admin.Schema).Qualify(cfg.Admin.SavedQueriesTable)
	if err != nil {
		return nil, fmt.Errorf("invalid saved queries table: %w", err)
	}
	return &Store{
		db:      db,
		table:   table,
		timeout: cfg.StatementTimeout(),
		log:     log,
	}, nil
}

// EnsureTable creates the bookkeeping table when it does not exist yet.
func (s *Store) EnsureTable(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		query_text TEXT NOT NULL
	)`, s.table)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create saved queries table: %w", apperr.Backend(err))
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]SavedQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cursor, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, name, query_text FROM %s ORDER BY name", s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to list saved queries: %w", apperr.Backend(err))
	}
	defer cursor.Close()

	saved := []SavedQuery{}
	for cursor.Next() {
		var q SavedQuery
		if err := cursor.Scan(&q.ID, &q.Name, &q.Text); err != nil {
			return nil, fmt.Errorf("failed to read saved query: %w", err)
		}
		saved = append(saved, q)
	}
	return saved, cursor.Err()
}

func (s *Store) Get(ctx context.Context, id int64) (*SavedQuery, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	q := SavedQuery{}
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT id, name, query_text FROM %s WHERE id = $1", s.table), id).
		Scan(&q.ID, &q.Name, &q.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load saved query %d: %w", id, apperr.Backend(err))
	}
	return &q, nil
}

// Save stores text under name, replacing the text of an existing query with
// the same name, and returns the query id.
func (s *Store) Save(ctx context.Context, name, text string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: saved query name is empty", apperr.ErrSchemaValidation)
	}
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("%w: saved query %q has no text", apperr.ErrSchemaValidation, name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (name, query_text) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET query_text = EXCLUDED.query_text
		RETURNING id`, s.table)

	var id int64
	if err := s.db.QueryRowContext(ctx, query, name, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to save query %q: %w", name, apperr.Backend(err))
	}

	s.log.Operation("save_query").WithField("id", id).Infof("Saved query %s", name)
	return id, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.table), id)
	if err != nil {
		return fmt.Errorf("failed to delete saved query %d: %w", id, apperr.Backend(err))
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return nil
}

// Execute runs arbitrary SQL and returns whatever rows it produces. A
// statement without a result yields an empty set.
func (s *Store) Execute(ctx context.Context, text string) (*rows.ResultSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query is empty", apperr.ErrSchemaValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entry := s.log.Operation("execute_query")
	entry.WithField("sql", text).Debug("Running query")

	cursor, err := s.db.QueryContext(ctx, text)
	if err != nil {
		err = apperr.Backend(err)
		entry.WithError(err).Error("Query failed")
		return nil, err
	}
	defer cursor.Close()

	result, err := rows.Scan(cursor)
	if err != nil {
		return nil, apperr.Backend(err)
	}
	entry.WithField("rows", len(result.Rows)).Info("Query finished")
	return result, nil
}

func (s *Store) Run(ctx context.Context, id int64) (*rows.ResultSet, error) {
	saved, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, saved.Text)
}
