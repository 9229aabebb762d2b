// Package app wires configuration, logging and the database into the
// services the command line works with.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/kadirbelkuyu/tableadmin/internal/admin"
	"github.com/kadirbelkuyu/tableadmin/internal/config"
	"github.com/kadirbelkuyu/tableadmin/internal/database"
	"github.com/kadirbelkuyu/tableadmin/internal/profiles"
	"github.com/kadirbelkuyu/tableadmin/internal/queries"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

const DefaultProfileDir = "configs"

type Options struct {
	ConfigPath string
	Profile    string
	ProfileDir string
	Verbose    bool
}

// LoadConfig resolves the configuration from an explicit file or a saved
// profile. An explicit file wins.
func LoadConfig(opts Options) (*config.Config, error) {
	if strings.TrimSpace(opts.ConfigPath) != "" {
		cfg, err := config.LoadConfig(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("cannot load config: %w", err)
		}
		return cfg, nil
	}
	if strings.TrimSpace(opts.Profile) != "" {
		cfg, err := profiles.NewManager(opts.ProfileDir).Load(opts.Profile)
		if err != nil {
			return nil, fmt.Errorf("cannot load profile: %w", err)
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("either --config or --profile is required")
}

// NewLogger follows the log section of cfg; verbose forces debug level.
// Logs go to stderr so command output stays on stdout.
func NewLogger(cfg *config.Config, verbose bool) *logger.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logger.New(os.Stderr, level, cfg.Log.Format)
}

// Session is one connected command invocation.
type Session struct {
	Config  *config.Config
	Log     *logger.Logger
	Admin   *admin.Service
	Queries *queries.Store

	conn *database.Connection
}

func Open(ctx context.Context, opts Options) (*Session, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	log := NewLogger(cfg, opts.Verbose)

	conn, err := database.NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Debugf("Connected to %s:%d/%s", cfg.Database.Host, cfg.Database.Port, conn.GetDatabaseName())

	store, err := queries.NewStore(conn.DB, cfg, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &Session{
		Config:  cfg,
		Log:     log,
		Admin:   admin.NewService(conn.DB, cfg, log),
		Queries: store,
		conn:    conn,
	}, nil
}

func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Target names the connected database for messages.
func (s *Session) Target() string {
	return fmt.Sprintf("%s:%d/%s (%s)", s.Config.Database.Host, s.Config.Database.Port, s.Config.Database.Database, s.Admin.Schema())
}
