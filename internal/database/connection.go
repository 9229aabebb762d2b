package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kadirbelkuyu/tableadmin/internal/config"

	_ "github.com/lib/pq"
)

const pingTimeout = 5 * time.Second

// Connection owns the connection pool every core operation checks out from.
type Connection struct {
	DB     *sql.DB
	Config *config.Config
}

func NewConnection(ctx context.Context, cfg *config.Config) (*Connection, error) {
	db, err := sql.Open("postgres", cfg.GetConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime())

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	return &Connection{
		DB:     db,
		Config: cfg,
	}, nil
}

func (c *Connection) Close() error {
	return c.DB.Close()
}

func (c *Connection) GetDatabaseName() string {
	return c.Config.Database.Database
}
