package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultSchema            = "public"
	DefaultSavedQueriesTable = "saved_queries"
	DefaultStatementTimeout  = 30 * time.Second
	DefaultConnMaxLifetime   = 30 * time.Minute
	defaultPort              = 5432
	defaultBackupDir         = "backup"
)

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	Database        string `yaml:"database"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"sslmode"`
	MaxOpenConns    int    `yaml:"max_open_conns,omitempty"`
	MaxIdleConns    int    `yaml:"max_idle_conns,omitempty"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime,omitempty"`
}

type AdminConfig struct {
	Schema            string   `yaml:"schema"`
	Timeout           string   `yaml:"statement_timeout"`
	HiddenTables      []string `yaml:"hidden_tables,omitempty"`
	SavedQueriesTable string   `yaml:"saved_queries_table"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type BackupConfig struct {
	Directory  string `yaml:"directory"`
	PgDumpPath string `yaml:"pg_dump_path"`
	PsqlPath   string `yaml:"psql_path"`
}

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
	Backup   BackupConfig   `yaml:"backup"`
}

func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills every unset field with its documented default.
func (c *Config) ApplyDefaults() {
	if c.Database.Port == 0 {
		c.Database.Port = defaultPort
	}
	if strings.TrimSpace(c.Database.SSLMode) == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.Password == "" {
		c.Database.Password = os.Getenv("PGPASSWORD")
	}

	if strings.TrimSpace(c.Admin.Schema) == "" {
		c.Admin.Schema = DefaultSchema
	}
	if strings.TrimSpace(c.Admin.SavedQueriesTable) == "" {
		c.Admin.SavedQueriesTable = DefaultSavedQueriesTable
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Backup.Directory == "" {
		c.Backup.Directory = defaultBackupDir
	}
	if c.Backup.PgDumpPath == "" {
		c.Backup.PgDumpPath = "pg_dump"
	}
	if c.Backup.PsqlPath == "" {
		c.Backup.PsqlPath = "psql"
	}
}

func (c *Config) GetConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.Username,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// StatementTimeout bounds every single core operation.
func (c *Config) StatementTimeout() time.Duration {
	return parseDuration(c.Admin.Timeout, DefaultStatementTimeout)
}

func (c *Config) ConnMaxLifetime() time.Duration {
	return parseDuration(c.Database.ConnMaxLifetime, DefaultConnMaxLifetime)
}

// HiddenTables returns the tables excluded from listings. The saved query
// table is always part of it.
func (c *Config) HiddenTables() []string {
	hidden := []string{c.Admin.SavedQueriesTable}
	for _, name := range c.Admin.HiddenTables {
		name = strings.TrimSpace(name)
		if name == "" || name == c.Admin.SavedQueriesTable {
			continue
		}
		hidden = append(hidden, name)
	}
	return hidden
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	duration, err := time.ParseDuration(value)
	if err != nil || duration <= 0 {
		return fallback
	}
	return duration
}
