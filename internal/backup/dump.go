// Package backup dumps the administered schema with pg_dump and replays
// such dumps with psql.
package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/kadirbelkuyu/tableadmin/internal/config"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
	"github.com/kadirbelkuyu/tableadmin/pkg/logger"
)

type DumpOptions struct {
	// Tables limits the dump; empty means the whole schema.
	Tables     []string
	SchemaOnly bool
	DataOnly   bool
	OutputPath string
	Verbose    bool
}

type RestoreOptions struct {
	Path    string
	Verbose bool
}

type Metadata struct {
	Size        int64     `json:"size"`
	Checksum    string    `json:"sha256"`
	Location    string    `json:"location"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// runFunc executes an external client binary.
type runFunc func(ctx context.Context, name string, args, env []string, verbose bool) error

type Dumper struct {
	cfg *config.Config
	log *logger.Logger
	run runFunc
}

func NewDumper(cfg *config.Config, log *logger.Logger) *Dumper {
	d := &Dumper{cfg: cfg, log: log}
	d.run = d.runCommand
	return d
}

// CreateDump writes a plain SQL dump using INSERT statements, so the file
// can be replayed by psql into any PostgreSQL version.
func (d *Dumper) CreateDump(ctx context.Context, opts DumpOptions) (*Metadata, error) {
	start := time.Now()

	if opts.SchemaOnly && opts.DataOnly {
		return nil, fmt.Errorf("schema-only and data-only are mutually exclusive")
	}

	args, err := d.dumpArgs(opts)
	if err != nil {
		return nil, err
	}

	outputPath, err := d.ensureOutputPath(opts.OutputPath, start)
	if err != nil {
		return nil, err
	}
	args = append(args, "--file="+outputPath)

	if err := d.run(ctx, d.cfg.Backup.PgDumpPath, args, d.postgresEnv(), opts.Verbose); err != nil {
		return nil, err
	}

	meta, err := buildMetadata(outputPath, start)
	if err != nil {
		return nil, err
	}
	d.log.WithField("file", outputPath).Infof("Dump created (%d bytes)", meta.Size)
	return meta, nil
}

// Restore replays a plain SQL dump in a single transaction that stops at
// the first error.
func (d *Dumper) Restore(ctx context.Context, opts RestoreOptions) error {
	if _, err := os.Stat(opts.Path); err != nil {
		return fmt.Errorf("dump file not found: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(opts.Path)); ext != ".sql" {
		return fmt.Errorf("only plain .sql dumps can be restored, got %q", ext)
	}

	args := append(d.connectionArgs(),
		"--single-transaction",
		"--set=ON_ERROR_STOP=1",
		"--file="+opts.Path,
	)
	if opts.Verbose {
		args = append(args, "--echo-errors")
	}

	if err := d.run(ctx, d.cfg.Backup.PsqlPath, args, d.postgresEnv(), opts.Verbose); err != nil {
		return err
	}
	d.log.WithField("file", opts.Path).Info("Dump restored")
	return nil
}

func (d *Dumper) connectionArgs() []string {
	return []string{
		fmt.Sprintf("--host=%s", d.cfg.Database.Host),
		fmt.Sprintf("--port=%d", d.cfg.Database.Port),
		fmt.Sprintf("--username=%s", d.cfg.Database.Username),
		fmt.Sprintf("--dbname=%s", d.cfg.Database.Database),
	}
}

func (d *Dumper) dumpArgs(opts DumpOptions) ([]string, error) {
	builder := schema.NewBuilder(d.cfg.Admin.Schema)

	args := append(d.connectionArgs(), "--format=plain", "--inserts", "--no-owner")

	if len(opts.Tables) == 0 {
		quotedSchema, err := schema.QuoteIdentifier("schema", d.cfg.Admin.Schema)
		if err != nil {
			return nil, err
		}
		args = append(args, "--schema="+quotedSchema)
	}
	for _, table := range opts.Tables {
		qualified, err := builder.Qualify(table)
		if err != nil {
			return nil, err
		}
		args = append(args, "--table="+qualified)
	}

	if opts.SchemaOnly {
		args = append(args, "--schema-only")
	}
	if opts.DataOnly {
		args = append(args, "--data-only")
	}
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	return args, nil
}

func (d *Dumper) ensureOutputPath(outputPath string, now time.Time) (string, error) {
	if outputPath == "" {
		fileName := fmt.Sprintf("%s_%s_%s.sql", d.cfg.Database.Database, d.cfg.Admin.Schema, now.Format("20060102_150405"))
		outputPath = filepath.Join(d.cfg.Backup.Directory, fileName)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	return outputPath, nil
}

func (d *Dumper) postgresEnv() []string {
	if d.cfg.Database.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + d.cfg.Database.Password}
}

func (d *Dumper) runCommand(ctx context.Context, name string, args, env []string, verbose bool) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	if verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		writer := d.log.Writer()
		defer writer.Close()
		cmd.Stdout = writer
		cmd.Stderr = writer
	}

	d.log.Debugf("executing %s %s", name, strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

func buildMetadata(path string, started time.Time) (*Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump metadata: %w", err)
	}

	checksum, err := fileChecksum(path)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		Size:        info.Size(),
		Checksum:    checksum,
		Location:    path,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}, nil
}

func fileChecksum(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open dump file: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
