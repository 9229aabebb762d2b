package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/kadirbelkuyu/tableadmin/internal/app"
	"github.com/kadirbelkuyu/tableadmin/internal/backup"
	"github.com/kadirbelkuyu/tableadmin/internal/export"
	"github.com/kadirbelkuyu/tableadmin/internal/profiles"
	"github.com/kadirbelkuyu/tableadmin/internal/queries"
	"github.com/kadirbelkuyu/tableadmin/internal/ui/explorer"
	"github.com/kadirbelkuyu/tableadmin/pkg/interactive"
	"github.com/kadirbelkuyu/tableadmin/pkg/progress"
)

var (
	exportDir     string
	exportAll     bool
	exportWorkers int

	dumpOptions     backup.DumpOptions
	dumpInteractive bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Manage and run saved queries",
}

var queryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(cmd, func(store *queries.Store, p *app.Printer) error {
			saved, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if p.JSON() {
				return p.Value(saved)
			}
			cells := make([][]string, len(saved))
			for i, q := range saved {
				cells[i] = []string{strconv.FormatInt(q.ID, 10), q.Name, q.Text}
			}
			p.Table([]string{"id", "name", "query"}, cells)
			return nil
		})
	},
}

var querySaveCmd = &cobra.Command{
	Use:   "save <name> <sql>",
	Short: "Save a query under a name, replacing the text of an existing one",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withQueries(cmd, func(store *queries.Store, p *app.Printer) error {
			id, err := store.Save(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return p.Message("Query %s saved with id %d", args[0], id)
		})
	},
}

var queryRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Run a saved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseQueryID(args[0])
		if err != nil {
			return err
		}
		return withQueries(cmd, func(store *queries.Store, p *app.Printer) error {
			result, err := store.Run(cmd.Context(), id)
			if err != nil {
				return err
			}
			return p.Result(result)
		})
	},
}

var queryExecCmd = &cobra.Command{
	Use:   "exec <sql>",
	Short: "Run SQL without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			result, err := s.Queries.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.Result(result)
		})
	},
}

var queryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseQueryID(args[0])
		if err != nil {
			return err
		}
		return withQueries(cmd, func(store *queries.Store, p *app.Printer) error {
			if err := store.Delete(cmd.Context(), id); err != nil {
				return err
			}
			return p.Message("Query %d deleted", id)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [table]",
	Short: "Export one table, or every table with --all, to CSV files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportAll == (len(args) == 1) {
			return fmt.Errorf("name one table or pass --all")
		}

		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			exporter := export.NewExporter(s.Admin, s.Log, exportWorkers)
			if term.IsTerminal(int(os.Stderr.Fd())) {
				exporter.Progress = func(total int64) *progress.Bar {
					return progress.NewBar(total, "Exporting tables")
				}
			}

			if !exportAll {
				path, err := exporter.ExportTable(cmd.Context(), args[0], exportDir)
				if err != nil {
					return err
				}
				return p.List([]string{path})
			}

			paths, err := exporter.ExportAll(cmd.Context(), exportDir)
			if err != nil {
				return err
			}
			return p.List(paths)
		})
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Dump the administered schema to a plain SQL file with pg_dump",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(sessionOptions())
		if err != nil {
			return err
		}
		printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
		if err != nil {
			return err
		}

		opts := dumpOptions
		if dumpInteractive {
			tables := opts.Tables
			opts = interactive.NewPrompter().DumpOptions(cfg.Backup.Directory)
			opts.Tables = tables
		}
		opts.Verbose = opts.Verbose || verbose

		meta, err := backup.NewDumper(cfg, app.NewLogger(cfg, verbose)).CreateDump(cmd.Context(), opts)
		if err != nil {
			return err
		}
		if printer.JSON() {
			return printer.Value(meta)
		}
		return printer.Message("Dump written to %s (%d bytes, sha256 %s)", meta.Location, meta.Size, meta.Checksum)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <file.sql>",
	Short: "Replay a plain SQL dump with psql in a single transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := app.LoadConfig(sessionOptions())
		if err != nil {
			return err
		}
		printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
		if err != nil {
			return err
		}

		if !assumeYes && !interactive.NewPrompter().Confirm("RESTORE", args[0]) {
			return printer.Message("Operation cancelled")
		}

		dumper := backup.NewDumper(cfg, app.NewLogger(cfg, verbose))
		if err := dumper.Restore(cmd.Context(), backup.RestoreOptions{Path: args[0], Verbose: verbose}); err != nil {
			return err
		}
		return printer.Message("Restored %s", args[0])
	},
}

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse, search and edit tables in a terminal UI",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Queries.EnsureTable(cmd.Context()); err != nil {
				return err
			}
			return explorer.New(s.Admin, s.Queries, s.Target()).Run(cmd.Context())
		})
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved connection profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
		if err != nil {
			return err
		}
		list, err := profiles.NewManager(profileDir).List()
		if err != nil {
			return err
		}
		if printer.JSON() {
			return printer.Value(list)
		}
		cells := make([][]string, len(list))
		for i, profile := range list {
			cells[i] = []string{profile.Name, profile.Target, profile.Schema, profile.Modified.Format("2006-01-02 15:04")}
		}
		printer.Table([]string{"name", "target", "schema", "modified"}, cells)
		return nil
	},
}

var profileSaveCmd = &cobra.Command{
	Use:   "save [alias]",
	Short: "Save the configuration given with --config as a profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(configPath) == "" {
			return fmt.Errorf("--config is required to save a profile")
		}
		cfg, err := app.LoadConfig(app.Options{ConfigPath: configPath})
		if err != nil {
			return err
		}
		printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
		if err != nil {
			return err
		}

		alias := ""
		if len(args) == 1 {
			alias = args[0]
		}
		profile, err := profiles.NewManager(profileDir).Save(alias, cfg)
		if err != nil {
			return err
		}
		return printer.Message("Profile %s saved to %s", profile.Name, profile.Path)
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <alias>",
	Short: "Delete a saved profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
		if err != nil {
			return err
		}
		if err := profiles.NewManager(profileDir).Delete(args[0]); err != nil {
			return err
		}
		return printer.Message("Profile %s deleted", args[0])
	},
}

func init() {
	queryCmd.AddCommand(queryListCmd, querySaveCmd, queryRunCmd, queryExecCmd, queryDeleteCmd)
	profileCmd.AddCommand(profileListCmd, profileSaveCmd, profileDeleteCmd)

	exportCmd.Flags().StringVar(&exportDir, "dir", "export", "Directory for the CSV files")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every table")
	exportCmd.Flags().IntVar(&exportWorkers, "workers", 4, "Tables exported at the same time with --all")

	backupCmd.Flags().StringSliceVar(&dumpOptions.Tables, "tables", nil, "Tables to dump (default: the whole schema)")
	backupCmd.Flags().BoolVar(&dumpOptions.SchemaOnly, "schema-only", false, "Dump only the table definitions")
	backupCmd.Flags().BoolVar(&dumpOptions.DataOnly, "data-only", false, "Dump only the rows")
	backupCmd.Flags().StringVar(&dumpOptions.OutputPath, "output-file", "", "Dump file (default: a timestamped file in the backup directory)")
	backupCmd.Flags().BoolVarP(&dumpInteractive, "interactive", "i", false, "Ask for the dump options")

	restoreCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

// withQueries is withSession for commands that need the saved query table.
func withQueries(cmd *cobra.Command, fn func(store *queries.Store, p *app.Printer) error) error {
	return withSession(cmd, func(s *app.Session, p *app.Printer) error {
		if err := s.Queries.EnsureTable(cmd.Context()); err != nil {
			return err
		}
		return fn(s.Queries, p)
	})
}

func parseQueryID(input string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("query id %q is not a number", input)
	}
	return id, nil
}
