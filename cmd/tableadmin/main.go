package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/kadirbelkuyu/tableadmin/internal/app"
	"github.com/kadirbelkuyu/tableadmin/internal/apperr"
)

var rootCmd = &cobra.Command{
	Use:   "tableadmin",
	Short: "Administer PostgreSQL tables and rows from the command line",
	Long: `tableadmin creates, alters and drops tables, upserts and deletes rows,
searches table contents, keeps saved queries, exports tables to CSV and
dumps or restores the administered schema.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	configPath   string
	profileName  string
	profileDir   string
	verbose      bool
	outputFormat string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to the database configuration file")
	flags.StringVar(&profileName, "profile", "", "Name of a saved connection profile")
	flags.StringVar(&profileDir, "profile-dir", app.DefaultProfileDir, "Directory holding saved profiles")
	flags.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flags.StringVarP(&outputFormat, "output", "o", app.FormatTable, "Output format: table or json")

	rootCmd.AddCommand(
		tablesCmd, describeCmd, columnsCmd, rowsCmd, searchCmd,
		createTableCmd, dropTableCmd, addColumnsCmd, dropColumnCmd, dropColumnsCmd,
		upsertCmd, applyCmd, deleteRowCmd,
		queryCmd, exportCmd, backupCmd, restoreCmd, exploreCmd, profileCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if kind := apperr.KindOf(err); kind != apperr.KindUnknown {
			fmt.Fprintf(os.Stderr, "error [%s]: %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func sessionOptions() app.Options {
	return app.Options{
		ConfigPath: configPath,
		Profile:    profileName,
		ProfileDir: profileDir,
		Verbose:    verbose,
	}
}

// withSession opens a connected session and a printer for the duration of
// fn.
func withSession(cmd *cobra.Command, fn func(s *app.Session, p *app.Printer) error) error {
	printer, err := app.NewPrinter(cmd.OutOrStdout(), outputFormat)
	if err != nil {
		return err
	}

	session, err := app.Open(cmd.Context(), sessionOptions())
	if err != nil {
		return err
	}
	defer session.Close()

	return fn(session, printer)
}
