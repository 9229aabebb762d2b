package main

import (
	"github.com/spf13/cobra"

	"github.com/kadirbelkuyu/tableadmin/internal/app"
	"github.com/kadirbelkuyu/tableadmin/pkg/interactive"
)

var rowsFile string

var rowsCmd = &cobra.Command{
	Use:   "rows [table]",
	Short: "Print every row of a table; without a name the table is picked from a list",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			var table string
			if len(args) == 1 {
				table = args[0]
			} else {
				tables, err := s.Admin.ListTables(cmd.Context())
				if err != nil {
					return err
				}
				if table, err = interactive.NewPrompter().SelectTable(tables); err != nil {
					return err
				}
			}

			result, err := s.Admin.GetTableData(cmd.Context(), table)
			if err != nil {
				return err
			}
			return p.Result(result)
		})
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <table> <column> <term>",
	Short: "Find rows whose column text contains term, ignoring case",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			result, err := s.Admin.SearchRowsByColumn(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return p.Result(result)
		})
	},
}

var upsertCmd = &cobra.Command{
	Use:     "upsert <table> <id> [column=value]...",
	Short:   "Insert the row with the given id, or update it when it exists",
	Long:    "Values are sent as text and converted to each column's type. An empty value stores NULL.",
	Example: "  tableadmin upsert pets 1 name=Rex age=3 --config db.yaml",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := app.ParseAssignments(args[2:])
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			outcome, err := s.Admin.Upsert(cmd.Context(), args[0], args[1], data)
			if err != nil {
				return err
			}
			return p.Message("Row %s %s", args[1], outcome)
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <table>",
	Short: "Upsert every row of a .json or .csv file, keyed by its id column",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := app.ReadRowsFile(rowsFile)
		if err != nil {
			return err
		}

		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			summary, err := s.Admin.ApplyRows(cmd.Context(), args[0], batch)
			if err != nil {
				return err
			}
			if p.JSON() {
				return p.Value(summary)
			}
			return p.Message("%d inserted, %d updated, %d unchanged", summary.Inserted, summary.Updated, summary.Unchanged)
		})
	},
}

var deleteRowCmd = &cobra.Command{
	Use:   "delete-row <table> <id>",
	Short: "Delete the row with the given id; a missing row is not an error",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Admin.DeleteRow(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return p.Message("Row %s deleted from %s", args[1], args[0])
		})
	},
}

func init() {
	applyCmd.Flags().StringVarP(&rowsFile, "file", "f", "", "Rows file (.json array of objects or .csv with header)")
	applyCmd.MarkFlagRequired("file")
}
