package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kadirbelkuyu/tableadmin/internal/app"
	"github.com/kadirbelkuyu/tableadmin/internal/schema"
	"github.com/kadirbelkuyu/tableadmin/pkg/interactive"
)

var (
	fieldSpecs []string
	assumeYes  bool
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List the tables of the administered schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			tables, err := s.Admin.ListTables(cmd.Context())
			if err != nil {
				return err
			}
			return p.List(tables)
		})
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <table>",
	Short: "Show columns, primary key and row count of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			info, err := s.Admin.DescribeTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if p.JSON() {
				return p.Value(info)
			}

			primary := make(map[string]bool, len(info.PrimaryKeys))
			for _, key := range info.PrimaryKeys {
				primary[key] = true
			}

			cells := make([][]string, len(info.Columns))
			for i, col := range info.Columns {
				def := ""
				if col.DefaultValue != nil {
					def = *col.DefaultValue
				}
				dataType := col.DataType
				if col.MaxLength != nil {
					dataType = fmt.Sprintf("%s(%d)", dataType, *col.MaxLength)
				}
				cells[i] = []string{
					fmt.Sprint(col.Position), col.Name, dataType,
					yesNo(col.IsNullable), yesNo(primary[col.Name]), def,
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s.%s (%d rows)\n\n", info.Schema, info.Name, info.RowCount)
			p.Table([]string{"#", "column", "type", "nullable", "primary", "default"}, cells)
			return nil
		})
	},
}

var columnsCmd = &cobra.Command{
	Use:   "columns <table>",
	Short: "List the column names of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			columns, err := s.Admin.ListColumns(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return p.List(columns)
		})
	},
}

var createTableCmd = &cobra.Command{
	Use:   "create-table <name>",
	Short: "Create a table; without a primary field an id SERIAL key is added",
	Example: `  tableadmin create-table pets --config db.yaml \
    --field name:VARCHAR:notnull --field age:INTEGER --field born:DATE:default=2020-01-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		spec := schema.TableSpec{Name: args[0]}
		for _, raw := range fieldSpecs {
			field, err := app.ParseFieldSpec(raw)
			if err != nil {
				return err
			}
			spec.Fields = append(spec.Fields, field)
		}

		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Admin.CreateTable(cmd.Context(), spec); err != nil {
				return err
			}
			return p.Message("Table %s created", spec.Name)
		})
	},
}

var dropTableCmd = &cobra.Command{
	Use:   "drop-table <name>",
	Short: "Drop a table and everything depending on it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if !assumeYes && !interactive.NewPrompter().Confirm("DROP TABLE", args[0]) {
				return p.Message("Operation cancelled")
			}
			if err := s.Admin.DeleteTable(cmd.Context(), args[0]); err != nil {
				return err
			}
			return p.Message("Table %s dropped", args[0])
		})
	},
}

var addColumnsCmd = &cobra.Command{
	Use:   "add-columns <table>",
	Short: "Add columns to a table in one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		columns := make([]schema.ColumnSpec, 0, len(fieldSpecs))
		for _, raw := range fieldSpecs {
			column, err := app.ParseColumnSpec(raw)
			if err != nil {
				return err
			}
			columns = append(columns, column)
		}

		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Admin.AddColumns(cmd.Context(), args[0], columns); err != nil {
				return err
			}
			return p.Message("Added %d columns to %s", len(columns), args[0])
		})
	},
}

var dropColumnCmd = &cobra.Command{
	Use:   "drop-column <table> <column>",
	Short: "Drop one column and everything depending on it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Admin.DeleteColumn(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return p.Message("Column %s dropped from %s", args[1], args[0])
		})
	},
}

var dropColumnsCmd = &cobra.Command{
	Use:   "drop-columns <table> <column>...",
	Short: "Drop several columns in one statement; id is protected",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd, func(s *app.Session, p *app.Printer) error {
			if err := s.Admin.DeleteColumns(cmd.Context(), args[0], args[1:]); err != nil {
				return err
			}
			return p.Message("Columns %s dropped from %s", strings.Join(args[1:], ", "), args[0])
		})
	},
}

func init() {
	createTableCmd.Flags().StringArrayVar(&fieldSpecs, "field", nil, "Field as name:TYPE[:notnull][:unique][:primary][:default=value] (repeatable)")
	addColumnsCmd.Flags().StringArrayVar(&fieldSpecs, "field", nil, "Column as name:TYPE[:notnull] (repeatable)")
	addColumnsCmd.MarkFlagRequired("field")
	dropTableCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
