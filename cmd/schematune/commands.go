package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"schematune/internal/core/app"
	"schematune/internal/data/record"
	"schematune/internal/engine/optimizer"
)

func updateCmd(flags *globalFlags) *cobra.Command {
	var (
		table string
		id    int64
		sets  []string
		nulls []string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update one record and run the optimizer on it",
		Example: `  schematune update --table users --id 1 --set age=42
  schematune update --table events --id 7 --set happened="2024-03-10 13:45:02" --null note`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseAssignments(sets, nulls)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var decisions []optimizer.Decision
			hook := app.WithDecisionHook(func(_ context.Context, d optimizer.Decision) {
				decisions = append(decisions, d)
			})
			a, cleanup, err := openApp(ctx, cmd, flags, hook)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := a.Store.Update(ctx, &record.Bean{Type: table, ID: id, Fields: fields}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "updated %s %d\n", table, id)
			if a.Optimizer == nil {
				fmt.Fprintln(out, "optimizer disabled")
				return nil
			}
			if len(decisions) == 0 {
				fmt.Fprintln(out, "optimization abandoned (see log)")
				return nil
			}
			for _, d := range decisions {
				fmt.Fprintln(out, d.String())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table to update")
	cmd.Flags().Int64Var(&id, "id", 0, "Record id")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Field assignment name=value (repeatable)")
	cmd.Flags().StringArrayVar(&nulls, "null", nil, "Field to set to NULL (repeatable)")
	_ = cmd.MarkFlagRequired("table")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseAssignments(sets, nulls []string) (map[string]any, error) {
	fields := make(map[string]any, len(sets)+len(nulls))
	for _, assignment := range sets {
		name, val, ok := strings.Cut(assignment, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", assignment)
		}
		fields[name] = val
	}
	for _, name := range nulls {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("--null needs a field name")
		}
		fields[name] = nil
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("at least one --set or --null is required")
	}
	return fields, nil
}

func columnsCmd(flags *globalFlags) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "columns",
		Short: "List a table's columns and declared types",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := openApp(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			cols, err := a.Inspector.ColumnsOf(ctx, table)
			if err != nil {
				return err
			}
			if len(cols) == 0 {
				return fmt.Errorf("table %q not found", table)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "COLUMN\tTYPE\tRANK")
			for _, c := range cols {
				fmt.Fprintf(w, "%s\t%s\t%s\n", c.Name, c.Type, a.Dialect.DeclaredRank(c.Type))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&table, "table", "", "Table to inspect")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func healthCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database connection and optimizer wiring",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, cleanup, err := openApp(ctx, cmd, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			status := app.NewHealthService(a).Check(ctx)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(status); err != nil {
				return err
			}
			if status.Status == "down" {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "schematune v%s\n", VERSION)
		},
	}
}
