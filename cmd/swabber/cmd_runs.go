package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Swabber-io/syscomp/internal/export"
	"github.com/Swabber-io/syscomp/internal/store"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs recorded in the database",
		Long: `List, show, export and delete persisted runs.

Run ids may be abbreviated to any unique prefix.

Examples:
  swabber runs list --limit 5
  swabber runs show 3f2a
  swabber runs export 3f2a --format arrow --out ./out`,
	}

	cmd.AddCommand(
		newRunsListCmd(),
		newRunsShowCmd(),
		newRunsExportCmd(),
		newRunsDeleteCmd(),
	)
	return cmd
}

// withStore opens the configured database for the duration of fn.
func withStore(cmd *cobra.Command, fn func(*store.SQLiteStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")
			return withStore(cmd, func(st *store.SQLiteStore) error {
				runs, err := st.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOut {
					if runs == nil {
						runs = []store.Run{}
					}
					return printJSON(cmd, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
					return nil
				}
				printRunTable(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum runs to list (0 for all)")
	return cmd
}

func printRunTable(w io.Writer, runs []store.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSEED\tAGENTS\tTICKS\tSTATUS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID[:8], r.Started.Local().Format(time.DateTime), r.Seed, r.Agents, r.Ticks, r.Status)
	}
	tw.Flush()
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a run's final state and metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			return withStore(cmd, func(st *store.SQLiteStore) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return runLookupError(args[0], err)
				}
				if jsonOut {
					return printJSON(cmd, run)
				}

				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "Run %s\n", run.ID)
				fmt.Fprintf(w, "  status:   %s\n", run.Status)
				fmt.Fprintf(w, "  seed:     %d\n", run.Seed)
				fmt.Fprintf(w, "  agents:   %d\n", run.Agents)
				fmt.Fprintf(w, "  ticks:    %d\n", run.Ticks)
				fmt.Fprintf(w, "  started:  %s\n", run.Started.Local().Format(time.DateTime))
				if !run.Finished.IsZero() {
					fmt.Fprintf(w, "  finished: %s\n", run.Finished.Local().Format(time.DateTime))
				}
				fmt.Fprintf(w, "  edges:    %d at end\n", len(run.Edges))
				if n := len(run.History); n > 0 {
					last := run.History[n-1]
					fmt.Fprintln(w)
					fmt.Fprintf(w, "Final tick %d: S=%d I=%d R=%d\n", last.Tick, last.Counts.Susceptible, last.Counts.Infected, last.Counts.Resistant)
					fmt.Fprintf(w, "  resistant/susceptible: %s\n", last.ResistantSusceptible)
					fmt.Fprintf(w, "  infected/susceptible:  %s\n", last.InfectedSusceptible)
				}
				return nil
			})
		},
	}
}

func newRunsExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a run's metrics history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			out, _ := cmd.Flags().GetString("out")
			if !export.Supported(format) {
				return fmt.Errorf("unsupported format %q", format)
			}
			return withStore(cmd, func(st *store.SQLiteStore) error {
				run, err := st.GetRun(cmd.Context(), args[0])
				if err != nil {
					return runLookupError(args[0], err)
				}
				if out == "" {
					return export.Write(cmd.OutOrStdout(), format, run.History)
				}
				path, err := export.WriteFile(out, "run-"+run.ID[:8], format, run.History)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().String("format", "csv", "Export format: csv, jsonl, arrow")
	cmd.Flags().String("out", "", "Directory to write into (default stdout; arrow goes to stdout as an IPC stream)")
	return cmd
}

func newRunsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a run and its recorded metrics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(st *store.SQLiteStore) error {
				if err := st.DeleteRun(cmd.Context(), args[0]); err != nil {
					return runLookupError(args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted run %s\n", args[0])
				return nil
			})
		},
	}
}

func runLookupError(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no run matches %q", id)
	}
	return err
}
