package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/shashir/covid-school-data/internal/store"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs [run-id]",
		Short: "List recorded pipeline runs",
		Long: `Show recent pipeline runs from the state database. With a run ID,
show that run's per-state outcomes instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			st, err := openStore(cfg.StateDB)
			if err != nil {
				return err
			}
			defer st.Close()

			if len(args) == 1 {
				return showRun(cmd, st, args[0])
			}
			return listRuns(cmd, st, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Runs to show")
	return cmd
}

func listRuns(cmd *cobra.Command, st store.Store, limit int) error {
	runs, err := st.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"RUN ID", "COMMAND", "STATUS", "STARTED", "DURATION"})
	for _, r := range runs {
		dur := ""
		if r.CompletedAt != nil {
			dur = r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
		}
		t.AppendRow(table.Row{r.ID, r.Command, r.Status, r.StartedAt.Format(time.RFC3339), dur})
	}
	t.Render()
	return nil
}

func showRun(cmd *cobra.Command, st store.Store, runID string) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s  command=%s  status=%s  started=%s\n",
		run.ID, run.Command, run.Status, run.StartedAt.Format(time.RFC3339))
	if run.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", run.Error)
	}

	states, err := st.ListStateRuns(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"STATE", "SOURCE", "TARGET", "ROWS", "STATUS", "DURATION", "ERROR"})
	for _, sr := range states {
		t.AppendRow(table.Row{sr.State, sr.Source, sr.Target, sr.Rows, sr.Status, sr.Duration.Round(time.Millisecond), sr.Error})
	}
	t.Render()
	return nil
}
