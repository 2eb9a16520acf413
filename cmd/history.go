package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zjrosen/pulse/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded scenario runs",
	Long: `List the scenario runs recorded with 'pulse run --record', newest first.

Example:
  pulse history
  pulse history --scenario "once listener fires once" --limit 5
  pulse history --show 2f1c...`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyScenario string
	historyLimit    int
	historyShow     string
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyScenario, "scenario", "", "only runs of this scenario")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs listed")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "print the failures of the run with this id")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	store, err := history.Open(cfg.History)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if historyShow != "" {
		run, err := store.Get(historyShow)
		if err != nil {
			return err
		}
		failures, err := store.Failures(run.ID)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s  %s  %s\n", run.GUID, run.Scenario, run.CreatedAt.Format(time.RFC3339))
		if len(failures) == 0 {
			_, _ = fmt.Fprintln(out, "  passed")
		}
		for _, f := range failures {
			_, _ = fmt.Fprintf(out, "  %s\n", f.Error())
		}
		return nil
	}

	runs, err := store.Recent(historyScenario, historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		_, _ = fmt.Fprintln(out, "no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tSCENARIO\tSTATUS\tSTEPS\tPROCESSED\tDELIVERED\tWHEN")
	for _, r := range runs {
		status := "pass"
		if !r.Passed() {
			status = fmt.Sprintf("fail (%d)", r.Failures)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.GUID, r.Scenario, status, r.Steps, r.Processed, r.Delivered, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
