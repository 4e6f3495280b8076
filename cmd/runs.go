package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cropplan/internal/export"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved optimization runs",
	Long:  "Commands for listing, viewing and exporting saved optimization runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		algorithm, _ := cmd.Flags().GetString("algorithm")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status:    model.RunStatus(status),
			Algorithm: algorithm,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON || run.Result == nil {
			return writeJSON(os.Stdout, run)
		}
		formatResult(os.Stdout, run.Result)
		return nil
	},
}

// -- runs allocations --

var runsAllocationsCmd = &cobra.Command{
	Use:   "allocations <run-id>",
	Short: "List the stored allocation rows of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		recs, err := st.ListAllocations(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs allocations")
		}
		formatAllocationRecords(os.Stdout, recs)
		return nil
	},
}

// -- runs export --

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id> <out.xlsx>",
	Short: "Write a saved run to a spreadsheet",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs export")
		}
		if err := export.WriteXLSX(run.Result, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %s\n", args[1])
		return nil
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, store.RunFilter{Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatRunStats(os.Stdout, computeRunStats(runs))
		return nil
	},
}

// runStats holds aggregate statistics computed from a set of runs.
type runStats struct {
	Total     int
	Complete  int
	Adjusted  int
	Failed    int
	AvgProfit float64
	BestID    string
	Best      float64
}

// computeRunStats aggregates profit over the complete and adjusted runs.
func computeRunStats(runs []model.RunSummary) runStats {
	var s runStats
	s.Total = len(runs)

	var sum float64
	var n int
	for _, r := range runs {
		switch r.Status {
		case model.RunStatusComplete:
			s.Complete++
		case model.RunStatusAdjusted:
			s.Adjusted++
		default:
			s.Failed++
			continue
		}
		sum += r.TotalProfit
		n++
		if s.BestID == "" || r.TotalProfit > s.Best {
			s.BestID = r.ID
			s.Best = r.TotalProfit
		}
	}
	if n > 0 {
		s.AvgProfit = sum / float64(n)
	}
	return s
}

// formatRunStats writes aggregate stats to w.
func formatRunStats(out io.Writer, s runStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Complete:\t%d\n", s.Complete)
	_, _ = fmt.Fprintf(w, "Adjusted:\t%d\n", s.Adjusted)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	if s.BestID != "" {
		_, _ = fmt.Fprintf(w, "Avg profit:\t%s\n", money(s.AvgProfit))
		_, _ = fmt.Fprintf(w, "Best profit:\t%s (%s)\n", money(s.Best), truncateID(s.BestID))
	}
	_ = w.Flush()
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by run status (complete, adjusted, failed)")
	runsListCmd.Flags().String("algorithm", "", "filter by algorithm")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsStatsCmd.Flags().Int("limit", 1000, "number of most recent runs to aggregate")

	runsShowCmd.Flags().Bool("json", false, "print the run as JSON")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsAllocationsCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}
