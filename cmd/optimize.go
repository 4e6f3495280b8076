package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/export"
	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/planner"
	"github.com/sells-group/cropplan/internal/store"
)

var optimizeCmd = &cobra.Command{
	Use:   "optimize <plan.yaml>",
	Short: "Optimize crop allocations for a plan",
	Long:  "Builds a candidate catalog from the plan's growth windows, constructs a greedy allocation and improves it by local search.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		plan, err := loader.LoadPlan(args[0])
		if err != nil {
			return err
		}

		o, err := overridesFromFlags(cmd)
		if err != nil {
			return err
		}
		save, _ := cmd.Flags().GetBool("save")

		var st store.Store
		if save {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		out, run, err := planner.New(st, cfg.Optimization).Optimize(ctx, plan, o, save)
		if err != nil {
			return eris.Wrap(err, "optimize")
		}

		zap.L().Info("optimization complete",
			zap.Int("candidates", out.Candidates),
			zap.Float64("greedy_profit", out.GreedyProfit),
			zap.Float64("profit", out.Result.TotalProfit),
			zap.Int("iterations", out.Search.Iterations),
			zap.String("stop_reason", string(out.Search.StopReason)),
		)

		if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
			if err := export.WriteXLSX(out.Result, path); err != nil {
				return err
			}
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, out.Result)
		}
		formatResult(os.Stdout, out.Result)
		if run != nil {
			fmt.Fprintf(os.Stdout, "\nSaved run %s\n", run.ID)
		}
		return nil
	},
}

// overridesFromFlags reads --preset and --seed.
func overridesFromFlags(cmd *cobra.Command) (planner.Overrides, error) {
	preset, _ := cmd.Flags().GetString("preset")
	o := planner.Overrides{Preset: preset}
	if cmd.Flags().Changed("seed") {
		seed, err := cmd.Flags().GetUint64("seed")
		if err != nil {
			return o, eris.Wrap(err, "parse --seed")
		}
		o.Seed = &seed
	}
	return o, nil
}

func init() {
	optimizeCmd.Flags().String("preset", "", "optimization preset: fast, balanced or quality (default from config)")
	optimizeCmd.Flags().Uint64("seed", 0, "random seed for neighbor sampling (default from config)")
	optimizeCmd.Flags().Bool("save", false, "persist the result to the run store")
	optimizeCmd.Flags().String("xlsx", "", "also write the result to this spreadsheet")
	optimizeCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(optimizeCmd)
}
