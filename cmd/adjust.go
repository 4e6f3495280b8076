package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cropplan/internal/export"
	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/planner"
)

var adjustCmd = &cobra.Command{
	Use:   "adjust <run-id>",
	Short: "Apply move instructions to a saved run",
	Long:  "Loads a saved run, applies move, add and remove instructions in order, drops allocations that no longer fit and saves the adjusted run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		planPath, _ := cmd.Flags().GetString("plan")
		movesPath, _ := cmd.Flags().GetString("moves")
		plan, err := loader.LoadPlan(planPath)
		if err != nil {
			return err
		}
		moves, err := loader.LoadMoves(movesPath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		out, run, err := planner.New(st, cfg.Optimization).Adjust(ctx, args[0], plan, moves, !dryRun)
		if err != nil {
			return eris.Wrap(err, "adjust")
		}

		if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
			if err := export.WriteXLSX(out.Result, path); err != nil {
				return err
			}
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, out)
		}
		formatResult(os.Stdout, out.Result)
		if len(out.Dropped) > 0 {
			fmt.Fprintf(os.Stdout, "\nDropped %d conflicting allocation(s):\n", len(out.Dropped))
			formatAllocations(os.Stdout, out.Dropped)
		}
		if run != nil {
			fmt.Fprintf(os.Stdout, "\nSaved run %s (parent %s)\n", run.ID, run.ParentID)
		}
		return nil
	},
}

func init() {
	adjustCmd.Flags().String("plan", "", "plan file with the fields, crops, rules and growth windows")
	adjustCmd.Flags().String("moves", "", "move instructions file")
	adjustCmd.Flags().Bool("dry-run", false, "apply the moves without saving a new run")
	adjustCmd.Flags().String("xlsx", "", "also write the adjusted result to this spreadsheet")
	adjustCmd.Flags().Bool("json", false, "print the outcome as JSON")
	_ = adjustCmd.MarkFlagRequired("plan")
	_ = adjustCmd.MarkFlagRequired("moves")
	rootCmd.AddCommand(adjustCmd)
}
