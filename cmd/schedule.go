package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/cropplan/internal/loader"
	"github.com/sells-group/cropplan/internal/planner"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <periods.yaml>",
	Short: "Pick the best non-overlapping periods for one field",
	Long:  "Selects the largest set of non-overlapping period options, breaking ties on the lowest total cost.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periods, err := loader.LoadPeriods(args[0])
		if err != nil {
			return err
		}
		sel := planner.New(nil, cfg.Optimization).Schedule(periods)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return writeJSON(os.Stdout, sel)
		}
		formatSelection(os.Stdout, sel)
		return nil
	},
}

func init() {
	scheduleCmd.Flags().Bool("json", false, "print the selection as JSON")
	rootCmd.AddCommand(scheduleCmd)
}
