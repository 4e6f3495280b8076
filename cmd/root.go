package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cropplan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "cropplan",
	Short: "Crop-to-field allocation optimizer",
	Long:  "Plans which crops to grow on which fields, when and on how much area, maximizing profit under area, fallow and rotation constraints.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := applyStoreFlags(cmd, c); err != nil {
			return err
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("configuration loaded",
			zap.String("command", cmd.Name()),
			zap.String("store_driver", cfg.Store.Driver),
			zap.Int("max_iterations", cfg.Optimization.MaxLocalSearchIterations),
			zap.Uint64("seed", cfg.Optimization.RandomSeed),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// applyStoreFlags lets --store and --database-url override the configured
// run store, then revalidates the result.
func applyStoreFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("store") {
		c.Store.Driver, _ = flags.GetString("store")
	}
	if flags.Changed("database-url") {
		c.Store.DatabaseURL, _ = flags.GetString("database-url")
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("store flags: %w", err)
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("store", "", "run store driver: sqlite or postgres (default from config)")
	rootCmd.PersistentFlags().String("database-url", "", "run store DSN or sqlite path (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
