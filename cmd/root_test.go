package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cropplan/internal/config"
	"github.com/sells-group/cropplan/internal/interval"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/result"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"optimize", "schedule", "adjust", "runs", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cropplan", rootCmd.Use)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("store"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("database-url"))
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestOptimizeCommand_Flags(t *testing.T) {
	for _, name := range []string{"preset", "seed", "save", "xlsx", "json"} {
		assert.NotNil(t, optimizeCmd.Flags().Lookup(name), "optimize should have --%s", name)
	}
	assert.Equal(t, "false", optimizeCmd.Flags().Lookup("save").DefValue)
}

func TestOverridesFromFlags(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("preset", "", "")
	cmd.Flags().Uint64("seed", 0, "")

	o, err := overridesFromFlags(cmd)
	require.NoError(t, err)
	assert.Empty(t, o.Preset)
	assert.Nil(t, o.Seed)

	require.NoError(t, cmd.Flags().Set("preset", "quality"))
	require.NoError(t, cmd.Flags().Set("seed", "0"))
	o, err = overridesFromFlags(cmd)
	require.NoError(t, err)
	assert.Equal(t, "quality", o.Preset)
	require.NotNil(t, o.Seed)
	assert.Equal(t, uint64(0), *o.Seed)
}

func TestAdjustCommand_RequiredFlags(t *testing.T) {
	for _, name := range []string{"plan", "moves"} {
		f := adjustCmd.Flags().Lookup(name)
		require.NotNil(t, f, "adjust should have --%s", name)
		assert.Contains(t, f.Annotations, cobra.BashCompOneRequiredFlag)
	}
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "allocations", "export", "stats"} {
		assert.True(t, names[name], "expected runs subcommand %q not found", name)
	}
}

func TestFormatResult(t *testing.T) {
	field, err := model.NewField(model.Field{ID: "north", Name: "North", Area: 1500, DailyFixedCost: 5})
	require.NoError(t, err)
	idle, err := model.NewField(model.Field{ID: "south", Area: 200})
	require.NoError(t, err)
	rev := 20.0
	crop, err := model.NewCrop(model.Crop{ID: "tomato", Name: "Tomato", Variety: "Roma", AreaPerUnit: 0.5, RevenuePerArea: &rev})
	require.NoError(t, err)

	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	revenue, profit := 30000.0, 29500.0
	a, err := model.NewCropAllocation(model.CropAllocation{
		AllocationID: "alloc-0001-aaaa", Field: field, Crop: crop, AreaUsed: 1500,
		StartDate: start, CompletionDate: start.AddDate(0, 0, 100), GrowthDays: 100,
		TotalCost: 500, ExpectedRevenue: &revenue, Profit: &profit,
	})
	require.NoError(t, err)
	res, err := result.NewBuilder().Build([]model.CropAllocation{a}, []*model.Field{field, idle}, "greedy+local_search", time.Second)
	require.NoError(t, err)

	var buf bytes.Buffer
	formatResult(&buf, res)

	output := buf.String()
	assert.Contains(t, output, "Total profit:")
	assert.Contains(t, output, "29,500.00")
	assert.Contains(t, output, "north")
	assert.Contains(t, output, "south")
	assert.Contains(t, output, "Tomato (Roma)")
	assert.Contains(t, output, "2025-04-01")
	assert.Contains(t, output, "alloc-00")
}

func TestFormatSelection(t *testing.T) {
	start := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)
	cost := 80.0
	sel := interval.Selection{
		Results:   []model.OptimizationIntermediateResult{{Label: "mid", StartDate: start, CompletionDate: &end, GrowthDays: 10, TotalCost: &cost}},
		TotalCost: 80,
	}

	var buf bytes.Buffer
	formatSelection(&buf, sel)

	output := buf.String()
	assert.Contains(t, output, "mid")
	assert.Contains(t, output, "2025-01-15")
	assert.Contains(t, output, "Selected:")
	assert.Contains(t, output, "80.00")
}

func validConfig() *config.Config {
	return &config.Config{
		Optimization: config.BalancedPreset(),
		Store:        config.StoreConfig{Driver: "sqlite", DatabaseURL: "cropplan.db", ConnectAttempts: 3},
		Server:       config.ServerConfig{Port: 8080, RateLimit: 1, RateBurst: 2},
		Log:          config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestApplyStoreFlags(t *testing.T) {
	tests := []struct {
		name       string
		flags      map[string]string
		wantDriver string
		wantURL    string
		wantErr    string
	}{
		{"no flags", nil, "sqlite", "cropplan.db", ""},
		{"sqlite path", map[string]string{"database-url": "/tmp/runs.db"}, "sqlite", "/tmp/runs.db", ""},
		{"postgres", map[string]string{"store": "postgres", "database-url": "postgres://localhost/plans"}, "postgres", "postgres://localhost/plans", ""},
		{"postgres without url", map[string]string{"store": "postgres", "database-url": ""}, "", "", "database_url is required"},
		{"unknown driver", map[string]string{"store": "oracle"}, "", "", "store.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("store", "", "")
			cmd.Flags().String("database-url", "", "")
			for k, v := range tt.flags {
				require.NoError(t, cmd.Flags().Set(k, v))
			}

			c := validConfig()
			err := applyStoreFlags(cmd, c)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, c.Store.Driver)
			assert.Equal(t, tt.wantURL, c.Store.DatabaseURL)
		})
	}
}
