package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Optimization OptimizationConfig `yaml:"optimization" mapstructure:"optimization"`
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the result store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`

	ConnectAttempts int `yaml:"connect_attempts" mapstructure:"connect_attempts"` // open+migrate tries
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	RateLimit      float64  `yaml:"rate_limit" mapstructure:"rate_limit"` // optimize requests per second
	RateBurst      int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment. The optimization preset
// (optimization.preset, default "balanced") supplies defaults for every
// optimization parameter; file and environment values override them.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CROPPLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "cropplan.db")
	v.SetDefault("store.connect_attempts", 3)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit", 1.0)
	v.SetDefault("server.rate_burst", 2)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("optimization.preset", PresetBalanced)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	preset, err := Preset(v.GetString("optimization.preset"))
	if err != nil {
		return nil, err
	}
	setOptimizationDefaults(v, preset)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section and reports all problems in one error.
func (c *Config) Validate() error {
	var errs []string
	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for the postgres driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
	}
	if c.Store.MaxConns < 0 || c.Store.MinConns < 0 {
		errs = append(errs, "store connection limits must be >= 0")
	}
	if c.Store.ConnectAttempts < 0 {
		errs = append(errs, fmt.Sprintf("store.connect_attempts must be >= 0, got %d", c.Store.ConnectAttempts))
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, fmt.Sprintf("server.rate_limit must be > 0, got %v", c.Server.RateLimit))
	}
	if c.Server.RateBurst < 1 {
		errs = append(errs, fmt.Sprintf("server.rate_burst must be >= 1, got %d", c.Server.RateBurst))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}
	if err := c.Optimization.Validate(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return eris.Errorf("config: invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// setOptimizationDefaults registers every optimization key so that file and
// environment overrides are visible to Unmarshal.
func setOptimizationDefaults(v *viper.Viper, p OptimizationConfig) {
	v.SetDefault("optimization.area_levels", p.AreaLevels)
	v.SetDefault("optimization.top_period_candidates", p.TopPeriodCandidates)
	v.SetDefault("optimization.min_profit_rate_threshold", p.MinProfitRateThreshold)
	v.SetDefault("optimization.min_revenue_cost_ratio", p.MinRevenueCostRatio)
	v.SetDefault("optimization.max_candidates_per_field_crop", p.MaxCandidatesPerFieldCrop)
	v.SetDefault("optimization.max_local_search_iterations", p.MaxLocalSearchIterations)
	v.SetDefault("optimization.max_no_improvement", p.MaxNoImprovement)
	v.SetDefault("optimization.max_neighbors_per_iteration", p.MaxNeighborsPerIteration)
	v.SetDefault("optimization.enable_neighbor_sampling", p.EnableNeighborSampling)
	v.SetDefault("optimization.enable_adaptive_early_stopping", p.EnableAdaptiveEarlyStopping)
	v.SetDefault("optimization.adaptive_window", p.AdaptiveWindow)
	v.SetDefault("optimization.improvement_threshold_ratio", p.ImprovementThresholdRatio)
	v.SetDefault("optimization.area_adjustment_multipliers", p.AreaAdjustmentMultipliers)
	for name, w := range p.OperationWeights {
		v.SetDefault(fmt.Sprintf("optimization.operation_weights.%s", name), w)
	}
	v.SetDefault("optimization.enable_parallel_candidate_generation", p.EnableParallelCandidateGeneration)
	v.SetDefault("optimization.workers", p.Workers)
	v.SetDefault("optimization.max_period_replace_alternatives", p.MaxPeriodReplaceAlternatives)
	v.SetDefault("optimization.max_insert_neighbors", p.MaxInsertNeighbors)
	v.SetDefault("optimization.random_seed", p.RandomSeed)
	v.SetDefault("optimization.max_duration_secs", p.MaxDurationSecs)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
