package config

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Preset names.
const (
	PresetFast     = "fast"
	PresetBalanced = "balanced"
	PresetQuality  = "quality"
)

// Operation names, shared by the neighbor registry and operation_weights.
const (
	OpFieldSwap     = "field_swap"
	OpFieldMove     = "field_move"
	OpFieldReplace  = "field_replace"
	OpFieldRemove   = "field_remove"
	OpCropInsert    = "crop_insert"
	OpCropChange    = "crop_change"
	OpPeriodReplace = "period_replace"
	OpAreaAdjust    = "area_adjust"
)

// OptimizationConfig tunes candidate generation and local search.
type OptimizationConfig struct {
	Preset string `yaml:"preset" mapstructure:"preset"`

	// Candidate catalog.
	AreaLevels                        []float64 `yaml:"area_levels" mapstructure:"area_levels"` // fractions of field area
	TopPeriodCandidates               int       `yaml:"top_period_candidates" mapstructure:"top_period_candidates"`
	MinProfitRateThreshold            float64   `yaml:"min_profit_rate_threshold" mapstructure:"min_profit_rate_threshold"`
	MinRevenueCostRatio               float64   `yaml:"min_revenue_cost_ratio" mapstructure:"min_revenue_cost_ratio"`
	MaxCandidatesPerFieldCrop         int       `yaml:"max_candidates_per_field_crop" mapstructure:"max_candidates_per_field_crop"`
	EnableParallelCandidateGeneration bool      `yaml:"enable_parallel_candidate_generation" mapstructure:"enable_parallel_candidate_generation"`
	Workers                           int       `yaml:"workers" mapstructure:"workers"`

	// Local search.
	MaxLocalSearchIterations     int                `yaml:"max_local_search_iterations" mapstructure:"max_local_search_iterations"`
	MaxNoImprovement             int                `yaml:"max_no_improvement" mapstructure:"max_no_improvement"`
	MaxNeighborsPerIteration     int                `yaml:"max_neighbors_per_iteration" mapstructure:"max_neighbors_per_iteration"`
	EnableNeighborSampling       bool               `yaml:"enable_neighbor_sampling" mapstructure:"enable_neighbor_sampling"`
	EnableAdaptiveEarlyStopping  bool               `yaml:"enable_adaptive_early_stopping" mapstructure:"enable_adaptive_early_stopping"`
	AdaptiveWindow               int                `yaml:"adaptive_window" mapstructure:"adaptive_window"`
	ImprovementThresholdRatio    float64            `yaml:"improvement_threshold_ratio" mapstructure:"improvement_threshold_ratio"`
	AreaAdjustmentMultipliers    []float64          `yaml:"area_adjustment_multipliers" mapstructure:"area_adjustment_multipliers"`
	OperationWeights             map[string]float64 `yaml:"operation_weights" mapstructure:"operation_weights"`
	MaxPeriodReplaceAlternatives int                `yaml:"max_period_replace_alternatives" mapstructure:"max_period_replace_alternatives"`
	MaxInsertNeighbors           int                `yaml:"max_insert_neighbors" mapstructure:"max_insert_neighbors"`
	RandomSeed                   uint64             `yaml:"random_seed" mapstructure:"random_seed"`
	MaxDurationSecs              int                `yaml:"max_duration_secs" mapstructure:"max_duration_secs"` // 0 = no limit
}

// MaxDuration returns the wall-clock cap of a local search run, or 0.
func (c OptimizationConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxDurationSecs) * time.Second
}

// Weight returns the configured weight for an operation, or fallback when unset.
func (c OptimizationConfig) Weight(op string, fallback float64) float64 {
	if w, ok := c.OperationWeights[op]; ok {
		return w
	}
	return fallback
}

// DefaultOperationWeights returns the relative draw weights of each operator.
func DefaultOperationWeights() map[string]float64 {
	return map[string]float64{
		OpFieldSwap:     0.15,
		OpFieldMove:     0.15,
		OpFieldReplace:  0.10,
		OpFieldRemove:   0.05,
		OpCropInsert:    0.20,
		OpCropChange:    0.15,
		OpPeriodReplace: 0.10,
		OpAreaAdjust:    0.10,
	}
}

// Preset returns the named optimization preset.
func Preset(name string) (OptimizationConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetFast:
		return FastPreset(), nil
	case PresetBalanced, "":
		return BalancedPreset(), nil
	case PresetQuality:
		return QualityPreset(), nil
	}
	return OptimizationConfig{}, eris.Errorf("config: unknown optimization preset %q (want fast, balanced or quality)", name)
}

// FastPreset trades search breadth for latency.
func FastPreset() OptimizationConfig {
	return OptimizationConfig{
		Preset:                            PresetFast,
		AreaLevels:                        []float64{1.0, 0.5},
		TopPeriodCandidates:               5,
		MinProfitRateThreshold:            0,
		MinRevenueCostRatio:               0,
		MaxCandidatesPerFieldCrop:         10,
		EnableParallelCandidateGeneration: true,
		Workers:                           4,
		MaxLocalSearchIterations:          50,
		MaxNoImprovement:                  10,
		MaxNeighborsPerIteration:          50,
		EnableNeighborSampling:            true,
		EnableAdaptiveEarlyStopping:       true,
		AdaptiveWindow:                    5,
		ImprovementThresholdRatio:         0.001,
		AreaAdjustmentMultipliers:         []float64{0.8, 1.2},
		OperationWeights:                  DefaultOperationWeights(),
		MaxPeriodReplaceAlternatives:      2,
		MaxInsertNeighbors:                20,
		RandomSeed:                        1,
	}
}

// BalancedPreset is the default.
func BalancedPreset() OptimizationConfig {
	return OptimizationConfig{
		Preset:                            PresetBalanced,
		AreaLevels:                        []float64{1.0, 0.75, 0.5, 0.25},
		TopPeriodCandidates:               10,
		MinProfitRateThreshold:            0,
		MinRevenueCostRatio:               0,
		MaxCandidatesPerFieldCrop:         20,
		EnableParallelCandidateGeneration: true,
		Workers:                           8,
		MaxLocalSearchIterations:          200,
		MaxNoImprovement:                  30,
		MaxNeighborsPerIteration:          200,
		EnableNeighborSampling:            true,
		EnableAdaptiveEarlyStopping:       true,
		AdaptiveWindow:                    10,
		ImprovementThresholdRatio:         0.0005,
		AreaAdjustmentMultipliers:         []float64{0.8, 0.9, 1.1, 1.2},
		OperationWeights:                  DefaultOperationWeights(),
		MaxPeriodReplaceAlternatives:      3,
		MaxInsertNeighbors:                50,
		RandomSeed:                        1,
	}
}

// QualityPreset explores exhaustively and stops late.
func QualityPreset() OptimizationConfig {
	return OptimizationConfig{
		Preset:                            PresetQuality,
		AreaLevels:                        []float64{1.0, 0.75, 0.5, 0.25},
		TopPeriodCandidates:               20,
		MinProfitRateThreshold:            0,
		MinRevenueCostRatio:               0,
		MaxCandidatesPerFieldCrop:         50,
		EnableParallelCandidateGeneration: true,
		Workers:                           8,
		MaxLocalSearchIterations:          1000,
		MaxNoImprovement:                  100,
		MaxNeighborsPerIteration:          1000,
		EnableNeighborSampling:            false,
		EnableAdaptiveEarlyStopping:       false,
		AdaptiveWindow:                    20,
		ImprovementThresholdRatio:         0.0001,
		AreaAdjustmentMultipliers:         []float64{0.7, 0.8, 0.9, 1.1, 1.2, 1.3},
		OperationWeights:                  DefaultOperationWeights(),
		MaxPeriodReplaceAlternatives:      5,
		MaxInsertNeighbors:                200,
		RandomSeed:                        1,
	}
}

// Validate checks that the configuration is internally consistent.
func (c OptimizationConfig) Validate() error {
	var errs []string

	if len(c.AreaLevels) == 0 {
		errs = append(errs, "area_levels must not be empty")
	}
	for _, l := range c.AreaLevels {
		if l <= 0 || l > 1 {
			errs = append(errs, fmt.Sprintf("area_levels entries must be in (0, 1], got %v", l))
		}
	}
	if c.TopPeriodCandidates <= 0 {
		errs = append(errs, "top_period_candidates must be > 0")
	}
	if c.MinRevenueCostRatio < 0 {
		errs = append(errs, "min_revenue_cost_ratio must be >= 0")
	}
	if c.MaxCandidatesPerFieldCrop <= 0 {
		errs = append(errs, "max_candidates_per_field_crop must be > 0")
	}
	if c.MaxLocalSearchIterations < 0 {
		errs = append(errs, "max_local_search_iterations must be >= 0")
	}
	if c.MaxNoImprovement <= 0 {
		errs = append(errs, "max_no_improvement must be > 0")
	}
	if c.EnableNeighborSampling && c.MaxNeighborsPerIteration <= 0 {
		errs = append(errs, "max_neighbors_per_iteration must be > 0 when sampling is enabled")
	}
	if c.EnableAdaptiveEarlyStopping && c.AdaptiveWindow <= 0 {
		errs = append(errs, "adaptive_window must be > 0 when adaptive early stopping is enabled")
	}
	if c.ImprovementThresholdRatio < 0 {
		errs = append(errs, "improvement_threshold_ratio must be >= 0")
	}
	for _, m := range c.AreaAdjustmentMultipliers {
		if m <= 0 {
			errs = append(errs, fmt.Sprintf("area_adjustment_multipliers entries must be > 0, got %v", m))
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.OperationWeights)) {
		if _, ok := DefaultOperationWeights()[name]; !ok {
			errs = append(errs, fmt.Sprintf("operation_weights: unknown operation %q", name))
		}
		if c.OperationWeights[name] < 0 {
			errs = append(errs, fmt.Sprintf("operation_weights.%s must be >= 0", name))
		}
	}
	if c.MaxPeriodReplaceAlternatives < 0 {
		errs = append(errs, "max_period_replace_alternatives must be >= 0")
	}
	if c.MaxInsertNeighbors < 0 {
		errs = append(errs, "max_insert_neighbors must be >= 0")
	}
	if c.Workers < 0 {
		errs = append(errs, "workers must be >= 0")
	}
	if c.MaxDurationSecs < 0 {
		errs = append(errs, "max_duration_secs must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: optimization validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
