package strategyconfig

import (
	"fmt"
	"math"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

// ValidationError is a fatal configuration failure. It aborts the run
// before any pipeline stage executes and wraps contracts.ErrConfig so
// the orchestrator can recognize it as fatal.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, contracts.ErrConfig) match
func (e ValidationError) Unwrap() error {
	return contracts.ErrConfig
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Thresholds ===
	// pos must sit strictly above neg or every delta classifies both ways
	if cfg.Thresholds.Pos <= cfg.Thresholds.Neg {
		return ValidationError{"thresholds", "pos must be greater than neg"}
	}
	if math.IsNaN(cfg.Thresholds.Pos) || math.IsNaN(cfg.Thresholds.Neg) {
		return ValidationError{"thresholds", "must not be NaN"}
	}

	// === Ensemble ===
	if err := validateWeightsSum([]float64{cfg.Ensemble.FinbertWeight, cfg.Ensemble.VaderWeight}, 1.0, 1e-6); err != nil {
		return ValidationError{"ensemble", err.Error()}
	}

	// === Holding ===
	if cfg.Holding.PeriodDays < 1 {
		return ValidationError{"holding.period_days", "must be >= 1"}
	}
	if cfg.Holding.LookaheadDays < 0 {
		return ValidationError{"holding.lookahead_days", "must be >= 0"}
	}

	// === Benchmark ===
	if cfg.Benchmark.Ticker == "" {
		return ValidationError{"benchmark.ticker", "required"}
	}

	// === Price cache / retry ===
	if cfg.PriceCache.TTL <= 0 {
		return ValidationError{"price_cache.ttl", "must be > 0"}
	}
	if cfg.Retry.MaxAttempts < 1 {
		return ValidationError{"retry.max_attempts", "must be >= 1"}
	}
	if cfg.Retry.InitialDelay <= 0 {
		return ValidationError{"retry.initial_delay", "must be > 0"}
	}

	// === Pipeline ===
	if cfg.Pipeline.MaxParallelCompanies < 1 {
		return ValidationError{"pipeline.max_parallel_companies", "must be >= 1"}
	}

	// === Universe ===
	seen := make(map[string]bool, len(cfg.Universe))
	for i, c := range cfg.Universe {
		if c.Name == "" || c.Ticker == "" {
			return ValidationError{fmt.Sprintf("universe[%d]", i), "name and ticker required"}
		}
		if seen[c.Name] {
			return ValidationError{fmt.Sprintf("universe[%d]", i), fmt.Sprintf("duplicate company %q", c.Name)}
		}
		seen[c.Name] = true
	}

	// === Grid ===
	for _, p := range cfg.Grid.Pos {
		for _, n := range cfg.Grid.Neg {
			if p <= n {
				return ValidationError{"grid", fmt.Sprintf("pos %v must be greater than neg %v", p, n)}
			}
		}
	}

	return nil
}

func validateWeightsSum(weights []float64, expected, tolerance float64) error {
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("weights must be non-negative")
		}
		sum += w
	}
	if math.Abs(sum-expected) > tolerance {
		return fmt.Errorf("weights must sum to %.1f, got %.4f", expected, sum)
	}
	return nil
}
