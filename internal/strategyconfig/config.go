package strategyconfig

import "time"

// Config is the full strategy configuration for a signal-and-alpha run.
// Threshold values are tunable defaults, never compile-time constants:
// the grid backtest sweeps them without code changes.
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
	Ensemble   Ensemble   `yaml:"ensemble" json:"ensemble"`
	Holding    Holding    `yaml:"holding" json:"holding"`
	Benchmark  Benchmark  `yaml:"benchmark" json:"benchmark"`
	PriceCache PriceCache `yaml:"price_cache" json:"price_cache"`
	Retry      Retry      `yaml:"retry" json:"retry"`
	Pipeline   Pipeline   `yaml:"pipeline" json:"pipeline"`
	Universe   []Company  `yaml:"universe" json:"universe"`
	Grid       Grid       `yaml:"grid" json:"grid"`
}

// Meta identifies the strategy revision
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Thresholds are the classification cut points. Strict inequalities:
// a delta exactly equal to a threshold classifies as hold.
type Thresholds struct {
	Pos float64 `yaml:"pos" json:"pos"`
	Neg float64 `yaml:"neg" json:"neg"`
}

// Ensemble holds the informational finbert/vader blend weights.
// Classification itself always uses the raw score pair.
type Ensemble struct {
	FinbertWeight float64 `yaml:"finbert_weight" json:"finbert_weight"`
	VaderWeight   float64 `yaml:"vader_weight" json:"vader_weight"`
}

// Holding defines the trade window relative to signal issuance
type Holding struct {
	PeriodDays    int `yaml:"period_days" json:"period_days"`
	LookaheadDays int `yaml:"lookahead_days" json:"lookahead_days"` // forward-fill bound
}

// Benchmark names the index series alpha is measured against
type Benchmark struct {
	Ticker string `yaml:"ticker" json:"ticker"`
}

// PriceCache tunes the shared price series cache
type PriceCache struct {
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

// Retry bounds the price fetch retry policy
type Retry struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
}

// Pipeline tunes cross-company parallelism
type Pipeline struct {
	MaxParallelCompanies int    `yaml:"max_parallel_companies" json:"max_parallel_companies"`
	Schedule             string `yaml:"schedule" json:"schedule"` // cron expression, empty disables
}

// Company maps a company identifier to its exchange ticker
type Company struct {
	Name   string `yaml:"name" json:"name"`
	Ticker string `yaml:"ticker" json:"ticker"`
}

// Grid defines the threshold sweep for the backtest command
type Grid struct {
	Pos []float64 `yaml:"pos" json:"pos"`
	Neg []float64 `yaml:"neg" json:"neg"`
}

// Default returns the built-in strategy configuration. The threshold
// values mirror the documented illustrative defaults and are expected
// to be tuned per deployment.
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "earnings_sentiment_v1",
			Version:    "1.0.0",
		},
		Thresholds: Thresholds{Pos: 0.05, Neg: -0.05},
		Ensemble:   Ensemble{FinbertWeight: 0.6, VaderWeight: 0.4},
		Holding:    Holding{PeriodDays: 7, LookaheadDays: 7},
		Benchmark:  Benchmark{Ticker: "^NSEI"},
		PriceCache: PriceCache{TTL: 6 * time.Hour},
		Retry: Retry{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
		},
		Pipeline: Pipeline{MaxParallelCompanies: 4},
		Grid: Grid{
			Pos: []float64{0.02, 0.05, 0.10},
			Neg: []float64{-0.02, -0.05, -0.10},
		},
	}
}
