package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

const testYAML = `
meta:
  strategy_id: earnings_sentiment_test
  version: "1.0.0"
thresholds:
  pos: 0.08
  neg: -0.04
benchmark:
  ticker: "^NSEI"
universe:
  - name: TCS
    ticker: TCS.NS
  - name: INFY
    ticker: INFY.NS
`

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, yamlData, err := Load(writeYAML(t, testYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Meta.StrategyID != "earnings_sentiment_test" {
		t.Errorf("strategy_id = %s", cfg.Meta.StrategyID)
	}
	if cfg.Thresholds.Pos != 0.08 || cfg.Thresholds.Neg != -0.04 {
		t.Errorf("thresholds = %+v", cfg.Thresholds)
	}

	// Unset fields keep defaults
	if cfg.Holding.PeriodDays != 7 {
		t.Errorf("holding period = %d, want default 7", cfg.Holding.PeriodDays)
	}
	if cfg.Ensemble.FinbertWeight != 0.6 {
		t.Errorf("finbert weight = %v, want default 0.6", cfg.Ensemble.FinbertWeight)
	}

	if len(cfg.Universe) != 2 {
		t.Errorf("universe size = %d, want 2", len(cfg.Universe))
	}
	if len(yamlData) == 0 {
		t.Error("raw yaml not returned")
	}
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := writeYAML(t, testYAML+"\nthresold_typo: 0.1\n")
	if _, _, err := Load(path); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, _, err := Load("/nonexistent/strategy.yaml"); err == nil {
		t.Fatal("missing file accepted")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Universe = []Company{{Name: "TCS", Ticker: "TCS.NS"}}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted thresholds", func(c *Config) { c.Thresholds = Thresholds{Pos: -0.05, Neg: 0.05} }},
		{"equal thresholds", func(c *Config) { c.Thresholds = Thresholds{Pos: 0.05, Neg: 0.05} }},
		{"weights not summing to one", func(c *Config) { c.Ensemble = Ensemble{FinbertWeight: 0.9, VaderWeight: 0.9} }},
		{"zero holding period", func(c *Config) { c.Holding.PeriodDays = 0 }},
		{"negative lookahead", func(c *Config) { c.Holding.LookaheadDays = -1 }},
		{"empty benchmark", func(c *Config) { c.Benchmark.Ticker = "" }},
		{"zero cache ttl", func(c *Config) { c.PriceCache.TTL = 0 }},
		{"zero retry attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"zero retry delay", func(c *Config) { c.Retry.InitialDelay = 0 }},
		{"zero parallelism", func(c *Config) { c.Pipeline.MaxParallelCompanies = 0 }},
		{"empty strategy id", func(c *Config) { c.Meta.StrategyID = "" }},
		{"universe entry without ticker", func(c *Config) { c.Universe = []Company{{Name: "TCS"}} }},
		{"duplicate company", func(c *Config) {
			c.Universe = []Company{{Name: "TCS", Ticker: "TCS.NS"}, {Name: "TCS", Ticker: "TCS.BO"}}
		}},
	}

	if err := Validate(valid()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("invalid config accepted")
			}
			// Every validation failure is a configuration error
			if !errors.Is(err, contracts.ErrConfig) {
				t.Errorf("error does not wrap ErrConfig: %v", err)
			}
		})
	}
}

func TestHash_Deterministic(t *testing.T) {
	cfg := Default()
	cfg.Universe = []Company{{Name: "TCS", Ticker: "TCS.NS"}}

	first, err := Hash(cfg)
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("expected 64 char hash, got %d", len(first))
	}

	second, _ := Hash(cfg)
	if first != second {
		t.Error("hash not deterministic")
	}

	// Any tuning change must change the hash
	cfg.Thresholds.Pos = 0.06
	third, _ := Hash(cfg)
	if third == first {
		t.Error("hash unchanged after threshold change")
	}
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.PriceCache.TTL != 6*time.Hour {
		t.Errorf("default TTL = %v", cfg.PriceCache.TTL)
	}
}
