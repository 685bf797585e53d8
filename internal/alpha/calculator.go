package alpha

import (
	"fmt"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// Calculator aligns a signal's issuance date to price series and
// computes strategy/benchmark/alpha returns over the holding period.
type Calculator struct {
	holding strategyconfig.Holding
	logger  *logger.Logger
}

// NewCalculator creates an alpha calculator with the injected
// holding-period configuration.
func NewCalculator(holding strategyconfig.Holding, log *logger.Logger) *Calculator {
	return &Calculator{
		holding: holding,
		logger:  log.WithField("module", "alpha"),
	}
}

// Compute produces the AlphaResult for one signal.
//
// Entry is the price at issued_at, forward-filled to the next trading
// day when the exact date has no close; exit is issued_at plus the
// holding period under the same policy. An endpoint unresolved within
// the lookahead window yields status=skipped, never an error: a price
// gap must not abort sibling quarters.
//
// A hold signal keeps strategy_return at exactly 0 and still emits a
// defined alpha (the negative of the benchmark return).
func (c *Calculator) Compute(sig contracts.Signal, stock, bench *contracts.PriceSeries) contracts.AlphaResult {
	result := contracts.AlphaResult{
		Company: sig.Company,
		Quarter: sig.QuarterTo,
	}

	exitTarget := sig.IssuedAt.AddDate(0, 0, c.holding.PeriodDays)

	entryStock, ok := stock.ForwardFill(sig.IssuedAt, c.holding.LookaheadDays)
	if !ok {
		return c.skip(result, sig, "entry date unresolved in stock series")
	}
	exitStock, ok := stock.ForwardFill(exitTarget, c.holding.LookaheadDays)
	if !ok {
		return c.skip(result, sig, "exit date unresolved in stock series")
	}
	entryBench, ok := bench.ForwardFill(sig.IssuedAt, c.holding.LookaheadDays)
	if !ok {
		return c.skip(result, sig, "entry date unresolved in benchmark series")
	}
	exitBench, ok := bench.ForwardFill(exitTarget, c.holding.LookaheadDays)
	if !ok {
		return c.skip(result, sig, "exit date unresolved in benchmark series")
	}

	if entryStock.Close == 0 || entryBench.Close == 0 {
		return c.skip(result, sig, "zero entry price")
	}

	strategyReturn := sig.Action.Sign() * (exitStock.Close - entryStock.Close) / entryStock.Close
	benchmarkReturn := (exitBench.Close - entryBench.Close) / entryBench.Close
	alpha := strategyReturn - benchmarkReturn

	// Values exist only on ok results; a skipped result keeps every
	// pointer nil rather than carrying zeroes
	result.EntryDate = &entryStock.Date
	result.ExitDate = &exitStock.Date
	result.StrategyReturn = &strategyReturn
	result.BenchmarkReturn = &benchmarkReturn
	result.Alpha = &alpha
	result.Status = contracts.AlphaOK

	c.logger.WithFields(map[string]interface{}{
		"company":          sig.Company,
		"quarter":          sig.QuarterTo,
		"action":           sig.Action,
		"entry_date":       entryStock.Date.Format("2006-01-02"),
		"exit_date":        exitStock.Date.Format("2006-01-02"),
		"strategy_return":  strategyReturn,
		"benchmark_return": benchmarkReturn,
		"alpha":            alpha,
	}).Debug("Computed alpha")

	return result
}

// skip marks a result as skipped with a machine-readable reason
func (c *Calculator) skip(result contracts.AlphaResult, sig contracts.Signal, reason string) contracts.AlphaResult {
	result.Status = contracts.AlphaSkipped
	result.Reason = fmt.Sprintf("%s (issued %s, lookahead %dd)",
		reason, sig.IssuedAt.Format("2006-01-02"), c.holding.LookaheadDays)

	c.logger.WithFields(map[string]interface{}{
		"company": sig.Company,
		"quarter": sig.QuarterTo,
		"reason":  result.Reason,
	}).Warn("Skipped alpha computation")

	return result
}
