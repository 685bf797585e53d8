package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/gudapatin/sentalpha/internal/alpha"
	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/delta"
	"github.com/gudapatin/sentalpha/internal/pipeline"
	"github.com/gudapatin/sentalpha/internal/signal"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// GridEngine sweeps threshold pairs over stored sentiment history and
// reports realized alpha per cell. Each cell reclassifies the same
// deltas under a different Thresholds value; nothing else varies.
type GridEngine struct {
	sentiments pipeline.SentimentSource
	prices     pipeline.PriceSource
	computer   *delta.Computer
	cfg        *strategyconfig.Config
	logger     *logger.Logger
}

// Cell is the outcome of one threshold combination
type Cell struct {
	Pos       float64 `json:"pos"`
	Neg       float64 `json:"neg"`
	Signals   int     `json:"signals"`
	Evaluated int     `json:"evaluated"`
	Skipped   int     `json:"skipped"`
	Buys      int     `json:"buys"`
	Sells     int     `json:"sells"`
	Holds     int     `json:"holds"`
	MeanAlpha float64 `json:"mean_alpha"`
}

// Result is the full grid sweep outcome
type Result struct {
	Companies []string      `json:"companies"`
	Cells     []Cell        `json:"cells"`
	Duration  time.Duration `json:"duration"`
}

// Best returns the cell with the highest mean alpha among cells that
// evaluated at least one signal.
func (r *Result) Best() (Cell, bool) {
	var best Cell
	found := false
	for _, c := range r.Cells {
		if c.Evaluated == 0 {
			continue
		}
		if !found || c.MeanAlpha > best.MeanAlpha {
			best = c
			found = true
		}
	}
	return best, found
}

// NewGridEngine creates a grid backtest engine
func NewGridEngine(
	cfg *strategyconfig.Config,
	sentiments pipeline.SentimentSource,
	prices pipeline.PriceSource,
	log *logger.Logger,
) *GridEngine {
	return &GridEngine{
		sentiments: sentiments,
		prices:     prices,
		computer:   delta.NewComputer(log),
		cfg:        cfg,
		logger:     log.WithField("module", "backtest"),
	}
}

// Run evaluates every grid cell against every configured company.
// Price series are resolved once per company through the shared cache
// and reused across cells.
func (e *GridEngine) Run(ctx context.Context) (*Result, error) {
	startTime := time.Now()

	if len(e.cfg.Grid.Pos) == 0 || len(e.cfg.Grid.Neg) == 0 {
		return nil, fmt.Errorf("%w: grid requires at least one pos and one neg value", contracts.ErrConfig)
	}

	e.logger.WithFields(map[string]interface{}{
		"companies": len(e.cfg.Universe),
		"cells":     len(e.cfg.Grid.Pos) * len(e.cfg.Grid.Neg),
	}).Info("Starting threshold grid sweep")

	// Load deltas and price series once per company
	inputs, err := e.loadInputs(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Cells: make([]Cell, 0, len(e.cfg.Grid.Pos)*len(e.cfg.Grid.Neg)),
	}
	for _, in := range inputs {
		result.Companies = append(result.Companies, in.company)
	}

	calculator := alpha.NewCalculator(e.cfg.Holding, e.logger)

	for _, pos := range e.cfg.Grid.Pos {
		for _, neg := range e.cfg.Grid.Neg {
			if err := ctx.Err(); err != nil {
				return result, err
			}

			cell := Cell{Pos: pos, Neg: neg}
			classifier := signal.NewClassifier(
				strategyconfig.Thresholds{Pos: pos, Neg: neg},
				e.cfg.Ensemble,
			)

			alphaSum := 0.0
			for _, in := range inputs {
				for _, sig := range classifier.ClassifyAll(in.deltas) {
					cell.Signals++
					switch sig.Action {
					case contracts.ActionBuy:
						cell.Buys++
					case contracts.ActionSell:
						cell.Sells++
					default:
						cell.Holds++
					}

					res := calculator.Compute(sig, in.stock, in.bench)
					if res.Status != contracts.AlphaOK {
						cell.Skipped++
						continue
					}
					cell.Evaluated++
					alphaSum += *res.Alpha
				}
			}

			if cell.Evaluated > 0 {
				cell.MeanAlpha = alphaSum / float64(cell.Evaluated)
			}
			result.Cells = append(result.Cells, cell)
		}
	}

	result.Duration = time.Since(startTime)

	e.logger.WithFields(map[string]interface{}{
		"cells":    len(result.Cells),
		"duration": result.Duration,
	}).Info("Grid sweep finished")

	return result, nil
}

// companyInputs holds the reusable per-company material for the sweep
type companyInputs struct {
	company string
	deltas  []contracts.SentimentDelta
	stock   *contracts.PriceSeries
	bench   *contracts.PriceSeries
}

func (e *GridEngine) loadInputs(ctx context.Context) ([]companyInputs, error) {
	var inputs []companyInputs

	for _, company := range e.cfg.Universe {
		history, err := e.sentiments.GetByCompany(ctx, company.Name)
		if err != nil {
			return nil, fmt.Errorf("load sentiment for %s: %w", company.Name, err)
		}

		deltas, err := e.computer.ComputeDeltas(history)
		if err != nil {
			// Companies without enough history just sit out the sweep
			e.logger.WithFields(map[string]interface{}{
				"company": company.Name,
				"reason":  err.Error(),
			}).Warn("Excluding company from grid sweep")
			continue
		}
		if len(deltas.Deltas) == 0 {
			continue
		}

		rng := deltaDateRange(deltas.Deltas, e.cfg.Holding)
		stock, err := e.prices.Get(ctx, company.Ticker, rng, false)
		if err != nil {
			return nil, fmt.Errorf("stock series for %s: %w", company.Name, err)
		}
		bench, err := e.prices.Get(ctx, e.cfg.Benchmark.Ticker, rng, false)
		if err != nil {
			return nil, fmt.Errorf("benchmark series for %s: %w", company.Name, err)
		}

		inputs = append(inputs, companyInputs{
			company: company.Name,
			deltas:  deltas.Deltas,
			stock:   stock,
			bench:   bench,
		})
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no company has enough sentiment history for a sweep",
			contracts.ErrInsufficientHistory)
	}
	return inputs, nil
}

func deltaDateRange(deltas []contracts.SentimentDelta, holding strategyconfig.Holding) contracts.DateRange {
	earliest, latest := deltas[0].IssuedAt, deltas[0].IssuedAt
	for _, d := range deltas[1:] {
		if d.IssuedAt.Before(earliest) {
			earliest = d.IssuedAt
		}
		if d.IssuedAt.After(latest) {
			latest = d.IssuedAt
		}
	}

	return contracts.DateRange{
		From: earliest.AddDate(0, 0, -7),
		To:   latest.AddDate(0, 0, holding.PeriodDays+holding.LookaheadDays+7),
	}
}
