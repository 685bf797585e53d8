package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gudapatin/sentalpha/internal/alpha"
	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/delta"
	"github.com/gudapatin/sentalpha/internal/signal"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// SentimentSource provides a company's ordered sentiment history
type SentimentSource interface {
	GetByCompany(ctx context.Context, company string) ([]contracts.SentimentRecord, error)
}

// PriceSource resolves price series; the shared series cache
// implements it.
type PriceSource interface {
	Get(ctx context.Context, ticker string, rng contracts.DateRange, refresh bool) (*contracts.PriceSeries, error)
}

// ArtifactStore persists pipeline outputs idempotently by key
type ArtifactStore interface {
	SaveSignal(ctx context.Context, sig *contracts.Signal) error
	SaveAlphaResult(ctx context.Context, res *contracts.AlphaResult) error
	SaveReport(ctx context.Context, report *contracts.CompanyReport) error
}

// Orchestrator sequences the per-company stage machine:
//
//	Sentiment → Delta → Signal → PriceFetch → Alpha → Persist
//
// Companies run in parallel under a bounded group; within a company
// the chain is sequential. Per-quarter failures are collected into the
// company report and never abort sibling quarters or companies. Only
// configuration errors (checked before any stage) and persistence
// failures are fatal at company scope.
type Orchestrator struct {
	sentiments SentimentSource
	computer   *delta.Computer
	classifier *signal.Classifier
	calculator *alpha.Calculator
	prices     PriceSource
	artifacts  ArtifactStore
	hub        *Hub

	cfg        *strategyconfig.Config
	configHash string
	logger     *logger.Logger
}

// priceRangePadDays widens the fetched window so forward-fill has room
// on both ends of the signal dates.
const priceRangePadDays = 7

// NewOrchestrator creates an orchestrator. The strategy config is
// validated here, before any stage can run; an invalid config is
// fatal for the whole invocation.
func NewOrchestrator(
	cfg *strategyconfig.Config,
	sentiments SentimentSource,
	prices PriceSource,
	artifacts ArtifactStore,
	hub *Hub,
	log *logger.Logger,
) (*Orchestrator, error) {
	if err := strategyconfig.Validate(cfg); err != nil {
		return nil, err
	}

	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: hash config: %v", contracts.ErrConfig, err)
	}

	return &Orchestrator{
		sentiments: sentiments,
		computer:   delta.NewComputer(log),
		classifier: signal.NewClassifier(cfg.Thresholds, cfg.Ensemble),
		calculator: alpha.NewCalculator(cfg.Holding, log),
		prices:     prices,
		artifacts:  artifacts,
		hub:        hub,
		cfg:        cfg,
		configHash: hash,
		logger:     log.WithField("module", "pipeline"),
	}, nil
}

// Run processes every company in the configured universe.
// Cross-company fan-out is bounded by max_parallel_companies so the
// price fetch pool is never oversubscribed; company failures land in
// the report, not in the returned error.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*contracts.RunReport, error) {
	startTime := time.Now()

	o.logger.WithFields(map[string]interface{}{
		"run_id":      runID,
		"companies":   len(o.cfg.Universe),
		"config_hash": o.configHash,
		"parallelism": o.cfg.Pipeline.MaxParallelCompanies,
	}).Info("Starting pipeline run")

	report := &contracts.RunReport{
		RunID:     runID,
		StartedAt: startTime,
		Companies: make([]contracts.CompanyReport, 0, len(o.cfg.Universe)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Pipeline.MaxParallelCompanies)

	for _, company := range o.cfg.Universe {
		company := company
		g.Go(func() error {
			companyReport := o.RunCompany(gctx, runID, company)

			mu.Lock()
			report.Companies = append(report.Companies, *companyReport)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	report.Duration = time.Since(startTime)

	o.logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"duration":  report.Duration,
		"exit_code": report.ExitCode(),
	}).Info("Pipeline run finished")

	return report, nil
}

// RunCompany executes the full stage chain for one company.
// Cancellation is cooperative: the context is checked between stages
// and before each external fetch; artifacts persisted before a cancel
// stay valid and are not rolled back.
func (o *Orchestrator) RunCompany(ctx context.Context, runID string, company strategyconfig.Company) *contracts.CompanyReport {
	startTime := time.Now()

	report := &contracts.CompanyReport{
		Company:    company.Name,
		RunID:      runID,
		ConfigHash: o.configHash,
		StartedAt:  startTime,
		Quarters:   make([]contracts.QuarterOutcome, 0),
	}

	// Every terminal state persists its report: failed and skipped
	// companies are exactly the ones the summary must explain. Only a
	// broken artifact store is exempt, the report write would fail the
	// same way.
	persistFailed := false
	defer func() {
		report.Duration = time.Since(startTime)
		report.Finalize()
		if !persistFailed {
			o.saveReport(ctx, report)
		}
	}()

	log := o.logger.WithField("company", company.Name)

	// Stage: Sentiment
	history, err := o.sentiments.GetByCompany(ctx, company.Name)
	if err != nil {
		report.Error = fmt.Sprintf("sentiment load failed: %v", err)
		o.publish(runID, company.Name, "", contracts.StageSentiment, "failed", report.Error)
		return report
	}
	o.publish(runID, company.Name, "", contracts.StageSentiment, "ok", "")

	if err := ctx.Err(); err != nil {
		report.Error = fmt.Sprintf("run cancelled: %v", err)
		return report
	}

	// Stage: Delta
	deltas, err := o.computer.ComputeDeltas(history)
	if err != nil {
		// InsufficientHistory skips this company, fatal for no one
		if errors.Is(err, contracts.ErrInsufficientHistory) {
			report.Quarters = append(report.Quarters, contracts.QuarterOutcome{
				Stage:  contracts.StageDelta,
				OK:     false,
				Reason: err.Error(),
			})
			o.publish(runID, company.Name, "", contracts.StageDelta, "skipped", err.Error())
			return report
		}
		report.Error = fmt.Sprintf("delta computation failed: %v", err)
		return report
	}
	report.Missing = deltas.Missing
	o.publish(runID, company.Name, "", contracts.StageDelta, "ok", "")

	if err := ctx.Err(); err != nil {
		report.Error = fmt.Sprintf("run cancelled: %v", err)
		return report
	}

	// Stage: Signal
	signals := o.classifier.ClassifyAll(deltas.Deltas)
	o.publish(runID, company.Name, "", contracts.StageSignal, "ok", "")

	if len(signals) == 0 {
		// Every pair was MissingData: nothing to trade, nothing fatal
		log.Warn("No signals classified, all quarter pairs missing")
		return report
	}

	if err := ctx.Err(); err != nil {
		report.Error = fmt.Sprintf("run cancelled: %v", err)
		return report
	}

	// Stage: PriceFetch (the only suspension point)
	rng := signalDateRange(signals, o.cfg.Holding)
	stock, bench, fetchErr := o.fetchSeries(ctx, company.Ticker, rng)
	if fetchErr != nil {
		// Every quarter's alpha is skipped; the signals still stand
		for _, sig := range signals {
			report.Quarters = append(report.Quarters, contracts.QuarterOutcome{
				Quarter: sig.QuarterTo,
				Stage:   contracts.StagePriceFetch,
				OK:      false,
				Reason:  fetchErr.Error(),
			})
		}
		o.publish(runID, company.Name, "", contracts.StagePriceFetch, "failed", fetchErr.Error())
		persistFailed = !o.persistSignals(ctx, report, signals)
		return report
	}
	o.publish(runID, company.Name, "", contracts.StagePriceFetch, "ok", "")

	// Stages: Alpha + Persist, per quarter
	for _, sig := range signals {
		if err := ctx.Err(); err != nil {
			report.Error = fmt.Sprintf("run cancelled: %v", err)
			return report
		}

		result := o.calculator.Compute(sig, stock, bench)

		if err := o.artifacts.SaveSignal(ctx, &sig); err != nil {
			report.Error = fmt.Sprintf("persist failed: %v", err)
			persistFailed = true
			o.publish(runID, company.Name, sig.QuarterTo, contracts.StagePersist, "failed", report.Error)
			return report
		}
		if err := o.artifacts.SaveAlphaResult(ctx, &result); err != nil {
			report.Error = fmt.Sprintf("persist failed: %v", err)
			persistFailed = true
			o.publish(runID, company.Name, sig.QuarterTo, contracts.StagePersist, "failed", report.Error)
			return report
		}

		outcome := contracts.QuarterOutcome{
			Quarter: sig.QuarterTo,
			Stage:   contracts.StageAlpha,
			OK:      result.Status == contracts.AlphaOK,
			Reason:  result.Reason,
		}
		report.Quarters = append(report.Quarters, outcome)

		status := "ok"
		if !outcome.OK {
			status = "skipped"
		}
		o.publish(runID, company.Name, sig.QuarterTo, contracts.StageAlpha, status, result.Reason)
	}

	return report
}

// fetchSeries resolves stock and benchmark series through the cache
func (o *Orchestrator) fetchSeries(ctx context.Context, ticker string, rng contracts.DateRange) (stock, bench *contracts.PriceSeries, err error) {
	stock, err = o.prices.Get(ctx, ticker, rng, false)
	if err != nil {
		return nil, nil, fmt.Errorf("stock series: %w", err)
	}

	bench, err = o.prices.Get(ctx, o.cfg.Benchmark.Ticker, rng, false)
	if err != nil {
		return nil, nil, fmt.Errorf("benchmark series: %w", err)
	}

	return stock, bench, nil
}

// persistSignals writes signals even when alpha could not be computed.
// Reports false when the artifact store is broken.
func (o *Orchestrator) persistSignals(ctx context.Context, report *contracts.CompanyReport, signals []contracts.Signal) bool {
	for _, sig := range signals {
		if err := o.artifacts.SaveSignal(ctx, &sig); err != nil {
			report.Error = fmt.Sprintf("persist failed: %v", err)
			return false
		}
	}
	return true
}

// saveReport persists the finalized run summary. Detached from run
// cancellation so an interrupted company still leaves its report
// behind; write failures are logged, not fatal: the artifacts
// themselves are safe.
func (o *Orchestrator) saveReport(ctx context.Context, report *contracts.CompanyReport) {
	if err := o.artifacts.SaveReport(context.WithoutCancel(ctx), report); err != nil {
		o.logger.WithError(err).WithField("company", report.Company).Warn("Failed to persist run report")
	}
}

// publish emits a structured stage event when a hub is attached
func (o *Orchestrator) publish(runID, company, quarter string, stage contracts.Stage, outcome, reason string) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(Event{
		RunID:   runID,
		Company: company,
		Quarter: quarter,
		Stage:   stage,
		Outcome: outcome,
		Reason:  reason,
	})
}

// signalDateRange covers every signal's entry and exit window with
// padding for forward-fill on both ends.
func signalDateRange(signals []contracts.Signal, holding strategyconfig.Holding) contracts.DateRange {
	earliest, latest := signals[0].IssuedAt, signals[0].IssuedAt
	for _, sig := range signals[1:] {
		if sig.IssuedAt.Before(earliest) {
			earliest = sig.IssuedAt
		}
		if sig.IssuedAt.After(latest) {
			latest = sig.IssuedAt
		}
	}

	return contracts.DateRange{
		From: earliest.AddDate(0, 0, -priceRangePadDays),
		To:   latest.AddDate(0, 0, holding.PeriodDays+holding.LookaheadDays+priceRangePadDays),
	}
}

// NewRunID builds a timestamp-based run identifier
func NewRunID(now time.Time) string {
	return "run_" + now.UTC().Format("20060102T150405Z")
}
