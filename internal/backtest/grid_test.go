package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

func fptr(v float64) *float64 { return &v }

type fakeSentiments struct {
	histories map[string][]contracts.SentimentRecord
}

func (f *fakeSentiments) GetByCompany(ctx context.Context, company string) ([]contracts.SentimentRecord, error) {
	return f.histories[company], nil
}

type fakePrices struct {
	fetches int
}

func (f *fakePrices) Get(ctx context.Context, ticker string, rng contracts.DateRange, refresh bool) (*contracts.PriceSeries, error) {
	f.fetches++

	series := &contracts.PriceSeries{Ticker: ticker, FetchedAt: time.Now(), ValidRange: rng}
	price := 100.0
	for d := rng.From; !d.After(rng.To); d = d.AddDate(0, 0, 1) {
		series.Points = append(series.Points, contracts.PricePoint{Date: d, Close: price})
		price += 1.0
	}
	return series, nil
}

func gridStrategy() *strategyconfig.Config {
	cfg := strategyconfig.Default()
	cfg.Universe = []strategyconfig.Company{{Name: "TCS", Ticker: "TCS.NS"}}
	cfg.Grid = strategyconfig.Grid{
		Pos: []float64{0.05, 0.30},
		Neg: []float64{-0.05},
	}
	return cfg
}

func gridHistory() []contracts.SentimentRecord {
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	records := make([]contracts.SentimentRecord, 0, 4)
	score := 0.10
	for i := 0; i < 4; i++ {
		records = append(records, contracts.SentimentRecord{
			Company:      "TCS",
			Quarter:      fmt.Sprintf("2026Q%d", i+1),
			FinbertScore: fptr(score),
			VaderScore:   fptr(score),
			EarningsDate: base.AddDate(0, 3*i, 0),
			ObservedAt:   time.Now(),
		})
		score += 0.10 // +0.10 per transition
	}
	return records
}

func TestGridRun(t *testing.T) {
	sentiments := &fakeSentiments{histories: map[string][]contracts.SentimentRecord{
		"TCS": gridHistory(),
	}}
	prices := &fakePrices{}
	engine := NewGridEngine(gridStrategy(), sentiments, prices, logger.NewNop())

	result, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Cells) != 2 {
		t.Fatalf("cells = %d, want 2", len(result.Cells))
	}

	// pos=0.05: every +0.10 transition is a buy
	loose := result.Cells[0]
	if loose.Buys != 3 || loose.Holds != 0 {
		t.Errorf("loose cell: buys=%d holds=%d, want 3/0", loose.Buys, loose.Holds)
	}

	// pos=0.30: nothing clears the bar, all holds
	tight := result.Cells[1]
	if tight.Buys != 0 || tight.Holds != 3 {
		t.Errorf("tight cell: buys=%d holds=%d, want 0/3", tight.Buys, tight.Holds)
	}

	// Price series loaded once per ticker (stock + benchmark), not per cell
	if prices.fetches != 2 {
		t.Errorf("price fetches = %d, want 2", prices.fetches)
	}

	if _, ok := result.Best(); !ok {
		t.Error("Best() found no evaluated cell")
	}
}

func TestGridRun_InsufficientHistory(t *testing.T) {
	sentiments := &fakeSentiments{histories: map[string][]contracts.SentimentRecord{
		"TCS": gridHistory()[:1],
	}}
	engine := NewGridEngine(gridStrategy(), sentiments, &fakePrices{}, logger.NewNop())

	_, err := engine.Run(context.Background())
	if !errors.Is(err, contracts.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestGridRun_EmptyGrid(t *testing.T) {
	cfg := gridStrategy()
	cfg.Grid = strategyconfig.Grid{}

	sentiments := &fakeSentiments{histories: map[string][]contracts.SentimentRecord{
		"TCS": gridHistory(),
	}}
	engine := NewGridEngine(cfg, sentiments, &fakePrices{}, logger.NewNop())

	_, err := engine.Run(context.Background())
	if !errors.Is(err, contracts.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}
