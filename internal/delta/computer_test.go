package delta

import (
	"errors"
	"testing"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

func fptr(v float64) *float64 { return &v }

func record(quarter string, finbert, vader *float64) contracts.SentimentRecord {
	return contracts.SentimentRecord{
		Company:      "TCS",
		Quarter:      quarter,
		FinbertScore: finbert,
		VaderScore:   vader,
		EarningsDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		ObservedAt:   time.Now(),
	}
}

func TestComputeDeltas(t *testing.T) {
	computer := NewComputer(logger.NewNop())

	history := []contracts.SentimentRecord{
		record("2026Q1", fptr(0.10), fptr(0.08)),
		record("2026Q2", fptr(0.22), fptr(0.15)),
		record("2026Q3", fptr(0.05), fptr(0.02)),
	}

	result, err := computer.ComputeDeltas(history)
	if err != nil {
		t.Fatalf("ComputeDeltas failed: %v", err)
	}

	// n records yield exactly n-1 deltas
	if len(result.Deltas) != 2 {
		t.Fatalf("expected 2 deltas, got %d", len(result.Deltas))
	}
	if len(result.Missing) != 0 {
		t.Errorf("expected no missing pairs, got %d", len(result.Missing))
	}

	epsilon := 1e-9
	d1 := result.Deltas[0]
	if diff := d1.DeltaFinbert - 0.12; diff > epsilon || diff < -epsilon {
		t.Errorf("Q1->Q2 finbert delta = %v, want 0.12", d1.DeltaFinbert)
	}
	if diff := d1.DeltaVader - 0.07; diff > epsilon || diff < -epsilon {
		t.Errorf("Q1->Q2 vader delta = %v, want 0.07", d1.DeltaVader)
	}

	d2 := result.Deltas[1]
	if diff := d2.DeltaFinbert - (-0.17); diff > epsilon || diff < -epsilon {
		t.Errorf("Q2->Q3 finbert delta = %v, want -0.17", d2.DeltaFinbert)
	}
	if d2.QuarterFrom != "2026Q2" || d2.QuarterTo != "2026Q3" {
		t.Errorf("unexpected quarter pair %s -> %s", d2.QuarterFrom, d2.QuarterTo)
	}
}

func TestComputeDeltas_InsufficientHistory(t *testing.T) {
	computer := NewComputer(logger.NewNop())

	tests := []struct {
		name    string
		history []contracts.SentimentRecord
	}{
		{"empty", nil},
		{"single record", []contracts.SentimentRecord{record("2026Q1", fptr(0.1), fptr(0.1))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := computer.ComputeDeltas(tt.history)
			if !errors.Is(err, contracts.ErrInsufficientHistory) {
				t.Errorf("expected ErrInsufficientHistory, got %v", err)
			}
		})
	}
}

func TestComputeDeltas_MissingScores(t *testing.T) {
	computer := NewComputer(logger.NewNop())

	// Q2 has no vader score: both pairs touching Q2 become missing,
	// the Q3->Q4 pair is still computed.
	history := []contracts.SentimentRecord{
		record("2026Q1", fptr(0.10), fptr(0.08)),
		record("2026Q2", fptr(0.22), nil),
		record("2026Q3", fptr(0.05), fptr(0.02)),
		record("2026Q4", fptr(0.11), fptr(0.06)),
	}

	result, err := computer.ComputeDeltas(history)
	if err != nil {
		t.Fatalf("ComputeDeltas failed: %v", err)
	}

	if len(result.Deltas) != 1 {
		t.Fatalf("expected 1 delta, got %d", len(result.Deltas))
	}
	if result.Deltas[0].QuarterFrom != "2026Q3" || result.Deltas[0].QuarterTo != "2026Q4" {
		t.Errorf("unexpected surviving pair %s -> %s",
			result.Deltas[0].QuarterFrom, result.Deltas[0].QuarterTo)
	}

	if len(result.Missing) != 2 {
		t.Fatalf("expected 2 missing pairs, got %d", len(result.Missing))
	}
	for _, pair := range result.Missing {
		if pair.Reason == "" {
			t.Errorf("missing pair %s->%s has empty reason", pair.QuarterFrom, pair.QuarterTo)
		}
	}
}

func TestComputeDeltas_AllPairsMissing(t *testing.T) {
	computer := NewComputer(logger.NewNop())

	history := []contracts.SentimentRecord{
		record("2026Q1", nil, fptr(0.08)),
		record("2026Q2", fptr(0.22), nil),
	}

	// Not an error: the company just produces no signals this run
	result, err := computer.ComputeDeltas(history)
	if err != nil {
		t.Fatalf("ComputeDeltas failed: %v", err)
	}
	if len(result.Deltas) != 0 || len(result.Missing) != 1 {
		t.Errorf("expected 0 deltas and 1 missing pair, got %d/%d",
			len(result.Deltas), len(result.Missing))
	}
}
