package sentiment

import (
	"testing"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

func fptr(v float64) *float64 { return &v }

func rec(company, quarter string) contracts.SentimentRecord {
	return contracts.SentimentRecord{
		Company:      company,
		Quarter:      quarter,
		FinbertScore: fptr(0.1),
		VaderScore:   fptr(0.1),
		EarningsDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		ObservedAt:   time.Now(),
	}
}

func TestStore_AppendOrdersByQuarter(t *testing.T) {
	store := NewStore(logger.NewNop())

	// Out of order on purpose
	for _, quarter := range []string{"2026Q3", "2026Q1", "2026Q2"} {
		if err := store.Append(rec("TCS", quarter)); err != nil {
			t.Fatalf("Append(%s) failed: %v", quarter, err)
		}
	}

	history := store.History("TCS")
	want := []string{"2026Q1", "2026Q2", "2026Q3"}
	for i, quarter := range want {
		if history[i].Quarter != quarter {
			t.Errorf("history[%d] = %s, want %s", i, history[i].Quarter, quarter)
		}
	}
}

func TestStore_RejectsDuplicateQuarter(t *testing.T) {
	store := NewStore(logger.NewNop())

	if err := store.Append(rec("TCS", "2026Q1")); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	if err := store.Append(rec("TCS", "2026Q1")); err == nil {
		t.Fatal("duplicate quarter accepted")
	}

	// Same quarter for another company is fine
	if err := store.Append(rec("INFY", "2026Q1")); err != nil {
		t.Errorf("cross-company append failed: %v", err)
	}
	if store.Len() != 2 {
		t.Errorf("Len() = %d, want 2", store.Len())
	}
}

func TestStore_RejectsUnidentifiedRecords(t *testing.T) {
	store := NewStore(logger.NewNop())

	if err := store.Append(rec("", "2026Q1")); err == nil {
		t.Error("record without company accepted")
	}
	if err := store.Append(rec("TCS", "")); err == nil {
		t.Error("record without quarter accepted")
	}
}

func TestStore_AcceptsRecordsWithMissingScores(t *testing.T) {
	store := NewStore(logger.NewNop())

	// Missing scores are valid history, the delta stage handles them
	record := rec("TCS", "2026Q1")
	record.VaderScore = nil
	if err := store.Append(record); err != nil {
		t.Fatalf("record with missing score rejected: %v", err)
	}
}

func TestStore_HistoryReturnsCopy(t *testing.T) {
	store := NewStore(logger.NewNop())
	if err := store.Append(rec("TCS", "2026Q1")); err != nil {
		t.Fatal(err)
	}

	history := store.History("TCS")
	history[0].Quarter = "mutated"

	if store.History("TCS")[0].Quarter != "2026Q1" {
		t.Error("History() exposes internal state")
	}
}

func TestStore_Companies(t *testing.T) {
	store := NewStore(logger.NewNop())
	for _, company := range []string{"WIPRO", "TCS", "INFY"} {
		if err := store.Append(rec(company, "2026Q1")); err != nil {
			t.Fatal(err)
		}
	}

	companies := store.Companies()
	want := []string{"INFY", "TCS", "WIPRO"}
	if len(companies) != len(want) {
		t.Fatalf("Companies() = %v", companies)
	}
	for i := range want {
		if companies[i] != want[i] {
			t.Errorf("Companies()[%d] = %s, want %s", i, companies[i], want[i])
		}
	}
}
