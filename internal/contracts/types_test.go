package contracts

import (
	"testing"
	"time"
)

func fptr(v float64) *float64 { return &v }

func d(day int) time.Time {
	return time.Date(2026, 4, day, 0, 0, 0, 0, time.UTC)
}

func TestSentimentRecord_Valid(t *testing.T) {
	tests := []struct {
		name    string
		finbert *float64
		vader   *float64
		want    bool
	}{
		{"both present", fptr(0.1), fptr(0.2), true},
		{"zero scores are present", fptr(0), fptr(0), true},
		{"missing finbert", nil, fptr(0.2), false},
		{"missing vader", fptr(0.1), nil, false},
		{"both missing", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := SentimentRecord{FinbertScore: tt.finbert, VaderScore: tt.vader}
			if rec.Valid() != tt.want {
				t.Errorf("Valid() = %v, want %v", rec.Valid(), tt.want)
			}
		})
	}
}

func TestAction_Sign(t *testing.T) {
	if ActionBuy.Sign() != 1 || ActionSell.Sign() != -1 || ActionHold.Sign() != 0 {
		t.Errorf("Sign() = %v/%v/%v, want 1/-1/0",
			ActionBuy.Sign(), ActionSell.Sign(), ActionHold.Sign())
	}
}

func TestPriceSeries_ForwardFill(t *testing.T) {
	series := &PriceSeries{
		Ticker: "TCS.NS",
		Points: []PricePoint{
			{Date: d(1), Close: 100}, // Wednesday
			{Date: d(2), Close: 101},
			{Date: d(6), Close: 102}, // Monday after a gap
		},
	}

	tests := []struct {
		name      string
		date      time.Time
		lookahead int
		wantDate  time.Time
		wantOK    bool
	}{
		{"exact trading day", d(1), 7, d(1), true},
		{"weekend rolls forward", d(4), 7, d(6), true},
		{"gap inside lookahead", d(3), 7, d(6), true},
		{"gap beyond lookahead", d(3), 2, time.Time{}, false},
		{"past end of series", d(7), 7, time.Time{}, false},
		{"zero lookahead on trading day", d(2), 0, d(2), true},
		{"zero lookahead on gap", d(3), 0, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			point, ok := series.ForwardFill(tt.date, tt.lookahead)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && !point.Date.Equal(tt.wantDate) {
				t.Errorf("date = %s, want %s", point.Date, tt.wantDate)
			}
		})
	}
}

func TestDateRange_Key(t *testing.T) {
	rng := DateRange{From: d(1), To: d(30)}
	if got := rng.Key(); got != "2026-04-01:2026-04-30" {
		t.Errorf("Key() = %s", got)
	}
}

func TestDateRange_Contains(t *testing.T) {
	rng := DateRange{From: d(10), To: d(20)}

	if !rng.Contains(d(10)) || !rng.Contains(d(20)) || !rng.Contains(d(15)) {
		t.Error("range bounds are inclusive")
	}
	if rng.Contains(d(9)) || rng.Contains(d(21)) {
		t.Error("dates outside the range reported as contained")
	}
}
