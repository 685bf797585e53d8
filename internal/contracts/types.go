package contracts

import (
	"fmt"
	"time"
)

// SentimentRecord is one quarter's scored earnings call for a company.
// Produced by the external NLP scorer and immutable afterwards.
// Scores are optional: a nil pointer means the scorer could not produce
// a value, which is distinct from a zero score.
type SentimentRecord struct {
	Company      string    `json:"company"`
	Quarter      string    `json:"quarter"` // sortable key, e.g. "2022Q1"
	FinbertScore *float64  `json:"finbert_score,omitempty"`
	VaderScore   *float64  `json:"vader_score,omitempty"`
	EarningsDate time.Time `json:"earnings_date"`
	ObservedAt   time.Time `json:"observed_at"`
}

// Valid reports whether both score types are present
func (r *SentimentRecord) Valid() bool {
	return r.FinbertScore != nil && r.VaderScore != nil
}

// SentimentDelta is the quarter-over-quarter change for one adjacent
// pair of records. A delta only exists when both sides of the pair
// carry both scores; pairs with a missing score become a MissingPair
// instead and never reach classification.
type SentimentDelta struct {
	Company      string  `json:"company"`
	QuarterFrom  string  `json:"quarter_from"`
	QuarterTo    string  `json:"quarter_to"`
	DeltaFinbert float64 `json:"delta_finbert"`
	DeltaVader   float64 `json:"delta_vader"`

	// Issuance date for any signal derived from this delta:
	// the earnings call date of the later quarter
	IssuedAt time.Time `json:"issued_at"`
}

// MissingPair records an adjacent quarter pair that could not produce
// a delta. Not an error: surrounding pairs are still computed.
type MissingPair struct {
	QuarterFrom string `json:"quarter_from"`
	QuarterTo   string `json:"quarter_to"`
	Reason      string `json:"reason"`
}

// Action is the trading action derived from a sentiment delta
type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

// Sign returns the strategy direction multiplier
func (a Action) Sign() float64 {
	switch a {
	case ActionBuy:
		return 1
	case ActionSell:
		return -1
	default:
		return 0
	}
}

// IsValid reports whether the action is one of buy/hold/sell
func (a Action) IsValid() bool {
	return a == ActionBuy || a == ActionHold || a == ActionSell
}

// Signal is the classified trading action for one quarter transition.
// Deterministic function of its delta and the active thresholds;
// immutable once issued.
type Signal struct {
	Company   string    `json:"company"`
	QuarterTo string    `json:"quarter_to"`
	Action    Action    `json:"action"`
	IssuedAt  time.Time `json:"issued_at"`

	// Basis is the delta the action was derived from
	Basis SentimentDelta `json:"basis"`

	// EnsembleDelta is the finbert/vader weighted combination,
	// informational only: classification uses the raw pair
	EnsembleDelta float64 `json:"ensemble_delta"`
}

// PricePoint is one trading day's closing price
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// DateRange is a half-open calendar window used as a cache key part
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Key returns the canonical string form used in cache keys
func (r DateRange) Key() string {
	return fmt.Sprintf("%s:%s", r.From.Format("2006-01-02"), r.To.Format("2006-01-02"))
}

// Contains reports whether d falls inside the range (inclusive)
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// PriceSeries is an ordered daily close series for one ticker.
// Read-only once stored in the cache; invalidation replaces the
// whole series rather than mutating points.
type PriceSeries struct {
	Ticker     string       `json:"ticker"`
	Points     []PricePoint `json:"points"` // ascending by date
	FetchedAt  time.Time    `json:"fetched_at"`
	ValidRange DateRange    `json:"valid_range"`
}

// At returns the price on an exact trading day
func (s *PriceSeries) At(date time.Time) (PricePoint, bool) {
	for _, p := range s.Points {
		if sameDay(p.Date, date) {
			return p, true
		}
	}
	return PricePoint{}, false
}

// ForwardFill resolves a date to the first trading day at or after it,
// bounded by maxLookaheadDays. Non-trading days (weekends, holidays)
// roll forward to the next available close.
func (s *PriceSeries) ForwardFill(date time.Time, maxLookaheadDays int) (PricePoint, bool) {
	limit := date.AddDate(0, 0, maxLookaheadDays)
	for _, p := range s.Points {
		if p.Date.Before(truncateDay(date)) {
			continue
		}
		if p.Date.After(limit) {
			return PricePoint{}, false
		}
		return p, true
	}
	return PricePoint{}, false
}

// Len returns the number of price points
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AlphaStatus describes how an alpha computation ended
type AlphaStatus string

const (
	AlphaOK      AlphaStatus = "ok"
	AlphaSkipped AlphaStatus = "skipped"
	AlphaStale   AlphaStatus = "stale"
)

// AlphaResult is the realized outcome of trading one signal against
// the benchmark. The only artifact overwritten on recomputation;
// everything upstream is append-only.
//
// Dates and return values are pointers: a skipped result emits no
// numbers at all (nil, serialized as absent JSON keys and SQL NULLs).
// A missing value is never coerced to zero; a hold signal's exact 0
// strategy return is a present value, distinct from nil.
type AlphaResult struct {
	Company         string      `json:"company"`
	Quarter         string      `json:"quarter"`
	EntryDate       *time.Time  `json:"entry_date,omitempty"`
	ExitDate        *time.Time  `json:"exit_date,omitempty"`
	StrategyReturn  *float64    `json:"strategy_return,omitempty"`
	BenchmarkReturn *float64    `json:"benchmark_return,omitempty"`
	Alpha           *float64    `json:"alpha,omitempty"`
	Status          AlphaStatus `json:"status"`

	// Reason is set for skipped results (machine-readable summary)
	Reason string `json:"reason,omitempty"`
}
