package contracts

// Pipeline stage definitions (SSOT).
// Every log line, run report row and persisted artifact references
// these constants.
//
// Per-company flow:
//   Sentiment → Delta → Signal → PriceFetch → Alpha → Persist

// Stage represents a pipeline stage
type Stage string

const (
	// StageSentiment loads validated per-quarter sentiment history
	// (records themselves are produced by the external scorer)
	StageSentiment Stage = "SENTIMENT"

	// StageDelta computes quarter-over-quarter sentiment deltas
	StageDelta Stage = "DELTA"

	// StageSignal classifies deltas into buy/hold/sell actions
	StageSignal Stage = "SIGNAL"

	// StagePriceFetch resolves stock and benchmark price series
	// through the shared cache
	StagePriceFetch Stage = "PRICE_FETCH"

	// StageAlpha aligns signals to price series and computes
	// strategy/benchmark/alpha returns
	StageAlpha Stage = "ALPHA"

	// StagePersist writes artifacts idempotently by key
	StagePersist Stage = "PERSIST"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageSentiment,
		StageDelta,
		StageSignal,
		StagePriceFetch,
		StageAlpha,
		StagePersist,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}
