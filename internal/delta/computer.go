package delta

import (
	"fmt"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// Computer turns an ordered sentiment history into quarter-over-quarter
// deltas. For n valid records it emits exactly n-1 deltas; a pair with
// a missing score on either side yields a MissingPair instead of a
// delta, and the surrounding pairs are still computed.
type Computer struct {
	logger *logger.Logger
}

// NewComputer creates a new delta computer
func NewComputer(log *logger.Logger) *Computer {
	return &Computer{logger: log}
}

// Result holds the outcome of delta computation for one company
type Result struct {
	Deltas  []contracts.SentimentDelta
	Missing []contracts.MissingPair
}

// ComputeDeltas computes deltas over consecutive quarter pairs.
// The history must be ordered ascending by quarter (the store and the
// repository both guarantee it). Fails with ErrInsufficientHistory
// only when fewer than two records exist at all.
func (c *Computer) ComputeDeltas(history []contracts.SentimentRecord) (*Result, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: got %d record(s), need at least 2",
			contracts.ErrInsufficientHistory, len(history))
	}

	result := &Result{
		Deltas:  make([]contracts.SentimentDelta, 0, len(history)-1),
		Missing: make([]contracts.MissingPair, 0),
	}

	for i := 1; i < len(history); i++ {
		prev, curr := history[i-1], history[i]

		if !prev.Valid() || !curr.Valid() {
			pair := contracts.MissingPair{
				QuarterFrom: prev.Quarter,
				QuarterTo:   curr.Quarter,
				Reason:      missingReason(&prev, &curr),
			}
			result.Missing = append(result.Missing, pair)

			c.logger.WithFields(map[string]interface{}{
				"company":      curr.Company,
				"quarter_from": pair.QuarterFrom,
				"quarter_to":   pair.QuarterTo,
				"reason":       pair.Reason,
			}).Warn("Skipping quarter pair with missing score")
			continue
		}

		// Later minus earlier, independently per score type
		result.Deltas = append(result.Deltas, contracts.SentimentDelta{
			Company:      curr.Company,
			QuarterFrom:  prev.Quarter,
			QuarterTo:    curr.Quarter,
			DeltaFinbert: *curr.FinbertScore - *prev.FinbertScore,
			DeltaVader:   *curr.VaderScore - *prev.VaderScore,
			IssuedAt:     curr.EarningsDate,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"records": len(history),
		"deltas":  len(result.Deltas),
		"missing": len(result.Missing),
	}).Debug("Computed sentiment deltas")

	return result, nil
}

// missingReason names which scores are absent on which side
func missingReason(prev, curr *contracts.SentimentRecord) string {
	side := func(r *contracts.SentimentRecord) string {
		switch {
		case r.FinbertScore == nil && r.VaderScore == nil:
			return "finbert+vader"
		case r.FinbertScore == nil:
			return "finbert"
		case r.VaderScore == nil:
			return "vader"
		default:
			return ""
		}
	}

	if m := side(prev); m != "" {
		return fmt.Sprintf("missing %s score in %s", m, prev.Quarter)
	}
	return fmt.Sprintf("missing %s score in %s", side(curr), curr.Quarter)
}
