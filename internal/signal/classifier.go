package signal

import (
	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/internal/strategyconfig"
)

// Classifier maps a sentiment delta to a trading action via the
// threshold rule table. Pure and deterministic: the same delta and
// thresholds always yield the same action, which is what makes grid
// backtesting over threshold configurations meaningful.
type Classifier struct {
	thresholds strategyconfig.Thresholds
	ensemble   strategyconfig.Ensemble
}

// NewClassifier creates a classifier with injected thresholds.
// Thresholds are configuration, never hardcoded here.
func NewClassifier(thresholds strategyconfig.Thresholds, ensemble strategyconfig.Ensemble) *Classifier {
	return &Classifier{
		thresholds: thresholds,
		ensemble:   ensemble,
	}
}

// Classify derives the signal for one delta.
//
// Rule table, strict inequalities (a delta exactly on a threshold is
// hold, not a tie-break):
//
//	buy  iff delta_finbert > pos AND delta_vader > pos
//	sell iff delta_finbert < neg AND delta_vader < neg
//	hold otherwise
func (c *Classifier) Classify(delta contracts.SentimentDelta) contracts.Signal {
	action := contracts.ActionHold

	switch {
	case delta.DeltaFinbert > c.thresholds.Pos && delta.DeltaVader > c.thresholds.Pos:
		action = contracts.ActionBuy
	case delta.DeltaFinbert < c.thresholds.Neg && delta.DeltaVader < c.thresholds.Neg:
		action = contracts.ActionSell
	}

	return contracts.Signal{
		Company:       delta.Company,
		QuarterTo:     delta.QuarterTo,
		Action:        action,
		IssuedAt:      delta.IssuedAt,
		Basis:         delta,
		EnsembleDelta: c.ensemble.FinbertWeight*delta.DeltaFinbert + c.ensemble.VaderWeight*delta.DeltaVader,
	}
}

// ClassifyAll classifies a batch of deltas in order
func (c *Classifier) ClassifyAll(deltas []contracts.SentimentDelta) []contracts.Signal {
	signals := make([]contracts.Signal, 0, len(deltas))
	for _, d := range deltas {
		signals = append(signals, c.Classify(d))
	}
	return signals
}
