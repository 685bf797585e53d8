package contracts

import "errors"

// Error taxonomy for the signal-and-alpha pipeline.
//
// Per-quarter failures (DataUnavailable, PriceGap) never abort sibling
// quarters or companies; they are collected into the run report.
// InsufficientHistory skips the company's delta/signal stages but is
// non-fatal at run level. Only ErrConfig (before any stage runs) and
// ErrPersistence are fatal for a company.
var (
	// ErrInsufficientHistory: fewer than two valid sentiment quarters
	ErrInsufficientHistory = errors.New("insufficient sentiment history")

	// ErrDataUnavailable: price fetch exhausted its retry budget
	ErrDataUnavailable = errors.New("price data unavailable")

	// ErrPriceGap: entry or exit date unresolved within the lookahead window
	ErrPriceGap = errors.New("price gap: date unresolved within lookahead")

	// ErrConfig: invalid threshold/holding-period configuration
	ErrConfig = errors.New("invalid configuration")

	// ErrPersistence: artifact write failure
	ErrPersistence = errors.New("artifact persistence failed")
)

// IsFatal reports whether an error aborts the whole company run
// instead of a single quarter.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrPersistence)
}
