package marketdata

import (
	"context"
	"errors"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

// Provider is the external market data collaborator.
// Implementations signal rate limiting and transient unavailability
// with ErrTransient; the series cache owns the retry policy.
type Provider interface {
	Fetch(ctx context.Context, ticker string, rng contracts.DateRange) ([]contracts.PricePoint, error)
}

// ErrTransient marks a provider failure worth retrying: an empty or
// partial response, a rate-limit signal, or a 5xx. Exhausting the
// retry budget converts it into contracts.ErrDataUnavailable.
var ErrTransient = errors.New("transient provider failure")

// IsTransient reports whether an error should be retried
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
