package domain

import (
	"errors"
	"fmt"
)

// InsufficientCreditsError reports a credit shortfall with the exact
// amounts, so callers can reconstruct the failed precondition.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d (short by %d)",
		e.Required, e.Available, e.Shortfall())
}

// Shortfall returns how many credits are missing.
func (e *InsufficientCreditsError) Shortfall() int {
	return e.Required - e.Available
}

// IsInsufficientCredits extracts an InsufficientCreditsError from err.
func IsInsufficientCredits(err error) (*InsufficientCreditsError, bool) {
	var ice *InsufficientCreditsError
	if errors.As(err, &ice) {
		return ice, true
	}
	return nil, false
}
