package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePayout(t *testing.T) {
	settings := BillingSettings{
		DoctorEarningRate:    0.8,
		CreditToCurrencyRate: 10.0,
	}

	amounts := settings.ComputePayout(10)

	assert.InDelta(t, 100.0, amounts.Amount, 0.001)
	assert.InDelta(t, 80.0, amounts.NetAmount, 0.001)
	assert.InDelta(t, 20.0, amounts.PlatformFee, 0.001)
}

func TestComputePayout_ZeroCredits(t *testing.T) {
	settings := BillingSettings{
		DoctorEarningRate:    0.8,
		CreditToCurrencyRate: 10.0,
	}

	amounts := settings.ComputePayout(0)

	assert.Zero(t, amounts.Amount)
	assert.Zero(t, amounts.NetAmount)
	assert.Zero(t, amounts.PlatformFee)
}

func TestInsufficientCreditsError(t *testing.T) {
	err := &InsufficientCreditsError{Required: 5, Available: 2}

	assert.Equal(t, 3, err.Shortfall())
	assert.Contains(t, err.Error(), "need 5")
	assert.Contains(t, err.Error(), "have 2")
}

func TestIsInsufficientCredits_UnwrapsChain(t *testing.T) {
	inner := &InsufficientCreditsError{Required: 5, Available: 2}
	wrapped := fmt.Errorf("booking failed: %w", inner)

	got, ok := IsInsufficientCredits(wrapped)
	require.True(t, ok)
	assert.Equal(t, inner, got)

	_, ok = IsInsufficientCredits(errors.New("something else"))
	assert.False(t, ok)
}
