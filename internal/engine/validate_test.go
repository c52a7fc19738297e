package engine

import (
	"context"
	"errors"
	"testing"

	"exeq/internal/gateway/venue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestValidateLimitsBounds(t *testing.T) {
	limits := &venue.Limits{MinAmount: 1, MaxAmount: 100, MinPrice: 0.5, MaxPrice: 50}

	cases := []struct {
		name   string
		amount float64
		price  float64
		ok     bool
	}{
		{"amount at min", 1, 10, true},
		{"amount at max", 100, 10, true},
		{"amount below min", 0.999, 10, false},
		{"amount above max", 100.001, 10, false},
		{"price at min", 10, 0.5, true},
		{"price at max", 10, 50, true},
		{"price below min", 10, 0.499, false},
		{"price above max", 10, 50.001, false},
		{"zero price skips price check", 10, 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ad := newMockAdapter()
			ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(limits, nil)

			ok, err := validateLimits(context.Background(), ad, "ETH/USDT", tc.amount, tc.price)
			require.NoError(t, err)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestValidateLimitsZeroMaxMeansUnbounded(t *testing.T) {
	ad := newMockAdapter()
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").
		Return(&venue.Limits{MinAmount: 1, MaxAmount: 0, MinPrice: 0, MaxPrice: 0}, nil)

	ok, err := validateLimits(context.Background(), ad, "ETH/USDT", 1e12, 1e9)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateLimitsUnknownPairIsAnError(t *testing.T) {
	ad := newMockAdapter()
	ad.On("FetchLimits", mock.Anything, "NOPE/USDT").Return(nil, nil)

	ok, err := validateLimits(context.Background(), ad, "NOPE/USDT", 1, 1)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrVenueConfig))
	assert.Contains(t, err.Error(), "market data not found")
}
