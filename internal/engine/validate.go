package engine

import (
	"context"
	"fmt"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
)

// validateLimits checks amount (and price, when positive) against the
// venue-reported trading bounds for the pair. It fails closed: out-of-bounds
// values return false. An unknown pair returns ErrVenueConfig instead of
// false, which ends the venue's whole run.
func validateLimits(ctx context.Context, ad venue.Adapter, pair string, amount, price float64) (bool, error) {
	limits, err := ad.FetchLimits(ctx, pair)
	if err != nil {
		return false, err
	}
	if limits == nil {
		return false, fmt.Errorf("%w: market data not found for %s", ErrVenueConfig, pair)
	}

	if amount < limits.MinAmount || (limits.MaxAmount > 0 && amount > limits.MaxAmount) {
		logger.Errorf("engine: order amount %v out of bounds [%v, %v] for %s", amount, limits.MinAmount, limits.MaxAmount, pair)
		return false, nil
	}
	if price > 0 {
		if price < limits.MinPrice || (limits.MaxPrice > 0 && price > limits.MaxPrice) {
			logger.Errorf("engine: order price %v out of bounds [%v, %v] for %s", price, limits.MinPrice, limits.MaxPrice, pair)
			return false, nil
		}
	}
	return true, nil
}
