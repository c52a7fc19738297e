package engine

import (
	"context"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"

	"golang.org/x/sync/errgroup"
)

// VenueResult is the per-venue outcome callers see. No order-level error
// detail crosses this boundary; that lives in logs and the alert sink.
type VenueResult struct {
	Venue  string `json:"exchange"`
	Status string `json:"status"`
	OK     bool   `json:"-"`
}

// AllOK reports whether every venue in the summary succeeded.
func AllOK(results []VenueResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

// ExecuteAll runs the execution pipeline once across all venues
// concurrently. Venues never share order-selection state: each query is
// scoped to its own market code.
func (e *Engine) ExecuteAll(ctx context.Context, adapters []venue.Adapter) []VenueResult {
	return e.runAll(ctx, adapters, "execute", e.ExecuteVenue)
}

// ReconcileAll runs poll-mode reconciliation once across all venues.
func (e *Engine) ReconcileAll(ctx context.Context, adapters []venue.Adapter) []VenueResult {
	return e.runAll(ctx, adapters, "reconcile", e.ReconcileVenue)
}

func (e *Engine) runAll(ctx context.Context, adapters []venue.Adapter, op string, fn func(context.Context, venue.Adapter) error) []VenueResult {
	results := make([]VenueResult, len(adapters))
	group := new(errgroup.Group)
	for i, ad := range adapters {
		i, ad := i, ad
		group.Go(func() error {
			name := ad.Spec().Name
			if err := fn(ctx, ad); err != nil {
				logger.Errorf("engine: %s: %s run failed: %v", name, op, err)
				results[i] = VenueResult{Venue: name, Status: "failed"}
				return nil
			}
			results[i] = VenueResult{Venue: name, Status: "success", OK: true}
			return nil
		})
	}
	group.Wait()
	return results
}
