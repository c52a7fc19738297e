// Package venue defines the uniform capability surface the engines require
// from a trading exchange. One Adapter instance exists per venue, owned by
// the caller and shared read-only across that venue's order processing.
package venue

import (
	"context"
	"time"

	"exeq/internal/pkg/symbol"
)

// Spec carries the per-venue customization that used to live in one subclass
// per exchange: how it is addressed in the ledger and how pairs are spelled.
type Spec struct {
	ID            string // adapter implementation key, e.g. "binance"
	Name          string // human-readable venue name for logs and alerts
	MarketCode    string // ledger market code, e.g. "BNB-SPOT"
	QuoteCurrency string // e.g. "USDT"
	Divider       string // pair divider, "" for Binance, "_" for Gate
}

// Pair formats a base asset into this venue's pair spelling.
func (s Spec) Pair(base string) string {
	return symbol.Pair(base, s.QuoteCurrency, s.Divider)
}

// Limits are the venue-reported trading bounds for one pair. A zero max
// means unbounded; a zero min means no lower bound is enforced.
type Limits struct {
	MinAmount float64
	MaxAmount float64
	MinPrice  float64
	MaxPrice  float64
}

// Ticker is the subset of venue ticker data the sizing logic needs.
type Ticker struct {
	Symbol  string
	Average float64
}

// TradeFill is one constituent trade of an order as reported by the venue.
type TradeFill struct {
	TradeID   string
	Price     float64
	Quantity  float64
	Timestamp time.Time
}

// OrderResult is the venue's authoritative view of an order. It is returned
// from submission, order queries and the push feed; Trades may be empty when
// the venue only reports aggregate fill state.
type OrderResult struct {
	ExternalID   string
	Symbol       string
	Status       string
	FilledAmount float64
	SubmittedAt  time.Time
	Trades       []TradeFill
}

// SubmitRequest describes one order submission. Price is ignored for market
// orders.
type SubmitRequest struct {
	Base   string
	Side   string
	Type   string
	Amount float64
	Price  float64
}

// Adapter is the per-venue capability surface. Calls return (zero, nil) on a
// recoverable venue-side rejection and error only on misconfiguration or
// transport failure. Implementations must be safe for concurrent use.
type Adapter interface {
	Spec() Spec

	// SubmitOrder places the order. A nil result with nil error means the
	// venue rejected the order; the caller leaves the row untouched for
	// retry on the next run.
	SubmitOrder(ctx context.Context, req SubmitRequest) (*OrderResult, error)

	// FetchFreeBalance returns free (unreserved) balance per asset code.
	FetchFreeBalance(ctx context.Context) (map[string]float64, error)

	// FetchTicker returns nil, nil when the venue has no ticker for pair.
	FetchTicker(ctx context.Context, pair string) (*Ticker, error)

	// FetchLimits returns nil, nil when the pair is unknown to the venue.
	FetchLimits(ctx context.Context, pair string) (*Limits, error)

	// FetchOrder queries the order by its venue-assigned id.
	FetchOrder(ctx context.Context, externalID, pair string) (*OrderResult, error)

	// FetchTradesSince returns the order's trades at or after since. The
	// adapter pads the window against venue clock skew; since must be UTC.
	FetchTradesSince(ctx context.Context, externalID, pair string, since time.Time) ([]TradeFill, error)

	// WatchOrderUpdates blocks until the next batch of order updates is
	// delivered on the venue's push feed, then returns it. The feed never
	// terminates on its own; the caller re-invokes after each batch and
	// cancels via ctx.
	WatchOrderUpdates(ctx context.Context) ([]OrderResult, error)
}
