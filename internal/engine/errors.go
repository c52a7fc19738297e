package engine

import (
	"errors"
	"fmt"
)

// Kind classifies why an order was aborted, so callers branch on the value
// instead of matching message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInsufficientBalance
	KindMissingPrice
	KindMissingTicker
	KindUnknownSide
	KindUnknownType
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientBalance:
		return "insufficient_balance"
	case KindMissingPrice:
		return "missing_price"
	case KindMissingTicker:
		return "missing_ticker"
	case KindUnknownSide:
		return "unknown_side"
	case KindUnknownType:
		return "unknown_type"
	default:
		return "unknown"
	}
}

// OrderError aborts a single order without touching its siblings.
type OrderError struct {
	Kind    Kind
	OrderID int64
	Detail  string
}

func (e *OrderError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("order %d: %s", e.OrderID, e.Kind)
	}
	return fmt.Sprintf("order %d: %s: %s", e.OrderID, e.Kind, e.Detail)
}

func orderErr(kind Kind, orderID int64, format string, v ...any) *OrderError {
	return &OrderError{Kind: kind, OrderID: orderID, Detail: fmt.Sprintf(format, v...)}
}

// KindOf extracts the error kind, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var oe *OrderError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return KindUnknown
}

// ErrStore marks persistence failures. They abort the remaining work for the
// venue's run; already-committed orders stay committed.
var ErrStore = errors.New("order store failure")

// ErrVenueConfig marks a venue/ledger mismatch (for example a pair the venue
// does not list). It is fatal to the venue's run: retrying the siblings
// cannot help until the configuration is corrected.
var ErrVenueConfig = errors.New("venue configuration error")

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStore, op, err)
}
