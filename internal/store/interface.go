// Package store defines the persistence contract for orders and trades.
package store

import (
	"context"

	"exeq/internal/store/model"
)

// OrderFilter narrows SelectOrders. Nil HasExternalID means "don't care".
type OrderFilter struct {
	HasExternalID *bool
	Status        string
	MarketCode    string
}

// HasExt is a convenience for building an OrderFilter literal.
func HasExt(v bool) *bool { return &v }

// OrderStore is the persistence surface the execution and reconciliation
// engines write through. Implementations must make InsertTradeIfAbsent
// conflict-safe on trade_id.
type OrderStore interface {
	// CreateOrder inserts a new order row. Used by the upstream signal
	// intake and by tests; the engines never create orders.
	CreateOrder(ctx context.Context, order *model.OrderModel) error

	// SelectOrders returns orders matching the filter in a stable order
	// (oldest first by id).
	SelectOrders(ctx context.Context, filter OrderFilter) ([]model.OrderModel, error)

	// FindOrderByExternalID returns nil, nil when no order matches.
	FindOrderByExternalID(ctx context.Context, externalID string) (*model.OrderModel, error)

	// UpdateOrderByID overwrites filled_amount, status and
	// external_order_id for the given internal id.
	UpdateOrderByID(ctx context.Context, id int64, filledAmount float64, status, externalID string) error

	// UpdateOrderByExternalID overwrites filled_amount and status for the
	// given external id. Used by push reconciliation, which does not carry
	// the internal id.
	UpdateOrderByExternalID(ctx context.Context, externalID string, filledAmount float64, status string) error

	// SetOrderRaw stores the raw venue submission payload on the order row.
	SetOrderRaw(ctx context.Context, id int64, raw []byte) error

	// InsertTradeIfAbsent inserts the trade unless a row with the same
	// trade_id already exists. Returns whether a row was inserted; a
	// conflict is not an error.
	InsertTradeIfAbsent(ctx context.Context, trade *model.TradeModel) (bool, error)
}
