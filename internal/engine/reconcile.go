package engine

import (
	"context"
	"errors"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
	"exeq/internal/store"
	"exeq/internal/store/auditlog"
	"exeq/internal/store/model"
)

// ReconcileVenue polls one venue once: for every open order with an external
// id the venue's authoritative fill amount, status and trade set are copied
// into the store. The trade lookup window starts at the order's creation
// time minus the configured lookback, so clock skew between us and the venue
// cannot hide fills.
func (e *Engine) ReconcileVenue(ctx context.Context, ad venue.Adapter) error {
	spec := ad.Spec()
	orders, err := e.store.SelectOrders(ctx, store.OrderFilter{
		HasExternalID: store.HasExt(true),
		Status:        model.OrderStatusOpen,
		MarketCode:    spec.MarketCode,
	})
	if err != nil {
		return storeErr("select orders", err)
	}

	for i := range orders {
		if err := e.reconcileOrder(ctx, ad, &orders[i]); err != nil {
			if errors.Is(err, ErrStore) {
				return err
			}
			logger.Errorf("engine: %s: reconcile order %d failed: %v", spec.Name, orders[i].ID, err)
		}
	}
	return nil
}

func (e *Engine) reconcileOrder(ctx context.Context, ad venue.Adapter, order *model.OrderModel) error {
	spec := ad.Spec()
	pair := spec.Pair(order.CoinCode)

	callCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	result, err := ad.FetchOrder(callCtx, order.ExternalOrderID, pair)
	cancel()
	if err != nil {
		return err
	}
	if result == nil {
		logger.Warnf("engine: %s: order %d (ext %s) not found on venue", spec.Name, order.ID, order.ExternalOrderID)
		return nil
	}

	// The order row is only updated together with its trades. If the trades
	// fetch fails the order must stay in the open poll set untouched, or a
	// venue-side "closed" status would retire it with fills missing.
	since := order.CreatedOn.UTC().Add(-e.tradeLookback)
	callCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
	trades, err := ad.FetchTradesSince(callCtx, order.ExternalOrderID, pair, since)
	cancel()
	if err != nil {
		return err
	}

	if err := e.insertTrades(ctx, order.ID, trades, result.SubmittedAt); err != nil {
		return err
	}
	if err := e.store.UpdateOrderByID(ctx, order.ID, result.FilledAmount, result.Status, order.ExternalOrderID); err != nil {
		return storeErr("update order", err)
	}
	e.recordAudit(ctx, auditlog.Entry{
		Action:       "reconcile",
		Venue:        spec.Name,
		OrderID:      order.ID,
		ExternalID:   order.ExternalOrderID,
		Status:       result.Status,
		FilledAmount: result.FilledAmount,
	})
	return nil
}
