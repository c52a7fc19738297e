package engine

import (
	"context"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
	"exeq/internal/store/auditlog"
)

const watchRetryDelay = 2 * time.Second

// WatchVenue consumes the venue's push feed of order updates until ctx is
// canceled. A processing error for one batch is logged and the loop keeps
// waiting for the next batch; the subscription never terminates on its own.
func (e *Engine) WatchVenue(ctx context.Context, ad venue.Adapter) error {
	spec := ad.Spec()
	logger.Infof("engine: %s: watching order updates", spec.Name)
	for {
		updates, err := ad.WatchOrderUpdates(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Errorf("engine: %s: order feed error: %v", spec.Name, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(watchRetryDelay):
			}
			continue
		}
		for i := range updates {
			if err := e.applyPushUpdate(ctx, ad, &updates[i]); err != nil {
				logger.Errorf("engine: %s: apply update ext=%s failed: %v", spec.Name, updates[i].ExternalID, err)
			}
		}
	}
}

// applyPushUpdate routes one pushed order update. Updates whose external id
// has no local order do not belong to this system and are skipped silently.
func (e *Engine) applyPushUpdate(ctx context.Context, ad venue.Adapter, upd *venue.OrderResult) error {
	order, err := e.store.FindOrderByExternalID(ctx, upd.ExternalID)
	if err != nil {
		return storeErr("find order", err)
	}
	if order == nil {
		logger.Debugf("engine: %s: no local order for ext=%s, skipping", ad.Spec().Name, upd.ExternalID)
		return nil
	}

	pair := upd.Symbol
	if pair == "" {
		pair = ad.Spec().Pair(order.CoinCode)
	}
	// As in poll mode, the row only changes together with its trades; a
	// failed fetch leaves it open for the next update or poll to retry.
	since := order.CreatedOn.UTC().Add(-e.tradeLookback)
	callCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	trades, err := ad.FetchTradesSince(callCtx, order.ExternalOrderID, pair, since)
	cancel()
	if err != nil {
		return err
	}

	if err := e.insertTrades(ctx, order.ID, trades, upd.SubmittedAt); err != nil {
		return err
	}
	if err := e.store.UpdateOrderByExternalID(ctx, upd.ExternalID, upd.FilledAmount, upd.Status); err != nil {
		return storeErr("update order", err)
	}
	e.recordAudit(ctx, auditlog.Entry{
		Action:       "push",
		Venue:        ad.Spec().Name,
		OrderID:      order.ID,
		ExternalID:   upd.ExternalID,
		Status:       upd.Status,
		FilledAmount: upd.FilledAmount,
	})
	return nil
}
