package binance

import (
	"context"
	"errors"
	"strconv"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"

	"github.com/adshao/go-binance/v2"
)

const listenKeyKeepalive = 30 * time.Minute

var errStreamClosed = errors.New("binance: user stream closed")

// WatchOrderUpdates blocks until the user-data stream delivers the next
// batch of order updates. The stream is started lazily on first call and
// reconnects itself until ctx is canceled.
func (a *Adapter) WatchOrderUpdates(ctx context.Context) ([]venue.OrderResult, error) {
	a.streamMu.Lock()
	if a.updates == nil {
		a.updates = make(chan []venue.OrderResult, 16)
		go a.runUserStream(ctx, a.updates)
	}
	ch := a.updates
	a.streamMu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case batch := <-ch:
		return batch, nil
	}
}

func (a *Adapter) runUserStream(ctx context.Context, out chan<- []venue.OrderResult) {
	for ctx.Err() == nil {
		if err := a.serveUserStream(ctx, out); err != nil && ctx.Err() == nil {
			logger.Errorf("binance: user stream disconnected: %v", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(watchReconnectDelay):
			}
		}
	}
}

const watchReconnectDelay = 5 * time.Second

func (a *Adapter) serveUserStream(ctx context.Context, out chan<- []venue.OrderResult) error {
	listenKey, err := a.client.NewStartUserStreamService().Do(ctx)
	if err != nil {
		return err
	}

	handler := func(event *binance.WsUserDataEvent) {
		if event == nil || event.Event != binance.UserDataEventTypeExecutionReport {
			return
		}
		upd := event.OrderUpdate
		result := venue.OrderResult{
			ExternalID:   strconv.FormatInt(upd.Id, 10),
			Symbol:       upd.Symbol,
			Status:       mapStatus(upd.Status),
			FilledAmount: parseFloat(upd.FilledVolume),
			SubmittedAt:  time.UnixMilli(upd.CreateTime).UTC(),
		}
		select {
		case out <- []venue.OrderResult{result}:
		case <-ctx.Done():
		}
	}
	errCh := make(chan error, 1)
	errHandler := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	doneC, stopC, err := binance.WsUserDataServe(listenKey, handler, errHandler)
	if err != nil {
		return err
	}

	keepalive := time.NewTicker(listenKeyKeepalive)
	defer keepalive.Stop()
	for {
		select {
		case <-ctx.Done():
			close(stopC)
			<-doneC
			return ctx.Err()
		case <-doneC:
			select {
			case err := <-errCh:
				return err
			default:
				return errStreamClosed
			}
		case err := <-errCh:
			logger.Warnf("binance: user stream error: %v", err)
		case <-keepalive.C:
			kaCtx, cancel := context.WithTimeout(ctx, a.cfg.HTTPTimeout)
			if err := a.client.NewKeepaliveUserStreamService().ListenKey(listenKey).Do(kaCtx); err != nil {
				logger.Warnf("binance: listen key keepalive failed: %v", err)
			}
			cancel()
		}
	}
}
