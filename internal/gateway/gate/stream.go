package gate

import (
	"context"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"

	gatews "github.com/gateio/gatews/go"
	"github.com/tidwall/gjson"
)

// WatchOrderUpdates blocks until the spot.orders channel delivers the next
// batch of order updates. The subscription is established lazily on first
// call and lives until ctx is canceled.
func (a *Adapter) WatchOrderUpdates(ctx context.Context) ([]venue.OrderResult, error) {
	a.streamMu.Lock()
	if a.updates == nil {
		ch := make(chan []venue.OrderResult, 16)
		if err := a.subscribeOrders(ctx, ch); err != nil {
			a.streamMu.Unlock()
			return nil, err
		}
		a.updates = ch
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

func (a *Adapter) subscribeOrders(ctx context.Context, out chan<- []venue.OrderResult) error {
	srv, err := gatews.NewWsService(ctx, nil, gatews.NewConnConfFromOption(&gatews.ConfOptions{
		Key:    a.cfg.APIKey,
		Secret: a.cfg.APISecret,
	}))
	if err != nil {
		return err
	}

	srv.SetCallBack(gatews.ChannelSpotOrder, gatews.NewCallBack(func(msg *gatews.UpdateMsg) {
		if msg == nil || msg.Event != "update" {
			return
		}
		batch := parseOrderUpdates(msg.Result)
		if len(batch) == 0 {
			return
		}
		select {
		case out <- batch:
		case <-ctx.Done():
		}
	}))

	// "!all" subscribes to order updates for every pair on the account.
	if err := srv.Subscribe(gatews.ChannelSpotOrder, []string{"!all"}); err != nil {
		return err
	}
	return nil
}

// parseOrderUpdates maps one spot.orders frame (an array of order objects)
// onto the uniform result. Frames are loosely typed, so fields are read
// defensively.
func parseOrderUpdates(raw []byte) []venue.OrderResult {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		logger.Warnf("gate: unexpected spot.orders payload: %s", parsed.Type)
		return nil
	}
	var out []venue.OrderResult
	for _, item := range parsed.Array() {
		id := item.Get("id").String()
		if id == "" {
			continue
		}
		amount := item.Get("amount").Float()
		left := item.Get("left").Float()
		filled := amount - left
		if filled < 0 {
			filled = 0
		}
		createMs := item.Get("create_time_ms").Float()
		if createMs <= 0 {
			createMs = item.Get("create_time").Float() * 1000
		}
		out = append(out, venue.OrderResult{
			ExternalID:   id,
			Symbol:       item.Get("currency_pair").String(),
			Status:       pushStatus(item.Get("event").String(), item.Get("finish_as").String()),
			FilledAmount: filled,
			SubmittedAt:  time.UnixMilli(int64(createMs)).UTC(),
		})
	}
	return out
}

// pushStatus derives the ledger status from the per-order event kind and the
// finish reason carried by the websocket frame.
func pushStatus(event, finishAs string) string {
	if event != "finish" {
		return "open"
	}
	switch finishAs {
	case "filled":
		return "closed"
	case "cancelled", "canceled", "ioc", "stp":
		return "canceled"
	default:
		return "closed"
	}
}
