// Package engine implements the order lifecycle: selection, validation,
// balance gating, submission and the two reconciliation paths that converge
// on the same idempotent persistence logic.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"exeq/internal/gateway/notifier"
	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
	"exeq/internal/store"
	"exeq/internal/store/auditlog"
	"exeq/internal/store/model"

	"github.com/shopspring/decimal"
)

// The ledger currently tracks a single market row per venue deployment.
const ledgerMarketID = 1

// Engine runs execution and reconciliation for any number of venues. It owns
// no adapter state; adapters are injected per call so tests can substitute
// doubles.
type Engine struct {
	store          store.OrderStore
	alerts         notifier.AlertSink
	audit          AuditSink
	tradeLookback  time.Duration
	requestTimeout time.Duration
}

// AuditSink receives the append-only trail of persisted engine actions.
type AuditSink interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// Option tweaks Engine construction.
type Option func(*Engine)

// WithTradeLookback sets the clock-skew tolerance subtracted from an order's
// creation time when fetching its trades.
func WithTradeLookback(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.tradeLookback = d
		}
	}
}

// WithRequestTimeout bounds each venue network call issued by the engine.
func WithRequestTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.requestTimeout = d
		}
	}
}

// WithAudit records every persisted submission and reconciliation to the
// given sink. Audit failures are logged and never fail the engine.
func WithAudit(sink AuditSink) Option {
	return func(e *Engine) {
		e.audit = sink
	}
}

func New(st store.OrderStore, alerts notifier.AlertSink, opts ...Option) *Engine {
	e := &Engine{
		store:          st,
		alerts:         alerts,
		tradeLookback:  5 * time.Second,
		requestTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteVenue runs the execution pipeline once for one venue: every open
// order without an external id is validated, balance-checked and submitted.
// A failure for one order never aborts its siblings; only store failures end
// the run early.
func (e *Engine) ExecuteVenue(ctx context.Context, ad venue.Adapter) error {
	spec := ad.Spec()
	orders, err := e.store.SelectOrders(ctx, store.OrderFilter{
		HasExternalID: store.HasExt(false),
		Status:        model.OrderStatusOpen,
		MarketCode:    spec.MarketCode,
	})
	if err != nil {
		return storeErr("select orders", err)
	}

	for i := range orders {
		if err := e.executeOrder(ctx, ad, &orders[i]); err != nil {
			if errors.Is(err, ErrStore) || errors.Is(err, ErrVenueConfig) {
				return err
			}
			logger.Errorf("engine: %s: order %d aborted: %v", spec.Name, orders[i].ID, err)
		}
	}
	return nil
}

func (e *Engine) executeOrder(ctx context.Context, ad venue.Adapter, order *model.OrderModel) error {
	spec := ad.Spec()
	pair := spec.Pair(order.CoinCode)

	callCtx, cancel := context.WithTimeout(ctx, e.requestTimeout)
	freeBalance, err := ad.FetchFreeBalance(callCtx)
	cancel()
	if err != nil {
		return err
	}

	callCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
	ticker, err := ad.FetchTicker(callCtx, pair)
	cancel()
	if err != nil {
		return err
	}
	if ticker == nil {
		return orderErr(KindMissingTicker, order.ID, "no ticker for %s", pair)
	}

	callCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
	ok, err := validateLimits(callCtx, ad, pair, order.Amount, order.Price)
	cancel()
	if err != nil {
		return err
	}
	if !ok {
		return orderErr(KindValidation, order.ID, "amount/price outside venue limits for %s", pair)
	}

	if err := e.checkBalance(order, spec, freeBalance, ticker.Average); err != nil {
		return err
	}

	callCtx, cancel = context.WithTimeout(ctx, e.requestTimeout)
	result, err := ad.SubmitOrder(callCtx, venue.SubmitRequest{
		Base:   order.CoinCode,
		Side:   order.Side,
		Type:   order.Type,
		Amount: order.Amount,
		Price:  order.Price,
	})
	cancel()
	if err != nil {
		return err
	}
	if result == nil {
		// Venue rejected the order. The row stays open with no external
		// id and is retried on the next run.
		logger.Warnf("engine: %s: venue rejected order %d (%s %s %v %s)", spec.Name, order.ID, order.Side, order.Type, order.Amount, pair)
		return nil
	}

	return e.persistSubmission(ctx, spec.Name, order, result)
}

// checkBalance sizes the order by side/type and verifies the free balance
// covers it. Insufficient balance emits one structured alert and aborts only
// this order.
func (e *Engine) checkBalance(order *model.OrderModel, spec venue.Spec, freeBalance map[string]float64, averagePrice float64) error {
	amount := decimal.NewFromFloat(order.Amount)

	var required decimal.Decimal
	var balanceCurrency string

	switch order.Side {
	case model.OrderSideBuy:
		balanceCurrency = spec.QuoteCurrency
		switch order.Type {
		case model.OrderTypeMarket:
			if order.Value > 0 {
				required = decimal.NewFromFloat(order.Value)
			} else {
				required = amount.Mul(decimal.NewFromFloat(averagePrice))
			}
		case model.OrderTypeLimit:
			if order.Price <= 0 {
				return orderErr(KindMissingPrice, order.ID, "limit buy requires a price")
			}
			required = amount.Mul(decimal.NewFromFloat(order.Price))
		default:
			return orderErr(KindUnknownType, order.ID, "type %q", order.Type)
		}
	case model.OrderSideSell:
		if order.Type != model.OrderTypeMarket && order.Type != model.OrderTypeLimit {
			return orderErr(KindUnknownType, order.ID, "type %q", order.Type)
		}
		balanceCurrency = order.CoinCode
		required = amount
	default:
		return orderErr(KindUnknownSide, order.ID, "side %q", order.Side)
	}

	available := decimal.NewFromFloat(freeBalance[balanceCurrency])
	if available.LessThan(required) {
		if e.alerts != nil {
			availF, _ := available.Float64()
			reqF, _ := required.Float64()
			e.alerts.InsufficientFunds(notifier.FundsAlert{
				VenueName:        spec.Name,
				OrderID:          order.ID,
				OrderType:        order.Type,
				Side:             order.Side,
				Amount:           order.Amount,
				Symbol:           order.CoinCode,
				AvailableBalance: availF,
				RequiredValue:    reqF,
				BalanceCurrency:  balanceCurrency,
			})
		}
		return orderErr(KindInsufficientBalance, order.ID, "need %s %s, have %s", required, balanceCurrency, available)
	}
	return nil
}

// persistSubmission records a successful submission: the order row gets its
// external id, fill amount and status, and every constituent trade is
// inserted idempotently.
func (e *Engine) persistSubmission(ctx context.Context, venueName string, order *model.OrderModel, result *venue.OrderResult) error {
	if err := e.store.UpdateOrderByID(ctx, order.ID, result.FilledAmount, result.Status, result.ExternalID); err != nil {
		return storeErr("update order", err)
	}
	if raw, err := json.Marshal(result); err == nil {
		if err := e.store.SetOrderRaw(ctx, order.ID, raw); err != nil {
			return storeErr("set raw payload", err)
		}
	}
	e.recordAudit(ctx, auditlog.Entry{
		Action:       "submit",
		Venue:        venueName,
		OrderID:      order.ID,
		ExternalID:   result.ExternalID,
		Status:       result.Status,
		FilledAmount: result.FilledAmount,
	})
	if len(result.Trades) == 0 {
		logger.Debugf("engine: order %d submitted with no constituent trades (filled=%v status=%s)", order.ID, result.FilledAmount, result.Status)
		return nil
	}
	return e.insertTrades(ctx, order.ID, result.Trades, result.SubmittedAt)
}

func (e *Engine) recordAudit(ctx context.Context, entry auditlog.Entry) {
	if e.audit == nil {
		return
	}
	if err := e.audit.Record(ctx, entry); err != nil {
		logger.Warnf("engine: audit record failed (order %d, %s): %v", entry.OrderID, entry.Action, err)
	}
}

func (e *Engine) insertTrades(ctx context.Context, orderID int64, trades []venue.TradeFill, fallbackTime time.Time) error {
	for _, fill := range trades {
		ts := fill.Timestamp
		if ts.IsZero() {
			ts = fallbackTime
		}
		_, err := e.store.InsertTradeIfAbsent(ctx, &model.TradeModel{
			TradeID:   fill.TradeID,
			Price:     fill.Price,
			Quantity:  fill.Quantity,
			Timestamp: ts.UTC(),
			MarketID:  ledgerMarketID,
			OrderID:   orderID,
		})
		if err != nil {
			return storeErr("insert trade", err)
		}
	}
	return nil
}
