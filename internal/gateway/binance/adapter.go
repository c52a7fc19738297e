// Package binance implements venue.Adapter over the Binance spot API.
package binance

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
	"exeq/internal/pkg/convert"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
)

// Exchange error codes the engine can recover from by retrying on a later
// run. Anything else (auth, signature, transport) must surface as an error.
const (
	codeFilterFailure = -1013
	codeInvalidSymbol = -1121
	codeOrderRejected = -2010
	codeNoSuchOrder   = -2013
)

// Adapter talks to Binance spot over REST plus the user-data stream for
// pushed order updates. The SDK client is safe for concurrent requests.
type Adapter struct {
	cfg    Config
	client *binance.Client

	streamMu sync.Mutex
	updates  chan []venue.OrderResult
}

func New(cfg Config) *Adapter {
	final := cfg.withDefaults()
	client := binance.NewClient(final.APIKey, final.APISecret)
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Adapter{cfg: final, client: client}
}

func (a *Adapter) Spec() venue.Spec { return a.cfg.Spec }

func (a *Adapter) SubmitOrder(ctx context.Context, req venue.SubmitRequest) (*venue.OrderResult, error) {
	pair := a.cfg.Spec.Pair(req.Base)
	side, err := mapSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := mapType(req.Type)
	if err != nil {
		return nil, err
	}

	svc := a.client.NewCreateOrderService().
		Symbol(pair).
		Side(side).
		Type(orderType).
		Quantity(decimal.NewFromFloat(req.Amount).String()).
		NewOrderRespType(binance.NewOrderRespTypeFULL)
	if orderType == binance.OrderTypeLimit {
		svc = svc.TimeInForce(binance.TimeInForceTypeGTC).
			Price(decimal.NewFromFloat(req.Price).String())
	}

	res, err := svc.Do(ctx)
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("binance: create order rejected for %s: %v", pair, err)
			return nil, nil
		}
		return nil, err
	}

	out := &venue.OrderResult{
		ExternalID:   strconv.FormatInt(res.OrderID, 10),
		Symbol:       res.Symbol,
		Status:       mapStatus(string(res.Status)),
		FilledAmount: parseFloat(res.ExecutedQuantity),
		SubmittedAt:  time.UnixMilli(res.TransactTime).UTC(),
	}
	for _, fill := range res.Fills {
		if fill == nil {
			continue
		}
		out.Trades = append(out.Trades, venue.TradeFill{
			TradeID:   strconv.FormatInt(fill.TradeID, 10),
			Price:     parseFloat(fill.Price),
			Quantity:  parseFloat(fill.Quantity),
			Timestamp: out.SubmittedAt,
		})
	}
	return out, nil
}

func (a *Adapter) FetchFreeBalance(ctx context.Context) (map[string]float64, error) {
	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(account.Balances))
	for _, bal := range account.Balances {
		free := parseFloat(bal.Free)
		if free > 0 {
			out[bal.Asset] = free
		}
	}
	return out, nil
}

func (a *Adapter) FetchTicker(ctx context.Context, pair string) (*venue.Ticker, error) {
	stats, err := a.client.NewListPriceChangeStatsService().Symbol(pair).Do(ctx)
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("binance: ticker fetch failed for %s: %v", pair, err)
			return nil, nil
		}
		return nil, err
	}
	if len(stats) == 0 || stats[0] == nil {
		return nil, nil
	}
	return &venue.Ticker{Symbol: pair, Average: parseFloat(stats[0].WeightedAvgPrice)}, nil
}

func (a *Adapter) FetchLimits(ctx context.Context, pair string) (*venue.Limits, error) {
	info, err := a.client.NewExchangeInfoService().Symbols(pair).Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == codeInvalidSymbol {
			return nil, nil
		}
		return nil, err
	}
	for i := range info.Symbols {
		sym := &info.Symbols[i]
		if sym.Symbol != pair {
			continue
		}
		limits := &venue.Limits{}
		if lot := sym.LotSizeFilter(); lot != nil {
			limits.MinAmount = parseFloat(lot.MinQuantity)
			limits.MaxAmount = parseFloat(lot.MaxQuantity)
		}
		if pf := sym.PriceFilter(); pf != nil {
			limits.MinPrice = parseFloat(pf.MinPrice)
			limits.MaxPrice = parseFloat(pf.MaxPrice)
		}
		return limits, nil
	}
	return nil, nil
}

func (a *Adapter) FetchOrder(ctx context.Context, externalID, pair string) (*venue.OrderResult, error) {
	orderID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, err
	}
	order, err := a.client.NewGetOrderService().Symbol(pair).OrderID(orderID).Do(ctx)
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("binance: order fetch failed for %s/%s: %v", pair, externalID, err)
			return nil, nil
		}
		return nil, err
	}
	return &venue.OrderResult{
		ExternalID:   strconv.FormatInt(order.OrderID, 10),
		Symbol:       order.Symbol,
		Status:       mapStatus(string(order.Status)),
		FilledAmount: parseFloat(order.ExecutedQuantity),
		SubmittedAt:  time.UnixMilli(order.Time).UTC(),
	}, nil
}

func (a *Adapter) FetchTradesSince(ctx context.Context, externalID, pair string, since time.Time) ([]venue.TradeFill, error) {
	orderID, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, err
	}
	trades, err := a.client.NewListTradesService().
		Symbol(pair).
		StartTime(since.UTC().UnixMilli()).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	var out []venue.TradeFill
	for _, tr := range trades {
		if tr == nil || tr.OrderID != orderID {
			continue
		}
		out = append(out, venue.TradeFill{
			TradeID:   strconv.FormatInt(tr.ID, 10),
			Price:     parseFloat(tr.Price),
			Quantity:  parseFloat(tr.Quantity),
			Timestamp: time.UnixMilli(tr.Time).UTC(),
		})
	}
	return out, nil
}

func mapSide(side string) (binance.SideType, error) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "buy":
		return binance.SideTypeBuy, nil
	case "sell":
		return binance.SideTypeSell, nil
	default:
		return "", errors.New("binance: unsupported order side " + side)
	}
}

func mapType(orderType string) (binance.OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(orderType)) {
	case "limit":
		return binance.OrderTypeLimit, nil
	case "market":
		return binance.OrderTypeMarket, nil
	default:
		return "", errors.New("binance: unsupported order type " + orderType)
	}
}

// mapStatus converts Binance order statuses to the ledger's venue-status
// vocabulary. The engine copies these verbatim and never computes them.
func mapStatus(status string) string {
	switch strings.ToUpper(status) {
	case "NEW", "PARTIALLY_FILLED":
		return "open"
	case "FILLED":
		return "closed"
	case "CANCELED", "PENDING_CANCEL", "REJECTED", "EXPIRED", "EXPIRED_IN_MATCH":
		return "canceled"
	default:
		return strings.ToLower(status)
	}
}

// isVenueRejection distinguishes an order the exchange refused (recoverable,
// retried on the next run) from transport, auth or signature failures, which
// must not be swallowed.
func isVenueRejection(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Code {
	case codeFilterFailure, codeInvalidSymbol, codeOrderRejected, codeNoSuchOrder:
		return true
	default:
		return false
	}
}

func parseFloat(s string) float64 {
	return convert.ToFloat64(s)
}

var _ venue.Adapter = (*Adapter)(nil)
