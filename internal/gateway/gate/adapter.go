// Package gate implements venue.Adapter over the Gate.io spot API.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/logger"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"
	"github.com/shopspring/decimal"
)

// Adapter talks to Gate spot over REST plus the spot.orders websocket
// channel for pushed order updates.
type Adapter struct {
	cfg    Config
	client *gateapi.APIClient

	streamMu sync.Mutex
	updates  chan []venue.OrderResult
}

func New(cfg Config) *Adapter {
	final := cfg.withDefaults()
	apiCfg := gateapi.NewConfiguration()
	apiCfg.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Adapter{cfg: final, client: gateapi.NewAPIClient(apiCfg)}
}

func (a *Adapter) Spec() venue.Spec { return a.cfg.Spec }

// authCtx attaches the v4 API credentials to the request context, as the
// generated SDK expects.
func (a *Adapter) authCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, gateapi.ContextGateAPIV4, gateapi.GateAPIV4{
		Key:    a.cfg.APIKey,
		Secret: a.cfg.APISecret,
	})
}

func (a *Adapter) SubmitOrder(ctx context.Context, req venue.SubmitRequest) (*venue.OrderResult, error) {
	pair := a.cfg.Spec.Pair(req.Base)
	side := strings.ToLower(strings.TrimSpace(req.Side))
	orderType := strings.ToLower(strings.TrimSpace(req.Type))
	if side != "buy" && side != "sell" {
		return nil, errors.New("gate: unsupported order side " + req.Side)
	}
	if orderType != "limit" && orderType != "market" {
		return nil, errors.New("gate: unsupported order type " + req.Type)
	}

	order := gateapi.Order{
		CurrencyPair: pair,
		Account:      "spot",
		Type:         orderType,
		Side:         side,
		Amount:       decimal.NewFromFloat(req.Amount).String(),
	}
	if orderType == "limit" {
		order.Price = decimal.NewFromFloat(req.Price).String()
		order.TimeInForce = "gtc"
	} else {
		// Market orders are immediate-or-cancel on Gate.
		order.TimeInForce = "ioc"
	}

	created, _, err := a.client.SpotApi.CreateOrder(a.authCtx(ctx), order, nil)
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("gate: create order rejected for %s: %v", pair, err)
			return nil, nil
		}
		return nil, err
	}
	res := orderToResult(created)
	return &res, nil
}

func (a *Adapter) FetchFreeBalance(ctx context.Context) (map[string]float64, error) {
	accounts, _, err := a.client.SpotApi.ListSpotAccounts(a.authCtx(ctx), nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(accounts))
	for _, acct := range accounts {
		free := parseFloat(acct.Available)
		if free > 0 {
			out[strings.ToUpper(acct.Currency)] = free
		}
	}
	return out, nil
}

func (a *Adapter) FetchTicker(ctx context.Context, pair string) (*venue.Ticker, error) {
	tickers, _, err := a.client.SpotApi.ListTickers(a.authCtx(ctx), &gateapi.ListTickersOpts{
		CurrencyPair: optional.NewString(pair),
	})
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("gate: ticker fetch failed for %s: %v", pair, err)
			return nil, nil
		}
		return nil, err
	}
	if len(tickers) == 0 {
		return nil, nil
	}
	t := tickers[0]
	avg := (parseFloat(t.HighestBid) + parseFloat(t.LowestAsk)) / 2
	if avg <= 0 {
		avg = parseFloat(t.Last)
	}
	return &venue.Ticker{Symbol: pair, Average: avg}, nil
}

func (a *Adapter) FetchLimits(ctx context.Context, pair string) (*venue.Limits, error) {
	cp, _, err := a.client.SpotApi.GetCurrencyPair(a.authCtx(ctx), pair)
	if err != nil {
		if isVenueRejection(err) {
			return nil, nil
		}
		return nil, err
	}
	// Gate publishes amount bounds only; prices are unbounded beyond
	// precision, which validation treats as no limit.
	return &venue.Limits{
		MinAmount: parseFloat(cp.MinBaseAmount),
		MaxAmount: parseFloat(cp.MaxBaseAmount),
	}, nil
}

func (a *Adapter) FetchOrder(ctx context.Context, externalID, pair string) (*venue.OrderResult, error) {
	order, _, err := a.client.SpotApi.GetOrder(a.authCtx(ctx), externalID, pair, nil)
	if err != nil {
		if isVenueRejection(err) {
			logger.Errorf("gate: order fetch failed for %s/%s: %v", pair, externalID, err)
			return nil, nil
		}
		return nil, err
	}
	res := orderToResult(order)
	return &res, nil
}

func (a *Adapter) FetchTradesSince(ctx context.Context, externalID, pair string, since time.Time) ([]venue.TradeFill, error) {
	trades, _, err := a.client.SpotApi.ListMyTrades(a.authCtx(ctx), &gateapi.ListMyTradesOpts{
		CurrencyPair: optional.NewString(pair),
		OrderId:      optional.NewString(externalID),
		From:         optional.NewInt64(since.UTC().Unix()),
	})
	if err != nil {
		return nil, err
	}
	var out []venue.TradeFill
	for _, tr := range trades {
		if tr.OrderId != externalID {
			continue
		}
		out = append(out, venue.TradeFill{
			TradeID:   tr.Id,
			Price:     parseFloat(tr.Price),
			Quantity:  parseFloat(tr.Amount),
			Timestamp: time.Unix(int64(parseFloat(tr.CreateTime)), 0).UTC(),
		})
	}
	return out, nil
}

// orderToResult maps a Gate order to the uniform result. Gate reports the
// remaining base amount in Left; the fill is amount minus left.
func orderToResult(order gateapi.Order) venue.OrderResult {
	amount := decimal.NewFromFloat(parseFloat(order.Amount))
	left := decimal.NewFromFloat(parseFloat(order.Left))
	filled, _ := amount.Sub(left).Float64()
	if filled < 0 {
		filled = 0
	}
	return venue.OrderResult{
		ExternalID:   order.Id,
		Symbol:       order.CurrencyPair,
		Status:       mapStatus(order.Status),
		FilledAmount: filled,
		SubmittedAt:  time.UnixMilli(order.CreateTimeMs).UTC(),
	}
}

func mapStatus(status string) string {
	switch strings.ToLower(status) {
	case "open":
		return "open"
	case "closed":
		return "closed"
	case "cancelled", "canceled":
		return "canceled"
	default:
		return strings.ToLower(status)
	}
}

func isVenueRejection(err error) bool {
	var apiErr gateapi.GateAPIError
	return errors.As(err, &apiErr)
}

func parseFloat(s string) float64 {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

var _ venue.Adapter = (*Adapter)(nil)
