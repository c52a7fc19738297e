package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"exeq/internal/gateway/venue"
	"exeq/internal/store"
	"exeq/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedOrder(t *testing.T, st store.OrderStore, o model.OrderModel) model.OrderModel {
	t.Helper()
	if o.Status == "" {
		o.Status = model.OrderStatusOpen
	}
	if o.MarketCode == "" {
		o.MarketCode = "MCK-SPOT"
	}
	if o.CoinCode == "" {
		o.CoinCode = "ETH"
	}
	require.NoError(t, st.CreateOrder(context.Background(), &o))
	return o
}

func wideLimits() *venue.Limits {
	return &venue.Limits{MinAmount: 0.001, MaxAmount: 0, MinPrice: 0.01, MaxPrice: 0}
}

func TestExecuteRejectsInsufficientBalance(t *testing.T) {
	st := newTestStore(t)
	sink := &capturingSink{}
	eng := New(st, sink)
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1.0, Price: 6.0})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 5.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 6.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	ad.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "mockex", sink.alerts[0].VenueName)
	assert.Equal(t, 5.0, sink.alerts[0].AvailableBalance)
	assert.Equal(t, 6.0, sink.alerts[0].RequiredValue)
	assert.Equal(t, "USDT", sink.alerts[0].BalanceCurrency)

	orders, err := st.SelectOrders(context.Background(), store.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Empty(t, orders[0].ExternalOrderID, "failed order must keep a null external id")
	assert.Equal(t, model.OrderStatusOpen, orders[0].Status)
}

func TestExecuteAcceptsExactBalance(t *testing.T) {
	st := newTestStore(t)
	sink := &capturingSink{}
	eng := New(st, sink)
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1.0, Price: 6.0})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 6.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 6.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)
	ad.On("SubmitOrder", mock.Anything, mock.Anything).Return(&venue.OrderResult{
		ExternalID:   "ext-1",
		Status:       "open",
		FilledAmount: 0.5,
		SubmittedAt:  time.Now().UTC(),
		Trades: []venue.TradeFill{
			{TradeID: "t-1", Price: 6.0, Quantity: 0.5, Timestamp: time.Now().UTC()},
		},
	}, nil).Once()

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	ad.AssertNumberOfCalls(t, "SubmitOrder", 1)
	assert.Empty(t, sink.alerts)

	got, err := st.FindOrderByExternalID(context.Background(), "ext-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.5, got.FilledAmount)
	assert.Equal(t, "open", got.Status)
}

func TestExecuteRecordsAuditTrail(t *testing.T) {
	st := newTestStore(t)
	audit := &memoryAudit{err: errors.New("disk full")}
	eng := New(st, &capturingSink{}, WithAudit(audit))
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1.0, Price: 6.0})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 10.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 6.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)
	ad.On("SubmitOrder", mock.Anything, mock.Anything).Return(&venue.OrderResult{ExternalID: "ext-a", Status: "open"}, nil).Once()

	// The sink failing must not fail the run.
	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	require.Len(t, audit.entries, 1)
	assert.Equal(t, "submit", audit.entries[0].Action)
	assert.Equal(t, "mockex", audit.entries[0].Venue)
	assert.Equal(t, "ext-a", audit.entries[0].ExternalID)

	got, err := st.FindOrderByExternalID(context.Background(), "ext-a")
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestExecuteMarketBuyUsesValueOverNotional(t *testing.T) {
	st := newTestStore(t)
	sink := &capturingSink{}
	eng := New(st, sink)
	ad := newMockAdapter()

	// Explicit value 50 wins over amount*average (2*100=200).
	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Amount: 2.0, Value: 50.0})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 60.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 100.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)
	ad.On("SubmitOrder", mock.Anything, mock.Anything).Return(&venue.OrderResult{ExternalID: "ext-2", Status: "closed", FilledAmount: 2.0}, nil).Once()

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))
	ad.AssertNumberOfCalls(t, "SubmitOrder", 1)
}

func TestExecuteSellChecksBaseAssetBalance(t *testing.T) {
	st := newTestStore(t)
	sink := &capturingSink{}
	eng := New(st, sink)
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideSell, Type: model.OrderTypeMarket, Amount: 3.0})

	// Plenty of quote currency but not enough of the base asset.
	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 1000.0, "ETH": 2.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 100.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	ad.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
	require.Len(t, sink.alerts, 1)
	assert.Equal(t, "ETH", sink.alerts[0].BalanceCurrency)
	assert.Equal(t, 3.0, sink.alerts[0].RequiredValue)
}

func TestExecuteRejectsUnknownSideAndType(t *testing.T) {
	cases := []struct {
		name string
		seed model.OrderModel
		kind Kind
	}{
		{"unknown side", model.OrderModel{Side: "hold", Type: model.OrderTypeMarket, Amount: 1}, KindUnknownSide},
		{"unknown type", model.OrderModel{Side: model.OrderSideBuy, Type: "twap", Amount: 1}, KindUnknownType},
		{"unknown sell type", model.OrderModel{Side: model.OrderSideSell, Type: "twap", Amount: 1}, KindUnknownType},
		{"missing limit price", model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1}, KindMissingPrice},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := newTestStore(t)
			eng := New(st, &capturingSink{})
			ad := newMockAdapter()
			order := seedOrder(t, st, tc.seed)

			ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 1000.0, "ETH": 1000.0}, nil)
			ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 10.0}, nil)
			ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)

			err := eng.checkBalance(&order, ad.Spec(), map[string]float64{"USDT": 1000, "ETH": 1000}, 10.0)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))

			require.NoError(t, eng.ExecuteVenue(context.Background(), ad))
			ad.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
		})
	}
}

func TestExecuteMissingTickerAbortsOrder(t *testing.T) {
	st := newTestStore(t)
	eng := New(st, &capturingSink{})
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeMarket, Amount: 1})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 100.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(nil, nil)

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))
	ad.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestExecuteUnknownPairFailsVenueRun(t *testing.T) {
	st := newTestStore(t)
	eng := New(st, &capturingSink{})
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1, Price: 5})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 100.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 5.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(nil, nil)

	err := eng.ExecuteVenue(context.Background(), ad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVenueConfig))
	ad.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)

	results := eng.ExecuteAll(context.Background(), []venue.Adapter{ad})
	require.Len(t, results, 1)
	assert.Equal(t, "failed", results[0].Status)
	assert.False(t, AllOK(results))
}

func TestExecuteVenueRejectionLeavesOrderUnchanged(t *testing.T) {
	st := newTestStore(t)
	eng := New(st, &capturingSink{})
	ad := newMockAdapter()

	seedOrder(t, st, model.OrderModel{Side: model.OrderSideBuy, Type: model.OrderTypeLimit, Amount: 1, Price: 5})

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 100.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 5.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)
	ad.On("SubmitOrder", mock.Anything, mock.Anything).Return(nil, nil).Once()

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	orders, err := st.SelectOrders(context.Background(), store.OrderFilter{HasExternalID: store.HasExt(false)})
	require.NoError(t, err)
	assert.Len(t, orders, 1, "rejected order stays open with no external id")
}

func TestExecutePartialFailureIsolation(t *testing.T) {
	st := newTestStore(t)
	eng := New(st, &capturingSink{})
	ad := newMockAdapter()

	for i := 0; i < 3; i++ {
		seedOrder(t, st, model.OrderModel{
			Side: model.OrderSideBuy, Type: model.OrderTypeLimit,
			Amount: float64(i + 1), Price: 2.0,
		})
	}

	ad.On("FetchFreeBalance", mock.Anything).Return(map[string]float64{"USDT": 1000.0}, nil)
	ad.On("FetchTicker", mock.Anything, "ETH/USDT").Return(&venue.Ticker{Symbol: "ETH/USDT", Average: 2.0}, nil)
	ad.On("FetchLimits", mock.Anything, "ETH/USDT").Return(wideLimits(), nil)

	// The middle order fails at the venue; its siblings must still land.
	ad.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req venue.SubmitRequest) bool { return req.Amount == 2.0 })).
		Return(nil, errors.New("connection reset"))
	for _, amt := range []float64{1.0, 3.0} {
		amt := amt
		ad.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req venue.SubmitRequest) bool { return req.Amount == amt })).
			Return(&venue.OrderResult{ExternalID: fmt.Sprintf("ext-%v", amt), Status: "open"}, nil)
	}

	require.NoError(t, eng.ExecuteVenue(context.Background(), ad))

	persisted, err := st.SelectOrders(context.Background(), store.OrderFilter{HasExternalID: store.HasExt(true)})
	require.NoError(t, err)
	assert.Len(t, persisted, 2)

	remaining, err := st.SelectOrders(context.Background(), store.OrderFilter{HasExternalID: store.HasExt(false)})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, 2.0, remaining[0].Amount)
}
