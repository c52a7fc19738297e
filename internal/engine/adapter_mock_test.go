package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"exeq/internal/gateway/notifier"
	"exeq/internal/gateway/venue"
	"exeq/internal/store/auditlog"
	"exeq/internal/store/gormstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type MockAdapter struct {
	mock.Mock
	spec venue.Spec
}

func newMockAdapter() *MockAdapter {
	return &MockAdapter{spec: venue.Spec{
		ID:            "mock",
		Name:          "mockex",
		MarketCode:    "MCK-SPOT",
		QuoteCurrency: "USDT",
		Divider:       "/",
	}}
}

func (m *MockAdapter) Spec() venue.Spec { return m.spec }

func (m *MockAdapter) SubmitOrder(ctx context.Context, req venue.SubmitRequest) (*venue.OrderResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.OrderResult), args.Error(1)
}

func (m *MockAdapter) FetchFreeBalance(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

func (m *MockAdapter) FetchTicker(ctx context.Context, pair string) (*venue.Ticker, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.Ticker), args.Error(1)
}

func (m *MockAdapter) FetchLimits(ctx context.Context, pair string) (*venue.Limits, error) {
	args := m.Called(ctx, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.Limits), args.Error(1)
}

func (m *MockAdapter) FetchOrder(ctx context.Context, externalID, pair string) (*venue.OrderResult, error) {
	args := m.Called(ctx, externalID, pair)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*venue.OrderResult), args.Error(1)
}

func (m *MockAdapter) FetchTradesSince(ctx context.Context, externalID, pair string, since time.Time) ([]venue.TradeFill, error) {
	args := m.Called(ctx, externalID, pair, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]venue.TradeFill), args.Error(1)
}

func (m *MockAdapter) WatchOrderUpdates(ctx context.Context) ([]venue.OrderResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]venue.OrderResult), args.Error(1)
}

var _ venue.Adapter = (*MockAdapter)(nil)

type memoryAudit struct {
	entries []auditlog.Entry
	err     error
}

func (m *memoryAudit) Record(_ context.Context, e auditlog.Entry) error {
	m.entries = append(m.entries, e)
	return m.err
}

type capturingSink struct {
	alerts []notifier.FundsAlert
}

func (c *capturingSink) InsufficientFunds(alert notifier.FundsAlert) {
	c.alerts = append(c.alerts, alert)
}

func newTestStore(t *testing.T) *gormstore.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	st, err := gormstore.New(db)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
