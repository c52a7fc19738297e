package model

import (
	"time"

	"gorm.io/datatypes"
)

// Order side and type values as stored in the ledger. The venue adapters map
// these onto their own enums; unknown values are rejected at execution time.
const (
	OrderSideBuy  = "Buy"
	OrderSideSell = "Sell"

	OrderTypeLimit  = "limit"
	OrderTypeMarket = "market"
)

// OrderStatusOpen is the only status the engine selects on. All other
// statuses are venue-defined and copied verbatim during reconciliation.
const OrderStatusOpen = "open"

// OrderModel is one trading intent. Rows are created upstream by the signal
// system; the engine only ever sets external_order_id, filled_amount and
// status.
type OrderModel struct {
	ID              int64          `gorm:"column:id;primaryKey"`
	ExternalOrderID string         `gorm:"column:external_order_id;index"`
	Side            string         `gorm:"column:side"`
	Type            string         `gorm:"column:type"`
	Amount          float64        `gorm:"column:amount"`
	Price           float64        `gorm:"column:price"`
	Value           float64        `gorm:"column:value"`
	Status          string         `gorm:"column:status"`
	FilledAmount    float64        `gorm:"column:filled_amount"`
	MarketCode      string         `gorm:"column:market_code;index"`
	CoinCode        string         `gorm:"column:coin_code"`
	RawData         datatypes.JSON `gorm:"column:raw_data;type:TEXT"`
	CreatedOn       time.Time      `gorm:"column:created_on;autoCreateTime"`
	UpdatedOn       time.Time      `gorm:"column:updated_on;autoUpdateTime"`
}

func (OrderModel) TableName() string { return "orders" }

// HasExternalID reports whether the order has been submitted to a venue.
func (o OrderModel) HasExternalID() bool { return o.ExternalOrderID != "" }

// TradeModel is one fill event belonging to an order. trade_id is the
// venue-assigned identifier and the natural idempotency key; re-insertion of
// the same trade_id is a silent no-op.
type TradeModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	TradeID   string    `gorm:"column:trade_id;uniqueIndex"`
	Price     float64   `gorm:"column:price"`
	Quantity  float64   `gorm:"column:quantity"`
	Timestamp time.Time `gorm:"column:timestamp"`
	MarketID  int64     `gorm:"column:market_id"`
	OrderID   int64     `gorm:"column:order_id;index"`
}

func (TradeModel) TableName() string { return "trades" }
