package binance

import (
	"time"

	"exeq/internal/gateway/venue"
)

// Config wires one Binance spot adapter.
type Config struct {
	APIKey      string
	APISecret   string
	HTTPTimeout time.Duration
	Spec        venue.Spec
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	if c.Spec.ID == "" {
		c.Spec.ID = "binance"
	}
	if c.Spec.Name == "" {
		c.Spec.Name = "binance"
	}
	if c.Spec.MarketCode == "" {
		c.Spec.MarketCode = "BNB-SPOT"
	}
	if c.Spec.QuoteCurrency == "" {
		c.Spec.QuoteCurrency = "USDT"
	}
	// Binance spells pairs without a divider (ETHUSDT).
	c.Spec.Divider = ""
	return c
}
