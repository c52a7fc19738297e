package gate

import (
	"time"

	"exeq/internal/gateway/venue"
)

// Config wires one Gate spot adapter.
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
		c.Spec.ID = "gate"
	}
	if c.Spec.Name == "" {
		c.Spec.Name = "gate"
	}
	if c.Spec.MarketCode == "" {
		c.Spec.MarketCode = "GAT-SPOT"
	}
	if c.Spec.QuoteCurrency == "" {
		c.Spec.QuoteCurrency = "USDT"
	}
	// Gate spells pairs with an underscore (ETH_USDT).
	c.Spec.Divider = "_"
	return c
}
