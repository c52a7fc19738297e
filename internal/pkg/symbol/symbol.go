// Package symbol handles trading-pair formatting across venues.
package symbol

import "strings"

// Pair joins a base asset and quote currency with the venue's divider.
// Binance spot uses no divider ("ETHUSDT"), Gate uses "_" ("ETH_USDT").
func Pair(base, quote, divider string) string {
	base = strings.ToUpper(strings.TrimSpace(base))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if base == "" || quote == "" {
		return ""
	}
	return base + divider + quote
}

// Base extracts the base asset from a venue pair given the divider and
// quote currency. Returns "" when the pair does not match.
func Base(pair, quote, divider string) string {
	pair = strings.ToUpper(strings.TrimSpace(pair))
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if pair == "" || quote == "" {
		return ""
	}
	suffix := divider + quote
	if !strings.HasSuffix(pair, suffix) {
		return ""
	}
	return strings.TrimSuffix(pair, suffix)
}
