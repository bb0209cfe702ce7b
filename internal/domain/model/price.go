package model

import (
	"strings"
	"time"
)

// PriceEvent is a validated price message as delivered by a feed, before it
// reaches the cache.
type PriceEvent struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PercentChange float64   `json:"percent_change"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Quote is the last known price of a symbol. It is replaced wholesale on
// every accepted update.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Last          float64   `json:"last"`
	PercentChange float64   `json:"percent_change"`
	ObservedAt    time.Time `json:"observed_at"`
}

func (e PriceEvent) Quote() Quote {
	return Quote{
		Symbol:        e.Symbol,
		Last:          e.Price,
		PercentChange: e.PercentChange,
		ObservedAt:    e.ObservedAt,
	}
}

// NormalizeSymbols upper-cases, trims and de-duplicates symbols, keeping the
// first occurrence order.
func NormalizeSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
