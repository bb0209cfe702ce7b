package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"marketsync/internal/domain/model"
)

var hundred = decimal.NewFromInt(100)

// ComputeHoldingSummary values the lots of one symbol against quote.
// hasQuote false means no price has arrived yet; the holding is then valued
// at zero. The second result is false when the lots hold no shares, in
// which case the holding does not exist.
//
// Percent outputs are in percent units. Only lots whose market has opened
// since purchase contribute to today's change.
func ComputeHoldingSummary(symbol string, lots []model.PurchaseLot, quote model.Quote, hasQuote bool) (model.HoldingSummary, bool) {
	qty := decimal.Zero
	cost := decimal.Zero
	signal := decimal.Zero
	for _, lot := range lots {
		q := decimal.NewFromFloat(lot.Quantity)
		qty = qty.Add(q)
		cost = cost.Add(q.Mul(decimal.NewFromFloat(lot.PricePerShare)))
		if lot.MarketHasOpenedSince {
			signal = signal.Add(q)
		}
	}
	if !qty.IsPositive() {
		return model.HoldingSummary{}, false
	}

	last := decimal.Zero
	pct := decimal.Zero
	if hasQuote {
		last = decimal.NewFromFloat(quote.Last)
		pct = decimal.NewFromFloat(quote.PercentChange)
	}

	marketValue := last.Mul(qty)
	pnl := marketValue.Sub(cost)
	contribution := decimal.Zero
	if signal.IsPositive() {
		contribution = last.Mul(signal).Mul(pct).Div(hundred)
	}

	return model.HoldingSummary{
		Symbol:                   symbol,
		TotalQuantity:            qty.InexactFloat64(),
		TotalCost:                cost.InexactFloat64(),
		AvgCostBasis:             cost.Div(qty).InexactFloat64(),
		HasQuote:                 hasQuote,
		LastPrice:                last.InexactFloat64(),
		PercentChange:            pct.InexactFloat64(),
		MarketValue:              marketValue.InexactFloat64(),
		PnL:                      pnl.InexactFloat64(),
		PnLPercent:               percentOf(pnl, cost),
		SharesWithSessionSignal:  signal.InexactFloat64(),
		TodaysChangeContribution: contribution.InexactFloat64(),
	}, true
}

// ComputePortfolioSummary aggregates holdings. Holdings without shares are
// dropped so that no percentage is ever computed over an empty position.
//
// Percentages are in percent units (x100), like the feed's percentChange:
// TodayChangePercent is TotalChange / TotalValue * 100 and TotalPnLPercent
// is TotalPnL / TotalCost * 100.
func ComputePortfolioSummary(holdings []model.HoldingSummary, at time.Time) model.PortfolioSummary {
	value := decimal.Zero
	cost := decimal.Zero
	change := decimal.Zero
	kept := make([]model.HoldingSummary, 0, len(holdings))

	for _, h := range holdings {
		if !(h.TotalQuantity > 0) {
			continue
		}
		kept = append(kept, h)
		value = value.Add(decimal.NewFromFloat(h.MarketValue))
		cost = cost.Add(decimal.NewFromFloat(h.TotalCost))
		change = change.Add(decimal.NewFromFloat(h.TodaysChangeContribution))
	}

	pnl := value.Sub(cost)
	return model.PortfolioSummary{
		Holdings:           kept,
		TotalValue:         value.InexactFloat64(),
		TotalCost:          cost.InexactFloat64(),
		TotalPnL:           pnl.InexactFloat64(),
		TotalPnLPercent:    percentOf(pnl, cost),
		TotalChange:        change.InexactFloat64(),
		TodayChangePercent: percentOf(change, value),
		ComputedAt:         at,
	}
}

// QuoteLookup is satisfied by PriceCache.Get.
type QuoteLookup func(symbol string) (model.Quote, bool)

// ValuePortfolio values every symbol of lots, ordered by symbol.
func ValuePortfolio(lots map[string][]model.PurchaseLot, lookup QuoteLookup, at time.Time) model.PortfolioSummary {
	symbols := make([]string, 0, len(lots))
	for s := range lots {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	holdings := make([]model.HoldingSummary, 0, len(symbols))
	for _, s := range symbols {
		q, ok := lookup(s)
		if h, exists := ComputeHoldingSummary(s, lots[s], q, ok); exists {
			holdings = append(holdings, h)
		}
	}
	return ComputePortfolioSummary(holdings, at)
}

func percentOf(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).InexactFloat64()
}
