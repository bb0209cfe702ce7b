package renderer

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"marketsync/internal/domain/model"
)

func sampleSummary() model.PortfolioSummary {
	return model.PortfolioSummary{
		Holdings: []model.HoldingSummary{
			{
				Symbol: "AAPL", TotalQuantity: 10, TotalCost: 1000, AvgCostBasis: 100,
				HasQuote: true, LastPrice: 105, PercentChange: 2, MarketValue: 1050,
				PnL: 50, PnLPercent: 5, SharesWithSessionSignal: 10, TodaysChangeContribution: 21,
			},
			{Symbol: "MSFT", TotalQuantity: 2.5, TotalCost: 1000, AvgCostBasis: 400},
		},
		TotalValue:         1050,
		TotalCost:          2000,
		TotalPnL:           50,
		TotalPnLPercent:    2.5,
		TotalChange:        21,
		TodayChangePercent: 2,
		ComputedAt:         time.Date(2024, 3, 6, 16, 0, 0, 0, time.UTC),
	}
}

func TestSummaryMarkdown(t *testing.T) {
	md, err := SummaryMarkdown(sampleSummary(), Options{Account: "main", Changed: []string{"AAPL"}})
	require.NoError(t, err)

	require.Contains(t, md, "# Portfolio main")
	require.Contains(t, md, "2024-03-06 16:00 UTC")
	require.Contains(t, md, "| AAPL * | 10 | $100.00 | $105.00 | +2.00% | $1,050.00 | $50.00 | +5.00% | $21.00 |")
	require.Contains(t, md, "| MSFT | 2.5 | $400.00 | n/a | n/a |")
	require.Contains(t, md, "**Total value:** $1,050.00")
	require.Contains(t, md, "No quote yet for: MSFT")
}

func TestSummaryMarkdown_Location(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	md, err := SummaryMarkdown(sampleSummary(), Options{Location: ny})
	require.NoError(t, err)
	require.Contains(t, md, "2024-03-06 11:00 EST")
}

func TestLotsMarkdown(t *testing.T) {
	lots := map[string][]model.PurchaseLot{
		"MSFT": {{Symbol: "MSFT", Quantity: 1, PricePerShare: 400, PurchasedAt: time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)}},
		"AAPL": {{Symbol: "AAPL", Quantity: 10, PricePerShare: 100, PurchasedAt: time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC), MarketHasOpenedSince: true}},
	}
	md, err := LotsMarkdown(lots, Options{})
	require.NoError(t, err)
	require.Less(t, strings.Index(md, "## AAPL"), strings.Index(md, "## MSFT"))
	require.Contains(t, md, "| 2024-03-05 15:00 UTC | 10 | $100.00 | yes |")
	require.Contains(t, md, "| 2024-03-01 15:00 UTC | 1 | $400.00 | no |")

	empty, err := LotsMarkdown(nil, Options{})
	require.NoError(t, err)
	require.Contains(t, empty, "No lots.")
}

func TestHTML(t *testing.T) {
	md, err := SummaryMarkdown(sampleSummary(), Options{Account: "main"})
	require.NoError(t, err)

	html, err := HTML(md)
	require.NoError(t, err)
	require.Contains(t, html, "<h1>Portfolio main</h1>")
	require.Contains(t, html, "<table>")
	require.Contains(t, html, ">AAPL</td>")
}

func TestTerminal(t *testing.T) {
	out, err := Terminal("# Hello\n\nworld", "notty", 80)
	require.NoError(t, err)
	require.Contains(t, out, "Hello")
	require.Contains(t, out, "world")
}

func TestFormat(t *testing.T) {
	require.Equal(t, "$1,234.57", FormatMoney(1234.567, "USD"))
	require.Equal(t, "12.50", FormatMoney(12.5, "???"))
	require.Equal(t, "+1.25%", FormatPercent(1.2499999))
	require.Equal(t, "-0.50%", FormatPercent(-0.5))
	require.Equal(t, "0.00%", FormatPercent(0))
	require.Equal(t, "0.125", FormatQuantity(0.125))
	require.Equal(t, "10", FormatQuantity(10))
}
