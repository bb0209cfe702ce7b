package model

import "time"

// HoldingSummary is the computed view of all lots of one symbol.
type HoldingSummary struct {
	Symbol                   string  `json:"symbol"`
	TotalQuantity            float64 `json:"total_quantity"`
	TotalCost                float64 `json:"total_cost"`
	AvgCostBasis             float64 `json:"avg_cost_basis"`
	HasQuote                 bool    `json:"has_quote"`
	LastPrice                float64 `json:"last_price"`
	PercentChange            float64 `json:"percent_change"`
	MarketValue              float64 `json:"market_value"`
	PnL                      float64 `json:"pnl"`
	PnLPercent               float64 `json:"pnl_percent"`
	SharesWithSessionSignal  float64 `json:"shares_with_session_signal"`
	TodaysChangeContribution float64 `json:"todays_change_contribution"`
}

// PortfolioSummary aggregates holdings.
type PortfolioSummary struct {
	Holdings           []HoldingSummary `json:"holdings"`
	TotalValue         float64          `json:"total_value"`
	TotalCost          float64          `json:"total_cost"`
	TotalPnL           float64          `json:"total_pnl"`
	TotalPnLPercent    float64          `json:"total_pnl_percent"`
	TotalChange        float64          `json:"total_change"`
	TodayChangePercent float64          `json:"today_change_percent"`
	ComputedAt         time.Time        `json:"computed_at"`
}
