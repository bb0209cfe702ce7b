// Package renderer turns portfolio summaries and lots into markdown, and
// markdown into HTML or styled terminal output.
package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"marketsync/internal/domain/model"
)

//go:embed templates/*.md
var templates embed.FS

const DefaultCurrency = "USD"

// Options controls markdown rendering.
type Options struct {
	Account  string
	Currency string
	Location *time.Location
	// Changed marks symbols whose price just moved.
	Changed []string
}

type summaryRow struct {
	Symbol      string
	Changed     bool
	Quantity    float64
	AvgCost     float64
	HasQuote    bool
	Last        float64
	DayPercent  float64
	MarketValue float64
	PnL         float64
	PnLPercent  float64
	Today       float64
}

type summaryView struct {
	Account            string
	At                 string
	Rows               []summaryRow
	Missing            []string
	TotalValue         float64
	TotalCost          float64
	TotalPnL           float64
	TotalPnLPercent    float64
	TotalChange        float64
	TodayChangePercent float64
}

// SummaryMarkdown renders the portfolio summary as a markdown table.
func SummaryMarkdown(s model.PortfolioSummary, opts Options) (string, error) {
	changed := make(map[string]bool, len(opts.Changed))
	for _, sym := range opts.Changed {
		changed[sym] = true
	}

	view := summaryView{
		Account:            opts.Account,
		At:                 formatTime(s.ComputedAt, opts.Location),
		TotalValue:         s.TotalValue,
		TotalCost:          s.TotalCost,
		TotalPnL:           s.TotalPnL,
		TotalPnLPercent:    s.TotalPnLPercent,
		TotalChange:        s.TotalChange,
		TodayChangePercent: s.TodayChangePercent,
	}
	for _, h := range s.Holdings {
		view.Rows = append(view.Rows, summaryRow{
			Symbol:      h.Symbol,
			Changed:     changed[h.Symbol],
			Quantity:    h.TotalQuantity,
			AvgCost:     h.AvgCostBasis,
			HasQuote:    h.HasQuote,
			Last:        h.LastPrice,
			DayPercent:  h.PercentChange,
			MarketValue: h.MarketValue,
			PnL:         h.PnL,
			PnLPercent:  h.PnLPercent,
			Today:       h.TodaysChangeContribution,
		})
		if !h.HasQuote {
			view.Missing = append(view.Missing, h.Symbol)
		}
	}
	return render("summary.md", view, opts)
}

type lotGroup struct {
	Symbol string
	Lots   []model.PurchaseLot
}

// LotsMarkdown renders every lot grouped by symbol.
func LotsMarkdown(lots map[string][]model.PurchaseLot, opts Options) (string, error) {
	symbols := make([]string, 0, len(lots))
	for sym := range lots {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	groups := make([]lotGroup, 0, len(symbols))
	for _, sym := range symbols {
		groups = append(groups, lotGroup{Symbol: sym, Lots: lots[sym]})
	}
	return render("lots.md", struct{ Symbols []lotGroup }{groups}, opts)
}

func render(file string, data any, opts Options) (string, error) {
	currency := opts.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	funcs := template.FuncMap{
		"money": func(v float64) string { return FormatMoney(v, currency) },
		"pct":   FormatPercent,
		"qty":   FormatQuantity,
		"join":  strings.Join,
		"date":  func(t time.Time) string { return formatTime(t, opts.Location) },
	}

	tmpl, err := template.New(file).Funcs(funcs).ParseFS(templates, "templates/"+file)
	if err != nil {
		return "", fmt.Errorf("parse template %q: %w", file, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("execute template %q: %w", file, err)
	}
	return b.String(), nil
}

// HTML converts markdown (with tables) to an HTML fragment.
func HTML(markdown string) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// Terminal styles markdown for a terminal. style is a glamour standard style
// name; empty picks one from the terminal background.
func Terminal(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("terminal renderer: %w", err)
	}
	return r.Render(markdown)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "-"
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format("2006-01-02 15:04 MST")
}
