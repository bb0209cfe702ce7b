package service

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"marketsync/internal/domain/calendar"
	"marketsync/internal/domain/model"
)

// LotLedger turns a transaction history into purchase lots grouped by
// symbol and keeps the latest result for readers.
type LotLedger struct {
	calendar *calendar.Calendar
	policy   model.LotPolicy

	mu      sync.RWMutex
	lots    map[string][]model.PurchaseLot
	builtAt time.Time
}

func NewLotLedger(cal *calendar.Calendar, policy model.LotPolicy) *LotLedger {
	if cal == nil {
		cal = calendar.Default()
	}
	return &LotLedger{calendar: cal, policy: policy, lots: make(map[string][]model.PurchaseLot)}
}

func (l *LotLedger) Policy() model.LotPolicy { return l.policy }

// Build groups txs into lots without touching the stored state. Invalid
// entries (empty symbol, non-positive quantity, negative or non-finite
// price) are skipped. Lots of a symbol are ordered by purchase time.
func (l *LotLedger) Build(txs []model.Transaction, now time.Time) map[string][]model.PurchaseLot {
	var grouped map[string][]model.PurchaseLot
	if l.policy == model.BuyOnly {
		grouped = buyLots(txs)
	} else {
		grouped = consumeLots(txs, l.policy)
	}

	for sym, lots := range grouped {
		for i := range lots {
			lots[i].MarketHasOpenedSince = l.calendar.HasOpenedSince(lots[i].PurchasedAt, now)
		}
		grouped[sym] = lots
	}
	return grouped
}

// Load builds and stores the lots of txs.
func (l *LotLedger) Load(txs []model.Transaction, now time.Time) {
	lots := l.Build(txs, now)
	l.mu.Lock()
	l.lots = lots
	l.builtAt = now
	l.mu.Unlock()
}

// Refresh recomputes the session flag of the stored lots. A lot bought
// after the close gains its flag once the next session opens.
func (l *LotLedger) Refresh(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	flipped := 0
	for _, lots := range l.lots {
		for i := range lots {
			opened := l.calendar.HasOpenedSince(lots[i].PurchasedAt, now)
			if opened != lots[i].MarketHasOpenedSince {
				flipped++
			}
			lots[i].MarketHasOpenedSince = opened
		}
	}
	l.builtAt = now
	return flipped
}

// Lots returns a copy of the lots of symbol.
func (l *LotLedger) Lots(symbol string) []model.PurchaseLot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]model.PurchaseLot(nil), l.lots[symbol]...)
}

// All returns a deep copy of every symbol's lots.
func (l *LotLedger) All() map[string][]model.PurchaseLot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string][]model.PurchaseLot, len(l.lots))
	for s, lots := range l.lots {
		out[s] = append([]model.PurchaseLot(nil), lots...)
	}
	return out
}

func (l *LotLedger) Symbols() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.lots))
	for s := range l.lots {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (l *LotLedger) BuiltAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.builtAt
}

func buyLots(txs []model.Transaction) map[string][]model.PurchaseLot {
	out := make(map[string][]model.PurchaseLot)
	for _, tx := range txs {
		if tx.Type != model.Buy {
			continue
		}
		lot, ok := lotFrom(tx)
		if !ok {
			continue
		}
		out[lot.Symbol] = append(out[lot.Symbol], lot)
	}
	for _, lots := range out {
		sortLots(lots)
	}
	return out
}

// consumeLots replays txs in execution order. A SELL removes quantity from
// the oldest (FIFO) or newest (LIFO) open lots; a partially consumed lot is
// replaced by a smaller copy with the same price and purchase time. Selling
// more than is held empties the symbol.
func consumeLots(txs []model.Transaction, policy model.LotPolicy) map[string][]model.PurchaseLot {
	ordered := append([]model.Transaction(nil), txs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ExecutedAt.Before(ordered[j].ExecutedAt)
	})

	out := make(map[string][]model.PurchaseLot)
	for _, tx := range ordered {
		switch tx.Type {
		case model.Buy:
			if lot, ok := lotFrom(tx); ok {
				out[lot.Symbol] = append(out[lot.Symbol], lot)
			}
		case model.Sell:
			sym := normalizeSymbol(tx.Symbol)
			if sym == "" || !(tx.Quantity > 0) || math.IsInf(tx.Quantity, 0) {
				continue
			}
			out[sym] = sell(out[sym], decimal.NewFromFloat(tx.Quantity), policy)
			if len(out[sym]) == 0 {
				delete(out, sym)
			}
		}
	}
	for _, lots := range out {
		sortLots(lots)
	}
	return out
}

func sell(lots []model.PurchaseLot, qty decimal.Decimal, policy model.LotPolicy) []model.PurchaseLot {
	for qty.IsPositive() && len(lots) > 0 {
		idx := 0
		if policy == model.LIFO {
			idx = len(lots) - 1
		}
		held := decimal.NewFromFloat(lots[idx].Quantity)
		if held.LessThanOrEqual(qty) {
			qty = qty.Sub(held)
			lots = append(lots[:idx:idx], lots[idx+1:]...)
			continue
		}
		reduced := lots[idx]
		reduced.Quantity = held.Sub(qty).InexactFloat64()
		lots[idx] = reduced
		qty = decimal.Zero
	}
	return lots
}

func lotFrom(tx model.Transaction) (model.PurchaseLot, bool) {
	sym := normalizeSymbol(tx.Symbol)
	if sym == "" || !(tx.Quantity > 0) || math.IsInf(tx.Quantity, 0) {
		return model.PurchaseLot{}, false
	}
	if !(tx.PricePerShare >= 0) || math.IsInf(tx.PricePerShare, 0) {
		return model.PurchaseLot{}, false
	}
	return model.PurchaseLot{
		Symbol:        sym,
		Quantity:      tx.Quantity,
		PricePerShare: tx.PricePerShare,
		PurchasedAt:   tx.ExecutedAt,
	}, true
}

func sortLots(lots []model.PurchaseLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		return lots[i].PurchasedAt.Before(lots[j].PurchasedAt)
	})
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
