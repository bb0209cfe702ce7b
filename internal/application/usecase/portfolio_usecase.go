package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketsync/internal/application/service"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// PortfolioUseCase is the read model behind the HTTP handlers and the CLI:
// prices from the cache, lots from the ledger, valuation on demand.
type PortfolioUseCase struct {
	account      string
	transactions port.TransactionSource
	ledger       *service.LotLedger
	cache        *service.PriceCache
	animator     *service.ChangeAnimator
	clock        func() time.Time
}

func NewPortfolioUseCase(account string, transactions port.TransactionSource, ledger *service.LotLedger, cache *service.PriceCache, animator *service.ChangeAnimator) *PortfolioUseCase {
	return &PortfolioUseCase{
		account:      account,
		transactions: transactions,
		ledger:       ledger,
		cache:        cache,
		animator:     animator,
		clock:        time.Now,
	}
}

func (uc *PortfolioUseCase) Account() string { return uc.account }

// ReloadLots fetches the transaction history and rebuilds the ledger.
func (uc *PortfolioUseCase) ReloadLots(ctx context.Context) error {
	txs, err := uc.transactions.ListTransactions(ctx, uc.account)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	uc.ledger.Load(txs, uc.clock())
	return nil
}

// HeldSymbols are the symbols the portfolio needs prices for.
func (uc *PortfolioUseCase) HeldSymbols() []string {
	return uc.ledger.Symbols()
}

func (uc *PortfolioUseCase) Lots() map[string][]model.PurchaseLot {
	uc.ledger.Refresh(uc.clock())
	return uc.ledger.All()
}

// Summary values the portfolio with the session flags of the lots
// evaluated at call time, so today's change shows from the open onwards.
func (uc *PortfolioUseCase) Summary() model.PortfolioSummary {
	now := uc.clock()
	uc.ledger.Refresh(now)
	return service.ValuePortfolio(uc.ledger.All(), uc.cache.Get, now)
}

func (uc *PortfolioUseCase) Holding(symbol string) (model.HoldingSummary, bool) {
	uc.ledger.Refresh(uc.clock())
	q, ok := uc.cache.Get(symbol)
	return service.ComputeHoldingSummary(symbol, uc.ledger.Lots(symbol), q, ok)
}

func (uc *PortfolioUseCase) Quote(symbol string) (model.Quote, bool) {
	return uc.cache.Get(symbol)
}

// Quotes returns every known quote ordered by symbol.
func (uc *PortfolioUseCase) Quotes() []model.Quote {
	snap := uc.cache.Snapshot()
	out := make([]model.Quote, 0, len(snap))
	for _, q := range snap {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Changed returns the symbols whose price moved within the animation window.
func (uc *PortfolioUseCase) Changed() []string {
	if uc.animator == nil {
		return nil
	}
	return uc.animator.Active()
}
