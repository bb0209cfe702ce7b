package usecase

import (
	"context"
	"slices"
	"sort"
	"sync"

	"marketsync/internal/application/service"
	"marketsync/internal/domain/model"
)

// SubscriptionUseCase keeps the feed subscribed to the held symbols plus an
// extra watch list.
type SubscriptionUseCase struct {
	portfolio *PortfolioUseCase
	feed      *service.FeedService

	mu    sync.Mutex
	watch []string
}

func NewSubscriptionUseCase(portfolio *PortfolioUseCase, feed *service.FeedService, watch []string) *SubscriptionUseCase {
	return &SubscriptionUseCase{
		portfolio: portfolio,
		feed:      feed,
		watch:     model.NormalizeSymbols(watch),
	}
}

// Universe is the sorted union of held and watched symbols.
func (uc *SubscriptionUseCase) Universe() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.universe()
}

func (uc *SubscriptionUseCase) universe() []string {
	all := model.NormalizeSymbols(append(uc.portfolio.HeldSymbols(), uc.watch...))
	sort.Strings(all)
	return all
}

func (uc *SubscriptionUseCase) Watch() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return append([]string(nil), uc.watch...)
}

// SetWatch replaces the watch list and resubscribes.
func (uc *SubscriptionUseCase) SetWatch(ctx context.Context, symbols []string) ([]string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.watch = model.NormalizeSymbols(symbols)
	universe := uc.universe()
	return universe, uc.feed.Subscribe(ctx, universe)
}

// Sync resubscribes only when the universe differs from the live
// subscription.
func (uc *SubscriptionUseCase) Sync(ctx context.Context) error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	universe := uc.universe()
	if slices.Equal(universe, uc.feed.Symbols()) {
		return nil
	}
	return uc.feed.Subscribe(ctx, universe)
}

func (uc *SubscriptionUseCase) Status() service.FeedStatus {
	return uc.feed.Status()
}
