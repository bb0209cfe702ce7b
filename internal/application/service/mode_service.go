package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

// SourceSwitcher is implemented by FeedService.
type SourceSwitcher interface {
	SetSource(ctx context.Context, source port.PriceSource) error
}

// ModeService tracks which price source backs the live subscription and
// switches between the configured ones.
type ModeService struct {
	sources  map[model.FeedMode]port.PriceSource
	switcher SourceSwitcher
	logger   *zap.Logger

	mu          sync.RWMutex
	currentMode model.FeedMode
}

func NewModeService(initial model.FeedMode, sources map[model.FeedMode]port.PriceSource, switcher SourceSwitcher, logger *zap.Logger) *ModeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModeService{
		sources:     sources,
		switcher:    switcher,
		logger:      logger,
		currentMode: initial,
	}
}

// SwitchMode resubscribes through the source registered for mode. Switching
// to the current mode is a no-op.
func (s *ModeService) SwitchMode(ctx context.Context, mode model.FeedMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentMode == mode {
		return nil
	}
	src, ok := s.sources[mode]
	if !ok {
		return fmt.Errorf("%w: %s is not configured", model.ErrUnknownSource, mode)
	}
	if err := s.switcher.SetSource(ctx, src); err != nil {
		return fmt.Errorf("switch to %s: %w", mode, err)
	}

	s.logger.Info("feed mode updated", zap.Stringer("old", s.currentMode), zap.Stringer("new", mode))
	s.currentMode = mode
	return nil
}

func (s *ModeService) GetCurrentMode() model.FeedMode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentMode
}

// Available lists the configured modes.
func (s *ModeService) Available() []model.FeedMode {
	out := make([]model.FeedMode, 0, len(s.sources))
	for m := range s.sources {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
