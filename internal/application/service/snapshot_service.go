package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
)

const (
	DefaultSnapshotCron = "0 */5 * * * *"
	DefaultRefreshCron  = "0 * * * * *"
)

// Portfolio is what the snapshot jobs need from the read model.
type Portfolio interface {
	Account() string
	Summary() model.PortfolioSummary
	ReloadLots(ctx context.Context) error
}

// SnapshotService runs the periodic jobs: recording portfolio snapshots and
// rebuilding the ledger so session flags follow the market clock.
type SnapshotService struct {
	cron      *cron.Cron
	portfolio Portfolio
	recorder  port.Recorder
	onReload  func(ctx context.Context) error
	logger    *zap.Logger
	timeout   time.Duration
	ctx       context.Context
}

// NewSnapshotService schedules on the given location. onReload, if set,
// runs after every successful ledger rebuild (the caller resubscribes when
// the held symbols change).
func NewSnapshotService(ctx context.Context, portfolio Portfolio, recorder port.Recorder, loc *time.Location, onReload func(context.Context) error, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &SnapshotService{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		portfolio: portfolio,
		recorder:  recorder,
		onReload:  onReload,
		logger:    logger,
		timeout:   30 * time.Second,
		ctx:       ctx,
	}
}

// RegisterAll adds the snapshot and ledger refresh jobs. An empty spec
// falls back to the default schedule.
func (s *SnapshotService) RegisterAll(snapshotSpec, refreshSpec string) error {
	if snapshotSpec == "" {
		snapshotSpec = DefaultSnapshotCron
	}
	if refreshSpec == "" {
		refreshSpec = DefaultRefreshCron
	}
	if _, err := s.cron.AddFunc(snapshotSpec, s.snapshotJob); err != nil {
		return fmt.Errorf("register snapshot job: %w", err)
	}
	if _, err := s.cron.AddFunc(refreshSpec, s.refreshJob); err != nil {
		return fmt.Errorf("register ledger refresh job: %w", err)
	}
	return nil
}

func (s *SnapshotService) Start() {
	s.cron.Start()
	s.logger.Info("snapshot scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs to finish.
func (s *SnapshotService) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("snapshot scheduler stopped")
}

// RecordNow values the portfolio and stores the snapshot. Empty portfolios
// are not recorded.
func (s *SnapshotService) RecordNow(ctx context.Context) error {
	summary := s.portfolio.Summary()
	if len(summary.Holdings) == 0 {
		s.logger.Debug("snapshot skipped, no holdings")
		return nil
	}
	if err := s.recorder.RecordSnapshot(ctx, s.portfolio.Account(), summary); err != nil {
		return fmt.Errorf("record snapshot: %w", err)
	}
	s.logger.Info("portfolio snapshot recorded",
		zap.Int("holdings", len(summary.Holdings)),
		zap.Float64("total_value", summary.TotalValue),
		zap.Float64("total_change", summary.TotalChange),
	)
	return nil
}

// RefreshNow rebuilds the ledger from the transaction history.
func (s *SnapshotService) RefreshNow(ctx context.Context) error {
	if err := s.portfolio.ReloadLots(ctx); err != nil {
		return err
	}
	if s.onReload != nil {
		return s.onReload(ctx)
	}
	return nil
}

func (s *SnapshotService) snapshotJob() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.RecordNow(ctx); err != nil {
		s.logger.Error("snapshot job failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
	}
}

func (s *SnapshotService) refreshJob() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	if err := s.RefreshNow(ctx); err != nil {
		s.logger.Error("ledger refresh failed", zap.Error(err))
	}
}
