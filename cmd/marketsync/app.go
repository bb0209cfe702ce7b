package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"marketsync/internal/adapter/cache"
	"marketsync/internal/adapter/exchange"
	"marketsync/internal/adapter/feed"
	"marketsync/internal/adapter/generator"
	"marketsync/internal/adapter/kafkafeed"
	"marketsync/internal/adapter/poller"
	"marketsync/internal/adapter/sse"
	"marketsync/internal/adapter/storage"
	"marketsync/internal/adapter/wsfeed"
	"marketsync/internal/application/service"
	"marketsync/internal/application/usecase"
	"marketsync/internal/concurrency/worker"
	"marketsync/internal/domain/calendar"
	"marketsync/internal/domain/model"
	"marketsync/internal/domain/port"
	"marketsync/internal/infrastructure/config"
)

// App holds the wired components shared by every subcommand.
type App struct {
	config   *config.Config
	logger   *zap.Logger
	calendar *calendar.Calendar

	local        *storage.SQLiteStore
	postgres     *storage.PostgresTransactions
	redis        *cache.RedisQuoteStore
	transactions port.TransactionSource
	quotes       port.QuoteStore
	pool         *worker.Pool

	cache     *service.PriceCache
	animator  *service.ChangeAnimator
	feed      *service.FeedService
	modes     *service.ModeService
	portfolio *usecase.PortfolioUseCase
	subs      *usecase.SubscriptionUseCase
}

func newApp(cfg *config.Config, log *zap.Logger) (*App, error) {
	cal, err := calendar.New(cfg.Market.Timezone, cfg.Market.Open)
	if err != nil {
		return nil, err
	}
	policy, err := model.ParseLotPolicy(cfg.Ledger.Policy)
	if err != nil {
		return nil, err
	}
	mode, err := model.ParseFeedMode(cfg.Feed.Mode)
	if err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: log, calendar: cal}
	if err := a.openStores(); err != nil {
		a.Close()
		return nil, err
	}

	a.cache = service.NewPriceCache()
	a.animator = service.NewChangeAnimator(cfg.Animation.Window, nil)
	a.pool = worker.NewPool(cfg.Workers.Count, cfg.Workers.Buffer, a.quotes, a.fallbackQuotes(), log.Named("worker"))

	sources := buildSources(cfg, log)
	initial, ok := sources[mode]
	if !ok {
		a.Close()
		return nil, fmt.Errorf("%w: feed mode %s has no source configured", model.ErrInvalidConfig, mode)
	}
	a.feed = service.NewFeedService(initial, a.cache, a.animator, log.Named("feed"),
		service.WithQuoteStore(a.quotes),
		service.WithQuoteSink(a.pool),
		service.WithCloseTimeout(cfg.Feed.CloseTimeout),
	)
	a.modes = service.NewModeService(mode, sources, a.feed, log.Named("mode"))

	ledger := service.NewLotLedger(cal, policy)
	a.portfolio = usecase.NewPortfolioUseCase(cfg.Account, a.transactions, ledger, a.cache, a.animator)
	a.subs = usecase.NewSubscriptionUseCase(a.portfolio, a.feed, cfg.Feed.Watch)
	return a, nil
}

// openStores connects the transaction source and the quote store. Postgres
// is the transaction source when a DSN is set, SQLite otherwise. Redis is
// the quote store when an address is set, SQLite otherwise.
func (a *App) openStores() error {
	cfg := a.config

	if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	local, err := storage.OpenSQLite(cfg.SQLite.Path, a.logger.Named("sqlite"))
	if err != nil {
		return err
	}
	a.local = local
	a.transactions = local
	a.quotes = local

	if cfg.Postgres.DSN != "" {
		pg, err := storage.NewPostgresTransactions(cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		if err := pg.InitSchema(context.Background()); err != nil {
			pg.Close()
			return fmt.Errorf("init postgres schema: %w", err)
		}
		a.postgres = pg
		a.transactions = pg
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisQuoteStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL)
		if err != nil {
			return err
		}
		a.redis = rdb
		a.quotes = rdb
	}
	return nil
}

// fallbackQuotes is SQLite when Redis is the primary quote store.
func (a *App) fallbackQuotes() port.QuoteStore {
	if a.redis != nil {
		return a.local
	}
	return nil
}

func buildSources(cfg *config.Config, log *zap.Logger) map[model.FeedMode]port.PriceSource {
	opts := feed.Options{
		InitialBackoff:    cfg.Feed.InitialBackoff,
		BackoffMultiplier: cfg.Feed.BackoffMultiplier,
		MaxBackoff:        cfg.Feed.MaxBackoff,
		HeartbeatTimeout:  cfg.Feed.HeartbeatTimeout,
		Logger:            log.Named("connection"),
	}

	var tokens port.TokenProvider
	switch {
	case cfg.Feed.TokenFile != "":
		tokens = feed.FileToken{Path: cfg.Feed.TokenFile}
	case cfg.Feed.Token != "":
		tokens = feed.StaticToken(cfg.Feed.Token)
	}
	endpoint := func(base string) *feed.Endpoint {
		e := feed.NewEndpoint(base, tokens)
		e.SymbolsParam = cfg.Feed.SymbolsParam
		e.TokenParam = cfg.Feed.TokenParam
		return e
	}

	client := &http.Client{}
	sources := map[model.FeedMode]port.PriceSource{
		model.GeneratorMode: feed.NewSource(
			generator.NewTransport(cfg.Generator.Interval, cfg.Generator.Seed, log.Named("generator")),
			feed.NewEndpoint("generator://local", nil), opts),
	}
	if cfg.Feed.URL != "" {
		sources[model.SSEMode] = feed.NewSource(sse.NewTransport(client, log.Named("sse")), endpoint(cfg.Feed.URL), opts)
		sources[model.WebSocketMode] = feed.NewSource(wsfeed.NewTransport(nil, log.Named("websocket")), endpoint(cfg.Feed.URL), opts)
	}
	if cfg.Poll.URL != "" {
		// polling has no push heartbeat; the poll interval bounds silence instead
		pollOpts := opts
		pollOpts.HeartbeatTimeout = 0
		sources[model.PollMode] = feed.NewSource(
			poller.NewTransport(&http.Client{Timeout: cfg.Poll.Interval}, cfg.Poll.Interval, cfg.Poll.Path, log.Named("poll")),
			endpoint(cfg.Poll.URL), pollOpts)
	}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.Topic != "" {
		kafkaOpts := opts
		kafkaOpts.HeartbeatTimeout = 0
		sources[model.KafkaMode] = feed.NewSource(
			kafkafeed.NewTransport(kafkafeed.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic, GroupID: cfg.Kafka.GroupID}, log.Named("kafka")),
			feed.NewEndpoint("kafka://"+cfg.Kafka.Topic, nil), kafkaOpts)
	}
	if cfg.TCP.Addr != "" {
		sources[model.TCPMode] = feed.NewSource(exchange.NewTCPTransport(log.Named("tcp")), endpoint("tcp://"+cfg.TCP.Addr), opts)
	}
	return sources
}

// Start loads the ledger and opens the subscription.
func (a *App) Start(ctx context.Context) error {
	if err := a.portfolio.ReloadLots(ctx); err != nil {
		return err
	}
	return a.subs.Sync(ctx)
}

func (a *App) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Feed.CloseTimeout+a.config.Server.ShutdownTimeout)
	defer cancel()

	if a.feed != nil {
		if err := a.feed.Close(ctx); err != nil {
			a.logger.Warn("feed close", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		_ = a.postgres.Close()
	}
	if a.local != nil {
		_ = a.local.Close()
	}
}
