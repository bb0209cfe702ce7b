package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"marketsync/internal/adapter/gateway"
	"marketsync/internal/adapter/handler"
	"marketsync/internal/application/service"
	"marketsync/internal/infrastructure/config"
	"marketsync/internal/infrastructure/server"
)

type serveCmd struct {
	port int
	mode string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the live feed, snapshot jobs and HTTP API" }
func (*serveCmd) Usage() string {
	return `marketsync serve [-port <N>] [-mode <feed mode>]

  Loads the ledger, subscribes to prices for held and watched symbols and
  serves the portfolio over HTTP until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.port, "port", 0, "Override server.port")
	f.StringVar(&c.mode, "mode", "", "Override feed.mode")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := setup(func(cfg *config.Config) {
		if c.mode != "" {
			cfg.Feed.Mode = c.mode
		}
		if c.port != 0 {
			cfg.Server.Port = c.port
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := app.serve(ctx); err != nil {
		app.logger.Error("serve failed", zap.Error(err))
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *App) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := a.logger
	log.Info("starting marketsync", zap.String("account", a.config.Account), zap.Stringer("mode", a.modes.GetCurrentMode()))

	// the pool outlives ctx so queued quotes are still written on shutdown
	poolCtx, cancelPool := context.WithCancel(context.Background())
	defer cancelPool()
	processed := a.pool.Start(poolCtx)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for range processed {
		}
	}()

	if err := a.Start(ctx); err != nil {
		return err
	}

	scheduler := service.NewSnapshotService(ctx, a.portfolio, a.local, a.calendar.Location(), a.subs.Sync, log.Named("scheduler"))
	if err := scheduler.RegisterAll(a.config.Schedule.SnapshotCron, a.config.Schedule.RefreshCron); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	hub := gateway.NewHub(a.cache, log.Named("gateway"))
	go hub.Run(ctx)

	checks := map[string]handler.Pinger{"sqlite": a.local}
	if a.postgres != nil {
		checks["postgres"] = a.postgres
	}
	if a.redis != nil {
		checks["redis"] = a.redis
	}

	mux := handler.Router{
		Prices:       handler.NewPriceHandler(a.portfolio, log),
		Portfolio:    handler.NewPortfolioHandler(a.portfolio, a.calendar.Location(), "", log),
		Subscription: handler.NewSubscriptionHandler(a.subs, log),
		Mode:         handler.NewModeHandler(a.modes, log),
		Health: handler.NewHealthHandler(checks,
			handler.FeedStateFunc(func() string { return a.feed.Status().State }), log),
		Stream: gateway.Handler(hub, log.Named("gateway")),
	}.Mux()

	srv := server.NewServer(a.config.Server.Port, mux, a.config.Server.ReadTimeout, a.config.Server.WriteTimeout, log)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	select {
	case <-ctx.Done():
		log.Info("shutting down gracefully")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	if err := a.feed.Close(shutdownCtx); err != nil {
		log.Warn("feed close", zap.Error(err))
	}
	a.pool.Close()
	<-drained
	log.Info("shutdown complete", zap.Any("pool", a.pool.Stats()))
	return nil
}
