// Command marketsync keeps a live price cache for a portfolio and serves its
// valuation over HTTP, or prints it once from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"marketsync/internal/infrastructure/config"
	"marketsync/internal/infrastructure/logger"
)

var (
	configPath = flag.String("config", "", "Path to the YAML config (default $CONFIG_PATH or "+config.DefaultPath+")")
	logLevel   = flag.String("log-level", "", "Override logging.level")
)

func main() {
	completion().Complete(path.Base(os.Args[0]))

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&serveCmd{}, "")
	commander.Register(&summaryCmd{}, "portfolio")
	commander.Register(&lotsCmd{}, "portfolio")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// setup loads config, applies flag overrides and builds the logger and the
// app.
func setup(overrides ...func(*config.Config)) (*App, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	log.Debug("config loaded", zap.String("account", cfg.Account), zap.String("feed_mode", cfg.Feed.Mode))

	return newApp(cfg, log)
}
