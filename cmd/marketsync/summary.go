package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/subcommands"

	"marketsync/internal/infrastructure/config"
	"marketsync/internal/renderer"
)

type summaryCmd struct {
	wait   time.Duration
	format string
	style  string
	mode   string
}

func (*summaryCmd) Name() string     { return "summary" }
func (*summaryCmd) Synopsis() string { return "print the portfolio valuation once" }
func (*summaryCmd) Usage() string {
	return `marketsync summary [-wait <duration>] [-format terminal|md|html] [-mode <feed mode>]

  Subscribes to the held symbols, waits until every one has a price (or
  -wait elapses) and prints the portfolio summary.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.wait, "wait", 5*time.Second, "How long to wait for prices.")
	f.StringVar(&c.format, "format", "terminal", "Output format: terminal, md or html.")
	f.StringVar(&c.style, "style", "auto", "Terminal style: auto, dark, light or notty.")
	f.StringVar(&c.mode, "mode", "", "Override feed.mode.")
}

func (c *summaryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := setup(func(cfg *config.Config) {
		if c.mode != "" {
			cfg.Feed.Mode = c.mode
		}
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := app.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	app.awaitQuotes(ctx, c.wait)

	md, err := renderer.SummaryMarkdown(app.portfolio.Summary(), renderer.Options{
		Account:  app.config.Account,
		Location: app.calendar.Location(),
		Changed:  app.portfolio.Changed(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := printMarkdown(md, c.format, c.style); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// awaitQuotes returns once every held symbol has a quote or wait elapses.
func (a *App) awaitQuotes(ctx context.Context, wait time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		missing := 0
		for _, sym := range a.portfolio.HeldSymbols() {
			if _, ok := a.cache.Get(sym); !ok {
				missing++
			}
		}
		if missing == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func printMarkdown(md, format, style string) error {
	switch format {
	case "md":
		fmt.Print(md)
		return nil
	case "html":
		out, err := renderer.HTML(md)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	case "terminal", "":
		if style == "auto" {
			style = ""
		}
		out, err := renderer.Terminal(md, style, 120)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
