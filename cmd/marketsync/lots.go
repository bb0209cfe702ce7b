package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"marketsync/internal/renderer"
)

type lotsCmd struct {
	format string
}

func (*lotsCmd) Name() string     { return "lots" }
func (*lotsCmd) Synopsis() string { return "list purchase lots built from the transaction history" }
func (*lotsCmd) Usage() string {
	return `marketsync lots [-format terminal|md|html]

  Rebuilds the ledger with the configured lot policy and prints every lot,
  including whether the market has opened since it was bought.
`
}

func (c *lotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "terminal", "Output format: terminal, md or html.")
}

func (c *lotsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	app, err := setup()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer app.Close()

	if err := app.portfolio.ReloadLots(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	md, err := renderer.LotsMarkdown(app.portfolio.Lots(), renderer.Options{Location: app.calendar.Location()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := printMarkdown(md, c.format, "auto"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
