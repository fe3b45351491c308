package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/cryptofolio/cryptofolio"
	"github.com/google/subcommands"
)

// positionsCmd holds the flags for the 'positions' subcommand.
type positionsCmd struct {
	method string
}

func (*positionsCmd) Name() string     { return "positions" }
func (*positionsCmd) Synopsis() string { return "current holdings, average cost and unrealized gains" }
func (*positionsCmd) Usage() string {
	return `cfolio positions [-method <method>]

  Replays the ledger and prints every open position, valued at the last
  known price of each asset.
`
}

func (c *positionsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.method, "method", "", "Cost basis method (fifo, lifo, hifo), overrides the config")
}

func (c *positionsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.method != "" {
		cfg.Method, err = cryptofolio.ParseCostBasisMethod(c.method)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing cost basis method: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	txs, err := LoadTransactions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}

	engine := cryptofolio.NewEngine(cfg)
	res := engine.Run(txs)
	report(res)

	prices := cryptofolio.NewPriceHistory(cfg)
	prices.AddTrades(res.Transactions)
	portfolio := engine.Snapshot(res, prices, time.Now())

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tQUANTITY\tAVG COST\tVALUE\tUNREALIZED\tRETURN")
	for _, p := range portfolio.Positions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.Asset, p.Quantity, p.AverageCost, p.MarketValue, p.UnrealizedGain.SignedString(), p.Return.SignedString())
	}
	fmt.Fprintf(w, "TOTAL\t\t%s\t%s\t\n", portfolio.TotalCost, portfolio.TotalValue)
	w.Flush()
	return subcommands.ExitSuccess
}
