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

// gainsCmd holds the flags for the 'gains' subcommand.
type gainsCmd struct {
	year   int
	method string
}

func (*gainsCmd) Name() string     { return "gains" }
func (*gainsCmd) Synopsis() string { return "realized gains report for a tax year" }
func (*gainsCmd) Usage() string {
	return `cfolio gains [-year <year>] [-method <method>]

  Prints the realized gains of a calendar year, split into short-term and
  long-term disposals, with a per-asset summary.
`
}

func (c *gainsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.year, "year", time.Now().Year(), "Tax year to report on")
	f.StringVar(&c.method, "method", "", "Cost basis method (fifo, lifo, hifo), overrides the config")
}

func (c *gainsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	rep := cryptofolio.NewTaxReport(res, c.year, cfg.BaseCurrency)
	fmt.Print(rep)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ASSET\tDISPOSALS\tPROCEEDS\tCOST BASIS\tGAIN")
	for _, a := range rep.ByAsset() {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			a.Asset, a.Disposals, a.Proceeds, a.CostBasis, a.Gain.SignedString())
	}
	w.Flush()
	return subcommands.ExitSuccess
}
