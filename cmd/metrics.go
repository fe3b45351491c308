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

// metricsCmd holds the flags for the 'metrics' subcommand.
type metricsCmd struct {
	window int
	rate   float64
}

func (*metricsCmd) Name() string     { return "metrics" }
func (*metricsCmd) Synopsis() string { return "performance metrics over the portfolio value series" }
func (*metricsCmd) Usage() string {
	return `cfolio metrics [-window <days>] [-rate <annual>]

  Builds the daily valuation series from the ledger and prints Sharpe,
  Sortino, Calmar, maximum drawdown, win rate and CAGR. Undefined metrics
  are printed as "n/a", never as Inf.
`
}

func (c *metricsCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.window, "window", 0, "Limit metrics to the last N daily returns (0 = whole series)")
	f.Float64Var(&c.rate, "rate", 0, "Annual risk-free rate, e.g. 0.02, overrides the config")
}

func (c *metricsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	if c.window > 0 {
		cfg.MetricsWindow = c.window
	}
	if c.rate != 0 {
		cfg.RiskFreeRate = c.rate
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
	series := engine.ValuationSeries(res, prices, time.Now())
	if len(series) < 2 {
		fmt.Fprintln(os.Stderr, "not enough history to compute metrics")
		return subcommands.ExitFailure
	}
	rep := engine.Metrics(series, res.Gains)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "period\t%s to %s (%d returns)\n",
		rep.Start.Format("2006-01-02"), rep.End.Format("2006-01-02"), rep.Periods)
	fmt.Fprintf(w, "total return\t%s\n", rep.TotalReturn)
	fmt.Fprintf(w, "cagr\t%s\n", rep.CAGR)
	fmt.Fprintf(w, "volatility\t%s\n", rep.Volatility)
	fmt.Fprintf(w, "sharpe\t%s\n", rep.Sharpe)
	fmt.Fprintf(w, "sortino\t%s\n", rep.Sortino)
	fmt.Fprintf(w, "max drawdown\t%s\n", rep.MaxDrawdown)
	fmt.Fprintf(w, "calmar\t%s\n", rep.Calmar)
	fmt.Fprintf(w, "win rate\t%s\n", rep.WinRate)
	w.Flush()
	return subcommands.ExitSuccess
}
