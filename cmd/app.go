// Package cmd implements the cfolio CLI to analyze a crypto portfolio.
package cmd

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cryptofolio/cryptofolio"
	"github.com/google/subcommands"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Register the subcommands.
// A main package calls Register(), then Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&importCmd{}, "ledger")
	c.Register(&positionsCmd{}, "reports")
	c.Register(&gainsCmd{}, "reports")
	c.Register(&metricsCmd{}, "reports")
}

// as a CLI application, it is short lived, so globals are fine here.

var ledgerFile = flag.String("ledger-file", "transactions.jsonl", "Path to the ledger file (JSONL format)")
var verbose = flag.Bool("v", false, "Verbose diagnostic logging")

var logger *zap.SugaredLogger

// Logger returns the process-wide logger, building it on first use.
func Logger() *zap.SugaredLogger {
	if logger == nil {
		cfg := zap.NewProductionConfig()
		if *verbose {
			cfg = zap.NewDevelopmentConfig()
		}
		cfg.OutputPaths = []string{"stderr"}
		l, err := cfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot build logger: %v\n", err)
			os.Exit(1)
		}
		logger = l.Sugar()
	}
	return logger
}

// LoadConfig reads the engine configuration from cfolio.yaml (working
// directory or $HOME/.config/cfolio) and CFOLIO_* environment variables.
// Absent config falls back to the engine defaults.
func LoadConfig() (cryptofolio.Config, error) {
	v := viper.New()
	v.SetConfigName("cfolio")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(home + "/.config/cfolio")
	}
	v.SetEnvPrefix("cfolio")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("base-currency", "USD")
	v.SetDefault("method", "fifo")
	v.SetDefault("risk-free-rate", 0.0)
	v.SetDefault("match-window", "5m")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cryptofolio.Config{}, fmt.Errorf("cannot read config: %w", err)
		}
	} else {
		Logger().Debugw("loaded config", "file", v.ConfigFileUsed())
	}

	method, err := cryptofolio.ParseCostBasisMethod(v.GetString("method"))
	if err != nil {
		return cryptofolio.Config{}, err
	}
	window, err := time.ParseDuration(v.GetString("match-window"))
	if err != nil {
		return cryptofolio.Config{}, fmt.Errorf("bad match-window: %w", err)
	}
	return cryptofolio.Config{
		Method:       method,
		BaseCurrency: v.GetString("base-currency"),
		RiskFreeRate: v.GetFloat64("risk-free-rate"),
		MatchWindow:  window,
		Stablecoins:  v.GetStringSlice("stablecoins"),
	}, nil
}

// LoadTransactions reads the ledger file. A missing file is an empty ledger.
func LoadTransactions() ([]cryptofolio.Transaction, error) {
	f, err := os.Open(*ledgerFile)
	if os.IsNotExist(err) {
		Logger().Debugw("ledger file does not exist, starting empty", "file", *ledgerFile)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return cryptofolio.DecodeTransactions(f)
}

// SaveTransactions writes the ledger file atomically.
func SaveTransactions(txs []cryptofolio.Transaction) error {
	tmp := *ledgerFile + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := cryptofolio.EncodeTransactions(f, txs); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, *ledgerFile)
}

// report prints warnings and per-record errors from a run, so a partial
// result is never silently presented as a clean one.
func report(res *cryptofolio.Result) {
	for _, w := range res.Warnings {
		Logger().Warnw("data quality", "warning", w.String())
	}
	for _, err := range res.Errors {
		Logger().Errorw("rejected transaction", "error", err.Error())
	}
	for asset, err := range res.Failed {
		Logger().Errorw("asset accounting aborted", "asset", asset, "error", err.Error())
	}
}
