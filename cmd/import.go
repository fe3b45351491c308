package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/cryptofolio/cryptofolio"
	"github.com/google/subcommands"
)

// importCmd holds the flags for the 'import' subcommand.
type importCmd struct {
	dryRun bool
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import transactions from an exchange CSV export" }
func (*importCmd) Usage() string {
	return `cfolio import [-n] <file.csv>...

  Reads exchange CSV exports and appends their transactions to the ledger.
  Rows that fail validation are reported and skipped; the valid ones are
  imported anyway.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.dryRun, "n", false, "Parse and report, do not write the ledger")
}

func (c *importCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "at least one csv file is required")
		return subcommands.ExitUsageError
	}
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return subcommands.ExitFailure
	}
	txs, err := LoadTransactions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}

	var imported, rejected int
	for _, name := range f.Args() {
		file, err := os.Open(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening %q: %v\n", name, err)
			return subcommands.ExitFailure
		}
		rows, errs := cryptofolio.ImportCSV(file, cfg.BaseCurrency)
		file.Close()
		for _, err := range errs {
			Logger().Errorw("rejected row", "file", name, "error", err.Error())
		}
		imported += len(rows)
		rejected += len(errs)
		txs = append(txs, rows...)
	}

	if c.dryRun {
		fmt.Printf("would import %d transactions (%d rejected)\n", imported, rejected)
		return subcommands.ExitSuccess
	}
	if err := SaveTransactions(txs); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing ledger %q: %v\n", *ledgerFile, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("imported %d transactions (%d rejected), ledger now holds %d\n", imported, rejected, len(txs))
	return subcommands.ExitSuccess
}
