// Package cryptofolio computes cost basis, realized gains and performance
// metrics for a cryptocurrency portfolio from raw exchange transaction
// exports. It is designed to be local-first and auditable: every figure is
// recomputed from the transaction ledger, nothing is cached or mutated in
// place.
//
// The core functionalities include:
//   - Transaction Normalization: validating heterogeneous exchange records,
//     pairing the two legs of currency conversions, and lowering everything
//     to primitive acquire/dispose events.
//   - Lot Accounting: an exact-decimal lot ledger consuming lots under
//     FIFO, LIFO or HIFO, producing per-disposal realized gain records.
//   - Positions: point-in-time holdings, average cost and unrealized gains
//     against a price source.
//   - Performance Metrics: daily valuation series, Sharpe, Sortino, Calmar,
//     maximum drawdown, win rate and CAGR, with undefined ratios reported
//     explicitly rather than as Inf or NaN.
//   - Data Persistence: JSONL ledger encoding and CSV import/export in the
//     common exchange column set.
//
// This package is the foundation of the `cfolio` command-line tool.
package cryptofolio
