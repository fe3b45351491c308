package cryptofolio

import (
	"sort"
	"strings"
	"time"
)

// defaultStablecoins are pegged at one base currency unit unless the
// configuration overrides the set.
var defaultStablecoins = []string{"USDT", "USDC", "DAI", "BUSD", "TUSD", "USD"}

// Config is the immutable configuration of one computation pass. The zero
// value is usable; withDefaults fills in the blanks.
type Config struct {
	// Method selects the lot consumption order. Defaults to FIFO.
	Method CostBasisMethod
	// BaseCurrency is the reporting currency. Defaults to "USD".
	BaseCurrency string
	// RiskFreeRate is the annual risk-free rate used by Sharpe and Sortino,
	// e.g. 0.02 for 2%.
	RiskFreeRate float64
	// PeriodsPerYear annualizes the return series. Defaults to 365, the
	// cadence of a daily crypto valuation series.
	PeriodsPerYear int
	// MetricsWindow limits the metrics to the last N periodic returns.
	// Zero means the whole series.
	MetricsWindow int
	// MatchWindow is the maximum time distance between the two legs of a
	// conversion for them to be paired. Defaults to 5 minutes.
	MatchWindow time.Duration
	// Stablecoins are valued at one base currency unit. Defaults to the
	// common USD-pegged set.
	Stablecoins []string
}

func (c Config) withDefaults() Config {
	if c.BaseCurrency == "" {
		c.BaseCurrency = "USD"
	}
	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = 365
	}
	if c.MatchWindow == 0 {
		c.MatchWindow = 5 * time.Minute
	}
	if c.Stablecoins == nil {
		c.Stablecoins = defaultStablecoins
	}
	return c
}

// isStable reports whether the asset is pegged at one base currency unit.
func (c Config) isStable(asset string) bool {
	asset = strings.ToUpper(asset)
	if asset == strings.ToUpper(c.BaseCurrency) {
		return true
	}
	for _, s := range c.Stablecoins {
		if strings.EqualFold(s, asset) {
			return true
		}
	}
	return false
}

// Engine runs the full accounting pipeline: normalization, lot accounting,
// positions and metrics, under one immutable configuration.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine. The configuration is captured by value and
// never changes afterwards; rerun with a new engine to change the method.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration, defaults applied.
func (e *Engine) Config() Config { return e.cfg }

// Result is the outcome of one engine run. Gains are in disposal order.
// Failed holds the assets whose accounting was aborted, each with the error
// that stopped it; the other assets' state is complete and trustworthy.
type Result struct {
	Transactions []Transaction
	Events       []Event
	Warnings     []Warning
	Errors       []error
	Gains        []RealizedGainRecord
	Ledger       *LotLedger
	Failed       map[string]error

	// failedFrom is the event index at which each failed asset stopped, so
	// the valuation series can keep its pre-failure state, like the ledger.
	failedFrom map[string]int
}

// applied reports whether the event at index i was applied to the ledger.
func (r *Result) applied(asset string, i int) bool {
	stop, failed := r.failedFrom[asset]
	return !failed || i < stop
}

// Run normalizes the transactions and replays the resulting events through a
// fresh lot ledger. An over-disposal stops that asset's accounting and is
// reported in Failed; every other asset is processed to the end.
func (e *Engine) Run(txs []Transaction) *Result {
	norm := NewNormalizer(e.cfg).Normalize(txs)
	res := &Result{
		Transactions: norm.Transactions,
		Events:       norm.Events,
		Warnings:     norm.Warnings,
		Errors:       norm.Errors,
		Ledger:       NewLotLedger(e.cfg.Method),
		Failed:       make(map[string]error),
		failedFrom:   make(map[string]int),
	}
	for i, ev := range res.Events {
		if _, failed := res.Failed[ev.Asset]; failed {
			continue
		}
		switch ev.Type {
		case Acquire:
			res.Ledger.Acquire(ev.Asset, ev.Quantity, ev.UnitValue, ev.Fee, ev.On)
		case Dispose:
			gain, err := res.Ledger.Dispose(ev.Asset, ev.Quantity, ev.UnitValue, ev.Fee, ev.On)
			if err != nil {
				res.Failed[ev.Asset] = err
				res.failedFrom[ev.Asset] = i
				continue
			}
			res.Gains = append(res.Gains, gain)
		}
	}
	return res
}

// Snapshot prices the open lots and returns the portfolio at the given time.
func (e *Engine) Snapshot(res *Result, prices PriceSource, at time.Time) Portfolio {
	return snapshot(res.Ledger, prices, at, e.cfg.BaseCurrency)
}

// ValuationPoint is one sample of the portfolio's total value over time.
type ValuationPoint struct {
	On    time.Time
	Value Money
}

// ValuationSeries replays the events day by day and values the running
// holdings with the last known price of each asset. The series spans from
// the first event to the given end, one point per day. A failed asset keeps
// the state it had before its failing disposal, consistent with the ledger
// and Snapshot.
func (e *Engine) ValuationSeries(res *Result, prices PriceSource, end time.Time) []ValuationPoint {
	if len(res.Events) == 0 {
		return nil
	}
	holdings := make(map[string]Quantity)
	var series []ValuationPoint

	first := res.Events[0].On
	day := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)
	next := 0
	for !day.After(end) {
		cutoff := day.AddDate(0, 0, 1)
		for next < len(res.Events) && res.Events[next].On.Before(cutoff) {
			ev := res.Events[next]
			next++
			if !res.applied(ev.Asset, next-1) {
				continue
			}
			if ev.Type == Acquire {
				holdings[ev.Asset] = holdings[ev.Asset].Add(ev.Quantity)
			} else {
				holdings[ev.Asset] = holdings[ev.Asset].Sub(ev.Quantity)
			}
		}
		total := M(0, e.cfg.BaseCurrency)
		for _, asset := range sortedKeys(holdings) {
			qty := holdings[asset]
			if !qty.IsPositive() {
				continue
			}
			if price, ok := prices.PriceOf(asset, cutoff.Add(-time.Nanosecond)); ok {
				total = total.Add(price.Mul(qty))
			}
		}
		series = append(series, ValuationPoint{On: day, Value: total})
		day = cutoff
	}
	return series
}

// Metrics computes the performance report over a valuation series and the
// run's realized gains.
func (e *Engine) Metrics(series []ValuationPoint, gains []RealizedGainRecord) MetricsReport {
	return computeMetrics(e.cfg, series, gains)
}

// GainsForYear filters the realized gains disposed in the given calendar
// year, preserving order.
func (e *Engine) GainsForYear(res *Result, year int) []RealizedGainRecord {
	var gains []RealizedGainRecord
	for _, g := range res.Gains {
		if g.DisposedAt.Year() == year {
			gains = append(gains, g)
		}
	}
	return gains
}

// sortedKeys returns the map's keys in ascending order, for deterministic
// iteration.
func sortedKeys(m map[string]Quantity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
