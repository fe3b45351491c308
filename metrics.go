package cryptofolio

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// Metric is a single performance figure that may be undefined. A ratio with
// a zero denominator is reported as undefined, never as Inf or NaN.
type Metric struct {
	Value   float64
	Defined bool
}

func metric(v float64) Metric { return Metric{Value: v, Defined: true} }

func (m Metric) String() string {
	if !m.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", m.Value)
}

// MetricsReport is the full performance summary over one valuation series.
// Statistics are float64: the exact-decimal guarantee covers cost basis and
// proceeds, not risk ratios.
type MetricsReport struct {
	Start, End time.Time
	Periods    int       // number of periodic returns used
	Returns    []float64 // the periodic return series, window applied

	TotalReturn Metric
	CAGR        Metric
	Volatility  Metric // annualized standard deviation of returns
	Sharpe      Metric
	Sortino     Metric
	MaxDrawdown Metric // peak-to-trough fraction, 0.40 means -40%
	Calmar      Metric
	WinRate     Metric // fraction of realized disposals with a positive gain

	Warnings []Warning
}

// computeMetrics derives the report from a chronological valuation series
// and the realized gains of the run.
func computeMetrics(cfg Config, series []ValuationPoint, gains []RealizedGainRecord) MetricsReport {
	cfg = cfg.withDefaults()
	rep := MetricsReport{}
	if len(series) > 0 {
		rep.Start = series[0].On
		rep.End = series[len(series)-1].On
	}

	rep.Returns = periodicReturns(series)
	if cfg.MetricsWindow > 0 && len(rep.Returns) > cfg.MetricsWindow {
		rep.Returns = rep.Returns[len(rep.Returns)-cfg.MetricsWindow:]
	}
	rep.Periods = len(rep.Returns)

	periods := float64(cfg.PeriodsPerYear)
	// The annual risk-free rate compounded down to one period.
	periodRF := math.Pow(1+cfg.RiskFreeRate, 1/periods) - 1
	excess := make([]float64, len(rep.Returns))
	for i, r := range rep.Returns {
		excess[i] = r - periodRF
	}

	rep.TotalReturn, rep.CAGR = growthMetrics(series, periods)
	rep.MaxDrawdown = maxDrawdown(series)
	rep.Volatility = volatility(rep.Returns, periods)
	rep.Sharpe = sharpe(excess, periods)
	rep.Sortino = sortino(excess, periods)
	rep.Calmar = calmar(rep.CAGR, rep.MaxDrawdown)
	rep.WinRate = winRate(gains)

	for _, um := range []struct {
		name string
		m    Metric
	}{{"sharpe", rep.Sharpe}, {"sortino", rep.Sortino}, {"calmar", rep.Calmar}} {
		if !um.m.Defined {
			rep.Warnings = append(rep.Warnings, Warning{
				Kind: WarnUndefinedMetric, On: rep.End,
				Message: fmt.Sprintf("%s is undefined for this series", um.name),
			})
		}
	}
	return rep
}

// periodicReturns computes simple period-over-period returns. Periods whose
// starting value is zero are skipped, not treated as infinite growth.
func periodicReturns(series []ValuationPoint) []float64 {
	var returns []float64
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Value.AsFloat()
		if prev == 0 {
			continue
		}
		returns = append(returns, series[i].Value.AsFloat()/prev-1)
	}
	return returns
}

func growthMetrics(series []ValuationPoint, periods float64) (total, cagr Metric) {
	if len(series) < 2 {
		return
	}
	initial := series[0].Value.AsFloat()
	final := series[len(series)-1].Value.AsFloat()
	if initial <= 0 {
		return
	}
	total = metric(final/initial - 1)
	years := float64(len(series)-1) / periods
	if years <= 0 || final <= 0 {
		return
	}
	cagr = metric(math.Pow(final/initial, 1/years) - 1)
	return
}

// maxDrawdown tracks the running peak and returns the deepest peak-to-trough
// fraction. A series that never declines has a drawdown of zero.
func maxDrawdown(series []ValuationPoint) Metric {
	if len(series) == 0 {
		return Metric{}
	}
	var peak, worst float64
	for _, p := range series {
		v := p.Value.AsFloat()
		if v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := (peak - v) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return metric(worst)
}

func volatility(returns []float64, periods float64) Metric {
	if len(returns) < 2 {
		return Metric{}
	}
	sd, err := stats.StandardDeviationSample(returns)
	if err != nil {
		return Metric{}
	}
	return metric(sd * math.Sqrt(periods))
}

// sharpe annualizes mean excess return over its standard deviation. A flat
// series has zero deviation and an undefined ratio.
func sharpe(excess []float64, periods float64) Metric {
	if len(excess) < 2 {
		return Metric{}
	}
	mean, err := stats.Mean(excess)
	if err != nil {
		return Metric{}
	}
	sd, err := stats.StandardDeviationSample(excess)
	if err != nil || sd == 0 {
		return Metric{}
	}
	return metric(mean / sd * math.Sqrt(periods))
}

// sortino replaces the deviation with the downside deviation, the root mean
// square of negative excess returns only. With no down periods there is no
// downside to measure and the ratio is undefined.
func sortino(excess []float64, periods float64) Metric {
	if len(excess) < 2 {
		return Metric{}
	}
	var sumsq float64
	var downs int
	for _, r := range excess {
		if r < 0 {
			sumsq += r * r
			downs++
		}
	}
	if downs == 0 {
		return Metric{}
	}
	dd := math.Sqrt(sumsq / float64(len(excess)))
	if dd == 0 {
		return Metric{}
	}
	mean, err := stats.Mean(excess)
	if err != nil {
		return Metric{}
	}
	return metric(mean / dd * math.Sqrt(periods))
}

func calmar(cagr, maxDD Metric) Metric {
	if !cagr.Defined || !maxDD.Defined || maxDD.Value == 0 {
		return Metric{}
	}
	return metric(cagr.Value / maxDD.Value)
}

func winRate(gains []RealizedGainRecord) Metric {
	if len(gains) == 0 {
		return Metric{}
	}
	var wins int
	for _, g := range gains {
		if g.Gain.IsPositive() {
			wins++
		}
	}
	return metric(float64(wins) / float64(len(gains)))
}
