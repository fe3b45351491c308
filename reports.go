package cryptofolio

import (
	"fmt"
	"sort"
	"strings"
)

// TaxReport summarizes the realized gains of one calendar year, split into
// short-term and long-term disposals.
type TaxReport struct {
	Year      int
	ShortTerm []RealizedGainRecord
	LongTerm  []RealizedGainRecord

	ShortTermGain Money
	LongTermGain  Money
	TotalProceeds Money
	TotalGain     Money
}

// NewTaxReport builds the report for a year from an engine run.
func NewTaxReport(res *Result, year int, baseCurrency string) *TaxReport {
	rep := &TaxReport{
		Year:          year,
		ShortTermGain: M(0, baseCurrency),
		LongTermGain:  M(0, baseCurrency),
		TotalProceeds: M(0, baseCurrency),
		TotalGain:     M(0, baseCurrency),
	}
	for _, g := range res.Gains {
		if g.DisposedAt.Year() != year {
			continue
		}
		if g.LongTerm() {
			rep.LongTerm = append(rep.LongTerm, g)
			rep.LongTermGain = rep.LongTermGain.Add(g.Gain)
		} else {
			rep.ShortTerm = append(rep.ShortTerm, g)
			rep.ShortTermGain = rep.ShortTermGain.Add(g.Gain)
		}
		rep.TotalProceeds = rep.TotalProceeds.Add(g.Proceeds)
		rep.TotalGain = rep.TotalGain.Add(g.Gain)
	}
	return rep
}

// ByAsset aggregates the year's gains per asset, sorted by symbol.
func (r *TaxReport) ByAsset() []AssetGain {
	agg := make(map[string]*AssetGain)
	for _, g := range append(append([]RealizedGainRecord{}, r.ShortTerm...), r.LongTerm...) {
		a, ok := agg[g.Asset]
		if !ok {
			a = &AssetGain{Asset: g.Asset}
			agg[g.Asset] = a
		}
		a.Disposals++
		a.Proceeds = a.Proceeds.Add(g.Proceeds)
		a.CostBasis = a.CostBasis.Add(g.CostBasis)
		a.Gain = a.Gain.Add(g.Gain)
	}
	gains := make([]AssetGain, 0, len(agg))
	for _, a := range agg {
		gains = append(gains, *a)
	}
	sort.Slice(gains, func(i, j int) bool { return gains[i].Asset < gains[j].Asset })
	return gains
}

// AssetGain is one asset's aggregate over a report period.
type AssetGain struct {
	Asset     string
	Disposals int
	Proceeds  Money
	CostBasis Money
	Gain      Money
}

func (r *TaxReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tax year %d\n", r.Year)
	fmt.Fprintf(&b, "  short-term: %3d disposals, gain %s\n", len(r.ShortTerm), r.ShortTermGain.SignedString())
	fmt.Fprintf(&b, "  long-term:  %3d disposals, gain %s\n", len(r.LongTerm), r.LongTermGain.SignedString())
	fmt.Fprintf(&b, "  total proceeds %s, total gain %s\n", r.TotalProceeds, r.TotalGain.SignedString())
	return b.String()
}
