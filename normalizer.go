package cryptofolio

import (
	"fmt"
	"sort"
	"time"
)

// EventType discriminates the two primitive ledger events.
type EventType int

const (
	// Acquire adds a new lot of an asset.
	Acquire EventType = iota
	// Dispose removes a quantity of an asset.
	Dispose
)

func (t EventType) String() string {
	if t == Acquire {
		return "acquire"
	}
	return "dispose"
}

// Event is a single, atomic operation derived from a transaction. It is the
// lowest-level, immutable fact from which all lot state is derived.
type Event struct {
	Type     EventType
	On       time.Time
	Asset    string
	Quantity Quantity
	// UnitValue is the unit cost for an acquire and the unit proceeds for a
	// dispose, fee excluded.
	UnitValue Money
	Fee       Money
	Source    int // index of the source transaction in the normalized sequence
}

// WarningKind classifies non-fatal data-quality findings.
type WarningKind int

const (
	// WarnUnmatchedConversion flags a conversion leg without a partner; it
	// degrades to an independent acquire/dispose at its own stated value.
	WarnUnmatchedConversion WarningKind = iota
	// WarnZeroCostBasis flags an acquisition without a known price; a zero
	// cost basis is the conservative default.
	WarnZeroCostBasis
	// WarnAmbiguousMatch flags a conversion pairing where several candidates
	// were at the exact same time distance; insertion order decided.
	WarnAmbiguousMatch
	// WarnUndefinedMetric flags a ratio whose denominator is zero; the metric
	// is reported as explicitly undefined, never as infinity.
	WarnUndefinedMetric
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnmatchedConversion:
		return "unmatched-conversion"
	case WarnZeroCostBasis:
		return "zero-cost-basis"
	case WarnAmbiguousMatch:
		return "ambiguous-match"
	case WarnUndefinedMetric:
		return "undefined-metric"
	default:
		return "unknown"
	}
}

// Warning is a non-fatal finding reported alongside the event sequence.
// Callers decide whether to surface them.
type Warning struct {
	Kind    WarningKind
	On      time.Time
	Asset   string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s %s: %s", w.Kind, w.On.Format(time.RFC3339), w.Asset, w.Message)
}

// NormalizeResult carries the outcome of a normalization pass. Per-record
// validation failures are collected in Errors; the valid records are still
// processed, so a partially bad export yields a partial result rather than
// nothing.
type NormalizeResult struct {
	Transactions []Transaction // validated and sorted by (time, insertion order)
	Events       []Event       // chronological ledger events
	Warnings     []Warning
	Errors       []error // *ValidationError, one per rejected record
}

// Normalizer validates raw transactions, pairs linked conversion legs, and
// lowers the sequence into primitive acquire/dispose events.
type Normalizer struct {
	cfg Config
}

// NewNormalizer creates a normalizer for the given engine configuration.
func NewNormalizer(cfg Config) *Normalizer {
	return &Normalizer{cfg: cfg.withDefaults()}
}

// conversionPair links the two legs of a matched conversion by their indices
// in the normalized transaction sequence.
type conversionPair struct {
	from, to int
}

// Normalize validates, sorts, matches conversions and lowers the input into
// ledger events. It never fails as a whole: malformed records are reported in
// the result's Errors and skipped.
func (n *Normalizer) Normalize(txs []Transaction) *NormalizeResult {
	res := &NormalizeResult{}

	sorted := sortTransactions(txs)
	valid := make([]bool, len(sorted))
	for i, tx := range sorted {
		fixed, err := tx.Validate(n.cfg.BaseCurrency)
		if err != nil {
			res.Errors = append(res.Errors, &ValidationError{Index: i, Reason: err.Error()})
			continue
		}
		sorted[i] = fixed
		valid[i] = true
	}
	res.Transactions = sorted

	pairs := n.matchConversions(res, sorted, valid)
	partnerOf := make(map[int]int, 2*len(pairs))
	for _, p := range pairs {
		partnerOf[p.from] = p.to
		partnerOf[p.to] = p.from
	}

	for i, tx := range sorted {
		if !valid[i] {
			continue
		}
		switch tx.Kind {
		case Buy:
			res.Events = append(res.Events, Event{
				Type: Acquire, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: tx.UnitPrice, Fee: tx.Fee, Source: i,
			})
		case Sell:
			res.Events = append(res.Events, Event{
				Type: Dispose, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: tx.UnitPrice, Fee: tx.Fee, Source: i,
			})
		case Deposit, Receive, Reward, Interest:
			unit := n.unitValue(res, tx, true)
			res.Events = append(res.Events, Event{
				Type: Acquire, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: unit, Fee: tx.Fee, Source: i,
			})
		case Withdrawal, Send:
			unit := n.unitValue(res, tx, false)
			res.Events = append(res.Events, Event{
				Type: Dispose, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: unit, Fee: tx.Fee, Source: i,
			})
		case ConvertFrom:
			// The source asset is disposed at its stated value whether the
			// pairing succeeded or not.
			if _, ok := partnerOf[i]; !ok {
				res.warnf(WarnUnmatchedConversion, tx.Time, tx.Asset,
					"no convert-to partner within %s, treating as an independent sell", n.cfg.MatchWindow)
			}
			res.Events = append(res.Events, Event{
				Type: Dispose, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: tx.UnitPrice, Fee: tx.Fee, Source: i,
			})
		case ConvertTo:
			unit := tx.UnitPrice
			if from, ok := partnerOf[i]; ok {
				// Value is preserved across a matched conversion: the new
				// lot's cost is exactly the source leg's disposal value.
				unit = sorted[from].TotalValue.Div(tx.Amount)
			} else {
				res.warnf(WarnUnmatchedConversion, tx.Time, tx.Asset,
					"no convert-from partner within %s, treating as an independent buy", n.cfg.MatchWindow)
			}
			res.Events = append(res.Events, Event{
				Type: Acquire, On: tx.Time, Asset: tx.Asset,
				Quantity: tx.Amount, UnitValue: unit, Fee: tx.Fee, Source: i,
			})
		}
	}
	return res
}

// unitValue resolves the per-unit value of a non-trade transaction. Fiat and
// stablecoin amounts are worth their face value; anything else uses the
// stated price, or zero with a warning when acquiring without one.
func (n *Normalizer) unitValue(res *NormalizeResult, tx Transaction, acquiring bool) Money {
	if n.cfg.isStable(tx.Asset) {
		return M(1, n.cfg.BaseCurrency)
	}
	if tx.HasPrice() {
		return tx.UnitPrice
	}
	if acquiring {
		res.warnf(WarnZeroCostBasis, tx.Time, tx.Asset,
			"no price on %s, cost basis defaults to zero", tx.Kind)
	}
	return M(0, n.cfg.BaseCurrency)
}

// matchConversions pairs convert-from and convert-to legs. Legs sharing an
// explicit external id are paired first; the rest are matched as a bipartite
// nearest-timestamp problem inside the configured window, requiring opposite
// directions and distinct assets. Exact time-distance ties fall back to
// insertion order and are reported as a warning.
func (n *Normalizer) matchConversions(res *NormalizeResult, txs []Transaction, valid []bool) []conversionPair {
	var froms, tos []int
	byID := make(map[string]int)
	var pairs []conversionPair

	for i, tx := range txs {
		if !valid[i] {
			continue
		}
		switch tx.Kind {
		case ConvertFrom:
			if tx.ExternalID != "" {
				if to, ok := byID[tx.ExternalID]; ok && txs[to].Kind == ConvertTo {
					pairs = append(pairs, conversionPair{from: i, to: to})
					delete(byID, tx.ExternalID)
					continue
				}
				byID[tx.ExternalID] = i
				continue
			}
			froms = append(froms, i)
		case ConvertTo:
			if tx.ExternalID != "" {
				if from, ok := byID[tx.ExternalID]; ok && txs[from].Kind == ConvertFrom {
					pairs = append(pairs, conversionPair{from: from, to: i})
					delete(byID, tx.ExternalID)
					continue
				}
				byID[tx.ExternalID] = i
				continue
			}
			tos = append(tos, i)
		}
	}
	// Legs with an id that found no id partner fall back to time matching.
	for _, i := range sortedValues(byID) {
		if txs[i].Kind == ConvertFrom {
			froms = append(froms, i)
		} else {
			tos = append(tos, i)
		}
	}
	sort.Ints(froms)
	sort.Ints(tos)

	type candidate struct {
		from, to int
		delta    time.Duration
	}
	var candidates []candidate
	for _, f := range froms {
		for _, t := range tos {
			if txs[f].Asset == txs[t].Asset {
				continue
			}
			delta := txs[t].Time.Sub(txs[f].Time)
			if delta < 0 {
				delta = -delta
			}
			if delta <= n.cfg.MatchWindow {
				candidates = append(candidates, candidate{from: f, to: t, delta: delta})
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].delta != candidates[j].delta {
			return candidates[i].delta < candidates[j].delta
		}
		if candidates[i].from != candidates[j].from {
			return candidates[i].from < candidates[j].from
		}
		return candidates[i].to < candidates[j].to
	})

	usedFrom := make(map[int]bool)
	usedTo := make(map[int]bool)
	for i, c := range candidates {
		if usedFrom[c.from] || usedTo[c.to] {
			continue
		}
		// An equally distant competitor for either endpoint makes the pick
		// ambiguous; insertion order decides, and we say so.
		for j := i + 1; j < len(candidates) && candidates[j].delta == c.delta; j++ {
			d := candidates[j]
			if (d.from == c.from && !usedTo[d.to]) || (d.to == c.to && !usedFrom[d.from]) {
				res.warnf(WarnAmbiguousMatch, txs[c.from].Time, txs[c.from].Asset,
					"several conversion partners at the same time distance, matched by insertion order")
				break
			}
		}
		usedFrom[c.from] = true
		usedTo[c.to] = true
		pairs = append(pairs, conversionPair{from: c.from, to: c.to})
	}
	return pairs
}

func (r *NormalizeResult) warnf(kind WarningKind, on time.Time, asset, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Kind: kind, On: on, Asset: asset,
		Message: fmt.Sprintf(format, args...),
	})
}

// sortedValues returns the map's values in ascending order, for a stable
// iteration independent of map ordering.
func sortedValues(m map[string]int) []int {
	vals := make([]int, 0, len(m))
	for _, v := range m {
		vals = append(vals, v)
	}
	sort.Ints(vals)
	return vals
}
