package cryptofolio

import (
	"container/heap"
	"fmt"
	"sort"
	"time"
)

// Lot is a discrete acquired quantity of an asset carrying its own cost
// basis, consumed wholly or partially on disposal. Lots are owned exclusively
// by the ledger of their asset.
type Lot struct {
	Asset      string
	AcquiredAt time.Time
	Remaining  Quantity
	UnitCost   Money // acquisition fee pro-rated per unit

	seq int // insertion order, the stable tie-break for every method
}

// Cost returns the remaining cost basis of the lot.
func (l *Lot) Cost() Money { return l.UnitCost.Mul(l.Remaining) }

// InsufficientLotsError reports a disposal of more than the ledger holds. It
// signals missing historical transactions or a genuine data error, and is
// never silently clamped.
type InsufficientLotsError struct {
	Asset     string
	Requested Quantity
	Available Quantity
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("cannot dispose %s %s, only %s held", e.Requested, e.Asset, e.Available)
}

// RealizedGainRecord is the immutable outcome of a single disposal.
type RealizedGainRecord struct {
	Asset      string
	DisposedAt time.Time
	Quantity   Quantity
	Proceeds   Money // quantity x unit price - fee
	CostBasis  Money // sum over consumed lot fragments
	Gain       Money // proceeds - cost basis consumed
	AcquiredAt time.Time // earliest acquisition among the consumed lots
}

// HoldingPeriod is the time between the earliest consumed acquisition and the
// disposal, the basis for short/long-term tax classification.
func (r RealizedGainRecord) HoldingPeriod() time.Duration {
	return r.DisposedAt.Sub(r.AcquiredAt)
}

// LongTerm reports whether the disposal qualifies as long-term (held more
// than one year).
func (r RealizedGainRecord) LongTerm() bool {
	return r.DisposedAt.After(r.AcquiredAt.AddDate(1, 0, 0))
}

// lotQueue is a priority queue of open lots, keyed by the active cost basis
// method's ordering key so that selecting the next lot to consume stays
// logarithmic for portfolios with thousands of lots.
type lotQueue struct {
	method CostBasisMethod
	lots   []*Lot
}

func (q *lotQueue) Len() int      { return len(q.lots) }
func (q *lotQueue) Swap(i, j int) { q.lots[i], q.lots[j] = q.lots[j], q.lots[i] }

func (q *lotQueue) Less(i, j int) bool {
	a, b := q.lots[i], q.lots[j]
	switch q.method {
	case FIFO:
		if !a.AcquiredAt.Equal(b.AcquiredAt) {
			return a.AcquiredAt.Before(b.AcquiredAt)
		}
	case LIFO:
		if !a.AcquiredAt.Equal(b.AcquiredAt) {
			return a.AcquiredAt.After(b.AcquiredAt)
		}
	case HIFO:
		if !a.UnitCost.Equal(b.UnitCost) {
			return a.UnitCost.GreaterThan(b.UnitCost)
		}
	}
	return a.seq < b.seq
}

func (q *lotQueue) Push(x any) { q.lots = append(q.lots, x.(*Lot)) }

func (q *lotQueue) Pop() any {
	old := q.lots
	n := len(old)
	l := old[n-1]
	old[n-1] = nil
	q.lots = old[:n-1]
	return l
}

// LotLedger maintains the open lots of every asset and applies the configured
// consumption method on disposal. It is the single owner of lot state; the
// position aggregator only reads it.
type LotLedger struct {
	method CostBasisMethod
	assets map[string]*lotQueue
	seq    int
}

// NewLotLedger creates an empty ledger consuming lots by the given method.
func NewLotLedger(method CostBasisMethod) *LotLedger {
	return &LotLedger{method: method, assets: make(map[string]*lotQueue)}
}

// Method returns the active cost basis method.
func (l *LotLedger) Method() CostBasisMethod { return l.method }

// Rekey switches the consumption method, re-ordering every asset's queue
// under the new key. Already-consumed lots are not revisited: switching
// method mid-stream changes only future disposals.
func (l *LotLedger) Rekey(method CostBasisMethod) {
	l.method = method
	for _, q := range l.assets {
		q.method = method
		heap.Init(q)
	}
}

// Acquire appends a new lot. The acquisition fee is pro-rated into the unit
// cost basis. Always succeeds.
func (l *LotLedger) Acquire(asset string, quantity Quantity, unitCost, fee Money, at time.Time) {
	q, ok := l.assets[asset]
	if !ok {
		q = &lotQueue{method: l.method}
		l.assets[asset] = q
	}
	basis := unitCost
	if !fee.IsZero() {
		basis = basis.Add(fee.Div(quantity))
	}
	l.seq++
	heap.Push(q, &Lot{
		Asset:      asset,
		AcquiredAt: at,
		Remaining:  quantity,
		UnitCost:   basis,
		seq:        l.seq,
	})
}

// Available returns the total remaining quantity across all open lots of an
// asset.
func (l *LotLedger) Available(asset string) Quantity {
	var total Quantity
	if q, ok := l.assets[asset]; ok {
		for _, lot := range q.lots {
			total = total.Add(lot.Remaining)
		}
	}
	return total
}

// Dispose consumes lots for the requested quantity under the active method
// and returns the realized gain. The fee is allocated entirely to the
// disposal, not pro-rated across lots. It fails with *InsufficientLotsError
// when the asset's open lots cannot cover the quantity.
func (l *LotLedger) Dispose(asset string, quantity Quantity, unitPrice, fee Money, at time.Time) (RealizedGainRecord, error) {
	q := l.assets[asset]
	available := l.Available(asset)
	if q == nil || available.LessThan(quantity) {
		return RealizedGainRecord{}, &InsufficientLotsError{
			Asset: asset, Requested: quantity, Available: available,
		}
	}

	var costBasis Money
	var earliest time.Time
	remaining := quantity
	for remaining.IsPositive() {
		lot := q.lots[0]
		if earliest.IsZero() || lot.AcquiredAt.Before(earliest) {
			earliest = lot.AcquiredAt
		}
		if lot.Remaining.GreaterThan(remaining) {
			// Partial consumption splits the quantity in place, the lot keeps
			// its identity.
			costBasis = costBasis.Add(lot.UnitCost.Mul(remaining))
			lot.Remaining = lot.Remaining.Sub(remaining)
			break
		}
		costBasis = costBasis.Add(lot.Cost())
		remaining = remaining.Sub(lot.Remaining)
		heap.Pop(q)
	}
	if q.Len() == 0 {
		delete(l.assets, asset)
	}

	proceeds := unitPrice.Mul(quantity).Sub(fee)
	return RealizedGainRecord{
		Asset:      asset,
		DisposedAt: at,
		Quantity:   quantity,
		Proceeds:   proceeds,
		CostBasis:  costBasis,
		Gain:       proceeds.Sub(costBasis),
		AcquiredAt: earliest,
	}, nil
}

// Lots returns copies of the asset's open lots in acquisition order.
func (l *LotLedger) Lots(asset string) []Lot {
	q, ok := l.assets[asset]
	if !ok {
		return nil
	}
	lots := make([]Lot, 0, len(q.lots))
	for _, lot := range q.lots {
		lots = append(lots, *lot)
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].seq < lots[j].seq })
	return lots
}

// Assets returns the symbols with at least one open lot, sorted.
func (l *LotLedger) Assets() []string {
	assets := make([]string, 0, len(l.assets))
	for asset := range l.assets {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
