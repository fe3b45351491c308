package cryptofolio

import (
	"sort"
	"time"
)

// PriceSource resolves an asset's price at a given time. Implementations are
// loaded by callers; the engine never fetches prices itself.
type PriceSource interface {
	// PriceOf returns the asset's price at or before the given time, and
	// whether any price was known at all.
	PriceOf(asset string, at time.Time) (Money, bool)
}

type pricePoint struct {
	On    time.Time
	Price Money
}

// PriceHistory is an in-memory, last-known-price source. Lookups return the
// most recent price at or before the requested time, so a sparse history
// still values every day of a series.
type PriceHistory struct {
	cfg    Config
	points map[string][]pricePoint // sorted by time
}

// NewPriceHistory creates an empty history. Stablecoins configured in cfg
// are pegged at 1 base currency unit and need no entries.
func NewPriceHistory(cfg Config) *PriceHistory {
	return &PriceHistory{cfg: cfg.withDefaults(), points: make(map[string][]pricePoint)}
}

// Add records one observed price. Out-of-order insertion is fine.
func (h *PriceHistory) Add(asset string, at time.Time, price Money) {
	pts := h.points[asset]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].On.After(at) })
	pts = append(pts, pricePoint{})
	copy(pts[i+1:], pts[i:])
	pts[i] = pricePoint{On: at, Price: price}
	h.points[asset] = pts
}

// AddTrades seeds the history from the unit prices of priced transactions.
// Exchange exports usually carry enough trades to value the whole series
// without an external feed.
func (h *PriceHistory) AddTrades(txs []Transaction) {
	for _, tx := range txs {
		if tx.HasPrice() && !h.cfg.isStable(tx.Asset) {
			h.Add(tx.Asset, tx.Time, tx.UnitPrice)
		}
	}
}

// PriceOf implements PriceSource with a last-known-price lookup.
func (h *PriceHistory) PriceOf(asset string, at time.Time) (Money, bool) {
	if h.cfg.isStable(asset) {
		return M(1, h.cfg.BaseCurrency), true
	}
	pts := h.points[asset]
	i := sort.Search(len(pts), func(i int) bool { return pts[i].On.After(at) })
	if i == 0 {
		return M(0, h.cfg.BaseCurrency), false
	}
	return pts[i-1].Price, true
}

// Assets returns the symbols with at least one recorded price, sorted.
func (h *PriceHistory) Assets() []string {
	assets := make([]string, 0, len(h.points))
	for asset := range h.points {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}
