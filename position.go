package cryptofolio

import (
	"sort"
	"time"
)

// Position is the computed state of a single asset, derived from the open
// lots and a market price. It is recomputed on demand, never stored.
type Position struct {
	Asset          string
	Quantity       Quantity
	CostBasis      Money // total cost basis of the open lots
	AverageCost    Money // cost basis / quantity
	MarketPrice    Money // zero when no price is known
	MarketValue    Money
	UnrealizedGain Money
	Return         Percent // unrealized gain over cost basis
}

// Portfolio is a point-in-time snapshot: all assets with a non-zero holding,
// and the totals in the base currency.
type Portfolio struct {
	On         time.Time
	Positions  []Position
	TotalValue Money
	TotalCost  Money
}

// Position returns the named position, or false when the asset is not held.
func (p Portfolio) Position(asset string) (Position, bool) {
	for _, pos := range p.Positions {
		if pos.Asset == asset {
			return pos, true
		}
	}
	return Position{}, false
}

// positionOf derives an asset's position from its open lots and a price.
func positionOf(ledger *LotLedger, asset string, price Money, base string) Position {
	pos := Position{Asset: asset, MarketPrice: price}
	pos.CostBasis = M(0, base)
	for _, lot := range ledger.Lots(asset) {
		pos.Quantity = pos.Quantity.Add(lot.Remaining)
		pos.CostBasis = pos.CostBasis.Add(lot.Cost())
	}
	if pos.Quantity.IsPositive() {
		pos.AverageCost = pos.CostBasis.Div(pos.Quantity)
	}
	pos.MarketValue = price.Mul(pos.Quantity)
	pos.UnrealizedGain = pos.MarketValue.Sub(pos.CostBasis)
	if pos.CostBasis.IsPositive() {
		pos.Return = Percent(100 * pos.UnrealizedGain.AsFloat() / pos.CostBasis.AsFloat())
	}
	return pos
}

// snapshot builds the portfolio from the ledger's open lots, pricing every
// asset through the given source. Assets without a known price still appear,
// valued at zero.
func snapshot(ledger *LotLedger, prices PriceSource, at time.Time, base string) Portfolio {
	p := Portfolio{On: at, TotalValue: M(0, base), TotalCost: M(0, base)}
	for _, asset := range ledger.Assets() {
		price, ok := prices.PriceOf(asset, at)
		if !ok {
			price = M(0, base)
		}
		pos := positionOf(ledger, asset, price, base)
		if pos.Quantity.IsZero() {
			continue
		}
		p.Positions = append(p.Positions, pos)
		p.TotalValue = p.TotalValue.Add(pos.MarketValue)
		p.TotalCost = p.TotalCost.Add(pos.CostBasis)
	}
	sort.Slice(p.Positions, func(i, j int) bool { return p.Positions[i].Asset < p.Positions[j].Asset })
	return p
}
