package cryptofolio

import (
	"testing"
)

func TestSnapshot(t *testing.T) {
	cfg := Config{}
	engine := NewEngine(cfg)
	res := engine.Run([]Transaction{
		buy(day(1), "BTC", 0.25, 40000, 20),
		buy(day(2), "BTC", 0.25, 44000, 20),
		buy(day(2), "ETH", 10, 2000, 0),
		sell(day(3), "ETH", 10, 2500, 0),
	})
	prices := NewPriceHistory(cfg)
	prices.Add("BTC", day(4), USD(50000))

	p := engine.Snapshot(res, prices, day(5))
	// ETH is fully disposed and must not appear.
	if len(p.Positions) != 1 {
		t.Fatalf("Positions = %v, want BTC only", p.Positions)
	}
	pos, ok := p.Position("BTC")
	if !ok {
		t.Fatal("Position(BTC) not found")
	}
	if want := Q(0.5); !pos.Quantity.Equal(want) {
		t.Errorf("Quantity = %s, want %s", pos.Quantity, want)
	}
	// (0.25x40080 + 0.25x44080) / 0.5 = 42080.
	if want := USD(42080); !pos.AverageCost.Equal(want) {
		t.Errorf("AverageCost = %v, want %v", pos.AverageCost, want)
	}
	if want := USD(25000); !pos.MarketValue.Equal(want) {
		t.Errorf("MarketValue = %v, want %v", pos.MarketValue, want)
	}
	if want := USD(3960); !pos.UnrealizedGain.Equal(want) {
		t.Errorf("UnrealizedGain = %v, want %v", pos.UnrealizedGain, want)
	}
	// 3960 / 21040 ~ 18.82%.
	if want := Percent(18.8213); !pos.Return.Equal(want) {
		t.Errorf("Return = %v, want %v", pos.Return, want)
	}
	if !p.TotalValue.Equal(pos.MarketValue) || !p.TotalCost.Equal(pos.CostBasis) {
		t.Errorf("totals %v/%v do not match the single position %v/%v",
			p.TotalValue, p.TotalCost, pos.MarketValue, pos.CostBasis)
	}
}

func TestSnapshotUnpricedAsset(t *testing.T) {
	cfg := Config{}
	engine := NewEngine(cfg)
	res := engine.Run([]Transaction{buy(day(1), "BTC", 1, 40000, 0)})

	p := engine.Snapshot(res, NewPriceHistory(cfg), day(2))
	pos, ok := p.Position("BTC")
	if !ok {
		t.Fatal("Position(BTC) not found")
	}
	// No price known: the position shows, valued at zero, gain fully negative.
	if !pos.MarketValue.IsZero() {
		t.Errorf("MarketValue = %v, want zero", pos.MarketValue)
	}
	if want := USD(-40000); !pos.UnrealizedGain.Equal(want) {
		t.Errorf("UnrealizedGain = %v, want %v", pos.UnrealizedGain, want)
	}
}
