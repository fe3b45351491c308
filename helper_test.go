package cryptofolio

import "time"

// USD is a helper for tests to create base currency money from const
func USD(v float64) Money { return M(v, "USD") }

// day returns noon UTC of the given day in January 2024.
func day(d int) time.Time { return time.Date(2024, time.January, d, 12, 0, 0, 0, time.UTC) }

// at returns a time on the given January 2024 day.
func at(d, hour, min, sec int) time.Time {
	return time.Date(2024, time.January, d, hour, min, sec, 0, time.UTC)
}

func buy(on time.Time, asset string, amount, price, fee float64) Transaction {
	return Transaction{Time: on, Kind: Buy, Asset: asset, Amount: Q(amount), UnitPrice: USD(price), Fee: USD(fee)}
}

func sell(on time.Time, asset string, amount, price, fee float64) Transaction {
	return Transaction{Time: on, Kind: Sell, Asset: asset, Amount: Q(amount), UnitPrice: USD(price), Fee: USD(fee)}
}

func convertFrom(on time.Time, asset string, amount, total float64, id string) Transaction {
	return Transaction{Time: on, Kind: ConvertFrom, Asset: asset, Amount: Q(amount), TotalValue: USD(total), ExternalID: id}
}

func convertTo(on time.Time, asset string, amount, total float64, id string) Transaction {
	return Transaction{Time: on, Kind: ConvertTo, Asset: asset, Amount: Q(amount), TotalValue: USD(total), ExternalID: id}
}

// points builds a valuation series from USD values, one point per day.
func points(values ...float64) []ValuationPoint {
	series := make([]ValuationPoint, len(values))
	for i, v := range values {
		series[i] = ValuationPoint{On: day(1 + i), Value: USD(v)}
	}
	return series
}
