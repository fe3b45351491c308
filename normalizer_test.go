package cryptofolio

import (
	"errors"
	"testing"
	"time"
)

func normalize(t *testing.T, txs ...Transaction) *NormalizeResult {
	t.Helper()
	return NewNormalizer(Config{}).Normalize(txs)
}

func hasWarning(res *NormalizeResult, kind WarningKind) bool {
	for _, w := range res.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}

func TestNormalizeBuySell(t *testing.T) {
	res := normalize(t,
		sell(day(2), "BTC", 0.1, 45000, 5),
		buy(day(1), "BTC", 0.5, 40000, 10),
	)
	if len(res.Errors) != 0 {
		t.Fatalf("Errors = %v, want none", res.Errors)
	}
	if len(res.Events) != 2 {
		t.Fatalf("Events = %d, want 2", len(res.Events))
	}
	// Chronological order regardless of input order.
	if res.Events[0].Type != Acquire || !res.Events[0].On.Equal(day(1)) {
		t.Errorf("first event = %v %v, want acquire on day 1", res.Events[0].Type, res.Events[0].On)
	}
	if res.Events[1].Type != Dispose {
		t.Errorf("second event = %v, want dispose", res.Events[1].Type)
	}
	if want := USD(40000); !res.Events[0].UnitValue.Equal(want) {
		t.Errorf("acquire unit value = %v, want %v", res.Events[0].UnitValue, want)
	}
}

func TestNormalizeConversionPreservesValue(t *testing.T) {
	// The to leg states a drifted value of 2050; the matched pair must carry
	// the from leg's 2000 across instead.
	res := normalize(t,
		convertFrom(at(5, 10, 0, 0), "ETH", 1, 2000, ""),
		convertTo(at(5, 10, 0, 30), "BTC", 0.05, 2050, ""),
	)
	if hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("unexpected unmatched-conversion warning: %v", res.Warnings)
	}
	var acquire *Event
	for i := range res.Events {
		if res.Events[i].Type == Acquire {
			acquire = &res.Events[i]
		}
	}
	if acquire == nil {
		t.Fatal("no acquire event emitted")
	}
	// The new BTC lot costs exactly what the ETH leg was worth: 2000/0.05.
	if want := USD(40000); !acquire.UnitValue.Equal(want) {
		t.Errorf("acquire unit value = %v, want %v", acquire.UnitValue, want)
	}
}

func TestNormalizeConversionByExternalID(t *testing.T) {
	// Two hours apart, far beyond the window, but the shared id pairs them.
	res := normalize(t,
		convertFrom(at(5, 10, 0, 0), "ETH", 2, 4000, "cv-1"),
		convertTo(at(5, 12, 0, 0), "SOL", 40, 4000, "cv-1"),
	)
	if hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("unexpected unmatched-conversion warning: %v", res.Warnings)
	}
}

func TestNormalizeConversionByExternalIDToFirst(t *testing.T) {
	// The to leg sorts two hours before its partner; the shared id must
	// still pair them and carry the from leg's value across.
	res := normalize(t,
		convertTo(at(5, 10, 0, 0), "SOL", 40, 4000, "cv-9"),
		convertFrom(at(5, 12, 0, 0), "ETH", 2, 4100, "cv-9"),
	)
	if hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("unexpected unmatched-conversion warning: %v", res.Warnings)
	}
	var acquire *Event
	for i := range res.Events {
		if res.Events[i].Type == Acquire {
			acquire = &res.Events[i]
		}
	}
	if acquire == nil {
		t.Fatal("no acquire event emitted")
	}
	// 4100 / 40, not the to leg's own 100.
	if want := USD(102.5); !acquire.UnitValue.Equal(want) {
		t.Errorf("acquire unit value = %v, want %v", acquire.UnitValue, want)
	}
}

func TestNormalizeConversionByExternalIDSameTimestamp(t *testing.T) {
	on := at(5, 10, 0, 0)
	res := normalize(t,
		convertTo(on, "SOL", 40, 4000, "cv-9"),
		convertFrom(on, "ETH", 2, 4000, "cv-9"),
	)
	if hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("unexpected unmatched-conversion warning: %v", res.Warnings)
	}
}

func TestNormalizeUnmatchedConversion(t *testing.T) {
	res := normalize(t, convertFrom(day(5), "ETH", 1, 2000, ""))
	if !hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("missing unmatched-conversion warning, got %v", res.Warnings)
	}
	if len(res.Events) != 1 || res.Events[0].Type != Dispose {
		t.Fatalf("Events = %v, want one dispose", res.Events)
	}
	// Degrades to a sell at its own stated value.
	if want := USD(2000); !res.Events[0].UnitValue.Equal(want) {
		t.Errorf("unit value = %v, want %v", res.Events[0].UnitValue, want)
	}
}

func TestNormalizeConversionOutsideWindow(t *testing.T) {
	res := normalize(t,
		convertFrom(at(5, 10, 0, 0), "ETH", 1, 2000, ""),
		convertTo(at(5, 10, 6, 0), "BTC", 0.05, 2000, ""),
	)
	if !hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("missing unmatched-conversion warning, got %v", res.Warnings)
	}
}

func TestNormalizeAmbiguousConversionTie(t *testing.T) {
	// Two convert-to legs at the exact same distance from one convert-from.
	res := normalize(t,
		convertFrom(at(5, 10, 1, 0), "ETH", 1, 2000, ""),
		convertTo(at(5, 10, 0, 0), "BTC", 0.05, 2000, ""),
		convertTo(at(5, 10, 2, 0), "SOL", 20, 2000, ""),
	)
	if !hasWarning(res, WarnAmbiguousMatch) {
		t.Fatalf("missing ambiguous-match warning, got %v", res.Warnings)
	}
}

func TestNormalizeZeroCostBasisWarning(t *testing.T) {
	res := normalize(t, Transaction{Time: day(3), Kind: Receive, Asset: "BTC", Amount: Q(0.1)})
	if !hasWarning(res, WarnZeroCostBasis) {
		t.Fatalf("missing zero-cost-basis warning, got %v", res.Warnings)
	}
	if !res.Events[0].UnitValue.IsZero() {
		t.Errorf("unit value = %v, want zero", res.Events[0].UnitValue)
	}
}

func TestNormalizeStablecoinDeposit(t *testing.T) {
	res := normalize(t, Transaction{Time: day(3), Kind: Deposit, Asset: "USDC", Amount: Q(500)})
	if len(res.Warnings) != 0 {
		t.Fatalf("Warnings = %v, want none", res.Warnings)
	}
	// Pegged at face value, no price needed.
	if want := USD(1); !res.Events[0].UnitValue.Equal(want) {
		t.Errorf("unit value = %v, want %v", res.Events[0].UnitValue, want)
	}
}

func TestNormalizePartialSuccess(t *testing.T) {
	res := normalize(t,
		buy(day(1), "BTC", 0.5, 40000, 0),
		Transaction{Time: day(2), Kind: Buy, Asset: "ETH", Amount: Q(-1), UnitPrice: USD(2000)},
		sell(day(3), "BTC", 0.1, 45000, 0),
	)
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want one", res.Errors)
	}
	var verr *ValidationError
	if !errors.As(res.Errors[0], &verr) {
		t.Fatalf("error type = %T, want *ValidationError", res.Errors[0])
	}
	if len(res.Events) != 2 {
		t.Errorf("Events = %d, want 2 from the valid records", len(res.Events))
	}
	// The index points into the time-sorted sequence the result returns.
	if bad := res.Transactions[verr.Index]; bad.Asset != "ETH" {
		t.Errorf("Transactions[%d].Asset = %q, want the rejected ETH record", verr.Index, bad.Asset)
	}
}

func TestNormalizeErrorIndexAfterSort(t *testing.T) {
	// The malformed record comes first in the input but sorts last.
	res := normalize(t,
		Transaction{Time: day(9), Kind: Sell, Asset: "DOT", Amount: Q(1)},
		buy(day(1), "BTC", 0.5, 40000, 0),
		buy(day(2), "ETH", 1, 2000, 0),
	)
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want one", res.Errors)
	}
	var verr *ValidationError
	if !errors.As(res.Errors[0], &verr) {
		t.Fatalf("error type = %T, want *ValidationError", res.Errors[0])
	}
	if verr.Index != 2 {
		t.Errorf("Index = %d, want 2, the sorted position", verr.Index)
	}
	if res.Transactions[verr.Index].Asset != "DOT" {
		t.Errorf("Transactions[%d] = %v, want the rejected DOT record", verr.Index, res.Transactions[verr.Index])
	}
}

func TestNormalizeStableOrderOnEqualTimestamps(t *testing.T) {
	on := day(1)
	res := normalize(t,
		buy(on, "BTC", 0.5, 40000, 0),
		sell(on, "BTC", 0.5, 40000, 0),
	)
	// Insertion order breaks the timestamp tie, so the acquire comes first.
	if res.Events[0].Type != Acquire || res.Events[1].Type != Dispose {
		t.Errorf("events = %v %v, want acquire then dispose", res.Events[0].Type, res.Events[1].Type)
	}
}

func TestNormalizeMatchWindowConfig(t *testing.T) {
	cfg := Config{MatchWindow: time.Hour}
	res := NewNormalizer(cfg).Normalize([]Transaction{
		convertFrom(at(5, 10, 0, 0), "ETH", 1, 2000, ""),
		convertTo(at(5, 10, 30, 0), "BTC", 0.05, 2000, ""),
	})
	if hasWarning(res, WarnUnmatchedConversion) {
		t.Fatalf("legs inside a widened window should pair, got %v", res.Warnings)
	}
}
