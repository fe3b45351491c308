package cryptofolio

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Kind is a typed string identifying the nature of a transaction.
type Kind string

// Transaction kinds recorded in the ledger.
const (
	Buy         Kind = "buy"
	Sell        Kind = "sell"
	Deposit     Kind = "deposit"
	Withdrawal  Kind = "withdrawal"
	Send        Kind = "send"
	Receive     Kind = "receive"
	ConvertFrom Kind = "convert-from"
	ConvertTo   Kind = "convert-to"
	Reward      Kind = "reward"
	Interest    Kind = "interest"
)

// kindAliases maps the spellings found in exchange export files to kinds.
var kindAliases = map[string]Kind{
	"buy":            Buy,
	"sell":           Sell,
	"deposit":        Deposit,
	"withdrawal":     Withdrawal,
	"withdraw":       Withdrawal,
	"send":           Send,
	"transfer out":   Send,
	"receive":        Receive,
	"transfer in":    Receive,
	"convert-from":   ConvertFrom,
	"convert (from)": ConvertFrom,
	"convert-to":     ConvertTo,
	"convert (to)":   ConvertTo,
	"reward":         Reward,
	"reward / bonus": Reward,
	"airdrop":        Reward,
	"interest":       Interest,
}

// ParseKind parses a transaction kind, accepting the spellings used by the
// common exchange export formats.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown transaction kind: %q", s)
	}
	return k, nil
}

// IsAcquisition reports whether this kind increases the holding of its asset.
func (k Kind) IsAcquisition() bool {
	switch k {
	case Buy, Deposit, Receive, ConvertTo, Reward, Interest:
		return true
	}
	return false
}

// IsDisposal reports whether this kind decreases the holding of its asset.
func (k Kind) IsDisposal() bool {
	switch k {
	case Sell, Withdrawal, Send, ConvertFrom:
		return true
	}
	return false
}

// IsTrade reports whether this kind must carry a price or a total value.
func (k Kind) IsTrade() bool {
	switch k {
	case Buy, Sell, ConvertFrom, ConvertTo:
		return true
	}
	return false
}

// Transaction is an immutable record of a single portfolio event. It is
// created once from external input and never mutated afterwards.
type Transaction struct {
	Time       time.Time
	Kind       Kind
	Asset      string   // symbol, e.g. "BTC"
	Amount     Quantity // always positive
	UnitPrice  Money    // price per unit in the base currency; zero when unknown
	TotalValue Money    // total trade value, fee excluded; zero when unknown
	Fee        Money    // non-negative, defaults to zero
	Exchange   string
	ExternalID string // optional, used for conversion matching
	Note       string
}

// HasPrice reports whether a unit price or total value is known.
func (t Transaction) HasPrice() bool {
	return !t.UnitPrice.IsZero() || !t.TotalValue.IsZero()
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s", t.Time.Format(time.RFC3339), t.Kind, t.Amount, t.Asset)
}

// ValidationError reports a malformed or contradictory transaction. It is
// fatal for that record only; the caller decides whether to skip it or to
// abort the whole batch.
type ValidationError struct {
	// Index locates the record in the sequence it was reported from: the row
	// order for a CSV import, the time-sorted order (the result's
	// Transactions) for a normalization pass.
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transaction %d: %s", e.Index, e.Reason)
}

// Validate checks the transaction's invariants and applies quick fixes where
// possible: the asset symbol is normalized, and the missing one of unit price
// and total value is derived from the other. It returns the fixed transaction.
func (t Transaction) Validate(baseCurrency string) (Transaction, error) {
	t.Asset = strings.ToUpper(strings.TrimSpace(t.Asset))
	if t.Asset == "" {
		return t, fmt.Errorf("asset symbol is missing")
	}
	if t.Kind == "" {
		return t, fmt.Errorf("transaction kind is missing")
	}
	if !t.Kind.IsAcquisition() && !t.Kind.IsDisposal() {
		return t, fmt.Errorf("unknown transaction kind %q", t.Kind)
	}
	if !t.Amount.IsPositive() {
		return t, fmt.Errorf("amount must be positive, got %s", t.Amount)
	}
	if t.Fee.IsNegative() {
		return t, fmt.Errorf("fee must not be negative, got %v", t.Fee)
	}
	if t.Time.IsZero() {
		return t, fmt.Errorf("timestamp is missing")
	}

	if t.Kind.IsTrade() && !t.HasPrice() {
		return t, fmt.Errorf("%s transaction requires a unit price or a total value", t.Kind)
	}

	// Derive the missing half of the (unit price, total value) pair so that
	// total = price x amount always holds downstream.
	switch {
	case t.UnitPrice.IsZero() && !t.TotalValue.IsZero():
		t.UnitPrice = t.TotalValue.Div(t.Amount)
	case t.TotalValue.IsZero() && !t.UnitPrice.IsZero():
		t.TotalValue = t.UnitPrice.Mul(t.Amount)
	case !t.UnitPrice.IsZero() && !t.TotalValue.IsZero():
		derived := t.UnitPrice.Mul(t.Amount)
		diff := derived.Sub(t.TotalValue)
		if diff.IsNegative() {
			diff = diff.Neg()
		}
		// A small mismatch comes from rounding in the export file, the total
		// wins since exchanges settle on it.
		if diff.GreaterThan(M(0.01, baseCurrency)) {
			return t, fmt.Errorf("unit price %v x amount %s = %v contradicts total value %v",
				t.UnitPrice, t.Amount, derived, t.TotalValue)
		}
		t.UnitPrice = t.TotalValue.Div(t.Amount)
	}

	// quick fix missing currencies to the base one.
	if t.UnitPrice.Currency() == "" {
		t.UnitPrice = M(t.UnitPrice.value, baseCurrency)
	}
	if t.TotalValue.Currency() == "" {
		t.TotalValue = M(t.TotalValue.value, baseCurrency)
	}
	if t.Fee.Currency() == "" {
		t.Fee = M(t.Fee.value, baseCurrency)
	}
	return t, nil
}

// sortTransactions orders transactions by (timestamp, insertion order). The
// sort is stable so records sharing a timestamp keep their input order.
func sortTransactions(txs []Transaction) []Transaction {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})
	return sorted
}
