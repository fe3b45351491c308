package cryptofolio

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// this file handles the ledger persistence format: one JSON object per line,
// human readable, trivial to diff and to merge.

// jtransaction is the wire form of a Transaction. Money fields split into an
// amount and a currency so the file stays readable without custom decoding.
type jtransaction struct {
	Time       time.Time       `json:"time"`
	Kind       Kind            `json:"kind"`
	Asset      string          `json:"asset"`
	Amount     Quantity        `json:"amount"`
	UnitPrice  decimal.Decimal `json:"unitPrice,omitempty"`
	TotalValue decimal.Decimal `json:"totalValue,omitempty"`
	Fee        decimal.Decimal `json:"fee,omitempty"`
	Currency   string          `json:"currency,omitempty"`
	Exchange   string          `json:"exchange,omitempty"`
	ExternalID string          `json:"externalId,omitempty"`
	Note       string          `json:"note,omitempty"`
}

// EncodeTransactions writes the transactions as JSONL, one per line, in the
// given order.
func EncodeTransactions(w io.Writer, txs []Transaction) error {
	enc := json.NewEncoder(w)
	for i, tx := range txs {
		jt := jtransaction{
			Time:       tx.Time,
			Kind:       tx.Kind,
			Asset:      tx.Asset,
			Amount:     tx.Amount,
			UnitPrice:  tx.UnitPrice.Decimal(),
			TotalValue: tx.TotalValue.Decimal(),
			Fee:        tx.Fee.Decimal(),
			Currency:   tx.UnitPrice.Currency(),
			Exchange:   tx.Exchange,
			ExternalID: tx.ExternalID,
			Note:       tx.Note,
		}
		if jt.Currency == "" {
			jt.Currency = tx.Fee.Currency()
		}
		if err := enc.Encode(jt); err != nil {
			return fmt.Errorf("cannot encode transaction %d: %w", i, err)
		}
	}
	return nil
}

// DecodeTransactions reads a JSONL stream of transactions. Empty lines are
// skipped; a malformed line fails the whole decode since a persisted ledger
// is expected to be clean.
func DecodeTransactions(r io.Reader) ([]Transaction, error) {
	var txs []Transaction
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var jt jtransaction
		if err := json.Unmarshal(raw, &jt); err != nil {
			return nil, fmt.Errorf("cannot parse ledger line %d: %w", line, err)
		}
		txs = append(txs, Transaction{
			Time:       jt.Time,
			Kind:       jt.Kind,
			Asset:      jt.Asset,
			Amount:     jt.Amount,
			UnitPrice:  M(jt.UnitPrice, jt.Currency),
			TotalValue: M(jt.TotalValue, jt.Currency),
			Fee:        M(jt.Fee, jt.Currency),
			Exchange:   jt.Exchange,
			ExternalID: jt.ExternalID,
			Note:       jt.Note,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read ledger: %w", err)
	}
	return txs, nil
}
