package cryptofolio

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// this file reads the CSV export format common to exchange transaction
// dumps. Parsing is lenient: several timestamp layouts, currency symbols and
// thousands separators in money columns, blank optional fields.

// csvTimestampLayouts are tried in order; exchange exports disagree on the
// format and on whether a timezone is present.
var csvTimestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// csvRow keeps every column as text so one malformed cell produces a precise
// error instead of failing the whole file decode.
type csvRow struct {
	Timestamp  string `csv:"timestamp"`
	Kind       string `csv:"type"`
	Asset      string `csv:"asset"`
	Amount     string `csv:"amount"`
	UnitPrice  string `csv:"price"`
	TotalValue string `csv:"total"`
	Fee        string `csv:"fee"`
	Exchange   string `csv:"exchange"`
	ExternalID string `csv:"id"`
	Note       string `csv:"note"`
}

// ImportCSV reads transactions from a CSV export. Rows that cannot be parsed
// are reported as *ValidationError in the second return value; the valid
// rows are returned regardless, so one bad row does not lose the file.
func ImportCSV(r io.Reader, baseCurrency string) ([]Transaction, []error) {
	var rows []*csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, []error{fmt.Errorf("cannot read csv: %w", err)}
	}

	var txs []Transaction
	var errs []error
	for i, row := range rows {
		tx, err := row.transaction(baseCurrency)
		if err != nil {
			errs = append(errs, &ValidationError{Index: i, Reason: err.Error()})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs
}

func (row *csvRow) transaction(baseCurrency string) (Transaction, error) {
	at, err := parseTimestamp(row.Timestamp)
	if err != nil {
		return Transaction{}, err
	}
	kind, err := ParseKind(row.Kind)
	if err != nil {
		return Transaction{}, err
	}
	amount, err := parseQuantity(row.Amount)
	if err != nil {
		return Transaction{}, fmt.Errorf("bad amount: %w", err)
	}
	price, err := parseMoney(row.UnitPrice, baseCurrency)
	if err != nil {
		return Transaction{}, fmt.Errorf("bad price: %w", err)
	}
	total, err := parseMoney(row.TotalValue, baseCurrency)
	if err != nil {
		return Transaction{}, fmt.Errorf("bad total: %w", err)
	}
	fee, err := parseMoney(row.Fee, baseCurrency)
	if err != nil {
		return Transaction{}, fmt.Errorf("bad fee: %w", err)
	}
	return Transaction{
		Time:       at,
		Kind:       kind,
		Asset:      row.Asset,
		Amount:     amount,
		UnitPrice:  price,
		TotalValue: total,
		Fee:        fee,
		Exchange:   strings.TrimSpace(row.Exchange),
		ExternalID: strings.TrimSpace(row.ExternalID),
		Note:       strings.TrimSpace(row.Note),
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("timestamp is missing")
	}
	for _, layout := range csvTimestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseQuantity(s string) (Quantity, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Quantity{}, err
	}
	return Q(d), nil
}

func parseMoney(s, currency string) (Money, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Money{}, err
	}
	return M(d, currency), nil
}

// parseDecimal strips the decoration money columns come with. A blank cell
// is zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "€")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// ExportCSV writes the transactions in the same column set ImportCSV reads.
func ExportCSV(w io.Writer, txs []Transaction) error {
	rows := make([]*csvRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, &csvRow{
			Timestamp:  tx.Time.Format(time.RFC3339),
			Kind:       string(tx.Kind),
			Asset:      tx.Asset,
			Amount:     tx.Amount.String(),
			UnitPrice:  tx.UnitPrice.Decimal().String(),
			TotalValue: tx.TotalValue.Decimal().String(),
			Fee:        tx.Fee.Decimal().String(),
			Exchange:   tx.Exchange,
			ExternalID: tx.ExternalID,
			Note:       tx.Note,
		})
	}
	return gocsv.Marshal(rows, w)
}
