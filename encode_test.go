package cryptofolio

import (
	"bytes"
	"strings"
	"testing"
)

func TestEncodeDecodeTransactions(t *testing.T) {
	txs := []Transaction{
		buy(day(1), "BTC", 0.25, 40000, 20),
		{Time: day(2), Kind: Deposit, Asset: "USDC", Amount: Q(500)},
		convertFrom(at(3, 10, 0, 0), "ETH", 1, 2000, "cv-1"),
	}

	var buf bytes.Buffer
	if err := EncodeTransactions(&buf, txs); err != nil {
		t.Fatalf("EncodeTransactions() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 3 {
		t.Errorf("encoded %d lines, want 3", got)
	}
	// Decimals stay bare numbers, not JSON strings.
	if strings.Contains(buf.String(), `"40000"`) {
		t.Errorf("unit price encoded as string:\n%s", buf.String())
	}

	decoded, err := DecodeTransactions(&buf)
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	if len(decoded) != len(txs) {
		t.Fatalf("decoded %d transactions, want %d", len(decoded), len(txs))
	}
	for i, tx := range decoded {
		want := txs[i]
		if !tx.Time.Equal(want.Time) || tx.Kind != want.Kind || tx.Asset != want.Asset {
			t.Errorf("transaction %d = %v, want %v", i, tx, want)
		}
		if !tx.Amount.Equal(want.Amount) {
			t.Errorf("transaction %d amount = %s, want %s", i, tx.Amount, want.Amount)
		}
		if !tx.Fee.Decimal().Equal(want.Fee.Decimal()) {
			t.Errorf("transaction %d fee = %v, want %v", i, tx.Fee, want.Fee)
		}
	}
	if decoded[2].ExternalID != "cv-1" {
		t.Errorf("ExternalID = %q, want %q", decoded[2].ExternalID, "cv-1")
	}
}

func TestDecodeTransactionsSkipsEmptyLines(t *testing.T) {
	in := `{"time":"2024-01-01T12:00:00Z","kind":"buy","asset":"BTC","amount":0.5,"unitPrice":40000,"currency":"USD"}

{"time":"2024-01-02T12:00:00Z","kind":"sell","asset":"BTC","amount":0.1,"unitPrice":45000,"currency":"USD"}
`
	txs, err := DecodeTransactions(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("decoded %d transactions, want 2", len(txs))
	}
	if !txs[0].UnitPrice.Equal(USD(40000)) {
		t.Errorf("UnitPrice = %v, want 40000 USD", txs[0].UnitPrice)
	}
}

func TestDecodeTransactionsRejectsMalformedLine(t *testing.T) {
	if _, err := DecodeTransactions(strings.NewReader("{not json}\n")); err == nil {
		t.Fatal("DecodeTransactions() = nil error, want parse failure")
	}
}
