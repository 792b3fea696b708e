package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestCompositeCursorRoundTrip(t *testing.T) {
	encoded := EncodeCompositeCursor("2024-05-01 10:30:00 +0000 UTC", 42)

	cursor, id := DecodeCompositeCursor(&encoded)
	if cursor != "2024-05-01 10:30:00 +0000 UTC" {
		t.Errorf("cursor = %q", cursor)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestDecodeCompositeCursorNil(t *testing.T) {
	cursor, id := DecodeCompositeCursor(nil)
	if cursor != "" || id != 0 {
		t.Errorf("nil cursor decoded to (%q, %d)", cursor, id)
	}

	empty := ""
	cursor, id = DecodeCompositeCursor(&empty)
	if cursor != "" || id != 0 {
		t.Errorf("empty cursor decoded to (%q, %d)", cursor, id)
	}
}

func TestDecodeCompositeCursorGarbage(t *testing.T) {
	garbage := "!!not-base64!!"
	cursor, id := DecodeCompositeCursor(&garbage)
	if cursor != "" || id != 0 {
		t.Errorf("garbage cursor decoded to (%q, %d)", cursor, id)
	}

	// valid base64 but missing the id segment
	noSeparator := EncodeCursor("just-a-date")
	cursor, id = DecodeCompositeCursor(&noSeparator)
	if cursor != "" || id != 0 {
		t.Errorf("separator-less cursor decoded to (%q, %d)", cursor, id)
	}
}

func TestSignedAmount(t *testing.T) {
	deposit := BankTransaction{Type: BankTransactionTypeDeposit, Amount: mustDecimal(t, "100.25")}
	if !deposit.SignedAmount().Equal(mustDecimal(t, "100.25")) {
		t.Errorf("deposit signed amount = %s", deposit.SignedAmount())
	}

	withdrawal := BankTransaction{Type: BankTransactionTypeWithdrawal, Amount: mustDecimal(t, "40")}
	if !withdrawal.SignedAmount().Equal(mustDecimal(t, "-40")) {
		t.Errorf("withdrawal signed amount = %s", withdrawal.SignedAmount())
	}

	transfer := BankTransaction{Type: BankTransactionTypeTransfer, Amount: mustDecimal(t, "15.5")}
	if !transfer.SignedAmount().Equal(mustDecimal(t, "-15.5")) {
		t.Errorf("transfer signed amount = %s", transfer.SignedAmount())
	}
}

func TestInvoiceTotalsFromItems(t *testing.T) {
	input := NewInvoice{
		Items: []*NewInvoiceItem{
			{Description: "widgets", Quantity: mustDecimal(t, "3"), UnitPrice: mustDecimal(t, "19.99")},
			{Description: "shipping", Quantity: mustDecimal(t, "1"), UnitPrice: mustDecimal(t, "10")},
		},
	}

	if !input.ComputeTotal().Equal(mustDecimal(t, "69.97")) {
		t.Errorf("total = %s, want 69.97", input.ComputeTotal())
	}

	items := input.MapItems(7)
	if len(items) != 2 {
		t.Fatalf("mapped %d items", len(items))
	}
	if items[0].InvoiceId != 7 {
		t.Errorf("invoice id = %d, want 7", items[0].InvoiceId)
	}
	if !items[0].Total.Equal(mustDecimal(t, "59.97")) {
		t.Errorf("line total = %s, want 59.97", items[0].Total)
	}
}
