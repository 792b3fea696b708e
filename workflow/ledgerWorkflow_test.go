package workflow

import (
	"testing"

	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They validate the outstanding
// delta semantics through the same clamp policy the transactional paths use.
// Full DB integration tests require MySQL and run separately.

// fakeLedger applies deltas the way ApplyDebtorOutstandingDelta and
// ApplyCreditorOutstandingDelta do, without the persistence layer.
type fakeLedger struct {
	balances map[int]decimal.Decimal
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: map[int]decimal.Decimal{}}
}

func (l *fakeLedger) apply(partyId int, delta decimal.Decimal) {
	l.balances[partyId] = clampToZero(l.balances[partyId].Add(delta))
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestClampToZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"100.50", "100.50"},
		{"0", "0"},
		{"-0.0001", "0"},
		{"-500", "0"},
	}
	for _, c := range cases {
		got := clampToZero(dec(c.in))
		if !got.Equal(dec(c.want)) {
			t.Errorf("clampToZero(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}

func TestBillCreateRaisesOutstanding(t *testing.T) {
	l := newFakeLedger()
	l.balances[1] = dec("200")

	// a bill of 150 raises the creditor's balance
	l.apply(1, dec("150"))

	if !l.balances[1].Equal(dec("350")) {
		t.Fatalf("outstanding = %s, want 350", l.balances[1])
	}
}

func TestPaymentCreateClampsAtZero(t *testing.T) {
	l := newFakeLedger()
	l.balances[1] = dec("100")

	// paying more than is owed must not go negative
	l.apply(1, dec("250").Neg())

	if !l.balances[1].Equal(decimal.Zero) {
		t.Fatalf("outstanding = %s, want 0", l.balances[1])
	}
}

func TestPaymentEditShiftsByDifference(t *testing.T) {
	l := newFakeLedger()
	l.balances[1] = dec("1000")

	// payment of 300
	l.apply(1, dec("300").Neg())
	if !l.balances[1].Equal(dec("700")) {
		t.Fatalf("after create, outstanding = %s, want 700", l.balances[1])
	}

	// edit 300 -> 450: delta is old minus new
	l.apply(1, dec("300").Sub(dec("450")))
	if !l.balances[1].Equal(dec("550")) {
		t.Fatalf("after edit, outstanding = %s, want 550", l.balances[1])
	}

	// edit 450 -> 200
	l.apply(1, dec("450").Sub(dec("200")))
	if !l.balances[1].Equal(dec("800")) {
		t.Fatalf("after second edit, outstanding = %s, want 800", l.balances[1])
	}
}

func TestCounterpartySwitchMovesFullAmount(t *testing.T) {
	l := newFakeLedger()
	l.balances[1] = dec("400") // old creditor, already reduced by a 100 payment
	l.balances[2] = dec("900") // new creditor

	// switch a 100 payment from creditor 1 to creditor 2:
	// reverse in full on the old, apply in full on the new
	l.apply(1, dec("100"))
	l.apply(2, dec("100").Neg())

	if !l.balances[1].Equal(dec("500")) {
		t.Errorf("old creditor outstanding = %s, want 500", l.balances[1])
	}
	if !l.balances[2].Equal(dec("800")) {
		t.Errorf("new creditor outstanding = %s, want 800", l.balances[2])
	}
}

func TestCounterpartySwitchOrderIndependent(t *testing.T) {
	amount := dec("100")

	forward := newFakeLedger()
	forward.balances[1] = dec("400")
	forward.balances[2] = dec("900")
	forward.apply(1, amount)
	forward.apply(2, amount.Neg())

	reversed := newFakeLedger()
	reversed.balances[1] = dec("400")
	reversed.balances[2] = dec("900")
	reversed.apply(2, amount.Neg())
	reversed.apply(1, amount)

	if !forward.balances[1].Equal(reversed.balances[1]) || !forward.balances[2].Equal(reversed.balances[2]) {
		t.Fatalf("switch result depends on leg order: forward=(%s,%s) reversed=(%s,%s)",
			forward.balances[1], forward.balances[2], reversed.balances[1], reversed.balances[2])
	}
}

func TestDeleteReversesAndClamps(t *testing.T) {
	l := newFakeLedger()
	l.balances[1] = dec("100")

	// deleting a 250 bill reverses more than the stored balance; clamp wins
	l.apply(1, dec("250").Neg())

	if !l.balances[1].Equal(decimal.Zero) {
		t.Fatalf("outstanding = %s, want 0", l.balances[1])
	}
}
