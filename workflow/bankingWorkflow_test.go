package workflow

import (
	"testing"

	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
)

// fakeBank applies mirror upserts and deletes the way
// UpsertMirroredTransaction and DeleteMirroredTransaction do, without the
// persistence layer: one row per (reference_type, reference_id), the old cash
// effect reversed before the new one is applied, balances never clamped.
type mirrorKey struct {
	referenceType models.ReferenceType
	referenceId   int
}

type fakeBank struct {
	balances map[int]decimal.Decimal
	mirrors  map[mirrorKey]*models.BankTransaction
}

func newFakeBank() *fakeBank {
	return &fakeBank{
		balances: map[int]decimal.Decimal{},
		mirrors:  map[mirrorKey]*models.BankTransaction{},
	}
}

func (b *fakeBank) applyDelta(accountId int, delta decimal.Decimal) {
	b.balances[accountId] = b.balances[accountId].Add(delta)
}

func (b *fakeBank) upsertMirror(referenceType models.ReferenceType, referenceId int,
	accountId int, transactionType models.BankTransactionType, amount decimal.Decimal) {

	key := mirrorKey{referenceType, referenceId}
	existing, ok := b.mirrors[key]
	if !ok {
		mirror := &models.BankTransaction{
			BankAccountId: accountId,
			Type:          transactionType,
			Amount:        amount,
			ReferenceType: referenceType,
			ReferenceId:   referenceId,
			Reconciled:    utils.NewFalse(),
		}
		b.mirrors[key] = mirror
		b.applyDelta(accountId, mirror.SignedAmount())
		return
	}

	b.applyDelta(existing.BankAccountId, existing.SignedAmount().Neg())
	existing.BankAccountId = accountId
	existing.Type = transactionType
	existing.Amount = amount
	b.applyDelta(accountId, existing.SignedAmount())
}

func (b *fakeBank) deleteMirror(referenceType models.ReferenceType, referenceId int) {
	key := mirrorKey{referenceType, referenceId}
	existing, ok := b.mirrors[key]
	if !ok {
		return
	}
	delete(b.mirrors, key)
	b.applyDelta(existing.BankAccountId, existing.SignedAmount().Neg())
}

func TestBankTransferPaymentCreatesSingleMirror(t *testing.T) {
	b := newFakeBank()
	b.balances[1] = dec("1000")

	// a 500 bank-transfer payment mirrors as one withdrawal
	b.upsertMirror(models.ReferenceTypePayment, 7, 1, models.BankTransactionTypeWithdrawal, dec("500"))

	if len(b.mirrors) != 1 {
		t.Fatalf("mirror count = %d, want 1", len(b.mirrors))
	}
	if !b.balances[1].Equal(dec("500")) {
		t.Fatalf("balance = %s, want 500", b.balances[1])
	}
	mirror := b.mirrors[mirrorKey{models.ReferenceTypePayment, 7}]
	if mirror.Reconciled == nil || *mirror.Reconciled {
		t.Error("new mirror must start unreconciled")
	}

	// editing the payment amount updates the same row, never a second one
	b.upsertMirror(models.ReferenceTypePayment, 7, 1, models.BankTransactionTypeWithdrawal, dec("300"))

	if len(b.mirrors) != 1 {
		t.Fatalf("after edit, mirror count = %d, want 1", len(b.mirrors))
	}
	if !b.balances[1].Equal(dec("700")) {
		t.Fatalf("after edit, balance = %s, want 700", b.balances[1])
	}
}

func TestReceiptMirrorsAsDeposit(t *testing.T) {
	b := newFakeBank()
	b.balances[3] = dec("100")

	b.upsertMirror(models.ReferenceTypeReceipt, 12, 3, models.BankTransactionTypeDeposit, dec("250"))

	if !b.balances[3].Equal(dec("350")) {
		t.Fatalf("balance = %s, want 350", b.balances[3])
	}
}

func TestMethodSwitchDeletesMirrorAndRestoresBalance(t *testing.T) {
	b := newFakeBank()
	b.balances[1] = dec("1000")

	b.upsertMirror(models.ReferenceTypeReceipt, 4, 1, models.BankTransactionTypeDeposit, dec("200"))
	if !b.balances[1].Equal(dec("1200")) {
		t.Fatalf("after create, balance = %s, want 1200", b.balances[1])
	}

	// the receipt is edited to CASH: the mirror goes away, the balance reverts
	b.deleteMirror(models.ReferenceTypeReceipt, 4)

	if len(b.mirrors) != 0 {
		t.Fatalf("mirror count = %d, want 0", len(b.mirrors))
	}
	if !b.balances[1].Equal(dec("1000")) {
		t.Fatalf("after delete, balance = %s, want 1000", b.balances[1])
	}

	// deleting a mirror that was never created is not an error
	b.deleteMirror(models.ReferenceTypeReceipt, 4)
	if !b.balances[1].Equal(dec("1000")) {
		t.Fatalf("second delete moved the balance to %s", b.balances[1])
	}
}

func TestMirrorMovesBetweenAccounts(t *testing.T) {
	b := newFakeBank()
	b.balances[1] = dec("500")
	b.balances[2] = dec("500")

	b.upsertMirror(models.ReferenceTypePayment, 9, 1, models.BankTransactionTypeWithdrawal, dec("200"))
	if !b.balances[1].Equal(dec("300")) {
		t.Fatalf("account 1 balance = %s, want 300", b.balances[1])
	}

	// the payment is repointed at account 2: the effect moves with it
	b.upsertMirror(models.ReferenceTypePayment, 9, 2, models.BankTransactionTypeWithdrawal, dec("200"))

	if len(b.mirrors) != 1 {
		t.Fatalf("mirror count = %d, want 1", len(b.mirrors))
	}
	if !b.balances[1].Equal(dec("500")) {
		t.Errorf("account 1 balance = %s, want 500", b.balances[1])
	}
	if !b.balances[2].Equal(dec("300")) {
		t.Errorf("account 2 balance = %s, want 300", b.balances[2])
	}
	if got := b.mirrors[mirrorKey{models.ReferenceTypePayment, 9}].BankAccountId; got != 2 {
		t.Errorf("mirror account = %d, want 2", got)
	}
}

func TestBankBalanceNotClamped(t *testing.T) {
	b := newFakeBank()
	b.balances[1] = dec("100")

	// overdrafts stay representable; only party outstanding clamps at zero
	b.upsertMirror(models.ReferenceTypePayment, 2, 1, models.BankTransactionTypeWithdrawal, dec("250"))

	if !b.balances[1].Equal(dec("-150")) {
		t.Fatalf("balance = %s, want -150", b.balances[1])
	}
}
