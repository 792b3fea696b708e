package workflow

import (
	"testing"

	"github.com/arthosutra/accubooks_backend/models"
	"github.com/shopspring/decimal"
)

func transaction(id int, transactionType models.BankTransactionType, amount string) *models.BankTransaction {
	return &models.BankTransaction{
		ID:     id,
		Type:   transactionType,
		Amount: dec(amount),
	}
}

func TestReconciliationBalanced(t *testing.T) {
	transactions := []*models.BankTransaction{
		transaction(1, models.BankTransactionTypeDeposit, "1200.00"),
		transaction(2, models.BankTransactionTypeWithdrawal, "200.00"),
		transaction(3, models.BankTransactionTypeDeposit, "999.99"), // unselected
	}
	selected := map[int]bool{1: true, 2: true}

	result := ReconciliationDiff(dec("1000.00"), transactions, selected)

	if !result.Difference.Equal(decimal.Zero) {
		t.Errorf("difference = %s, want 0", result.Difference)
	}
	if !result.Balanced {
		t.Error("expected balanced")
	}
}

func TestReconciliationUnbalanced(t *testing.T) {
	transactions := []*models.BankTransaction{
		transaction(1, models.BankTransactionTypeDeposit, "999.50"),
	}
	selected := map[int]bool{1: true}

	result := ReconciliationDiff(dec("1000.00"), transactions, selected)

	if !result.Difference.Equal(dec("0.50")) {
		t.Errorf("difference = %s, want 0.50", result.Difference)
	}
	if result.Balanced {
		t.Error("expected not balanced")
	}
}

func TestReconciliationToleranceBoundary(t *testing.T) {
	transactions := []*models.BankTransaction{
		transaction(1, models.BankTransactionTypeDeposit, "1000.00"),
	}
	selected := map[int]bool{1: true}

	// 0.009 inside, exactly 0.01 outside
	inside := ReconciliationDiff(dec("1000.009"), transactions, selected)
	if !inside.Balanced {
		t.Errorf("difference %s should be within tolerance", inside.Difference)
	}
	boundary := ReconciliationDiff(dec("1000.01"), transactions, selected)
	if boundary.Balanced {
		t.Errorf("difference %s should not be within tolerance", boundary.Difference)
	}
}

func TestReconciliationTransfersCountAsMoneyOut(t *testing.T) {
	transactions := []*models.BankTransaction{
		transaction(1, models.BankTransactionTypeDeposit, "500.00"),
		transaction(2, models.BankTransactionTypeTransfer, "100.00"),
	}
	selected := map[int]bool{1: true, 2: true}

	result := ReconciliationDiff(dec("400.00"), transactions, selected)

	// 400 - 500 + 100 = 0
	if !result.Balanced {
		t.Errorf("difference = %s, want balanced", result.Difference)
	}
	if !result.SelectedWithdrawals.Equal(dec("100.00")) {
		t.Errorf("selected withdrawals = %s, want 100.00", result.SelectedWithdrawals)
	}
}

func TestReconciliationNothingSelected(t *testing.T) {
	transactions := []*models.BankTransaction{
		transaction(1, models.BankTransactionTypeDeposit, "500.00"),
	}

	result := ReconciliationDiff(dec("0.00"), transactions, map[int]bool{})

	if !result.Difference.Equal(decimal.Zero) {
		t.Errorf("difference = %s, want 0", result.Difference)
	}
	if !result.Balanced {
		t.Error("empty statement with empty selection should be balanced")
	}
}
