package workflow

import (
	"context"
	"errors"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// reconciliationTolerance is the widest difference still reported as
// balanced. Amounts are decimal throughout, so the tolerance only absorbs
// statement rounding, not float drift.
var reconciliationTolerance = decimal.NewFromFloat(0.01)

type ReconciliationResult struct {
	StatementBalance    decimal.Decimal `json:"statement_balance"`
	SelectedDeposits    decimal.Decimal `json:"selected_deposits"`
	SelectedWithdrawals decimal.Decimal `json:"selected_withdrawals"`
	Difference          decimal.Decimal `json:"difference"`
	Balanced            bool            `json:"balanced"`
}

// ReconciliationDiff computes
//
//	difference = statement_balance - sum(selected deposits) + sum(selected withdrawals)
//
// over the given transactions. Withdrawals and transfers both count as
// money out.
func ReconciliationDiff(statementBalance decimal.Decimal, transactions []*models.BankTransaction, selected map[int]bool) ReconciliationResult {

	deposits := decimal.Zero
	withdrawals := decimal.Zero
	for _, transaction := range transactions {
		if !selected[transaction.ID] {
			continue
		}
		if transaction.Type == models.BankTransactionTypeDeposit {
			deposits = deposits.Add(transaction.Amount)
		} else {
			withdrawals = withdrawals.Add(transaction.Amount)
		}
	}

	difference := statementBalance.Sub(deposits).Add(withdrawals)

	return ReconciliationResult{
		StatementBalance:    statementBalance,
		SelectedDeposits:    deposits,
		SelectedWithdrawals: withdrawals,
		Difference:          difference,
		Balanced:            difference.Abs().LessThan(reconciliationTolerance),
	}
}

// ComputeReconciliation loads the account's transactions and runs the diff
// against the user's selection.
func ComputeReconciliation(ctx context.Context, businessId string, bankAccountId int,
	statementBalance decimal.Decimal, selectedIds []int) (*ReconciliationResult, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := utils.ValidateResourceId[models.BankAccount](ctx, businessId, bankAccountId); err != nil {
		return nil, errors.New("bank account not found")
	}

	transactions, err := models.GetBankTransactions(ctx, businessId, &bankAccountId, nil)
	if err != nil {
		return nil, err
	}

	selected := make(map[int]bool, len(selectedIds))
	for _, id := range selectedIds {
		selected[id] = true
	}

	result := ReconciliationDiff(statementBalance, transactions, selected)
	return &result, nil
}

// SaveReconciliation persists a reconciliation pass: every selected,
// previously-unreconciled transaction is flagged reconciled and every
// unselected, previously-reconciled one is unflagged, as two batched
// updates in one transaction.
func SaveReconciliation(ctx context.Context, logger *logrus.Logger, businessId string, bankAccountId int, selectedIds []int) error {

	if businessId == "" {
		return errors.New("business id is required")
	}
	if err := utils.ValidateResourceId[models.BankAccount](ctx, businessId, bankAccountId); err != nil {
		return errors.New("bank account not found")
	}

	db := config.GetDB()
	tx := db.Begin()

	flag := tx.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("business_id = ? AND bank_account_id = ? AND reconciled = ?", businessId, bankAccountId, false)
	if len(selectedIds) > 0 {
		flag = flag.Where("id IN (?)", selectedIds)
	} else {
		// nothing selected, nothing to flag
		flag = flag.Where("1 = 0")
	}
	if err := flag.Update("reconciled", true).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "reconciliationWorkflow.go", "SaveReconciliation", "FlagSelected", selectedIds, err)
		return err
	}

	unflag := tx.WithContext(ctx).Model(&models.BankTransaction{}).
		Where("business_id = ? AND bank_account_id = ? AND reconciled = ?", businessId, bankAccountId, true)
	if len(selectedIds) > 0 {
		unflag = unflag.Where("id NOT IN (?)", selectedIds)
	}
	if err := unflag.Update("reconciled", false).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "reconciliationWorkflow.go", "SaveReconciliation", "UnflagUnselected", selectedIds, err)
		return err
	}

	if err := config.RemoveRedisKey("BankTransactionList:" + businessId); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
