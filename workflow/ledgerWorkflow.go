package workflow

import (
	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// balance rows are updated with a compare-and-swap on the version column;
// a lost race is retried a few times before surfacing a conflict
const maxBalanceRetries = 3

// clampToZero keeps outstanding amounts non-negative. Overpayment does not
// produce a negative balance; the excess is absorbed.
func clampToZero(amount decimal.Decimal) decimal.Decimal {
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}

// ApplyDebtorOutstandingDelta shifts a debtor's outstanding amount by delta
// inside the caller's transaction. Positive deltas are what the debtor owes
// more of (invoices), negative deltas reduce the balance (receipts).
func ApplyDebtorOutstandingDelta(tx *gorm.DB, logger *logrus.Logger, businessId string, debtorId int, delta decimal.Decimal) error {

	if delta.IsZero() {
		return nil
	}

	for attempt := 0; attempt < maxBalanceRetries; attempt++ {
		var debtor models.Debtor
		if err := tx.Where("business_id = ? AND id = ?", businessId, debtorId).Take(&debtor).Error; err != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyDebtorOutstandingDelta", "FetchDebtor", debtorId, err)
			return utils.ErrorRecordNotFound
		}

		newAmount := clampToZero(debtor.OutstandingAmount.Add(delta))

		result := tx.Model(&models.Debtor{}).
			Where("id = ? AND version = ?", debtor.ID, debtor.Version).
			Updates(map[string]interface{}{
				"OutstandingAmount": newAmount,
				"Version":           debtor.Version + 1,
			})
		if result.Error != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyDebtorOutstandingDelta", "UpdateDebtor", debtor, result.Error)
			return result.Error
		}
		if result.RowsAffected > 0 {
			return models.RemoveRedisBoth(debtor)
		}
		// lost the race, re-read and retry
	}

	return utils.ErrorVersionConflict
}

// ApplyCreditorOutstandingDelta shifts a creditor's outstanding amount by
// delta inside the caller's transaction. Positive deltas are what the
// business owes more of (bills, purchases), negative deltas reduce the
// balance (payments).
func ApplyCreditorOutstandingDelta(tx *gorm.DB, logger *logrus.Logger, businessId string, creditorId int, delta decimal.Decimal) error {

	if delta.IsZero() {
		return nil
	}

	for attempt := 0; attempt < maxBalanceRetries; attempt++ {
		var creditor models.Creditor
		if err := tx.Where("business_id = ? AND id = ?", businessId, creditorId).Take(&creditor).Error; err != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyCreditorOutstandingDelta", "FetchCreditor", creditorId, err)
			return utils.ErrorRecordNotFound
		}

		newAmount := clampToZero(creditor.OutstandingAmount.Add(delta))

		result := tx.Model(&models.Creditor{}).
			Where("id = ? AND version = ?", creditor.ID, creditor.Version).
			Updates(map[string]interface{}{
				"OutstandingAmount": newAmount,
				"Version":           creditor.Version + 1,
			})
		if result.Error != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyCreditorOutstandingDelta", "UpdateCreditor", creditor, result.Error)
			return result.Error
		}
		if result.RowsAffected > 0 {
			return models.RemoveRedisBoth(creditor)
		}
	}

	return utils.ErrorVersionConflict
}

// ApplyBankBalanceDelta shifts a bank account's current balance by delta
// inside the caller's transaction. Bank balances are NOT clamped; an
// overdrawn account is representable.
func ApplyBankBalanceDelta(tx *gorm.DB, logger *logrus.Logger, businessId string, bankAccountId int, delta decimal.Decimal) error {

	if delta.IsZero() {
		return nil
	}

	for attempt := 0; attempt < maxBalanceRetries; attempt++ {
		var account models.BankAccount
		if err := tx.Where("business_id = ? AND id = ?", businessId, bankAccountId).Take(&account).Error; err != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyBankBalanceDelta", "FetchBankAccount", bankAccountId, err)
			return utils.ErrorRecordNotFound
		}

		result := tx.Model(&models.BankAccount{}).
			Where("id = ? AND version = ?", account.ID, account.Version).
			Updates(map[string]interface{}{
				"CurrentBalance": account.CurrentBalance.Add(delta),
				"Version":        account.Version + 1,
			})
		if result.Error != nil {
			config.LogError(logger, "ledgerWorkflow.go", "ApplyBankBalanceDelta", "UpdateBankAccount", account, result.Error)
			return result.Error
		}
		if result.RowsAffected > 0 {
			return models.RemoveRedisBoth(account)
		}
	}

	return utils.ErrorVersionConflict
}

// MoveOutstandingBetweenDebtors reverses the full amount on the old debtor
// and applies it on the new one. Both sides run in the same transaction, so
// the counterparty switch can never leave one leg applied.
func MoveOutstandingBetweenDebtors(tx *gorm.DB, logger *logrus.Logger, businessId string, oldDebtorId int, newDebtorId int, amount decimal.Decimal) error {
	if err := ApplyDebtorOutstandingDelta(tx, logger, businessId, oldDebtorId, amount.Neg()); err != nil {
		return err
	}
	return ApplyDebtorOutstandingDelta(tx, logger, businessId, newDebtorId, amount)
}

// MoveOutstandingBetweenCreditors reverses the full amount on the old
// creditor and applies it on the new one in the same transaction.
func MoveOutstandingBetweenCreditors(tx *gorm.DB, logger *logrus.Logger, businessId string, oldCreditorId int, newCreditorId int, amount decimal.Decimal) error {
	if err := ApplyCreditorOutstandingDelta(tx, logger, businessId, oldCreditorId, amount.Neg()); err != nil {
		return err
	}
	return ApplyCreditorOutstandingDelta(tx, logger, businessId, newCreditorId, amount)
}
