package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// UpsertMirroredTransaction keeps exactly one bank transaction linked to a
// payment or receipt by (reference_type, reference_id). The account's
// current balance is adjusted in the same transaction.
func UpsertMirroredTransaction(tx *gorm.DB, logger *logrus.Logger, businessId string,
	referenceType models.ReferenceType, referenceId int,
	bankAccountId int, transactionType models.BankTransactionType,
	amount decimal.Decimal, date time.Time, description string) error {

	var existing models.BankTransaction
	err := tx.Where("business_id = ? AND reference_type = ? AND reference_id = ?",
		businessId, referenceType, referenceId).Take(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		config.LogError(logger, "bankingWorkflow.go", "UpsertMirroredTransaction", "FetchMirror", referenceId, err)
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		mirror := models.BankTransaction{
			BusinessId:      businessId,
			BankAccountId:   bankAccountId,
			Type:            transactionType,
			Amount:          amount,
			TransactionDate: date,
			Description:     description,
			ReferenceType:   referenceType,
			ReferenceId:     referenceId,
			Reconciled:      utils.NewFalse(),
		}
		if err := tx.Create(&mirror).Error; err != nil {
			config.LogError(logger, "bankingWorkflow.go", "UpsertMirroredTransaction", "CreateMirror", mirror, err)
			return err
		}
		if err := ApplyBankBalanceDelta(tx, logger, businessId, bankAccountId, mirror.SignedAmount()); err != nil {
			return err
		}
		return mirror.RemoveAllRedis()
	}

	// reverse the old cash effect before applying the new one; the mirror
	// may have moved to another account
	if err := ApplyBankBalanceDelta(tx, logger, businessId, existing.BankAccountId, existing.SignedAmount().Neg()); err != nil {
		return err
	}

	if err := tx.Model(&existing).Updates(map[string]interface{}{
		"BankAccountId":   bankAccountId,
		"Type":            transactionType,
		"Amount":          amount,
		"TransactionDate": date,
		"Description":     description,
	}).Error; err != nil {
		config.LogError(logger, "bankingWorkflow.go", "UpsertMirroredTransaction", "UpdateMirror", existing, err)
		return err
	}

	updated := existing
	updated.BankAccountId = bankAccountId
	updated.Type = transactionType
	updated.Amount = amount
	if err := ApplyBankBalanceDelta(tx, logger, businessId, bankAccountId, updated.SignedAmount()); err != nil {
		return err
	}
	return models.RemoveRedisBoth(existing)
}

// DeleteMirroredTransaction removes the linked bank transaction if one
// exists and restores the account balance. Deleting a mirror that was never
// created is not an error.
func DeleteMirroredTransaction(tx *gorm.DB, logger *logrus.Logger, businessId string,
	referenceType models.ReferenceType, referenceId int) error {

	var existing models.BankTransaction
	err := tx.Where("business_id = ? AND reference_type = ? AND reference_id = ?",
		businessId, referenceType, referenceId).Take(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		config.LogError(logger, "bankingWorkflow.go", "DeleteMirroredTransaction", "FetchMirror", referenceId, err)
		return err
	}

	if err := tx.Delete(&existing).Error; err != nil {
		config.LogError(logger, "bankingWorkflow.go", "DeleteMirroredTransaction", "DeleteMirror", existing, err)
		return err
	}
	if err := ApplyBankBalanceDelta(tx, logger, businessId, existing.BankAccountId, existing.SignedAmount().Neg()); err != nil {
		return err
	}
	return models.RemoveRedisBoth(existing)
}

// CreateBankTransaction records a manual ledger entry and moves the account
// balance in one transaction.
func CreateBankTransaction(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewBankTransaction) (*models.BankTransaction, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateBankTransaction(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "banking", "bankingWorkflow.go", "CreateBankTransaction")
	if err != nil {
		return nil, err
	}
	defer release()

	transaction := models.BankTransaction{
		BusinessId:      businessId,
		BankAccountId:   input.BankAccountId,
		Type:            input.Type,
		Amount:          input.Amount,
		TransactionDate: input.TransactionDate,
		Description:     input.Description,
		ReferenceType:   models.ReferenceTypeManual,
		Reconciled:      utils.NewFalse(),
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "bankingWorkflow.go", "CreateBankTransaction", "Create", transaction, err)
		return nil, err
	}
	if err := ApplyBankBalanceDelta(tx.WithContext(ctx), logger, businessId, input.BankAccountId, transaction.SignedAmount()); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := transaction.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &transaction, nil
}

// UpdateBankTransaction edits a manual ledger entry. Mirrored entries are
// owned by their payment or receipt and cannot be edited directly.
func UpdateBankTransaction(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewBankTransaction) (*models.BankTransaction, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateBankTransaction(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.BankTransaction](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if old.ReferenceType != models.ReferenceTypeManual {
		return nil, fmt.Errorf("transaction is managed by %s %d and cannot be edited directly", old.ReferenceType, old.ReferenceId)
	}

	release, err := utils.BusinessLock(ctx, businessId, "banking", "bankingWorkflow.go", "UpdateBankTransaction")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()

	// reverse the old cash effect, then apply the new one
	if err := ApplyBankBalanceDelta(tx.WithContext(ctx), logger, businessId, old.BankAccountId, old.SignedAmount().Neg()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Model(&old).Updates(map[string]interface{}{
		"BankAccountId":   input.BankAccountId,
		"Type":            input.Type,
		"Amount":          input.Amount,
		"TransactionDate": input.TransactionDate,
		"Description":     input.Description,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "bankingWorkflow.go", "UpdateBankTransaction", "Update", old, err)
		return nil, err
	}

	updated := *old
	updated.BankAccountId = input.BankAccountId
	updated.Type = input.Type
	updated.Amount = input.Amount
	if err := ApplyBankBalanceDelta(tx.WithContext(ctx), logger, businessId, input.BankAccountId, updated.SignedAmount()); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.RemoveRedisBoth(*old); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[models.BankTransaction](ctx, businessId, id)
}

// DeleteBankTransaction removes a manual ledger entry and restores the
// account balance.
func DeleteBankTransaction(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.BankTransaction, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[models.BankTransaction](ctx, businessId, id)
	if err != nil {
		return nil, err
	}
	if result.ReferenceType != models.ReferenceTypeManual {
		return nil, fmt.Errorf("transaction is managed by %s %d and cannot be deleted directly", result.ReferenceType, result.ReferenceId)
	}

	release, err := utils.BusinessLock(ctx, businessId, "banking", "bankingWorkflow.go", "DeleteBankTransaction")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "bankingWorkflow.go", "DeleteBankTransaction", "Delete", result, err)
		return nil, err
	}
	if err := ApplyBankBalanceDelta(tx.WithContext(ctx), logger, businessId, result.BankAccountId, result.SignedAmount().Neg()); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := models.RemoveRedisBoth(*result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return result, nil
}
