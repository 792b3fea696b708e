package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/sirupsen/logrus"
)

// CreatePaymentReceipt records money received from a debtor. The receipt
// row, the debtor's outstanding reduction and the mirrored bank deposit all
// commit or roll back together.
func CreatePaymentReceipt(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewPaymentReceipt) (*models.PaymentReceipt, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateReceipt(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "receiptWorkflow.go", "CreatePaymentReceipt")
	if err != nil {
		return nil, err
	}
	defer release()

	receipt := models.PaymentReceipt{
		BusinessId:    businessId,
		DebtorId:      input.DebtorId,
		InvoiceId:     input.InvoiceId,
		Amount:        input.Amount,
		ReceiptDate:   input.ReceiptDate,
		PaymentMethod: input.PaymentMethod,
		BankAccountId: input.BankAccountId,
		Reference:     input.Reference,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&receipt).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "receiptWorkflow.go", "CreatePaymentReceipt", "Create", receipt, err)
		return nil, err
	}

	if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, receipt.DebtorId, receipt.Amount.Neg()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if receipt.IsBankTransfer() {
		description := fmt.Sprintf("Receipt #%d", receipt.ID)
		if err := UpsertMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypeReceipt, receipt.ID,
			*receipt.BankAccountId, models.BankTransactionTypeDeposit,
			receipt.Amount, receipt.ReceiptDate, description); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if receipt.InvoiceId != nil && *receipt.InvoiceId > 0 {
		if err := SyncInvoiceSettlement(tx.WithContext(ctx), logger, businessId, *receipt.InvoiceId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := receipt.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

// UpdatePaymentReceipt edits a receipt, mirroring the payment update rules
// on the debtor side.
func UpdatePaymentReceipt(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewPaymentReceipt) (*models.PaymentReceipt, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateReceipt(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.PaymentReceipt](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "receiptWorkflow.go", "UpdatePaymentReceipt")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&models.PaymentReceipt{}).Where("id = ?", id).Updates(map[string]interface{}{
		"DebtorId":      input.DebtorId,
		"InvoiceId":     input.InvoiceId,
		"Amount":        input.Amount,
		"ReceiptDate":   input.ReceiptDate,
		"PaymentMethod": input.PaymentMethod,
		"BankAccountId": input.BankAccountId,
		"Reference":     input.Reference,
		"Notes":         input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "receiptWorkflow.go", "UpdatePaymentReceipt", "Update", input, err)
		return nil, err
	}

	if old.DebtorId == input.DebtorId {
		// receipts reduce outstanding, so a larger amount pushes it down
		delta := old.Amount.Sub(input.Amount)
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.DebtorId, delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.DebtorId, old.Amount); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, input.DebtorId, input.Amount.Neg()); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	isBankTransfer := input.PaymentMethod == models.PaymentMethodBankTransfer &&
		input.BankAccountId != nil && *input.BankAccountId > 0
	if isBankTransfer {
		description := fmt.Sprintf("Receipt #%d", id)
		if err := UpsertMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypeReceipt, id,
			*input.BankAccountId, models.BankTransactionTypeDeposit,
			input.Amount, input.ReceiptDate, description); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := DeleteMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypeReceipt, id); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// resync settlement on every invoice the receipt touched
	touched := make([]int, 0, 2)
	if old.InvoiceId != nil && *old.InvoiceId > 0 {
		touched = append(touched, *old.InvoiceId)
	}
	if input.InvoiceId != nil && *input.InvoiceId > 0 {
		touched = append(touched, *input.InvoiceId)
	}
	for _, invoiceId := range utils.UniqueSlice(touched) {
		if err := SyncInvoiceSettlement(tx.WithContext(ctx), logger, businessId, invoiceId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := models.RemoveRedisBoth(*old); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[models.PaymentReceipt](ctx, businessId, id)
}

// DeletePaymentReceipt removes a receipt, restores the debtor's outstanding
// and deletes the mirrored bank transaction if one exists.
func DeletePaymentReceipt(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.PaymentReceipt, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[models.PaymentReceipt](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "receiptWorkflow.go", "DeletePaymentReceipt")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "receiptWorkflow.go", "DeletePaymentReceipt", "Delete", result, err)
		return nil, err
	}

	if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, result.DebtorId, result.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := DeleteMirroredTransaction(tx.WithContext(ctx), logger, businessId,
		models.ReferenceTypeReceipt, id); err != nil {
		tx.Rollback()
		return nil, err
	}

	if result.InvoiceId != nil && *result.InvoiceId > 0 {
		if err := SyncInvoiceSettlement(tx.WithContext(ctx), logger, businessId, *result.InvoiceId); err != nil {
			tx.Rollback()
			return nil, err
		}
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
