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

// CreatePayment records money paid to a creditor. The payment row, the
// creditor's outstanding reduction and the mirrored bank withdrawal all
// commit or roll back together.
func CreatePayment(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewPayment) (*models.Payment, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidatePayment(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "paymentWorkflow.go", "CreatePayment")
	if err != nil {
		return nil, err
	}
	defer release()

	payment := models.Payment{
		BusinessId:    businessId,
		CreditorId:    input.CreditorId,
		BillId:        input.BillId,
		Amount:        input.Amount,
		PaymentDate:   input.PaymentDate,
		PaymentMethod: input.PaymentMethod,
		BankAccountId: input.BankAccountId,
		Reference:     input.Reference,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "paymentWorkflow.go", "CreatePayment", "Create", payment, err)
		return nil, err
	}

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, payment.CreditorId, payment.Amount.Neg()); err != nil {
		tx.Rollback()
		return nil, err
	}

	if payment.IsBankTransfer() {
		description := fmt.Sprintf("Payment #%d", payment.ID)
		if err := UpsertMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypePayment, payment.ID,
			*payment.BankAccountId, models.BankTransactionTypeWithdrawal,
			payment.Amount, payment.PaymentDate, description); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if payment.BillId != nil && *payment.BillId > 0 {
		if err := SyncBillSettlement(tx.WithContext(ctx), logger, businessId, *payment.BillId); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := payment.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// UpdatePayment edits a payment. Same creditor shifts the outstanding by the
// amount difference; a creditor switch reverses the full old amount on the
// old creditor and applies the full new amount on the new one. The mirrored
// bank transaction follows the method: still a bank transfer means upsert,
// switched away means delete.
func UpdatePayment(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewPayment) (*models.Payment, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidatePayment(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.Payment](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "paymentWorkflow.go", "UpdatePayment")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"CreditorId":    input.CreditorId,
		"BillId":        input.BillId,
		"Amount":        input.Amount,
		"PaymentDate":   input.PaymentDate,
		"PaymentMethod": input.PaymentMethod,
		"BankAccountId": input.BankAccountId,
		"Reference":     input.Reference,
		"Notes":         input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "paymentWorkflow.go", "UpdatePayment", "Update", input, err)
		return nil, err
	}

	if old.CreditorId == input.CreditorId {
		// payments reduce outstanding, so a larger amount pushes it down
		delta := old.Amount.Sub(input.Amount)
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, old.Amount); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, input.CreditorId, input.Amount.Neg()); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	isBankTransfer := input.PaymentMethod == models.PaymentMethodBankTransfer &&
		input.BankAccountId != nil && *input.BankAccountId > 0
	if isBankTransfer {
		description := fmt.Sprintf("Payment #%d", id)
		if err := UpsertMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypePayment, id,
			*input.BankAccountId, models.BankTransactionTypeWithdrawal,
			input.Amount, input.PaymentDate, description); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := DeleteMirroredTransaction(tx.WithContext(ctx), logger, businessId,
			models.ReferenceTypePayment, id); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// resync settlement on every bill the payment touched
	touched := make([]int, 0, 2)
	if old.BillId != nil && *old.BillId > 0 {
		touched = append(touched, *old.BillId)
	}
	if input.BillId != nil && *input.BillId > 0 {
		touched = append(touched, *input.BillId)
	}
	for _, billId := range utils.UniqueSlice(touched) {
		if err := SyncBillSettlement(tx.WithContext(ctx), logger, businessId, billId); err != nil {
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
	return utils.FetchModel[models.Payment](ctx, businessId, id)
}

// DeletePayment removes a payment, restores the creditor's outstanding and
// deletes the mirrored bank transaction if one exists.
func DeletePayment(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.Payment, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[models.Payment](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "paymentWorkflow.go", "DeletePayment")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "paymentWorkflow.go", "DeletePayment", "Delete", result, err)
		return nil, err
	}

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, result.CreditorId, result.Amount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := DeleteMirroredTransaction(tx.WithContext(ctx), logger, businessId,
		models.ReferenceTypePayment, id); err != nil {
		tx.Rollback()
		return nil, err
	}

	if result.BillId != nil && *result.BillId > 0 {
		if err := SyncBillSettlement(tx.WithContext(ctx), logger, businessId, *result.BillId); err != nil {
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
