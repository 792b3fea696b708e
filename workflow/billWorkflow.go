package workflow

import (
	"context"
	"errors"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/sirupsen/logrus"
)

// CreateBill records a purchase document and raises the creditor's
// outstanding by its total, all in one transaction.
func CreateBill(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewBill) (*models.Bill, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateBill(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "billWorkflow.go", "CreateBill")
	if err != nil {
		return nil, err
	}
	defer release()

	bill := models.Bill{
		BusinessId:  businessId,
		CreditorId:  input.CreditorId,
		BillNumber:  input.BillNumber,
		BillDate:    input.BillDate,
		DueDate:     input.DueDate,
		TotalAmount: input.ComputeTotal(),
		Status:      models.DocumentStatusPending,
		Notes:       input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&bill).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "CreateBill", "Create", bill, err)
		return nil, err
	}

	items := input.MapItems(bill.ID)
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "CreateBill", "CreateItems", items, err)
		return nil, err
	}
	bill.Items = items

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, bill.CreditorId, bill.TotalAmount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := bill.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

// UpdateBill replaces the bill's line items and shifts the creditor's
// outstanding by the total difference. A creditor switch reverses the full
// old total on the old creditor and applies the full new total on the new
// one.
func UpdateBill(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewBill) (*models.Bill, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateBill(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.Bill](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "billWorkflow.go", "UpdateBill")
	if err != nil {
		return nil, err
	}
	defer release()

	newTotal := input.ComputeTotal()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&models.Bill{}).Where("id = ?", id).Updates(map[string]interface{}{
		"CreditorId":  input.CreditorId,
		"BillNumber":  input.BillNumber,
		"BillDate":    input.BillDate,
		"DueDate":     input.DueDate,
		"TotalAmount": newTotal,
		"Notes":       input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "UpdateBill", "Update", input, err)
		return nil, err
	}

	// replace line items wholesale
	if err := tx.WithContext(ctx).Where("bill_id = ?", id).Delete(&models.BillItem{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "UpdateBill", "DeleteItems", id, err)
		return nil, err
	}
	items := input.MapItems(id)
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "UpdateBill", "CreateItems", items, err)
		return nil, err
	}

	if old.CreditorId == input.CreditorId {
		delta := newTotal.Sub(old.TotalAmount)
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, old.TotalAmount.Neg()); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, input.CreditorId, newTotal); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// the new total may put the bill on either side of fully-paid
	if err := SyncBillSettlement(tx.WithContext(ctx), logger, businessId, id); err != nil {
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
	return models.GetBill(ctx, businessId, id)
}

// DeleteBill removes the bill and its items and reverses the creditor's
// outstanding, clamped at zero.
func DeleteBill(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.Bill, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := models.GetBill(ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[models.Payment](ctx, businessId, "bill_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("payment associated with bill exists")
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "billWorkflow.go", "DeleteBill")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("bill_id = ?", id).Delete(&models.BillItem{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "DeleteBill", "DeleteItems", id, err)
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&models.Bill{}, id).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "billWorkflow.go", "DeleteBill", "Delete", result, err)
		return nil, err
	}

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, result.CreditorId, result.TotalAmount.Neg()); err != nil {
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
