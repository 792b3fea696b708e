package workflow

import (
	"context"
	"errors"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/sirupsen/logrus"
)

// CreatePurchase records a purchase and raises the creditor's outstanding by
// quantity times unit price, all in one transaction.
func CreatePurchase(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewPurchase) (*models.Purchase, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidatePurchase(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "purchaseWorkflow.go", "CreatePurchase")
	if err != nil {
		return nil, err
	}
	defer release()

	purchase := models.Purchase{
		BusinessId:   businessId,
		CreditorId:   input.CreditorId,
		ItemName:     input.ItemName,
		Quantity:     input.Quantity,
		UnitPrice:    input.UnitPrice,
		Total:        input.ComputeTotal(),
		PurchaseDate: input.PurchaseDate,
		Notes:        input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&purchase).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseWorkflow.go", "CreatePurchase", "Create", purchase, err)
		return nil, err
	}

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, purchase.CreditorId, purchase.Total); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := purchase.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// UpdatePurchase recomputes the total and shifts the creditor's outstanding
// by the difference, or moves the full amounts when the creditor changes.
func UpdatePurchase(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewPurchase) (*models.Purchase, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidatePurchase(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.Purchase](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "purchaseWorkflow.go", "UpdatePurchase")
	if err != nil {
		return nil, err
	}
	defer release()

	newTotal := input.ComputeTotal()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&models.Purchase{}).Where("id = ?", id).Updates(map[string]interface{}{
		"CreditorId":   input.CreditorId,
		"ItemName":     input.ItemName,
		"Quantity":     input.Quantity,
		"UnitPrice":    input.UnitPrice,
		"Total":        newTotal,
		"PurchaseDate": input.PurchaseDate,
		"Notes":        input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseWorkflow.go", "UpdatePurchase", "Update", input, err)
		return nil, err
	}

	if old.CreditorId == input.CreditorId {
		delta := newTotal.Sub(old.Total)
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.CreditorId, old.Total.Neg()); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, input.CreditorId, newTotal); err != nil {
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
	return utils.FetchModel[models.Purchase](ctx, businessId, id)
}

// DeletePurchase removes the purchase and reverses the creditor's
// outstanding, clamped at zero.
func DeletePurchase(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.Purchase, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[models.Purchase](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "purchaseWorkflow.go", "DeletePurchase")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Delete(&result).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "purchaseWorkflow.go", "DeletePurchase", "Delete", result, err)
		return nil, err
	}

	if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, result.CreditorId, result.Total.Neg()); err != nil {
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
