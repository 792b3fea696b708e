package workflow

import (
	"context"
	"errors"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/sirupsen/logrus"
)

// CreateInvoice records a sales document and raises the debtor's
// outstanding by its total, all in one transaction.
func CreateInvoice(ctx context.Context, logger *logrus.Logger, businessId string, input *models.NewInvoice) (*models.Invoice, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateInvoice(ctx, businessId, 0); err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "invoiceWorkflow.go", "CreateInvoice")
	if err != nil {
		return nil, err
	}
	defer release()

	invoice := models.Invoice{
		BusinessId:    businessId,
		DebtorId:      input.DebtorId,
		InvoiceNumber: input.InvoiceNumber,
		InvoiceDate:   input.InvoiceDate,
		DueDate:       input.DueDate,
		TotalAmount:   input.ComputeTotal(),
		Status:        models.DocumentStatusPending,
		Notes:         input.Notes,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&invoice).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "CreateInvoice", "Create", invoice, err)
		return nil, err
	}

	items := input.MapItems(invoice.ID)
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "CreateInvoice", "CreateItems", items, err)
		return nil, err
	}
	invoice.Items = items

	if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, invoice.DebtorId, invoice.TotalAmount); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := invoice.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// UpdateInvoice replaces the invoice's line items and shifts the debtor's
// outstanding by the total difference. A debtor switch reverses the full
// old total on the old debtor and applies the full new total on the new
// one.
func UpdateInvoice(ctx context.Context, logger *logrus.Logger, businessId string, id int, input *models.NewInvoice) (*models.Invoice, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.ValidateInvoice(ctx, businessId, id); err != nil {
		return nil, err
	}

	old, err := utils.FetchModel[models.Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "invoiceWorkflow.go", "UpdateInvoice")
	if err != nil {
		return nil, err
	}
	defer release()

	newTotal := input.ComputeTotal()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
		"DebtorId":      input.DebtorId,
		"InvoiceNumber": input.InvoiceNumber,
		"InvoiceDate":   input.InvoiceDate,
		"DueDate":       input.DueDate,
		"TotalAmount":   newTotal,
		"Notes":         input.Notes,
	}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "UpdateInvoice", "Update", input, err)
		return nil, err
	}

	// replace line items wholesale
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "UpdateInvoice", "DeleteItems", id, err)
		return nil, err
	}
	items := input.MapItems(id)
	if err := tx.WithContext(ctx).Create(&items).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "UpdateInvoice", "CreateItems", items, err)
		return nil, err
	}

	if old.DebtorId == input.DebtorId {
		delta := newTotal.Sub(old.TotalAmount)
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.DebtorId, delta); err != nil {
			tx.Rollback()
			return nil, err
		}
	} else {
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, old.DebtorId, old.TotalAmount.Neg()); err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, input.DebtorId, newTotal); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// the new total may put the invoice on either side of fully-paid
	if err := SyncInvoiceSettlement(tx.WithContext(ctx), logger, businessId, id); err != nil {
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
	return models.GetInvoice(ctx, businessId, id)
}

// DeleteInvoice removes the invoice and its items and reverses the debtor's
// outstanding, clamped at zero.
func DeleteInvoice(ctx context.Context, logger *logrus.Logger, businessId string, id int) (*models.Invoice, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := models.GetInvoice(ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[models.PaymentReceipt](ctx, businessId, "invoice_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("receipt associated with invoice exists")
	}

	release, err := utils.BusinessLock(ctx, businessId, "ledger", "invoiceWorkflow.go", "DeleteInvoice")
	if err != nil {
		return nil, err
	}
	defer release()

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Where("invoice_id = ?", id).Delete(&models.InvoiceItem{}).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "DeleteInvoice", "DeleteItems", id, err)
		return nil, err
	}
	if err := tx.WithContext(ctx).Delete(&models.Invoice{}, id).Error; err != nil {
		tx.Rollback()
		config.LogError(logger, "invoiceWorkflow.go", "DeleteInvoice", "Delete", result, err)
		return nil, err
	}

	if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, result.DebtorId, result.TotalAmount.Neg()); err != nil {
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
