package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RefreshDocumentStatuses marks pending invoices and bills overdue once
// their due date has passed. Paid documents are never touched.
func RefreshDocumentStatuses(ctx context.Context, logger *logrus.Logger, businessId string) (int64, error) {

	if businessId == "" {
		return 0, errors.New("business id is required")
	}

	now := time.Now().UTC()
	db := config.GetDB()

	invoices := db.WithContext(ctx).Model(&models.Invoice{}).
		Where("business_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?",
			businessId, models.DocumentStatusPending, now).
		Update("status", models.DocumentStatusOverdue)
	if invoices.Error != nil {
		config.LogError(logger, "documentStatus.go", "RefreshDocumentStatuses", "Invoices", businessId, invoices.Error)
		return 0, invoices.Error
	}

	bills := db.WithContext(ctx).Model(&models.Bill{}).
		Where("business_id = ? AND status = ? AND due_date IS NOT NULL AND due_date < ?",
			businessId, models.DocumentStatusPending, now).
		Update("status", models.DocumentStatusOverdue)
	if bills.Error != nil {
		config.LogError(logger, "documentStatus.go", "RefreshDocumentStatuses", "Bills", businessId, bills.Error)
		return 0, bills.Error
	}

	changed := invoices.RowsAffected + bills.RowsAffected
	if changed > 0 {
		if err := config.RemoveRedisKey("InvoiceList:"+businessId, "BillList:"+businessId); err != nil {
			return changed, err
		}
	}
	return changed, nil
}

func settledStatus(applied decimal.Decimal, total decimal.Decimal, dueDate *time.Time) models.DocumentStatus {
	if total.GreaterThan(decimal.Zero) && applied.GreaterThanOrEqual(total) {
		return models.DocumentStatusPaid
	}
	if dueDate != nil && dueDate.Before(time.Now().UTC()) {
		return models.DocumentStatusOverdue
	}
	return models.DocumentStatusPending
}

// SyncInvoiceSettlement re-derives an invoice's status from the receipts
// applied against it. Runs inside the caller's transaction.
func SyncInvoiceSettlement(tx *gorm.DB, logger *logrus.Logger, businessId string, invoiceId int) error {
	var invoice models.Invoice
	if err := tx.Where("business_id = ? AND id = ?", businessId, invoiceId).Take(&invoice).Error; err != nil {
		config.LogError(logger, "documentStatus.go", "SyncInvoiceSettlement", "Take", invoiceId, err)
		return err
	}

	var applied decimal.Decimal
	if err := tx.Model(&models.PaymentReceipt{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("business_id = ? AND invoice_id = ?", businessId, invoiceId).
		Scan(&applied).Error; err != nil {
		config.LogError(logger, "documentStatus.go", "SyncInvoiceSettlement", "Sum", invoiceId, err)
		return err
	}

	status := settledStatus(applied, invoice.TotalAmount, invoice.DueDate)
	if status == invoice.Status {
		return nil
	}
	if err := tx.Model(&models.Invoice{}).Where("id = ?", invoiceId).Update("status", status).Error; err != nil {
		return err
	}
	return models.RemoveRedisBoth(invoice)
}

// SyncBillSettlement is the payable-side counterpart, driven by payments.
func SyncBillSettlement(tx *gorm.DB, logger *logrus.Logger, businessId string, billId int) error {
	var bill models.Bill
	if err := tx.Where("business_id = ? AND id = ?", businessId, billId).Take(&bill).Error; err != nil {
		config.LogError(logger, "documentStatus.go", "SyncBillSettlement", "Take", billId, err)
		return err
	}

	var applied decimal.Decimal
	if err := tx.Model(&models.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("business_id = ? AND bill_id = ?", businessId, billId).
		Scan(&applied).Error; err != nil {
		config.LogError(logger, "documentStatus.go", "SyncBillSettlement", "Sum", billId, err)
		return err
	}

	status := settledStatus(applied, bill.TotalAmount, bill.DueDate)
	if status == bill.Status {
		return nil
	}
	if err := tx.Model(&models.Bill{}).Where("id = ?", billId).Update("status", status).Error; err != nil {
		return err
	}
	return models.RemoveRedisBoth(bill)
}

// MarkInvoiceStatus sets an invoice's status directly. Marking a document
// paid does not move the debtor's outstanding; receipts do that.
func MarkInvoiceStatus(ctx context.Context, businessId string, id int, status models.DocumentStatus) (*models.Invoice, error) {
	if status != models.DocumentStatusPending && status != models.DocumentStatusPaid && status != models.DocumentStatusOverdue {
		return nil, errors.New("invalid status")
	}

	invoice, err := utils.FetchModel[models.Invoice](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&invoice).Update("status", status).Error; err != nil {
		return nil, err
	}
	if err := models.RemoveRedisBoth(*invoice); err != nil {
		return nil, err
	}
	return models.GetInvoice(ctx, businessId, id)
}

// MarkBillStatus sets a bill's status directly.
func MarkBillStatus(ctx context.Context, businessId string, id int, status models.DocumentStatus) (*models.Bill, error) {
	if status != models.DocumentStatusPending && status != models.DocumentStatusPaid && status != models.DocumentStatusOverdue {
		return nil, errors.New("invalid status")
	}

	bill, err := utils.FetchModel[models.Bill](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&bill).Update("status", status).Error; err != nil {
		return nil, err
	}
	if err := models.RemoveRedisBoth(*bill); err != nil {
		return nil, err
	}
	return models.GetBill(ctx, businessId, id)
}
