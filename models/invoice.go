package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
)

// Invoice is a sales document that increases a debtor's outstanding amount.
type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null;size:36" json:"business_id"`
	DebtorId      int             `gorm:"index;not null" json:"debtor_id" binding:"required"`
	InvoiceNumber string          `gorm:"size:100;not null" json:"invoice_number" binding:"required"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date"`
	DueDate       *time.Time      `json:"due_date"`
	Items         []*InvoiceItem  `json:"items"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status        DocumentStatus  `gorm:"type:enum('PENDING','PAID','OVERDUE');default:'PENDING'" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
}

type NewInvoice struct {
	DebtorId      int               `json:"debtor_id" binding:"required"`
	InvoiceNumber string            `json:"invoice_number" binding:"required"`
	InvoiceDate   time.Time         `json:"invoice_date" binding:"required"`
	DueDate       *time.Time        `json:"due_date"`
	Items         []*NewInvoiceItem `json:"items" binding:"required,dive"`
	Notes         string            `json:"notes"`
}

type NewInvoiceItem struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

type InvoicesEdge Edge[Invoice]
type InvoicesConnection struct {
	Edges    []*InvoicesEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (inv Invoice) GetId() int {
	return inv.ID
}

func (inv Invoice) GetBusinessId() string {
	return inv.BusinessId
}

// returns decoded cursor string
func (inv Invoice) GetCursor() string {
	return inv.CreatedAt.String()
}

/*
caches:
	Invoice:$id
	InvoiceList:$businessId
*/

func (inv Invoice) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Invoice:" + fmt.Sprint(inv.ID))
}

func (inv Invoice) RemoveAllRedis() error {
	return config.RemoveRedisKey("InvoiceList:" + inv.BusinessId)
}

// line totals are recomputed server side, never trusted from input
func (input *NewInvoice) MapItems(invoiceId int) []*InvoiceItem {
	items := make([]*InvoiceItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, &InvoiceItem{
			InvoiceId:   invoiceId,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Quantity.Mul(item.UnitPrice),
		})
	}
	return items
}

func (input *NewInvoice) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range input.Items {
		total = total.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return total
}

func (input *NewInvoice) ValidateInvoice(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Invoice](ctx, businessId, id); err != nil {
			return err
		}
	}
	if len(input.Items) == 0 {
		return errors.New("invoice must have at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return errors.New("item quantity and unit price must not be negative")
		}
	}
	if err := utils.ValidateResourceId[Debtor](ctx, businessId, input.DebtorId); err != nil {
		return errors.New("debtor not found")
	}
	return nil
}

func GetInvoice(ctx context.Context, businessId string, id int) (*Invoice, error) {
	return utils.FetchModel[Invoice](ctx, businessId, id, "Items")
}

func GetInvoices(ctx context.Context, businessId string, debtorId *int, status *DocumentStatus) ([]*Invoice, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Invoice
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if debtorId != nil && *debtorId > 0 {
		dbCtx = dbCtx.Where("debtor_id = ?", *debtorId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("invoice_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginateInvoice(ctx context.Context, businessId string, limit int, after *string,
	debtorId *int, status *DocumentStatus, fromDate *time.Time, toDate *time.Time) (*InvoicesConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if debtorId != nil && *debtorId > 0 {
		dbCtx.Where("debtor_id = ?", *debtorId)
	}
	if status != nil && *status != "" {
		dbCtx.Where("status = ?", *status)
	}
	if fromDate != nil {
		dbCtx.Where("invoice_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("invoice_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Invoice](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection InvoicesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		invoiceEdge := InvoicesEdge(edge)
		connection.Edges = append(connection.Edges, &invoiceEdge)
	}

	return &connection, err
}

// TotalOverdueReceivable sums unpaid invoices past their due date.
func TotalOverdueReceivable(ctx context.Context, businessId string) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Invoice{}).
		Where("business_id = ?", businessId).
		Where("status = ?", DocumentStatusOverdue).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
