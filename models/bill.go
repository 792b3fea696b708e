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

// Bill is a purchase document that increases a creditor's outstanding amount.
type Bill struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null;size:36" json:"business_id"`
	CreditorId  int             `gorm:"index;not null" json:"creditor_id" binding:"required"`
	BillNumber  string          `gorm:"size:100;not null" json:"bill_number" binding:"required"`
	BillDate    time.Time       `gorm:"not null" json:"bill_date"`
	DueDate     *time.Time      `json:"due_date"`
	Items       []*BillItem     `json:"items"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	Status      DocumentStatus  `gorm:"type:enum('PENDING','PAID','OVERDUE');default:'PENDING'" json:"status"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type BillItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BillId      int             `gorm:"index;not null" json:"bill_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
}

type NewBill struct {
	CreditorId int            `json:"creditor_id" binding:"required"`
	BillNumber string         `json:"bill_number" binding:"required"`
	BillDate   time.Time      `json:"bill_date" binding:"required"`
	DueDate    *time.Time     `json:"due_date"`
	Items      []*NewBillItem `json:"items" binding:"required,dive"`
	Notes      string         `json:"notes"`
}

type NewBillItem struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

type BillsEdge Edge[Bill]
type BillsConnection struct {
	Edges    []*BillsEdge `json:"edges"`
	PageInfo *PageInfo    `json:"pageInfo"`
}

func (b Bill) GetId() int {
	return b.ID
}

func (b Bill) GetBusinessId() string {
	return b.BusinessId
}

// returns decoded cursor string
func (b Bill) GetCursor() string {
	return b.CreatedAt.String()
}

/*
caches:
	Bill:$id
	BillList:$businessId
*/

func (b Bill) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Bill:" + fmt.Sprint(b.ID))
}

func (b Bill) RemoveAllRedis() error {
	return config.RemoveRedisKey("BillList:" + b.BusinessId)
}

// line totals are recomputed server side, never trusted from input
func (input *NewBill) MapItems(billId int) []*BillItem {
	items := make([]*BillItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, &BillItem{
			BillId:      billId,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Quantity.Mul(item.UnitPrice),
		})
	}
	return items
}

func (input *NewBill) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range input.Items {
		total = total.Add(item.Quantity.Mul(item.UnitPrice))
	}
	return total
}

func (input *NewBill) ValidateBill(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Bill](ctx, businessId, id); err != nil {
			return err
		}
	}
	if len(input.Items) == 0 {
		return errors.New("bill must have at least one item")
	}
	for _, item := range input.Items {
		if item.Quantity.IsNegative() || item.UnitPrice.IsNegative() {
			return errors.New("item quantity and unit price must not be negative")
		}
	}
	if err := utils.ValidateResourceId[Creditor](ctx, businessId, input.CreditorId); err != nil {
		return errors.New("creditor not found")
	}
	return nil
}

func GetBill(ctx context.Context, businessId string, id int) (*Bill, error) {
	return utils.FetchModel[Bill](ctx, businessId, id, "Items")
}

func GetBills(ctx context.Context, businessId string, creditorId *int, status *DocumentStatus) ([]*Bill, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Bill
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx = dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("bill_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginateBill(ctx context.Context, businessId string, limit int, after *string,
	creditorId *int, status *DocumentStatus, fromDate *time.Time, toDate *time.Time) (*BillsConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Preload("Items").Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if status != nil && *status != "" {
		dbCtx.Where("status = ?", *status)
	}
	if fromDate != nil {
		dbCtx.Where("bill_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("bill_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Bill](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection BillsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		billEdge := BillsEdge(edge)
		connection.Edges = append(connection.Edges, &billEdge)
	}

	return &connection, err
}

// TotalOverduePayable sums unpaid bills past their due date.
func TotalOverduePayable(ctx context.Context, businessId string) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Bill{}).
		Where("business_id = ?", businessId).
		Where("status = ?", DocumentStatusOverdue).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
