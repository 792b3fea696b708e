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

// Purchase is a single-line purchase record that increases a creditor's
// outstanding amount. Total is always quantity times unit price.
type Purchase struct {
	ID           int             `gorm:"primary_key" json:"id"`
	BusinessId   string          `gorm:"index;not null;size:36" json:"business_id"`
	CreditorId   int             `gorm:"index;not null" json:"creditor_id" binding:"required"`
	ItemName     string          `gorm:"size:255;not null" json:"item_name" binding:"required"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitPrice    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Total        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	PurchaseDate time.Time       `gorm:"not null" json:"purchase_date"`
	Notes        string          `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchase struct {
	CreditorId   int             `json:"creditor_id" binding:"required"`
	ItemName     string          `json:"item_name" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	PurchaseDate time.Time       `json:"purchase_date" binding:"required"`
	Notes        string          `json:"notes"`
}

type PurchasesEdge Edge[Purchase]
type PurchasesConnection struct {
	Edges    []*PurchasesEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

func (p Purchase) GetId() int {
	return p.ID
}

func (p Purchase) GetBusinessId() string {
	return p.BusinessId
}

// returns decoded cursor string
func (p Purchase) GetCursor() string {
	return p.CreatedAt.String()
}

/*
caches:
	Purchase:$id
	PurchaseList:$businessId
*/

func (p Purchase) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Purchase:" + fmt.Sprint(p.ID))
}

func (p Purchase) RemoveAllRedis() error {
	return config.RemoveRedisKey("PurchaseList:" + p.BusinessId)
}

func (input *NewPurchase) ComputeTotal() decimal.Decimal {
	return input.Quantity.Mul(input.UnitPrice)
}

func (input *NewPurchase) ValidatePurchase(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Purchase](ctx, businessId, id); err != nil {
			return err
		}
	}
	if input.Quantity.IsNegative() || input.UnitPrice.IsNegative() {
		return errors.New("quantity and unit price must not be negative")
	}
	if err := utils.ValidateResourceId[Creditor](ctx, businessId, input.CreditorId); err != nil {
		return errors.New("creditor not found")
	}
	return nil
}

func GetPurchase(ctx context.Context, businessId string, id int) (*Purchase, error) {
	return utils.FetchModel[Purchase](ctx, businessId, id)
}

func GetPurchases(ctx context.Context, businessId string, creditorId *int) ([]*Purchase, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Purchase
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx = dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if err := dbCtx.Order("purchase_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginatePurchase(ctx context.Context, businessId string, limit int, after *string,
	creditorId *int, fromDate *time.Time, toDate *time.Time) (*PurchasesConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if fromDate != nil {
		dbCtx.Where("purchase_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("purchase_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Purchase](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection PurchasesConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		purchaseEdge := PurchasesEdge(edge)
		connection.Edges = append(connection.Edges, &purchaseEdge)
	}

	return &connection, err
}
