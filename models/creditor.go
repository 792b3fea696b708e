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

// Creditor is a supplier the business owes money to.
type Creditor struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BusinessId        string          `gorm:"index;not null;size:36" json:"business_id"`
	Name              string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Email             string          `gorm:"size:100" json:"email"`
	Phone             string          `gorm:"size:20" json:"phone"`
	Address           string          `gorm:"type:text" json:"address"`
	Notes             string          `gorm:"type:text" json:"notes"`
	OutstandingAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_amount"`
	Version           int             `gorm:"not null;default:0" json:"version"`
	IsActive          *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCreditor struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type CreditorsEdge Edge[Creditor]
type CreditorsConnection struct {
	Edges    []*CreditorsEdge `json:"edges"`
	PageInfo *PageInfo        `json:"pageInfo"`
}

func (c Creditor) GetId() int {
	return c.ID
}

func (c Creditor) GetBusinessId() string {
	return c.BusinessId
}

// returns decoded cursor string
func (c Creditor) GetCursor() string {
	return c.CreatedAt.String()
}

/*
caches:
	Creditor:$id
	CreditorList:$businessId
*/

func (c Creditor) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Creditor:" + fmt.Sprint(c.ID))
}

func (c Creditor) RemoveAllRedis() error {
	return config.RemoveRedisKey("CreditorList:" + c.BusinessId)
}

func (input *NewCreditor) validateCreditor(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Creditor](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[Creditor](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateCreditor(ctx context.Context, businessId string, input *NewCreditor) (*Creditor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateCreditor(ctx, businessId, 0); err != nil {
		return nil, err
	}

	creditor := Creditor{
		BusinessId:        businessId,
		Name:              input.Name,
		Email:             input.Email,
		Phone:             input.Phone,
		Address:           input.Address,
		Notes:             input.Notes,
		OutstandingAmount: decimal.Zero,
		IsActive:          utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&creditor).Error; err != nil {
		return nil, err
	}
	if err := creditor.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &creditor, nil
}

func UpdateCreditor(ctx context.Context, businessId string, id int, input *NewCreditor) (*Creditor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateCreditor(ctx, businessId, id); err != nil {
		return nil, err
	}

	creditor, err := utils.FetchModel[Creditor](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&creditor).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
		"Notes":   input.Notes,
	}).Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*creditor); err != nil {
		return nil, err
	}
	return creditor, nil
}

func DeleteCreditor(ctx context.Context, businessId string, id int) (*Creditor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Creditor](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Bill](ctx, businessId, "creditor_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("bill associated with creditor exists")
	}

	count, err = utils.ResourceCountWhere[Payment](ctx, businessId, "creditor_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("payment associated with creditor exists")
	}

	count, err = utils.ResourceCountWhere[Purchase](ctx, businessId, "creditor_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("purchase associated with creditor exists")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func ToggleActiveCreditor(ctx context.Context, businessId string, id int, isActive bool) (*Creditor, error) {
	return ToggleActiveModel[Creditor](ctx, businessId, id, isActive)
}

func GetCreditor(ctx context.Context, businessId string, id int) (*Creditor, error) {
	return utils.FetchModel[Creditor](ctx, businessId, id)
}

func GetCreditors(ctx context.Context, businessId string, name *string) ([]*Creditor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Creditor
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginateCreditor(ctx context.Context, businessId string, limit int, after *string,
	name *string, phone *string, email *string, isActive *bool) (*CreditorsConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && *name != "" {
		dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if phone != nil && *phone != "" {
		dbCtx.Where("phone LIKE ?", "%"+*phone+"%")
	}
	if email != nil && *email != "" {
		dbCtx.Where("email LIKE ?", "%"+*email+"%")
	}
	if isActive != nil {
		dbCtx.Where("is_active = ?", isActive)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Creditor](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection CreditorsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		creditorEdge := CreditorsEdge(edge)
		connection.Edges = append(connection.Edges, &creditorEdge)
	}

	return &connection, err
}

// TotalOutstandingPayable sums outstanding_amount across the business's creditors.
func TotalOutstandingPayable(ctx context.Context, businessId string) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Creditor{}).
		Where("business_id = ?", businessId).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
