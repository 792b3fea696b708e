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

// Debtor is a customer who owes the business money.
type Debtor struct {
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

type NewDebtor struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

type DebtorsEdge Edge[Debtor]
type DebtorsConnection struct {
	Edges    []*DebtorsEdge `json:"edges"`
	PageInfo *PageInfo      `json:"pageInfo"`
}

func (d Debtor) GetId() int {
	return d.ID
}

func (d Debtor) GetBusinessId() string {
	return d.BusinessId
}

// returns decoded cursor string
func (d Debtor) GetCursor() string {
	return d.CreatedAt.String()
}

/*
caches:
	Debtor:$id
	DebtorList:$businessId
*/

func (d Debtor) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Debtor:" + fmt.Sprint(d.ID))
}

func (d Debtor) RemoveAllRedis() error {
	return config.RemoveRedisKey("DebtorList:" + d.BusinessId)
}

func (input *NewDebtor) validateDebtor(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Debtor](ctx, businessId, id); err != nil {
			return err
		}
	}
	// validate unique name
	if err := utils.ValidateUnique[Debtor](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	// validate email
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return errors.New("invalid email address")
	}
	// validate phone
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return errors.New("invalid phone number")
		}
	}
	return nil
}

func CreateDebtor(ctx context.Context, businessId string, input *NewDebtor) (*Debtor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateDebtor(ctx, businessId, 0); err != nil {
		return nil, err
	}

	debtor := Debtor{
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
	if err := db.WithContext(ctx).Create(&debtor).Error; err != nil {
		return nil, err
	}
	if err := debtor.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &debtor, nil
}

func UpdateDebtor(ctx context.Context, businessId string, id int, input *NewDebtor) (*Debtor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateDebtor(ctx, businessId, id); err != nil {
		return nil, err
	}

	debtor, err := utils.FetchModel[Debtor](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&debtor).Updates(map[string]interface{}{
		"Name":    input.Name,
		"Email":   input.Email,
		"Phone":   input.Phone,
		"Address": input.Address,
		"Notes":   input.Notes,
	}).Error; err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*debtor); err != nil {
		return nil, err
	}
	return debtor, nil
}

func DeleteDebtor(ctx context.Context, businessId string, id int) (*Debtor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[Debtor](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[Invoice](ctx, businessId, "debtor_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("invoice associated with debtor exists")
	}

	count, err = utils.ResourceCountWhere[PaymentReceipt](ctx, businessId, "debtor_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("receipt associated with debtor exists")
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

func ToggleActiveDebtor(ctx context.Context, businessId string, id int, isActive bool) (*Debtor, error) {
	return ToggleActiveModel[Debtor](ctx, businessId, id, isActive)
}

func GetDebtor(ctx context.Context, businessId string, id int) (*Debtor, error) {
	return utils.FetchModel[Debtor](ctx, businessId, id)
}

func GetDebtors(ctx context.Context, businessId string, name *string) ([]*Debtor, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Debtor
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginateDebtor(ctx context.Context, businessId string, limit int, after *string,
	name *string, phone *string, email *string, isActive *bool) (*DebtorsConnection, error) {

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

	edges, pageInfo, err := FetchPageCompositeCursor[Debtor](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection DebtorsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		debtorEdge := DebtorsEdge(edge)
		connection.Edges = append(connection.Edges, &debtorEdge)
	}

	return &connection, err
}

// TotalOutstandingReceivable sums outstanding_amount across the business's debtors.
func TotalOutstandingReceivable(ctx context.Context, businessId string) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&Debtor{}).
		Where("business_id = ?", businessId).
		Select("COALESCE(SUM(outstanding_amount), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
