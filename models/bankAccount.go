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

// BankAccount tracks a cash ledger. CurrentBalance always equals
// OpeningBalance plus the signed sum of the account's transactions.
type BankAccount struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null;size:36" json:"business_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	AccountNumber  string          `gorm:"size:50" json:"account_number"`
	BankName       string          `gorm:"size:100" json:"bank_name"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_balance"`
	CurrentBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	Version        int             `gorm:"not null;default:0" json:"version"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBankAccount struct {
	Name           string          `json:"name" binding:"required"`
	AccountNumber  string          `json:"account_number"`
	BankName       string          `json:"bank_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (a BankAccount) GetId() int {
	return a.ID
}

func (a BankAccount) GetBusinessId() string {
	return a.BusinessId
}

/*
caches:
	BankAccount:$id
	BankAccountList:$businessId
*/

func (a BankAccount) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("BankAccount:" + fmt.Sprint(a.ID))
}

func (a BankAccount) RemoveAllRedis() error {
	return config.RemoveRedisKey("BankAccountList:" + a.BusinessId)
}

func (input *NewBankAccount) validateBankAccount(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[BankAccount](ctx, businessId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[BankAccount](ctx, businessId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateBankAccount(ctx context.Context, businessId string, input *NewBankAccount) (*BankAccount, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateBankAccount(ctx, businessId, 0); err != nil {
		return nil, err
	}

	account := BankAccount{
		BusinessId:     businessId,
		Name:           input.Name,
		AccountNumber:  input.AccountNumber,
		BankName:       input.BankName,
		OpeningBalance: input.OpeningBalance,
		CurrentBalance: input.OpeningBalance,
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	if err := account.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateBankAccount shifts current_balance by the opening balance delta so
// the transaction history stays consistent with the running balance.
func UpdateBankAccount(ctx context.Context, businessId string, id int, input *NewBankAccount) (*BankAccount, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if err := input.validateBankAccount(ctx, businessId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[BankAccount](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	openingDelta := input.OpeningBalance.Sub(account.OpeningBalance)

	db := config.GetDB()
	tx := db.Begin()
	result := tx.WithContext(ctx).Model(&BankAccount{}).
		Where("id = ? AND business_id = ? AND version = ?", id, businessId, account.Version).
		Updates(map[string]interface{}{
			"Name":           input.Name,
			"AccountNumber":  input.AccountNumber,
			"BankName":       input.BankName,
			"OpeningBalance": input.OpeningBalance,
			"CurrentBalance": account.CurrentBalance.Add(openingDelta),
			"Version":        account.Version + 1,
		})
	if result.Error != nil {
		tx.Rollback()
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return nil, utils.ErrorVersionConflict
	}
	if err := RemoveRedisBoth(*account); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return utils.FetchModel[BankAccount](ctx, businessId, id)
}

func DeleteBankAccount(ctx context.Context, businessId string, id int) (*BankAccount, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	result, err := utils.FetchModel[BankAccount](ctx, businessId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[BankTransaction](ctx, businessId, "bank_account_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("transaction associated with bank account exists")
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

func ToggleActiveBankAccount(ctx context.Context, businessId string, id int, isActive bool) (*BankAccount, error) {
	return ToggleActiveModel[BankAccount](ctx, businessId, id, isActive)
}

func GetBankAccount(ctx context.Context, businessId string, id int) (*BankAccount, error) {
	return utils.FetchModel[BankAccount](ctx, businessId, id)
}

func GetBankAccounts(ctx context.Context, businessId string) ([]*BankAccount, error) {
	return ListAllResource[BankAccount](ctx, businessId, "name")
}

// TotalCashBalance sums current_balance across the business's accounts.
func TotalCashBalance(ctx context.Context, businessId string) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&BankAccount{}).
		Where("business_id = ?", businessId).
		Select("COALESCE(SUM(current_balance), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
