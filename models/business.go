package models

import (
	"context"
	"errors"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/google/uuid"
)

type Business struct {
	ID          string    `gorm:"primary_key;size:36" json:"id"`
	OwnerUserId int       `gorm:"index;not null" json:"owner_user_id"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	ContactName string    `gorm:"size:100" json:"contact_name"`
	Email       string    `gorm:"size:255" json:"email"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	Country     string    `gorm:"size:100" json:"country"`
	City        string    `gorm:"size:100" json:"city"`
	Timezone    string    `gorm:"size:50" json:"timezone"`
	TaxId       string    `gorm:"size:100" json:"tax_id"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBusiness struct {
	Name        string `json:"name" binding:"required"`
	ContactName string `json:"contact_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Country     string `json:"country"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
	TaxId       string `json:"tax_id"`
}

/*
caches:
	Business:$id
*/

func (b Business) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Business:" + b.ID)
}

// redis or db
func GetBusinessById(ctx context.Context, businessId string) (*Business, error) {
	var business Business
	exists, err := config.GetRedisObject("Business:"+businessId, &business)
	if err != nil {
		return nil, err
	}
	if !exists {
		db := config.GetDB()
		if err := db.WithContext(ctx).Where("id = ?", businessId).Take(&business).Error; err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		if err := config.SetRedisObject("Business:"+businessId, &business, 0); err != nil {
			return nil, err
		}
	}
	return &business, nil
}

func GetBusiness(ctx context.Context) (*Business, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	return GetBusinessById(ctx, businessId)
}

func CreateBusiness(ctx context.Context, input *NewBusiness) (*Business, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("unauthorized")
	}

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return nil, errors.New("invalid email")
	}

	business := Business{
		ID:          uuid.NewString(),
		OwnerUserId: userId,
		Name:        input.Name,
		ContactName: input.ContactName,
		Email:       input.Email,
		Phone:       input.Phone,
		Address:     input.Address,
		Country:     input.Country,
		City:        input.City,
		Timezone:    input.Timezone,
		TaxId:       input.TaxId,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&business).Error; err != nil {
		return nil, err
	}
	return &business, nil
}

func UpdateBusiness(ctx context.Context, businessId string, input *NewBusiness) (*Business, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("unauthorized")
	}

	business, err := GetBusinessById(ctx, businessId)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeBusinessAccess(ctx, businessId); err != nil {
		return nil, err
	}

	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return nil, errors.New("invalid phone number")
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&Business{ID: businessId}).Updates(map[string]interface{}{
		"Name":        input.Name,
		"ContactName": input.ContactName,
		"Email":       input.Email,
		"Phone":       input.Phone,
		"Address":     input.Address,
		"Country":     input.Country,
		"City":        input.City,
		"Timezone":    input.Timezone,
		"TaxId":       input.TaxId,
	}).Error; err != nil {
		return nil, err
	}
	if err := business.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return GetBusinessById(ctx, businessId)
}

// businesses the session user may act on
func ListBusinessesForUser(ctx context.Context) ([]*Business, error) {
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return nil, errors.New("unauthorized")
	}

	db := config.GetDB()
	var businesses []*Business
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		if err := db.WithContext(ctx).Find(&businesses).Error; err != nil {
			return nil, err
		}
		return businesses, nil
	}
	if err := db.WithContext(ctx).
		Where("owner_user_id = ? OR id IN (SELECT business_id FROM users WHERE id = ?)", userId, userId).
		Find(&businesses).Error; err != nil {
		return nil, err
	}
	return businesses, nil
}

// AuthorizeBusinessAccess ensures the session user may act on the business.
// Admins may act on any business; everyone else only on their own.
func AuthorizeBusinessAccess(ctx context.Context, businessId string) error {
	if businessId == "" {
		return errors.New("business id is required")
	}
	if isAdmin, _ := utils.GetIsAdminFromContext(ctx); isAdmin {
		return nil
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok || userId <= 0 {
		return errors.New("unauthorized")
	}

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&User{}).
		Where("id = ? AND business_id = ?", userId, businessId).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := db.WithContext(ctx).Model(&Business{}).
		Where("id = ? AND owner_user_id = ?", businessId, userId).
		Count(&count).Error; err != nil {
		return err
	}
	if count <= 0 {
		return errors.New("unauthorized")
	}
	return nil
}
