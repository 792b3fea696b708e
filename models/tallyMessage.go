package models

import (
	"context"
	"errors"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
)

// TallyMessage is one turn of the TallyAI chat, persisted per business so
// conversations survive reloads and can be replayed as model context.
type TallyMessage struct {
	ID         int       `gorm:"primary_key" json:"id"`
	BusinessId string    `gorm:"index;not null;size:36" json:"business_id"`
	UserId     int       `gorm:"index" json:"user_id"`
	Role       ChatRole  `gorm:"type:enum('user','assistant');not null" json:"role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateTallyMessage(ctx context.Context, businessId string, userId int, role ChatRole, content string) (*TallyMessage, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	message := TallyMessage{
		BusinessId: businessId,
		UserId:     userId,
		Role:       role,
		Content:    content,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// GetTallyHistory returns the most recent messages in chronological order.
func GetTallyHistory(ctx context.Context, businessId string, limit int) ([]*TallyMessage, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}
	if limit <= 0 {
		limit = 50
	}

	db := config.GetDB()
	var recent []*TallyMessage
	if err := db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&recent).Error; err != nil {
		return nil, err
	}

	// reverse into chronological order
	results := make([]*TallyMessage, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		results = append(results, recent[i])
	}
	return results, nil
}

func ClearTallyHistory(ctx context.Context, businessId string) error {
	if businessId == "" {
		return errors.New("business id is required")
	}

	db := config.GetDB()
	return db.WithContext(ctx).
		Where("business_id = ?", businessId).
		Delete(&TallyMessage{}).Error
}
