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

// Payment is money paid out to a creditor. It reduces the creditor's
// outstanding amount, and when the method is BANK_TRANSFER it is mirrored
// as a withdrawal on the selected bank account.
type Payment struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null;size:36" json:"business_id"`
	CreditorId    int             `gorm:"index;not null" json:"creditor_id" binding:"required"`
	BillId        *int            `gorm:"index" json:"bill_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('CASH','BANK_TRANSFER','CHEQUE');default:'CASH'" json:"payment_method"`
	BankAccountId *int            `gorm:"index" json:"bank_account_id"`
	Reference     string          `gorm:"size:255" json:"reference"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	CreditorId    int             `json:"creditor_id" binding:"required"`
	BillId        *int            `json:"bill_id"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	PaymentDate   time.Time       `json:"payment_date" binding:"required"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	BankAccountId *int            `json:"bank_account_id"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes"`
}

type PaymentsEdge Edge[Payment]
type PaymentsConnection struct {
	Edges    []*PaymentsEdge `json:"edges"`
	PageInfo *PageInfo       `json:"pageInfo"`
}

func (p Payment) GetId() int {
	return p.ID
}

func (p Payment) GetBusinessId() string {
	return p.BusinessId
}

// returns decoded cursor string
func (p Payment) GetCursor() string {
	return p.CreatedAt.String()
}

/*
caches:
	Payment:$id
	PaymentList:$businessId
*/

func (p Payment) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("Payment:" + fmt.Sprint(p.ID))
}

func (p Payment) RemoveAllRedis() error {
	return config.RemoveRedisKey("PaymentList:" + p.BusinessId)
}

// IsBankTransfer reports whether the payment should carry a mirrored bank
// transaction.
func (p Payment) IsBankTransfer() bool {
	return p.PaymentMethod == PaymentMethodBankTransfer && p.BankAccountId != nil && *p.BankAccountId > 0
}

func (input *NewPayment) ValidatePayment(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Payment](ctx, businessId, id); err != nil {
			return err
		}
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if input.PaymentMethod != PaymentMethodCash &&
		input.PaymentMethod != PaymentMethodBankTransfer &&
		input.PaymentMethod != PaymentMethodCheque {
		return errors.New("invalid payment method")
	}
	if err := utils.ValidateResourceId[Creditor](ctx, businessId, input.CreditorId); err != nil {
		return errors.New("creditor not found")
	}
	if input.BillId != nil && *input.BillId > 0 {
		if err := utils.ValidateResourceId[Bill](ctx, businessId, *input.BillId); err != nil {
			return errors.New("bill not found")
		}
	}
	if input.PaymentMethod == PaymentMethodBankTransfer {
		if input.BankAccountId == nil || *input.BankAccountId <= 0 {
			return errors.New("bank account is required for bank transfer")
		}
		if err := utils.ValidateResourceId[BankAccount](ctx, businessId, *input.BankAccountId); err != nil {
			return errors.New("bank account not found")
		}
	}
	return nil
}

func GetPayment(ctx context.Context, businessId string, id int) (*Payment, error) {
	return utils.FetchModel[Payment](ctx, businessId, id)
}

func GetPayments(ctx context.Context, businessId string, creditorId *int) ([]*Payment, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*Payment
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx = dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if err := dbCtx.Order("payment_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginatePayment(ctx context.Context, businessId string, limit int, after *string,
	creditorId *int, method *PaymentMethod, fromDate *time.Time, toDate *time.Time) (*PaymentsConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if creditorId != nil && *creditorId > 0 {
		dbCtx.Where("creditor_id = ?", *creditorId)
	}
	if method != nil && *method != "" {
		dbCtx.Where("payment_method = ?", *method)
	}
	if fromDate != nil {
		dbCtx.Where("payment_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("payment_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[Payment](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection PaymentsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		paymentEdge := PaymentsEdge(edge)
		connection.Edges = append(connection.Edges, &paymentEdge)
	}

	return &connection, err
}
