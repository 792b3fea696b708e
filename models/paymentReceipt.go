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

// PaymentReceipt is money received from a debtor. It reduces the debtor's
// outstanding amount, and when the method is BANK_TRANSFER it is mirrored
// as a deposit on the selected bank account.
type PaymentReceipt struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BusinessId    string          `gorm:"index;not null;size:36" json:"business_id"`
	DebtorId      int             `gorm:"index;not null" json:"debtor_id" binding:"required"`
	InvoiceId     *int            `gorm:"index" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ReceiptDate   time.Time       `gorm:"not null" json:"receipt_date"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('CASH','BANK_TRANSFER','CHEQUE');default:'CASH'" json:"payment_method"`
	BankAccountId *int            `gorm:"index" json:"bank_account_id"`
	Reference     string          `gorm:"size:255" json:"reference"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaymentReceipt struct {
	DebtorId      int             `json:"debtor_id" binding:"required"`
	InvoiceId     *int            `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
	ReceiptDate   time.Time       `json:"receipt_date" binding:"required"`
	PaymentMethod PaymentMethod   `json:"payment_method" binding:"required"`
	BankAccountId *int            `json:"bank_account_id"`
	Reference     string          `json:"reference"`
	Notes         string          `json:"notes"`
}

type PaymentReceiptsEdge Edge[PaymentReceipt]
type PaymentReceiptsConnection struct {
	Edges    []*PaymentReceiptsEdge `json:"edges"`
	PageInfo *PageInfo              `json:"pageInfo"`
}

func (r PaymentReceipt) GetId() int {
	return r.ID
}

func (r PaymentReceipt) GetBusinessId() string {
	return r.BusinessId
}

// returns decoded cursor string
func (r PaymentReceipt) GetCursor() string {
	return r.CreatedAt.String()
}

/*
caches:
	PaymentReceipt:$id
	PaymentReceiptList:$businessId
*/

func (r PaymentReceipt) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("PaymentReceipt:" + fmt.Sprint(r.ID))
}

func (r PaymentReceipt) RemoveAllRedis() error {
	return config.RemoveRedisKey("PaymentReceiptList:" + r.BusinessId)
}

// IsBankTransfer reports whether the receipt should carry a mirrored bank
// transaction.
func (r PaymentReceipt) IsBankTransfer() bool {
	return r.PaymentMethod == PaymentMethodBankTransfer && r.BankAccountId != nil && *r.BankAccountId > 0
}

func (input *NewPaymentReceipt) ValidateReceipt(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[PaymentReceipt](ctx, businessId, id); err != nil {
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
	if err := utils.ValidateResourceId[Debtor](ctx, businessId, input.DebtorId); err != nil {
		return errors.New("debtor not found")
	}
	if input.InvoiceId != nil && *input.InvoiceId > 0 {
		if err := utils.ValidateResourceId[Invoice](ctx, businessId, *input.InvoiceId); err != nil {
			return errors.New("invoice not found")
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

func GetPaymentReceipt(ctx context.Context, businessId string, id int) (*PaymentReceipt, error) {
	return utils.FetchModel[PaymentReceipt](ctx, businessId, id)
}

func GetPaymentReceipts(ctx context.Context, businessId string, debtorId *int) ([]*PaymentReceipt, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*PaymentReceipt
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if debtorId != nil && *debtorId > 0 {
		dbCtx = dbCtx.Where("debtor_id = ?", *debtorId)
	}
	if err := dbCtx.Order("receipt_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func PaginatePaymentReceipt(ctx context.Context, businessId string, limit int, after *string,
	debtorId *int, method *PaymentMethod, fromDate *time.Time, toDate *time.Time) (*PaymentReceiptsConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if debtorId != nil && *debtorId > 0 {
		dbCtx.Where("debtor_id = ?", *debtorId)
	}
	if method != nil && *method != "" {
		dbCtx.Where("payment_method = ?", *method)
	}
	if fromDate != nil {
		dbCtx.Where("receipt_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("receipt_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[PaymentReceipt](dbCtx, limit, after, "created_at", "<")
	if err != nil {
		return nil, err
	}

	var connection PaymentReceiptsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		receiptEdge := PaymentReceiptsEdge(edge)
		connection.Edges = append(connection.Edges, &receiptEdge)
	}

	return &connection, err
}
