package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BankTransaction is one ledger entry on a bank account. Mirrored entries
// carry a ReferenceType/ReferenceId back-link to the payment or receipt
// that generated them; manual entries leave both empty.
type BankTransaction struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	BusinessId      string              `gorm:"index;not null;size:36" json:"business_id"`
	BankAccountId   int                 `gorm:"index;not null" json:"bank_account_id" binding:"required"`
	Type            BankTransactionType `gorm:"type:enum('deposit','withdrawal','transfer');not null" json:"type"`
	Amount          decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"amount"`
	TransactionDate time.Time           `gorm:"index;not null" json:"transaction_date"`
	Description     string              `gorm:"size:255" json:"description"`
	ReferenceType   ReferenceType       `gorm:"size:50;index:idx_bank_transactions_reference" json:"reference_type"`
	ReferenceId     int                 `gorm:"index:idx_bank_transactions_reference" json:"reference_id"`
	Reconciled      *bool               `gorm:"not null;default:false" json:"reconciled"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBankTransaction struct {
	BankAccountId   int                 `json:"bank_account_id" binding:"required"`
	Type            BankTransactionType `json:"type" binding:"required"`
	Amount          decimal.Decimal     `json:"amount" binding:"required"`
	TransactionDate time.Time           `json:"transaction_date" binding:"required"`
	Description     string              `json:"description"`
}

type BankTransactionsEdge Edge[BankTransaction]
type BankTransactionsConnection struct {
	Edges    []*BankTransactionsEdge `json:"edges"`
	PageInfo *PageInfo               `json:"pageInfo"`
}

func (t BankTransaction) GetId() int {
	return t.ID
}

func (t BankTransaction) GetBusinessId() string {
	return t.BusinessId
}

// returns decoded cursor string
func (t BankTransaction) GetCursor() string {
	return t.TransactionDate.String()
}

/*
caches:
	BankTransaction:$id
	BankTransactionList:$businessId
*/

func (t BankTransaction) RemoveInstanceRedis() error {
	return config.RemoveRedisKey("BankTransaction:" + fmt.Sprint(t.ID))
}

func (t BankTransaction) RemoveAllRedis() error {
	return config.RemoveRedisKey("BankTransactionList:" + t.BusinessId)
}

// SignedAmount is positive for deposits and negative for withdrawals and
// transfers out.
func (t BankTransaction) SignedAmount() decimal.Decimal {
	if t.Type == BankTransactionTypeDeposit {
		return t.Amount
	}
	return t.Amount.Neg()
}

func (input *NewBankTransaction) ValidateBankTransaction(ctx context.Context, businessId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[BankTransaction](ctx, businessId, id); err != nil {
			return err
		}
	}
	if !input.Amount.IsPositive() {
		return errors.New("amount must be positive")
	}
	if input.Type != BankTransactionTypeDeposit &&
		input.Type != BankTransactionTypeWithdrawal &&
		input.Type != BankTransactionTypeTransfer {
		return errors.New("invalid transaction type")
	}
	if err := utils.ValidateResourceId[BankAccount](ctx, businessId, input.BankAccountId); err != nil {
		return errors.New("bank account not found")
	}
	return nil
}

func GetBankTransaction(ctx context.Context, businessId string, id int) (*BankTransaction, error) {
	return utils.FetchModel[BankTransaction](ctx, businessId, id)
}

func GetBankTransactions(ctx context.Context, businessId string, bankAccountId *int, reconciled *bool) ([]*BankTransaction, error) {
	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	var results []*BankTransaction
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if bankAccountId != nil && *bankAccountId > 0 {
		dbCtx = dbCtx.Where("bank_account_id = ?", *bankAccountId)
	}
	if reconciled != nil {
		dbCtx = dbCtx.Where("reconciled = ?", *reconciled)
	}
	if err := dbCtx.Order("transaction_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

// GetBankTransactionByReference locates the mirrored entry for a payment or
// receipt. Returns nil when no mirror exists.
func GetBankTransactionByReference(ctx context.Context, businessId string, referenceType ReferenceType, referenceId int) (*BankTransaction, error) {
	db := config.GetDB()
	var result BankTransaction
	err := db.WithContext(ctx).
		Where("business_id = ? AND reference_type = ? AND reference_id = ?", businessId, referenceType, referenceId).
		Take(&result).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

func PaginateBankTransaction(ctx context.Context, businessId string, limit int, after *string,
	bankAccountId *int, transactionType *BankTransactionType, reconciled *bool,
	fromDate *time.Time, toDate *time.Time) (*BankTransactionsConnection, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("business_id = ?", businessId)
	if bankAccountId != nil && *bankAccountId > 0 {
		dbCtx.Where("bank_account_id = ?", *bankAccountId)
	}
	if transactionType != nil && *transactionType != "" {
		dbCtx.Where("type = ?", *transactionType)
	}
	if reconciled != nil {
		dbCtx.Where("reconciled = ?", *reconciled)
	}
	if fromDate != nil {
		dbCtx.Where("transaction_date >= ?", *fromDate)
	}
	if toDate != nil {
		dbCtx.Where("transaction_date <= ?", *toDate)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[BankTransaction](dbCtx, limit, after, "transaction_date", "<")
	if err != nil {
		return nil, err
	}

	var connection BankTransactionsConnection
	connection.PageInfo = pageInfo
	for _, edge := range edges {
		transactionEdge := BankTransactionsEdge(edge)
		connection.Edges = append(connection.Edges, &transactionEdge)
	}

	return &connection, err
}

// SignedTransactionSum totals deposits minus withdrawals and transfers for
// one account.
func SignedTransactionSum(ctx context.Context, businessId string, bankAccountId int) (*decimal.Decimal, error) {
	db := config.GetDB()

	var total decimal.Decimal
	result := db.WithContext(ctx).Model(&BankTransaction{}).
		Where("business_id = ? AND bank_account_id = ?", businessId, bankAccountId).
		Select("COALESCE(SUM(CASE WHEN type = 'deposit' THEN amount ELSE -amount END), 0)").
		Scan(&total)
	if result.Error != nil {
		return nil, result.Error
	}

	return &total, nil
}
