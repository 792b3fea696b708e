package reports

import (
	"context"
	"errors"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/shopspring/decimal"
)

type DashboardResponse struct {
	TotalReceivable   decimal.Decimal    `json:"total_receivable"`
	TotalPayable      decimal.Decimal    `json:"total_payable"`
	TotalCashBalance  decimal.Decimal    `json:"total_cash_balance"`
	OverdueReceivable decimal.Decimal    `json:"overdue_receivable"`
	OverduePayable    decimal.Decimal    `json:"overdue_payable"`
	CashFlowDetails   []*CashFlowDetails `json:"cash_flow_details"`
}

type CashFlowDetails struct {
	Month          string          `json:"month"`
	IncomingAmount decimal.Decimal `json:"incoming_amount"`
	OutgoingAmount decimal.Decimal `json:"outgoing_amount"`
}

// GetDashboardReport aggregates the business's headline numbers: total
// receivable and payable, cash on hand, overdue document totals and a
// month-by-month cash flow over the trailing six months.
func GetDashboardReport(ctx context.Context, businessId string) (*DashboardResponse, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	receivable, err := models.TotalOutstandingReceivable(ctx, businessId)
	if err != nil {
		return nil, err
	}
	payable, err := models.TotalOutstandingPayable(ctx, businessId)
	if err != nil {
		return nil, err
	}
	cash, err := models.TotalCashBalance(ctx, businessId)
	if err != nil {
		return nil, err
	}
	overdueReceivable, err := models.TotalOverdueReceivable(ctx, businessId)
	if err != nil {
		return nil, err
	}
	overduePayable, err := models.TotalOverduePayable(ctx, businessId)
	if err != nil {
		return nil, err
	}

	cashFlow, err := getMonthlyCashFlow(ctx, businessId, 6)
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{
		TotalReceivable:   *receivable,
		TotalPayable:      *payable,
		TotalCashBalance:  *cash,
		OverdueReceivable: *overdueReceivable,
		OverduePayable:    *overduePayable,
		CashFlowDetails:   cashFlow,
	}, nil
}

func getMonthlyCashFlow(ctx context.Context, businessId string, months int) ([]*CashFlowDetails, error) {

	db := config.GetDB()

	since := time.Now().AddDate(0, -months, 0)

	query := `
    SELECT
        DATE_FORMAT(transaction_date, '%Y-%m') AS month,
        COALESCE(SUM(CASE WHEN type = 'deposit' THEN amount ELSE 0 END), 0) AS incoming_amount,
        COALESCE(SUM(CASE WHEN type <> 'deposit' THEN amount ELSE 0 END), 0) AS outgoing_amount
    FROM
        bank_transactions
    WHERE
        business_id = ?
        AND transaction_date >= ?
    GROUP BY
        DATE_FORMAT(transaction_date, '%Y-%m')
    ORDER BY
        month;
`

	var details []*CashFlowDetails
	if err := db.WithContext(ctx).Raw(query, businessId, since).Scan(&details).Error; err != nil {
		return nil, err
	}
	if details == nil {
		details = make([]*CashFlowDetails, 0)
	}
	return details, nil
}
