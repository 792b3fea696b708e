package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/arthosutra/accubooks_backend/models"
	"github.com/arthosutra/accubooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// BalanceDrift is one stored balance that disagrees with the sum of its
// dependent records.
type BalanceDrift struct {
	Entity   string          `json:"entity"`
	EntityId int             `json:"entity_id"`
	Name     string          `json:"name"`
	Stored   decimal.Decimal `json:"stored"`
	Expected decimal.Decimal `json:"expected"`
	Drift    decimal.Decimal `json:"drift"`
	Repaired bool            `json:"repaired"`
}

type BalanceAuditReport struct {
	BusinessId string          `json:"business_id"`
	RanAt      time.Time       `json:"ran_at"`
	Checked    int             `json:"checked"`
	Drifts     []*BalanceDrift `json:"drifts"`
}

// AuditBalances recomputes every stored balance in the business from its
// dependent records and reports drift. With repair set, drifting rows are
// rewritten to the recomputed value.
//
// Expected values:
//
//	debtor outstanding   = clamp(sum(invoices) - sum(receipts))
//	creditor outstanding = clamp(sum(bills) + sum(purchases) - sum(payments))
//	bank current balance = opening balance + signed sum of transactions
func AuditBalances(ctx context.Context, logger *logrus.Logger, businessId string, repair bool) (*BalanceAuditReport, error) {

	if businessId == "" {
		return nil, errors.New("business id is required")
	}

	report := &BalanceAuditReport{
		BusinessId: businessId,
		RanAt:      time.Now().UTC(),
		Drifts:     make([]*BalanceDrift, 0),
	}

	if err := auditDebtors(ctx, logger, businessId, repair, report); err != nil {
		return nil, err
	}
	if err := auditCreditors(ctx, logger, businessId, repair, report); err != nil {
		return nil, err
	}
	if err := auditBankAccounts(ctx, logger, businessId, repair, report); err != nil {
		return nil, err
	}

	if len(report.Drifts) > 0 {
		logger.WithFields(logrus.Fields{
			"business_id": businessId,
			"checked":     report.Checked,
			"drifts":      len(report.Drifts),
			"repaired":    repair,
		}).Warn("balance audit found drift")
	}

	return report, nil
}

func auditDebtors(ctx context.Context, logger *logrus.Logger, businessId string, repair bool, report *BalanceAuditReport) error {
	db := config.GetDB()

	var debtors []*models.Debtor
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&debtors).Error; err != nil {
		return err
	}

	for _, debtor := range debtors {
		report.Checked++

		var invoiced decimal.Decimal
		if err := db.WithContext(ctx).Model(&models.Invoice{}).
			Where("business_id = ? AND debtor_id = ?", businessId, debtor.ID).
			Select("COALESCE(SUM(total_amount), 0)").
			Scan(&invoiced).Error; err != nil {
			return err
		}

		var received decimal.Decimal
		if err := db.WithContext(ctx).Model(&models.PaymentReceipt{}).
			Where("business_id = ? AND debtor_id = ?", businessId, debtor.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&received).Error; err != nil {
			return err
		}

		expected := clampToZero(invoiced.Sub(received))
		if expected.Equal(debtor.OutstandingAmount) {
			continue
		}

		drift := &BalanceDrift{
			Entity:   "debtor",
			EntityId: debtor.ID,
			Name:     debtor.Name,
			Stored:   debtor.OutstandingAmount,
			Expected: expected,
			Drift:    debtor.OutstandingAmount.Sub(expected),
		}

		if repair {
			delta := expected.Sub(debtor.OutstandingAmount)
			tx := db.Begin()
			if err := ApplyDebtorOutstandingDelta(tx.WithContext(ctx), logger, businessId, debtor.ID, delta); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit().Error; err != nil {
				return err
			}
			drift.Repaired = true
		}

		report.Drifts = append(report.Drifts, drift)
	}
	return nil
}

func auditCreditors(ctx context.Context, logger *logrus.Logger, businessId string, repair bool, report *BalanceAuditReport) error {
	db := config.GetDB()

	var creditors []*models.Creditor
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&creditors).Error; err != nil {
		return err
	}

	for _, creditor := range creditors {
		report.Checked++

		var billed decimal.Decimal
		if err := db.WithContext(ctx).Model(&models.Bill{}).
			Where("business_id = ? AND creditor_id = ?", businessId, creditor.ID).
			Select("COALESCE(SUM(total_amount), 0)").
			Scan(&billed).Error; err != nil {
			return err
		}

		var purchased decimal.Decimal
		if err := db.WithContext(ctx).Model(&models.Purchase{}).
			Where("business_id = ? AND creditor_id = ?", businessId, creditor.ID).
			Select("COALESCE(SUM(total), 0)").
			Scan(&purchased).Error; err != nil {
			return err
		}

		var paid decimal.Decimal
		if err := db.WithContext(ctx).Model(&models.Payment{}).
			Where("business_id = ? AND creditor_id = ?", businessId, creditor.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&paid).Error; err != nil {
			return err
		}

		expected := clampToZero(billed.Add(purchased).Sub(paid))
		if expected.Equal(creditor.OutstandingAmount) {
			continue
		}

		drift := &BalanceDrift{
			Entity:   "creditor",
			EntityId: creditor.ID,
			Name:     creditor.Name,
			Stored:   creditor.OutstandingAmount,
			Expected: expected,
			Drift:    creditor.OutstandingAmount.Sub(expected),
		}

		if repair {
			delta := expected.Sub(creditor.OutstandingAmount)
			tx := db.Begin()
			if err := ApplyCreditorOutstandingDelta(tx.WithContext(ctx), logger, businessId, creditor.ID, delta); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit().Error; err != nil {
				return err
			}
			drift.Repaired = true
		}

		report.Drifts = append(report.Drifts, drift)
	}
	return nil
}

func auditBankAccounts(ctx context.Context, logger *logrus.Logger, businessId string, repair bool, report *BalanceAuditReport) error {
	db := config.GetDB()

	var accounts []*models.BankAccount
	if err := db.WithContext(ctx).Where("business_id = ?", businessId).Find(&accounts).Error; err != nil {
		return err
	}

	for _, account := range accounts {
		report.Checked++

		signedSum, err := models.SignedTransactionSum(ctx, businessId, account.ID)
		if err != nil {
			return err
		}

		expected := account.OpeningBalance.Add(*signedSum)
		if expected.Equal(account.CurrentBalance) {
			continue
		}

		drift := &BalanceDrift{
			Entity:   "bank_account",
			EntityId: account.ID,
			Name:     account.Name,
			Stored:   account.CurrentBalance,
			Expected: expected,
			Drift:    account.CurrentBalance.Sub(expected),
		}

		if repair {
			delta := expected.Sub(account.CurrentBalance)
			tx := db.Begin()
			if err := ApplyBankBalanceDelta(tx.WithContext(ctx), logger, businessId, account.ID, delta); err != nil {
				tx.Rollback()
				return err
			}
			if err := tx.Commit().Error; err != nil {
				return err
			}
			drift.Repaired = true
		}

		report.Drifts = append(report.Drifts, drift)
	}
	return nil
}

// AuditAllBusinesses sweeps every business. Used by the audit command.
func AuditAllBusinesses(ctx context.Context, logger *logrus.Logger, repair bool) ([]*BalanceAuditReport, error) {
	db := config.GetDB()

	var businessIds []string
	if err := db.WithContext(ctx).Model(&models.Business{}).Pluck("id", &businessIds).Error; err != nil {
		return nil, err
	}

	reports := make([]*BalanceAuditReport, 0, len(businessIds))
	for _, businessId := range businessIds {
		release, err := utils.BusinessLock(ctx, businessId, "audit", "balanceAudit.go", "AuditAllBusinesses")
		if err != nil {
			return nil, err
		}
		report, err := AuditBalances(ctx, logger, businessId, repair)
		release()
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
