package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/arthosutra/accubooks_backend/config"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type TransactionExportRow struct {
	Id              int             `json:"id"`
	BankAccountName string          `json:"bank_account_name"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionDate time.Time       `json:"transaction_date"`
	Description     string          `json:"description"`
	Reconciled      bool            `json:"reconciled"`
}

func getTransactionExportRows(ctx context.Context, businessId string, from *time.Time, to *time.Time) ([]*TransactionExportRow, error) {

	db := config.GetDB()

	query := db.WithContext(ctx).
		Table("bank_transactions").
		Select(`bank_transactions.id,
            bank_accounts.name AS bank_account_name,
            bank_transactions.type,
            bank_transactions.amount,
            bank_transactions.transaction_date,
            bank_transactions.description,
            bank_transactions.reconciled`).
		Joins("LEFT JOIN bank_accounts ON bank_accounts.id = bank_transactions.bank_account_id").
		Where("bank_transactions.business_id = ?", businessId)

	if from != nil {
		query = query.Where("bank_transactions.transaction_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("bank_transactions.transaction_date <= ?", *to)
	}

	var rows []*TransactionExportRow
	if err := query.Order("bank_transactions.transaction_date").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ExportTransactionsCSV streams the business's bank transactions as a CSV
// attachment, optionally bounded by a date range.
func ExportTransactionsCSV(w http.ResponseWriter, ctx context.Context, businessId string, from *time.Time, to *time.Time) error {

	rows, err := getTransactionExportRows(ctx, businessId, from, to)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=transactions.csv")

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Id", "BankAccount", "Type", "Amount", "Date", "Description", "Reconciled"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			fmt.Sprint(row.Id),
			row.BankAccountName,
			row.Type,
			row.Amount.String(),
			row.TransactionDate.Format("2006-01-02"),
			row.Description,
			fmt.Sprint(row.Reconciled),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportTransactionsXLSX streams the same report as an Excel workbook.
func ExportTransactionsXLSX(w http.ResponseWriter, ctx context.Context, businessId string, from *time.Time, to *time.Time) error {

	rows, err := getTransactionExportRows(ctx, businessId, from, to)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	if _, err := f.NewSheet("Sheet1"); err != nil {
		return err
	}

	// Add headers
	f.SetCellValue("Sheet1", "A1", "Id")
	f.SetCellValue("Sheet1", "B1", "BankAccount")
	f.SetCellValue("Sheet1", "C1", "Type")
	f.SetCellValue("Sheet1", "D1", "Amount")
	f.SetCellValue("Sheet1", "E1", "Date")
	f.SetCellValue("Sheet1", "F1", "Description")
	f.SetCellValue("Sheet1", "G1", "Reconciled")

	// Add data
	for i, row := range rows {
		f.SetCellValue("Sheet1", "A"+fmt.Sprint(i+2), row.Id)
		f.SetCellValue("Sheet1", "B"+fmt.Sprint(i+2), row.BankAccountName)
		f.SetCellValue("Sheet1", "C"+fmt.Sprint(i+2), row.Type)
		f.SetCellValue("Sheet1", "D"+fmt.Sprint(i+2), row.Amount.InexactFloat64())
		f.SetCellValue("Sheet1", "E"+fmt.Sprint(i+2), row.TransactionDate.Format("2006-01-02"))
		f.SetCellValue("Sheet1", "F"+fmt.Sprint(i+2), row.Description)
		f.SetCellValue("Sheet1", "G"+fmt.Sprint(i+2), row.Reconciled)
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=transactions.xlsx")
	if err := f.Write(w); err != nil {
		return err
	}
	return nil
}
