package models

import (
	"log"

	"github.com/arthosutra/accubooks_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Business{}, &User{},
		&Debtor{}, &Creditor{},
		&Invoice{}, &InvoiceItem{}, &Bill{}, &BillItem{},
		&Purchase{},
		&Payment{}, &PaymentReceipt{},
		&BankAccount{}, &BankTransaction{},
		&TallyMessage{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
