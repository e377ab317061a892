package models

import (
	"log"

	"github.com/agentbank/ledger_backend/config"
)

func MigrateTable() {
	if err := AutoMigrate(); err != nil {
		log.Fatal(err)
	}
}

func AutoMigrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Bank{},
		&BankMember{},
		&Account{},
		&ExpenseCategory{},
		&Transaction{},
		&Expense{},
		&LedgerEntry{},
		&DailyLog{},
		&Backup{},
		&IdempotencyKey{},
		&ReconciliationReport{},
	)
}
