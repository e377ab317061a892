package models

import (
	"context"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/shopspring/decimal"
)

// LedgerEntry journals one applied balance delta. Entries are written in the same
// database transaction as the balance change, so summing an account's deltas always
// reproduces its balance movement.
type LedgerEntry struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BankId        string              `gorm:"size:64;not null;index:idx_le_bank_account,priority:1;index:idx_le_bank_ref,priority:1" json:"bank_id"`
	AccountId     int                 `gorm:"not null;index:idx_le_bank_account,priority:2" json:"account_id"`
	ReferenceType LedgerReferenceType `gorm:"size:30;not null;index:idx_le_bank_ref,priority:2" json:"reference_type"`
	ReferenceId   int                 `gorm:"not null;index:idx_le_bank_ref,priority:3" json:"reference_id"`
	Action        LedgerAction        `gorm:"size:20;not null" json:"action"`
	Delta         decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"delta"`
	BalanceAfter  decimal.Decimal     `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	PerformedBy   string              `gorm:"size:64" json:"performed_by"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// LedgerRef identifies the record a delta belongs to.
type LedgerRef struct {
	Type        LedgerReferenceType
	Id          int
	Action      LedgerAction
	PerformedBy string
}

func GetLedgerEntries(ctx context.Context, bankId string, accountId *int, from, to *time.Time) ([]*LedgerEntry, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("bank_id = ?", bankId)
	if accountId != nil {
		dbCtx = dbCtx.Where("account_id = ?", *accountId)
	}
	if from != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("created_at < ?", *to)
	}
	var results []*LedgerEntry
	err := dbCtx.Order("id").Find(&results).Error
	return results, err
}
