package models

import (
	"context"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReconciliationCheck string

const (
	// ReconciliationCheckAccountBalance: stored balance != sum of the account's ledger deltas.
	ReconciliationCheckAccountBalance ReconciliationCheck = "ACCOUNT_BALANCE"
	// ReconciliationCheckUnposted: a transaction or expense without any ledger entry.
	ReconciliationCheckUnposted ReconciliationCheck = "UNPOSTED_RECORD"
)

// ReconciliationReport is one drift finding of a ledger verification run.
// Rows of the same run share a correlation id.
type ReconciliationReport struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BankId        string              `gorm:"size:64;index;not null" json:"bank_id"`
	CheckType     ReconciliationCheck `gorm:"size:50;index;not null" json:"check_type"`
	EntityType    string              `gorm:"size:50;not null" json:"entity_type"`
	EntityId      int                 `gorm:"index;not null" json:"entity_id"`
	Expected      decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"expected"`
	Actual        decimal.Decimal     `gorm:"type:decimal(20,4);not null;default:0" json:"actual"`
	Details       string              `gorm:"type:text" json:"details"`
	CorrelationId string              `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// BalanceMismatch is an account whose balance no longer matches its journal.
type BalanceMismatch struct {
	AccountId   int
	Kind        AccountKind
	Balance     decimal.Decimal
	LedgerTotal decimal.Decimal
}

// UnpostedRecord is a transaction or expense that never reached the journal.
type UnpostedRecord struct {
	ReferenceType LedgerReferenceType
	ReferenceId   int
	Amount        decimal.Decimal
}

func FindBalanceMismatches(tx *gorm.DB, bankId string) ([]BalanceMismatch, error) {
	var rows []BalanceMismatch
	err := tx.Raw(`
		SELECT
			a.id AS account_id,
			a.kind AS kind,
			a.balance AS balance,
			COALESCE(SUM(le.delta), 0) AS ledger_total
		FROM accounts a
		LEFT JOIN ledger_entries le
		  ON le.bank_id = a.bank_id
		 AND le.account_id = a.id
		WHERE a.bank_id = ?
		GROUP BY a.id, a.kind, a.balance
		HAVING a.balance <> COALESCE(SUM(le.delta), 0)
		ORDER BY a.id
	`, bankId).Scan(&rows).Error
	return rows, err
}

func FindUnpostedRecords(tx *gorm.DB, bankId string) ([]UnpostedRecord, error) {
	var rows []UnpostedRecord
	err := tx.Raw(`
		SELECT ? AS reference_type, t.id AS reference_id, t.amount AS amount
		FROM transactions t
		WHERE t.bank_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM ledger_entries le
			WHERE le.bank_id = t.bank_id AND le.reference_type = ? AND le.reference_id = t.id
		  )
		UNION ALL
		SELECT ? AS reference_type, e.id AS reference_id, e.amount AS amount
		FROM expenses e
		WHERE e.bank_id = ?
		  AND NOT EXISTS (
			SELECT 1 FROM ledger_entries le
			WHERE le.bank_id = e.bank_id AND le.reference_type = ? AND le.reference_id = e.id
		  )
		ORDER BY reference_type, reference_id
	`, LedgerReferenceTransaction, bankId, LedgerReferenceTransaction,
		LedgerReferenceExpense, bankId, LedgerReferenceExpense).Scan(&rows).Error
	return rows, err
}

func InsertReconciliationReports(tx *gorm.DB, reports []*ReconciliationReport) error {
	if len(reports) == 0 {
		return nil
	}
	return tx.Create(&reports).Error
}

// GetReconciliationReports returns the newest findings first.
func GetReconciliationReports(ctx context.Context, bankId string, limit int) ([]*ReconciliationReport, error) {
	var reports []*ReconciliationReport
	dbCtx := config.GetDB().WithContext(ctx).Where("bank_id = ?", bankId).Order("id DESC")
	if limit > 0 {
		dbCtx = dbCtx.Limit(limit)
	}
	if err := dbCtx.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
