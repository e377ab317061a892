package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Transaction is one deposit, withdrawal or cash-in. The balance effect is always
// recomputed from these stored fields, so they must describe the posting completely.
type Transaction struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BankId            string          `gorm:"size:64;not null;index:idx_tx_bank_created,priority:1;index:idx_tx_bank_type,priority:1" json:"bank_id"`
	Type              TransactionType `gorm:"type:enum('deposit','withdrawal','cash_in');not null;index:idx_tx_bank_type,priority:2" json:"type"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Commission        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"commission"`
	ShortageAmount    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"shortage_amount"`
	MotherAccountId   *int            `gorm:"index" json:"mother_account_id"`
	ShortageAccountId *int            `json:"shortage_account_id"`
	ProfitAccountId   *int            `json:"profit_account_id"`
	TargetKind        *AccountKind    `gorm:"size:20" json:"target_kind"`
	TargetAccountId   *int            `json:"target_account_id"`
	CustomerName      string          `gorm:"size:255" json:"customer_name"`
	CustomerAccount   string          `gorm:"size:50" json:"customer_account"`
	CustomerPhone     string          `gorm:"size:30" json:"customer_phone"`
	Source            string          `gorm:"size:255" json:"source"`
	Reference         string          `gorm:"size:100" json:"reference"`
	Notes             string          `gorm:"type:text" json:"notes"`
	PerformedBy       string          `gorm:"size:64;index" json:"performed_by"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index:idx_tx_bank_created,priority:2" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func InsertTransaction(tx *gorm.DB, record *Transaction) error {
	return tx.Create(record).Error
}

// LockTransaction loads a transaction FOR UPDATE so concurrent edits of the same
// record serialize.
func LockTransaction(tx *gorm.DB, bankId string, id int) (*Transaction, error) {
	var record Transaction
	err := withoutTenantScope(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	if record.BankId != bankId {
		return nil, fmt.Errorf("%w: transaction %d", ErrTenantMismatch, id)
	}
	return &record, nil
}

// UpdateTransactionRecord persists the editable columns of an edited transaction.
func UpdateTransactionRecord(tx *gorm.DB, record *Transaction) error {
	return tx.Model(&Transaction{}).
		Where("id = ? AND bank_id = ?", record.ID, record.BankId).
		Updates(map[string]interface{}{
			"amount":           record.Amount,
			"commission":       record.Commission,
			"shortage_amount":  record.ShortageAmount,
			"customer_name":    record.CustomerName,
			"customer_account": record.CustomerAccount,
			"customer_phone":   record.CustomerPhone,
			"source":           record.Source,
			"reference":        record.Reference,
			"notes":            record.Notes,
		}).Error
}

type TransactionFilter struct {
	Type            *TransactionType
	From            *time.Time
	To              *time.Time
	MotherAccountId *int
	PerformedBy     *string
	Search          *string
	Limit           int
	Offset          int
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

func pageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return min(limit, maxPageSize)
}

func GetTransaction(ctx context.Context, bankId string, id int) (*Transaction, error) {
	return FindTransaction(config.GetDB().WithContext(ctx), bankId, id)
}

// FindTransaction loads a transaction through db, which may be a transaction.
func FindTransaction(db *gorm.DB, bankId string, id int) (*Transaction, error) {
	var record Transaction
	err := db.Where("id = ? AND bank_id = ?", id, bankId).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("transaction %d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	return &record, nil
}

// ListTransactions returns newest first.
func ListTransactions(ctx context.Context, bankId string, filter TransactionFilter) ([]*Transaction, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("bank_id = ?", bankId)

	if filter.Type != nil {
		dbCtx = dbCtx.Where("type = ?", *filter.Type)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", *filter.To)
	}
	if filter.MotherAccountId != nil {
		dbCtx = dbCtx.Where("mother_account_id = ?", *filter.MotherAccountId)
	}
	if filter.PerformedBy != nil {
		dbCtx = dbCtx.Where("performed_by = ?", *filter.PerformedBy)
	}
	if filter.Search != nil && strings.TrimSpace(*filter.Search) != "" {
		like := "%" + strings.TrimSpace(*filter.Search) + "%"
		dbCtx = dbCtx.Where("(customer_name LIKE ? OR customer_account LIKE ? OR reference LIKE ?)", like, like, like)
	}

	var results []*Transaction
	err := dbCtx.Order("created_at DESC").Order("id DESC").
		Limit(pageSize(filter.Limit)).Offset(max(filter.Offset, 0)).
		Find(&results).Error
	return results, err
}
