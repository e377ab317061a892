package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Expense is money paid out of one account. SourceAccountId is always the resolved
// account, including the hand cash account when DeductedFrom is hand_cash.
type Expense struct {
	ID              int             `gorm:"primary_key" json:"id"`
	BankId          string          `gorm:"size:64;not null;index:idx_exp_bank_created,priority:1" json:"bank_id"`
	CategoryId      int             `gorm:"not null;index" json:"category_id"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	DeductedFrom    AccountKind     `gorm:"type:enum('hand_cash','mother_account','profit_account');not null" json:"deducted_from"`
	SourceAccountId int             `gorm:"not null;index" json:"source_account_id"`
	Description     string          `gorm:"type:text" json:"description"`
	ReceiptUrl      string          `gorm:"size:500" json:"receipt_url"`
	PerformedBy     string          `gorm:"size:64" json:"performed_by"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index:idx_exp_bank_created,priority:2" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func InsertExpense(tx *gorm.DB, record *Expense) error {
	return tx.Create(record).Error
}

func LockExpense(tx *gorm.DB, bankId string, id int) (*Expense, error) {
	var record Expense
	err := withoutTenantScope(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("expense %d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	if record.BankId != bankId {
		return nil, fmt.Errorf("%w: expense %d", ErrTenantMismatch, id)
	}
	return &record, nil
}

func UpdateExpenseRecord(tx *gorm.DB, record *Expense) error {
	return tx.Model(&Expense{}).
		Where("id = ? AND bank_id = ?", record.ID, record.BankId).
		Updates(map[string]interface{}{
			"amount":      record.Amount,
			"category_id": record.CategoryId,
			"description": record.Description,
			"receipt_url": record.ReceiptUrl,
		}).Error
}

type ExpenseFilter struct {
	CategoryId   *int
	DeductedFrom *AccountKind
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func GetExpense(ctx context.Context, bankId string, id int) (*Expense, error) {
	return FindExpense(config.GetDB().WithContext(ctx), bankId, id)
}

func FindExpense(db *gorm.DB, bankId string, id int) (*Expense, error) {
	var record Expense
	err := db.Where("id = ? AND bank_id = ?", id, bankId).Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("expense %d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	return &record, nil
}

// ListExpenses returns newest first.
func ListExpenses(ctx context.Context, bankId string, filter ExpenseFilter) ([]*Expense, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("bank_id = ?", bankId)
	if filter.CategoryId != nil {
		dbCtx = dbCtx.Where("category_id = ?", *filter.CategoryId)
	}
	if filter.DeductedFrom != nil {
		dbCtx = dbCtx.Where("deducted_from = ?", *filter.DeductedFrom)
	}
	if filter.From != nil {
		dbCtx = dbCtx.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		dbCtx = dbCtx.Where("created_at < ?", *filter.To)
	}

	var results []*Expense
	err := dbCtx.Order("created_at DESC").Order("id DESC").
		Limit(pageSize(filter.Limit)).Offset(max(filter.Offset, 0)).
		Find(&results).Error
	return results, err
}
