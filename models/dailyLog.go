package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DailyLog is the end-of-day snapshot of a bank. Grain: (bank_id, log_date).
// Regenerating a day overwrites the row, it never adds a second one.
type DailyLog struct {
	ID                     int             `gorm:"primary_key" json:"id"`
	BankId                 string          `gorm:"size:64;not null;uniqueIndex:idx_daily_log_bank_date,priority:1" json:"bank_id"`
	LogDate                datatypes.Date  `gorm:"not null;uniqueIndex:idx_daily_log_bank_date,priority:2" json:"log_date"`
	TotalDeposits          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_deposits"`
	TotalWithdrawals       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_withdrawals"`
	TotalCashIn            decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_cash_in"`
	TotalExpenses          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_expenses"`
	HandCashBalance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"hand_cash_balance"`
	MotherAccountsSnapshot datatypes.JSON  `json:"mother_accounts_snapshot"`
	ProfitAccountsSnapshot datatypes.JSON  `json:"profit_accounts_snapshot"`
	GeneratedBy            string          `gorm:"size:64" json:"generated_by"`
	CreatedAt              time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// AccountSnapshot is one account balance captured in a daily log.
type AccountSnapshot struct {
	Id            int             `json:"id"`
	Name          string          `json:"name"`
	AccountNumber string          `json:"account_number,omitempty"`
	Balance       decimal.Decimal `json:"balance"`
}

// BuildAccountSnapshots splits accounts into mother and profit snapshots.
// Inactive mother accounts are left out.
func BuildAccountSnapshots(accounts []*Account) (mother []AccountSnapshot, profit []AccountSnapshot) {
	mother = []AccountSnapshot{}
	profit = []AccountSnapshot{}
	for _, a := range accounts {
		snap := AccountSnapshot{Id: a.ID, Name: a.Name, Balance: a.Balance}
		if a.AccountNumber != nil {
			snap.AccountNumber = *a.AccountNumber
		}
		switch a.Kind {
		case AccountKindMotherAccount:
			if a.Active() {
				mother = append(mother, snap)
			}
		case AccountKindProfitAccount:
			profit = append(profit, snap)
		}
	}
	return mother, profit
}

func NewDailyLog(bankId string, logDate time.Time, totals *DailyTotals, accounts []*Account, generatedBy string) (*DailyLog, error) {
	mother, profit := BuildAccountSnapshots(accounts)
	motherJson, err := json.Marshal(mother)
	if err != nil {
		return nil, err
	}
	profitJson, err := json.Marshal(profit)
	if err != nil {
		return nil, err
	}
	handCash := decimal.Zero
	for _, a := range accounts {
		if a.Kind == AccountKindHandCash {
			handCash = a.Balance
		}
	}
	return &DailyLog{
		BankId:                 bankId,
		LogDate:                datatypes.Date(time.Date(logDate.Year(), logDate.Month(), logDate.Day(), 0, 0, 0, 0, time.UTC)),
		TotalDeposits:          totals.TotalDeposits,
		TotalWithdrawals:       totals.TotalWithdrawals,
		TotalCashIn:            totals.TotalCashIn,
		TotalExpenses:          totals.TotalExpenses,
		HandCashBalance:        handCash,
		MotherAccountsSnapshot: datatypes.JSON(motherJson),
		ProfitAccountsSnapshot: datatypes.JSON(profitJson),
		GeneratedBy:            generatedBy,
	}, nil
}

// UpsertDailyLog inserts or overwrites the (bank_id, log_date) row and returns the stored row.
func UpsertDailyLog(tx *gorm.DB, dailyLog *DailyLog) (*DailyLog, error) {
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bank_id"}, {Name: "log_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_deposits", "total_withdrawals", "total_cash_in", "total_expenses",
			"hand_cash_balance", "mother_accounts_snapshot", "profit_accounts_snapshot",
			"generated_by", "updated_at",
		}),
	}).Create(dailyLog).Error
	if err != nil {
		return nil, err
	}

	var stored DailyLog
	err = tx.Where("bank_id = ? AND log_date = ?", dailyLog.BankId, dailyLog.LogDate).Take(&stored).Error
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func GetDailyLogs(ctx context.Context, bankId string, from, to time.Time) ([]*DailyLog, error) {
	var results []*DailyLog
	err := config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND log_date >= ? AND log_date <= ?", bankId, datatypes.Date(from), datatypes.Date(to)).
		Order("log_date DESC").
		Find(&results).Error
	return results, err
}

func GetLatestDailyLogs(ctx context.Context, bankId string, limit int) ([]*DailyLog, error) {
	if limit <= 0 {
		limit = 30
	}
	var results []*DailyLog
	err := config.GetDB().WithContext(ctx).
		Where("bank_id = ?", bankId).
		Order("log_date DESC").
		Limit(min(limit, 366)).
		Find(&results).Error
	return results, err
}
