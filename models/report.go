package models

import (
	"context"
	"fmt"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DailyTotals are the per-day sums shown on the dashboard and stored in daily logs.
type DailyTotals struct {
	TotalDeposits    decimal.Decimal `json:"total_deposits"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	TotalCashIn      decimal.Decimal `json:"total_cash_in"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	TransactionCount int64           `json:"transaction_count"`
	DepositCount     int64           `json:"deposit_count"`
	WithdrawalCount  int64           `json:"withdrawal_count"`
	CashInCount      int64           `json:"cash_in_count"`
	ExpenseCount     int64           `json:"expense_count"`
}

// NetFlow is deposits - withdrawals + cash-in - expenses.
func (t *DailyTotals) NetFlow() decimal.Decimal {
	return t.TotalDeposits.Sub(t.TotalWithdrawals).Add(t.TotalCashIn).Sub(t.TotalExpenses)
}

type transactionTypeTotal struct {
	Type  TransactionType
	Total decimal.Decimal
	Count int64
}

// SumDailyTotals sums records whose created_at lies in [start, end).
func SumDailyTotals(db *gorm.DB, bankId string, start, end time.Time) (*DailyTotals, error) {
	totals := DailyTotals{
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalCashIn:      decimal.Zero,
		TotalExpenses:    decimal.Zero,
	}

	var rows []transactionTypeTotal
	err := db.Model(&Transaction{}).
		Select("type, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("bank_id = ? AND created_at >= ? AND created_at < ?", bankId, start, end).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		switch row.Type {
		case TransactionTypeDeposit:
			totals.TotalDeposits = row.Total
			totals.DepositCount = row.Count
		case TransactionTypeWithdrawal:
			totals.TotalWithdrawals = row.Total
			totals.WithdrawalCount = row.Count
		case TransactionTypeCashIn:
			totals.TotalCashIn = row.Total
			totals.CashInCount = row.Count
		}
		totals.TransactionCount += row.Count
	}

	var expense struct {
		Total decimal.Decimal
		Count int64
	}
	err = db.Model(&Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("bank_id = ? AND created_at >= ? AND created_at < ?", bankId, start, end).
		Scan(&expense).Error
	if err != nil {
		return nil, err
	}
	totals.TotalExpenses = expense.Total
	totals.ExpenseCount = expense.Count
	return &totals, nil
}

// GetTodaySummary sums today's activity in the bank's timezone.
func GetTodaySummary(ctx context.Context, bankId string) (*DailyTotals, error) {
	bank, err := GetBank(ctx, bankId)
	if err != nil {
		return nil, err
	}
	start, end, err := utils.DayRange(time.Now().In(mustLocation(bank.Timezone)), bank.Timezone)
	if err != nil {
		return nil, err
	}
	return SumDailyTotals(config.GetDB().WithContext(ctx), bankId, start, end)
}

// CategoryTotal is the expense sum of one category over a period.
type CategoryTotal struct {
	CategoryId   int             `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Total        decimal.Decimal `json:"total"`
	Count        int64           `json:"count"`
}

// PeriodReport covers the calendar days from..to of the bank, both inclusive.
type PeriodReport struct {
	From string `json:"from"`
	To   string `json:"to"`
	DailyTotals
	NetFlow            decimal.Decimal `json:"net_flow"`
	ExpensesByCategory []CategoryTotal `json:"expenses_by_category"`
	DailyLogs          []*DailyLog     `json:"daily_logs"`
}

// SumExpensesByCategory groups expenses created in [start, end) by category, largest first.
func SumExpensesByCategory(db *gorm.DB, bankId string, start, end time.Time) ([]CategoryTotal, error) {
	results := []CategoryTotal{}
	err := db.Table("expenses AS e").
		Select("e.category_id, COALESCE(c.name, '') AS category_name, COALESCE(SUM(e.amount), 0) AS total, COUNT(*) AS count").
		Joins("LEFT JOIN expense_categories AS c ON c.id = e.category_id AND c.bank_id = e.bank_id").
		Where("e.bank_id = ? AND e.created_at >= ? AND e.created_at < ?", bankId, start, end).
		Group("e.category_id, c.name").
		Order("total DESC").Order("e.category_id").
		Scan(&results).Error
	return results, err
}

// GetPeriodReport sums the activity of the bank's calendar days from..to and lists the
// daily logs generated for them.
func GetPeriodReport(ctx context.Context, bankId string, from, to time.Time) (*PeriodReport, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidInput)
	}
	bank, err := GetBank(ctx, bankId)
	if err != nil {
		return nil, err
	}
	start, _, err := utils.DayRange(from, bank.Timezone)
	if err != nil {
		return nil, err
	}
	_, end, err := utils.DayRange(to, bank.Timezone)
	if err != nil {
		return nil, err
	}

	db := config.GetDB().WithContext(ctx)
	totals, err := SumDailyTotals(db, bankId, start, end)
	if err != nil {
		return nil, err
	}
	byCategory, err := SumExpensesByCategory(db, bankId, start, end)
	if err != nil {
		return nil, err
	}
	logs, err := GetDailyLogs(ctx, bankId, from, to)
	if err != nil {
		return nil, err
	}
	return &PeriodReport{
		From:               from.Format("2006-01-02"),
		To:                 to.Format("2006-01-02"),
		DailyTotals:        *totals,
		NetFlow:            totals.NetFlow(),
		ExpensesByCategory: byCategory,
		DailyLogs:          logs,
	}, nil
}

func mustLocation(timezone string) *time.Location {
	loc, err := utils.LoadTimezone(timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
