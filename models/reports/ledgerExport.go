package reports

import (
	"context"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExcelExporter is one spreadsheet row.
type ExcelExporter interface {
	GetCellValues() []interface{}
}

type transactionRow struct{ *models.Transaction }

func (r transactionRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		string(r.Type),
		r.Amount.InexactFloat64(),
		r.ShortageAmount.InexactFloat64(),
		r.Commission.InexactFloat64(),
		utils.DereferencePtr(r.MotherAccountId),
		r.CustomerName,
		r.CustomerAccount,
		r.Reference,
		r.PerformedBy,
	}
}

var transactionHeadings = []string{"Id", "CreatedAt", "Type", "Amount", "Shortage", "Commission", "MotherAccountId", "CustomerName", "CustomerAccount", "Reference", "PerformedBy"}

type expenseRow struct{ *models.Expense }

func (r expenseRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.CategoryId,
		r.Amount.InexactFloat64(),
		string(r.DeductedFrom),
		r.SourceAccountId,
		r.Description,
		r.PerformedBy,
	}
}

var expenseHeadings = []string{"Id", "CreatedAt", "CategoryId", "Amount", "DeductedFrom", "SourceAccountId", "Description", "PerformedBy"}

type ledgerEntryRow struct{ *models.LedgerEntry }

func (r ledgerEntryRow) GetCellValues() []interface{} {
	return []interface{}{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.AccountId,
		string(r.ReferenceType),
		r.ReferenceId,
		string(r.Action),
		r.Delta.InexactFloat64(),
		r.BalanceAfter.InexactFloat64(),
		r.PerformedBy,
	}
}

var ledgerEntryHeadings = []string{"Id", "CreatedAt", "AccountId", "ReferenceType", "ReferenceId", "Action", "Delta", "BalanceAfter", "PerformedBy"}

// BuildLedgerWorkbook exports the bank's transactions, expenses and ledger
// entries created in [from, to), one sheet each.
func BuildLedgerWorkbook(ctx context.Context, bankId string, from, to time.Time) (*excelize.File, error) {
	window := func() *gorm.DB {
		return config.GetDB().WithContext(ctx).
			Where("bank_id = ? AND created_at >= ? AND created_at < ?", bankId, from, to).
			Order("id")
	}

	var transactions []*models.Transaction
	if err := window().Find(&transactions).Error; err != nil {
		return nil, err
	}
	var expenses []*models.Expense
	if err := window().Find(&expenses).Error; err != nil {
		return nil, err
	}
	var entries []*models.LedgerEntry
	if err := window().Find(&entries).Error; err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := writeSheet(f, "Transactions", transactionHeadings, asRows(transactions, func(t *models.Transaction) ExcelExporter { return transactionRow{t} })); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "Expenses", expenseHeadings, asRows(expenses, func(e *models.Expense) ExcelExporter { return expenseRow{e} })); err != nil {
		return nil, err
	}
	if err := writeSheet(f, "LedgerEntries", ledgerEntryHeadings, asRows(entries, func(le *models.LedgerEntry) ExcelExporter { return ledgerEntryRow{le} })); err != nil {
		return nil, err
	}
	// the default sheet of a new workbook
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	return f, nil
}

func asRows[T any](records []T, wrap func(T) ExcelExporter) []ExcelExporter {
	rows := make([]ExcelExporter, 0, len(records))
	for _, r := range records {
		rows = append(rows, wrap(r))
	}
	return rows
}

func writeSheet(f *excelize.File, sheetName string, headings []string, data []ExcelExporter) error {
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}
	for i, h := range headings {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for rowNo, d := range data {
		for i, value := range d.GetCellValues() {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNo+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}
	return nil
}
