package workflow

import (
	"context"
	"fmt"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"gorm.io/gorm"
)

type ExpenseResult struct {
	Expense  *models.Expense  `json:"expense"`
	Balances []AccountBalance `json:"balances"`
	Replayed bool             `json:"replayed,omitempty"`
}

// RecordExpense: source -= amount, where the source is hand cash, a mother account
// or a profit account.
func RecordExpense(ctx context.Context, bankId string, input *ExpenseInput) (*ExpenseResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	performer := utils.GetPerformerFromContext(ctx)

	var result *ExpenseResult
	err := runLedgerOperation(ctx, bankId, "RecordExpense", func(tx *gorm.DB) error {
		claimed, previous, err := claimRequest(tx, bankId, idempotencyExpense, input.IdempotencyKey)
		if err != nil {
			return err
		}
		if previous != nil {
			stored, err := models.FindExpense(tx, bankId, previous.ReferenceId)
			if err != nil {
				return err
			}
			result = &ExpenseResult{Expense: stored, Balances: []AccountBalance{}, Replayed: true}
			return nil
		}

		if _, err := models.FindExpenseCategory(tx, bankId, input.CategoryId); err != nil {
			return err
		}
		sourceId, err := resolveExpenseSource(tx, bankId, input)
		if err != nil {
			return err
		}
		accounts, err := models.LockAccounts(tx, bankId, []int{sourceId})
		if err != nil {
			return err
		}
		if err := requireKind(accounts, sourceId, input.DeductedFrom, models.ErrInvalidSource); err != nil {
			return err
		}

		record := &models.Expense{
			BankId:          bankId,
			CategoryId:      input.CategoryId,
			Amount:          input.Amount,
			DeductedFrom:    input.DeductedFrom,
			SourceAccountId: sourceId,
			Description:     input.Description,
			ReceiptUrl:      input.ReceiptUrl,
			PerformedBy:     performer,
		}
		if err := models.InsertExpense(tx, record); err != nil {
			return err
		}
		balances, err := postDeltas(tx, bankId, netDeltas(nil, expenseEffects(record)), models.LedgerRef{
			Type:        models.LedgerReferenceExpense,
			Id:          record.ID,
			Action:      models.LedgerActionPost,
			PerformedBy: performer,
		})
		if err != nil {
			return err
		}
		result = &ExpenseResult{Expense: record, Balances: toAccountBalances(accounts, balances)}
		return completeRequest(tx, claimed, models.LedgerReferenceExpense, record.ID)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func resolveExpenseSource(tx *gorm.DB, bankId string, input *ExpenseInput) (int, error) {
	if input.DeductedFrom != models.AccountKindHandCash {
		return *input.SourceAccountId, nil
	}
	handCash, err := models.GetHandCash(tx, bankId)
	if err != nil {
		return 0, err
	}
	if input.SourceAccountId != nil && *input.SourceAccountId != handCash.ID {
		return 0, fmt.Errorf("%w: source_account_id %d is not the hand cash account", models.ErrInvalidSource, *input.SourceAccountId)
	}
	return handCash.ID, nil
}

// EditExpense reverses the stored effect and applies the edited amount in one unit.
func EditExpense(ctx context.Context, bankId string, id int, input *EditExpenseInput) (*ExpenseResult, error) {
	performer := utils.GetPerformerFromContext(ctx)

	var result *ExpenseResult
	err := runLedgerOperation(ctx, bankId, "EditExpense", func(tx *gorm.DB) error {
		stored, err := models.LockExpense(tx, bankId, id)
		if err != nil {
			return err
		}
		updated, err := applyExpenseEdit(stored, input)
		if err != nil {
			return err
		}
		if updated.CategoryId != stored.CategoryId {
			if _, err := models.FindExpenseCategory(tx, bankId, updated.CategoryId); err != nil {
				return err
			}
		}

		deltas := netDeltas(expenseEffects(stored), expenseEffects(updated))
		accounts, err := models.LockAccounts(tx, bankId, deltaAccountIds(deltas))
		if err != nil {
			return err
		}
		balances, err := postDeltas(tx, bankId, deltas, models.LedgerRef{
			Type:        models.LedgerReferenceExpense,
			Id:          stored.ID,
			Action:      models.LedgerActionAdjust,
			PerformedBy: performer,
		})
		if err != nil {
			return err
		}
		if err := models.UpdateExpenseRecord(tx, updated); err != nil {
			return err
		}
		result = &ExpenseResult{Expense: updated, Balances: toAccountBalances(accounts, balances)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
