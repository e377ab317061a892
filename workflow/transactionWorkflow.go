package workflow

import (
	"context"
	"fmt"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionResult is the committed transaction with the balances it produced.
type TransactionResult struct {
	Transaction *models.Transaction `json:"transaction"`
	Balances    []AccountBalance    `json:"balances"`
	// Replayed marks a response served from an earlier request with the same key.
	Replayed bool `json:"replayed,omitempty"`
}

// Deposit: hand cash += amount. The mother account is recorded for reporting only.
func Deposit(ctx context.Context, bankId string, input *DepositInput) (*TransactionResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	performer := utils.GetPerformerFromContext(ctx)

	var result *TransactionResult
	err := runLedgerOperation(ctx, bankId, "Deposit", func(tx *gorm.DB) error {
		motherId := input.MotherAccountId
		record := &models.Transaction{
			BankId:          bankId,
			Type:            models.TransactionTypeDeposit,
			Amount:          input.Amount,
			Commission:      utils.DereferencePtr(input.Commission, decimal.Zero),
			MotherAccountId: &motherId,
			ProfitAccountId: input.ProfitAccountId,
			CustomerName:    input.CustomerName,
			CustomerAccount: input.CustomerAccount,
			CustomerPhone:   input.CustomerPhone,
			Reference:       input.Reference,
			Notes:           input.Notes,
			PerformedBy:     performer,
		}
		var err error
		result, err = postTransactionOnce(tx, bankId, idempotencyDeposit, input.IdempotencyKey, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Withdrawal: hand cash -= amount. Sufficient hand cash is not enforced.
func Withdrawal(ctx context.Context, bankId string, input *WithdrawalInput) (*TransactionResult, error) {
	return withdraw(ctx, bankId, input, false)
}

// WithdrawalWithShortage: hand cash -= amount - shortage, the shortage account
// (default: the mother account) -= shortage. One withdrawal row carries the full amount.
func WithdrawalWithShortage(ctx context.Context, bankId string, input *WithdrawalInput) (*TransactionResult, error) {
	return withdraw(ctx, bankId, input, true)
}

func withdraw(ctx context.Context, bankId string, input *WithdrawalInput, withShortage bool) (*TransactionResult, error) {
	if err := input.validate(withShortage); err != nil {
		return nil, err
	}
	performer := utils.GetPerformerFromContext(ctx)
	name := "Withdrawal"
	if withShortage {
		name = "WithdrawalWithShortage"
	}

	var result *TransactionResult
	err := runLedgerOperation(ctx, bankId, name, func(tx *gorm.DB) error {
		motherId := input.MotherAccountId
		record := &models.Transaction{
			BankId:          bankId,
			Type:            models.TransactionTypeWithdrawal,
			Amount:          input.Amount,
			Commission:      utils.DereferencePtr(input.Commission, decimal.Zero),
			ShortageAmount:  decimal.Zero,
			MotherAccountId: &motherId,
			ProfitAccountId: input.ProfitAccountId,
			CustomerName:    input.CustomerName,
			CustomerAccount: input.CustomerAccount,
			CustomerPhone:   input.CustomerPhone,
			Reference:       input.Reference,
			Notes:           input.Notes,
			PerformedBy:     performer,
		}
		if withShortage {
			record.ShortageAmount = *input.ShortageAmount
			record.ShortageAccountId = input.ShortageAccountId
		}
		var err error
		result, err = postTransactionOnce(tx, bankId, idempotencyWithdrawal, input.IdempotencyKey, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CashIn: target += amount. target_id is resolved to the hand cash account for hand_cash.
func CashIn(ctx context.Context, bankId string, input *CashInInput) (*TransactionResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	performer := utils.GetPerformerFromContext(ctx)

	var result *TransactionResult
	err := runLedgerOperation(ctx, bankId, "CashIn", func(tx *gorm.DB) error {
		kind := input.TargetKind
		var targetId *int
		if input.TargetId != nil {
			id := *input.TargetId
			targetId = &id
		}
		record := &models.Transaction{
			BankId:          bankId,
			Type:            models.TransactionTypeCashIn,
			Amount:          input.Amount,
			TargetKind:      &kind,
			TargetAccountId: targetId,
			Source:          input.Source,
			Reference:       input.Reference,
			Notes:           input.Notes,
			PerformedBy:     performer,
		}
		var err error
		result, err = postTransactionOnce(tx, bankId, idempotencyCashIn, input.IdempotencyKey, record)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// EditTransaction reverses the stored effect, applies the edited one and saves the
// metadata in one unit. Only the net difference per account is posted, so editing
// to the same values twice leaves balances unchanged.
func EditTransaction(ctx context.Context, bankId string, id int, input *EditTransactionInput) (*TransactionResult, error) {
	performer := utils.GetPerformerFromContext(ctx)

	var result *TransactionResult
	err := runLedgerOperation(ctx, bankId, "EditTransaction", func(tx *gorm.DB) error {
		stored, err := models.LockTransaction(tx, bankId, id)
		if err != nil {
			return err
		}
		updated, err := applyTransactionEdit(stored, input)
		if err != nil {
			return err
		}
		handCash, err := models.GetHandCash(tx, bankId)
		if err != nil {
			return err
		}

		deltas := netDeltas(transactionEffects(stored, handCash.ID), transactionEffects(updated, handCash.ID))
		accounts, err := models.LockAccounts(tx, bankId, deltaAccountIds(deltas))
		if err != nil {
			return err
		}
		if err := checkNewlyAffectedAccounts(stored, updated, accounts); err != nil {
			return err
		}
		balances, err := postDeltas(tx, bankId, deltas, models.LedgerRef{
			Type:        models.LedgerReferenceTransaction,
			Id:          stored.ID,
			Action:      models.LedgerActionAdjust,
			PerformedBy: performer,
		})
		if err != nil {
			return err
		}
		if err := models.UpdateTransactionRecord(tx, updated); err != nil {
			return err
		}
		result = &TransactionResult{Transaction: updated, Balances: toAccountBalances(accounts, balances)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// postTransaction locks every account the record references in id order, checks
// them, inserts the record and applies its effect.
func postTransaction(tx *gorm.DB, bankId string, record *models.Transaction) (*TransactionResult, error) {
	handCash, err := models.GetHandCash(tx, bankId)
	if err != nil {
		return nil, err
	}
	if record.Type == models.TransactionTypeCashIn && record.TargetKind != nil && *record.TargetKind == models.AccountKindHandCash {
		if record.TargetAccountId != nil && *record.TargetAccountId != handCash.ID {
			return nil, fmt.Errorf("%w: target_id %d is not the hand cash account", models.ErrInvalidTarget, *record.TargetAccountId)
		}
		id := handCash.ID
		record.TargetAccountId = &id
	}

	deltas := netDeltas(nil, transactionEffects(record, handCash.ID))
	ids := append(referencedAccountIds(record), deltaAccountIds(deltas)...)
	accounts, err := models.LockAccounts(tx, bankId, ids)
	if err != nil {
		return nil, err
	}
	if err := checkTransactionAccounts(record, accounts); err != nil {
		return nil, err
	}

	if err := models.InsertTransaction(tx, record); err != nil {
		return nil, err
	}
	balances, err := postDeltas(tx, bankId, deltas, models.LedgerRef{
		Type:        models.LedgerReferenceTransaction,
		Id:          record.ID,
		Action:      models.LedgerActionPost,
		PerformedBy: record.PerformedBy,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionResult{Transaction: record, Balances: toAccountBalances(accounts, balances)}, nil
}

func referencedAccountIds(record *models.Transaction) []int {
	var ids []int
	for _, id := range []*int{record.MotherAccountId, record.ShortageAccountId, record.ProfitAccountId, record.TargetAccountId} {
		if id != nil {
			ids = append(ids, *id)
		}
	}
	return ids
}

func requireKind(accounts map[int]*models.Account, id int, kind models.AccountKind, kindErr error) error {
	account, ok := accounts[id]
	if !ok {
		return fmt.Errorf("%w: id=%d", models.ErrAccountNotFound, id)
	}
	if account.Kind != kind {
		return fmt.Errorf("%w: account %d is a %s, expected %s", kindErr, id, account.Kind, kind)
	}
	if !account.Active() {
		return fmt.Errorf("%w: account %d", models.ErrAccountInactive, id)
	}
	return nil
}

func checkTransactionAccounts(record *models.Transaction, accounts map[int]*models.Account) error {
	if record.MotherAccountId != nil {
		if err := requireKind(accounts, *record.MotherAccountId, models.AccountKindMotherAccount, models.ErrAccountNotFound); err != nil {
			return err
		}
	}
	if record.ShortageAccountId != nil {
		if err := requireKind(accounts, *record.ShortageAccountId, models.AccountKindMotherAccount, models.ErrInvalidShortageAmount); err != nil {
			return err
		}
	}
	if record.ProfitAccountId != nil {
		if err := requireKind(accounts, *record.ProfitAccountId, models.AccountKindProfitAccount, models.ErrAccountNotFound); err != nil {
			return err
		}
	}
	if record.Type == models.TransactionTypeCashIn {
		if record.TargetAccountId == nil || record.TargetKind == nil {
			return fmt.Errorf("%w: cash-in without target", models.ErrInvalidTarget)
		}
		if err := requireKind(accounts, *record.TargetAccountId, *record.TargetKind, models.ErrInvalidTarget); err != nil {
			return err
		}
	}
	return nil
}

// checkNewlyAffectedAccounts validates the accounts an edit starts posting to: the
// shortage account when a shortage is added and the profit account when a commission
// is added. Accounts the stored record already posts to are left as they are.
func checkNewlyAffectedAccounts(stored, updated *models.Transaction, accounts map[int]*models.Account) error {
	if updated.ShortageAmount.IsPositive() && !stored.ShortageAmount.IsPositive() {
		if err := requireKind(accounts, shortageAccountOf(updated), models.AccountKindMotherAccount, models.ErrInvalidShortageAmount); err != nil {
			return err
		}
	}
	if updated.ProfitAccountId != nil && updated.Commission.IsPositive() && !stored.Commission.IsPositive() {
		if err := requireKind(accounts, *updated.ProfitAccountId, models.AccountKindProfitAccount, models.ErrAccountNotFound); err != nil {
			return err
		}
	}
	return nil
}
