package workflow

import (
	"fmt"
	"strings"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

// CustomerInfo is the free-form metadata carried by deposits and withdrawals.
type CustomerInfo struct {
	CustomerName    string `json:"customer_name" validate:"max=255"`
	CustomerAccount string `json:"customer_account" validate:"max=50"`
	CustomerPhone   string `json:"customer_phone" validate:"max=30"`
	Reference       string `json:"reference" validate:"max=100"`
	Notes           string `json:"notes" validate:"max=2000"`
}

type DepositInput struct {
	MotherAccountId int              `json:"mother_account_id" validate:"required,gt=0"`
	Amount          decimal.Decimal  `json:"amount"`
	Commission      *decimal.Decimal `json:"commission"`
	ProfitAccountId *int             `json:"profit_account_id" validate:"omitempty,gt=0"`
	IdempotencyKey  string           `json:"idempotency_key" validate:"max=255"`
	CustomerInfo
}

type WithdrawalInput struct {
	MotherAccountId   int              `json:"mother_account_id" validate:"required,gt=0"`
	Amount            decimal.Decimal  `json:"amount"`
	ShortageAmount    *decimal.Decimal `json:"shortage_amount"`
	ShortageAccountId *int             `json:"shortage_account_id" validate:"omitempty,gt=0"`
	Commission        *decimal.Decimal `json:"commission"`
	ProfitAccountId   *int             `json:"profit_account_id" validate:"omitempty,gt=0"`
	IdempotencyKey    string           `json:"idempotency_key" validate:"max=255"`
	CustomerInfo
}

// HasShortage reports whether the request asks for the shortage variant.
func (input *WithdrawalInput) HasShortage() bool {
	return input.ShortageAmount != nil && !input.ShortageAmount.IsZero()
}

type CashInInput struct {
	TargetKind models.AccountKind `json:"target_kind"`
	TargetId   *int               `json:"target_id"`
	Amount     decimal.Decimal    `json:"amount"`
	Source     string             `json:"source" validate:"max=255"`
	Reference  string             `json:"reference" validate:"max=100"`
	Notes      string             `json:"notes" validate:"max=2000"`

	IdempotencyKey string `json:"idempotency_key" validate:"max=255"`
}

type ExpenseInput struct {
	CategoryId      int                `json:"category_id"`
	Amount          decimal.Decimal    `json:"amount"`
	DeductedFrom    models.AccountKind `json:"deducted_from"`
	SourceAccountId *int               `json:"source_account_id"`
	Description     string             `json:"description" validate:"max=2000"`
	ReceiptUrl      string             `json:"receipt_url" validate:"omitempty,url,max=500"`
	IdempotencyKey  string             `json:"idempotency_key" validate:"max=255"`
}

// EditTransactionInput changes the amount and/or metadata of a posted transaction.
// Nil fields keep their stored value.
type EditTransactionInput struct {
	Amount          *decimal.Decimal `json:"amount"`
	ShortageAmount  *decimal.Decimal `json:"shortage_amount"`
	Commission      *decimal.Decimal `json:"commission"`
	CustomerName    *string          `json:"customer_name" validate:"omitempty,max=255"`
	CustomerAccount *string          `json:"customer_account" validate:"omitempty,max=50"`
	CustomerPhone   *string          `json:"customer_phone" validate:"omitempty,max=30"`
	Source          *string          `json:"source" validate:"omitempty,max=255"`
	Reference       *string          `json:"reference" validate:"omitempty,max=100"`
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
}

type EditExpenseInput struct {
	Amount      *decimal.Decimal `json:"amount"`
	CategoryId  *int             `json:"category_id"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	ReceiptUrl  *string          `json:"receipt_url" validate:"omitempty,url,max=500"`
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", models.ErrInvalidAmount)
	}
	if !utils.HasMoneyScale(amount) {
		return fmt.Errorf("%w: amount needs at most 16 digits and 4 decimals", models.ErrInvalidAmount)
	}
	return nil
}

func validateCommission(commission *decimal.Decimal, profitAccountId *int) error {
	if commission == nil || commission.IsZero() {
		return nil
	}
	if commission.IsNegative() || !utils.HasMoneyScale(*commission) {
		return fmt.Errorf("%w: commission must be a non-negative amount with at most 16 digits and 4 decimals", models.ErrInvalidAmount)
	}
	if profitAccountId == nil {
		return fmt.Errorf("%w: profit_account_id is required when commission is set", models.ErrInvalidInput)
	}
	return nil
}

func validateShortage(shortage, amount decimal.Decimal) error {
	if !shortage.IsPositive() || shortage.GreaterThan(amount) || !utils.HasMoneyScale(shortage) {
		return fmt.Errorf("%w: shortage must be greater than zero and at most the amount", models.ErrInvalidShortageAmount)
	}
	return nil
}

func validatePhone(phone string) error {
	if strings.TrimSpace(phone) == "" {
		return nil
	}
	if err := utils.ValidatePhoneNumber(phone, config.GetLedgerSettings().PhoneRegion); err != nil {
		return fmt.Errorf("%w: customer_phone: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func validateFields(input any) error {
	if err := utils.ValidateStruct(input); err != nil {
		return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return nil
}

func (input *DepositInput) validate() error {
	if err := validateAmount(input.Amount); err != nil {
		return err
	}
	if err := validateFields(input); err != nil {
		return err
	}
	if err := validateCommission(input.Commission, input.ProfitAccountId); err != nil {
		return err
	}
	return validatePhone(input.CustomerPhone)
}

func (input *WithdrawalInput) validate(withShortage bool) error {
	if err := validateAmount(input.Amount); err != nil {
		return err
	}
	if err := validateFields(input); err != nil {
		return err
	}
	if withShortage {
		if input.ShortageAmount == nil {
			return fmt.Errorf("%w: shortage_amount is required", models.ErrInvalidShortageAmount)
		}
		if err := validateShortage(*input.ShortageAmount, input.Amount); err != nil {
			return err
		}
	} else if input.HasShortage() || input.ShortageAccountId != nil {
		return fmt.Errorf("%w: plain withdrawal cannot carry a shortage", models.ErrInvalidShortageAmount)
	}
	if err := validateCommission(input.Commission, input.ProfitAccountId); err != nil {
		return err
	}
	return validatePhone(input.CustomerPhone)
}

func (input *CashInInput) validate() error {
	if err := validateAmount(input.Amount); err != nil {
		return err
	}
	if !input.TargetKind.IsValid() {
		return fmt.Errorf("%w: unknown target kind %q", models.ErrInvalidTarget, input.TargetKind)
	}
	if input.TargetKind != models.AccountKindHandCash && (input.TargetId == nil || *input.TargetId <= 0) {
		return fmt.Errorf("%w: target_id is required for %s", models.ErrInvalidTarget, input.TargetKind)
	}
	return validateFields(input)
}

func (input *ExpenseInput) validate() error {
	if err := validateAmount(input.Amount); err != nil {
		return err
	}
	if input.CategoryId <= 0 {
		return fmt.Errorf("%w: category_id is required", models.ErrInvalidCategory)
	}
	if !input.DeductedFrom.IsValid() {
		return fmt.Errorf("%w: unknown deducted_from %q", models.ErrInvalidSource, input.DeductedFrom)
	}
	if input.DeductedFrom != models.AccountKindHandCash && (input.SourceAccountId == nil || *input.SourceAccountId <= 0) {
		return fmt.Errorf("%w: source_account_id is required for %s", models.ErrInvalidSource, input.DeductedFrom)
	}
	return validateFields(input)
}

// applyTransactionEdit returns the edited copy of stored. stored itself is not modified.
func applyTransactionEdit(stored *models.Transaction, input *EditTransactionInput) (*models.Transaction, error) {
	if err := validateFields(input); err != nil {
		return nil, err
	}
	updated := *stored

	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		updated.Amount = *input.Amount
	}

	if input.ShortageAmount != nil {
		if stored.Type != models.TransactionTypeWithdrawal {
			return nil, fmt.Errorf("%w: only withdrawals carry a shortage", models.ErrInvalidShortageAmount)
		}
		shortage := *input.ShortageAmount
		if !shortage.IsZero() {
			if err := validateShortage(shortage, updated.Amount); err != nil {
				return nil, err
			}
		}
		updated.ShortageAmount = shortage
	} else if updated.ShortageAmount.GreaterThan(updated.Amount) {
		// The new amount no longer covers the stored shortage.
		return nil, fmt.Errorf("%w: amount %s is below the stored shortage %s", models.ErrInvalidShortageAmount, updated.Amount, updated.ShortageAmount)
	}

	if input.Commission != nil {
		if stored.Type == models.TransactionTypeCashIn && !input.Commission.IsZero() {
			return nil, fmt.Errorf("%w: cash-in has no commission", models.ErrInvalidInput)
		}
		if err := validateCommission(input.Commission, stored.ProfitAccountId); err != nil {
			return nil, err
		}
		updated.Commission = *input.Commission
	}

	if input.CustomerName != nil {
		updated.CustomerName = *input.CustomerName
	}
	if input.CustomerAccount != nil {
		updated.CustomerAccount = *input.CustomerAccount
	}
	if input.CustomerPhone != nil {
		if err := validatePhone(*input.CustomerPhone); err != nil {
			return nil, err
		}
		updated.CustomerPhone = *input.CustomerPhone
	}
	if input.Source != nil {
		updated.Source = *input.Source
	}
	if input.Reference != nil {
		updated.Reference = *input.Reference
	}
	if input.Notes != nil {
		updated.Notes = *input.Notes
	}
	return &updated, nil
}

func applyExpenseEdit(stored *models.Expense, input *EditExpenseInput) (*models.Expense, error) {
	if err := validateFields(input); err != nil {
		return nil, err
	}
	updated := *stored
	if input.Amount != nil {
		if err := validateAmount(*input.Amount); err != nil {
			return nil, err
		}
		updated.Amount = *input.Amount
	}
	if input.CategoryId != nil {
		if *input.CategoryId <= 0 {
			return nil, fmt.Errorf("%w: category_id must be positive", models.ErrInvalidCategory)
		}
		updated.CategoryId = *input.CategoryId
	}
	if input.Description != nil {
		updated.Description = *input.Description
	}
	if input.ReceiptUrl != nil {
		updated.ReceiptUrl = *input.ReceiptUrl
	}
	return &updated, nil
}
