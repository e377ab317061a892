package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account holds every balance of a bank. Kind decides the variant:
// one hand_cash per bank (created with the bank, never deactivated),
// mother_account rows with a per-bank unique account number,
// profit_account rows with a free text description.
type Account struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	BankId              string          `gorm:"size:64;not null;index;uniqueIndex:idx_account_bank_number,priority:1" json:"bank_id"`
	Kind                AccountKind     `gorm:"type:enum('hand_cash','mother_account','profit_account');not null;index" json:"kind"`
	Name                string          `gorm:"size:100;not null" json:"name"`
	AccountNumber       *string         `gorm:"size:50;uniqueIndex:idx_account_bank_number,priority:2" json:"account_number"`
	Description         string          `gorm:"type:text" json:"description"`
	Balance             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	LowBalanceThreshold decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"low_balance_threshold"`
	IsActive            *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Account) Active() bool {
	return a.Kind == AccountKindHandCash || utils.DereferencePtr(a.IsActive, true)
}

type NewMotherAccount struct {
	Name                string           `json:"name" validate:"required,max=100"`
	AccountNumber       string           `json:"account_number" validate:"required,max=50"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
	OpeningBalance      *decimal.Decimal `json:"opening_balance"`
}

type NewProfitAccount struct {
	Name                string           `json:"name" validate:"required,max=100"`
	Description         string           `json:"description" validate:"max=1000"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
	OpeningBalance      *decimal.Decimal `json:"opening_balance"`
}

func validateThreshold(threshold *decimal.Decimal) error {
	if threshold == nil {
		return nil
	}
	if threshold.IsNegative() || !utils.HasMoneyScale(*threshold) {
		return fmt.Errorf("%w: low balance threshold must be a non-negative amount with at most 4 decimals", ErrInvalidInput)
	}
	return nil
}

func validateOpeningBalance(opening *decimal.Decimal) error {
	if opening == nil {
		return nil
	}
	if !utils.HasMoneyScale(*opening) {
		return fmt.Errorf("%w: opening balance has more than 4 decimals", ErrInvalidAmount)
	}
	return nil
}

func (input *NewMotherAccount) Validate() error {
	input.Name = strings.TrimSpace(input.Name)
	input.AccountNumber = strings.TrimSpace(input.AccountNumber)
	if err := utils.ValidateStruct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateThreshold(input.LowBalanceThreshold); err != nil {
		return err
	}
	return validateOpeningBalance(input.OpeningBalance)
}

func (input *NewProfitAccount) Validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateThreshold(input.LowBalanceThreshold); err != nil {
		return err
	}
	return validateOpeningBalance(input.OpeningBalance)
}

// NewMotherAccountRecord builds the row for a validated input. Balance starts at zero;
// an opening balance is posted through the ledger afterwards.
func NewMotherAccountRecord(bankId string, input *NewMotherAccount) *Account {
	number := input.AccountNumber
	return &Account{
		BankId:              bankId,
		Kind:                AccountKindMotherAccount,
		Name:                input.Name,
		AccountNumber:       &number,
		LowBalanceThreshold: utils.DereferencePtr(input.LowBalanceThreshold, decimal.Zero),
		IsActive:            utils.NewTrue(),
	}
}

func NewProfitAccountRecord(bankId string, input *NewProfitAccount) *Account {
	return &Account{
		BankId:              bankId,
		Kind:                AccountKindProfitAccount,
		Name:                input.Name,
		Description:         input.Description,
		LowBalanceThreshold: utils.DereferencePtr(input.LowBalanceThreshold, decimal.Zero),
		IsActive:            utils.NewTrue(),
	}
}

// InsertAccount creates a mother or profit account inside tx.
func InsertAccount(tx *gorm.DB, account *Account) error {
	if account.Kind == AccountKindHandCash {
		return fmt.Errorf("%w: hand cash is created with the bank", ErrInvalidInput)
	}
	if err := tx.Create(account).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateAccountNumber, utils.DereferencePtr(account.AccountNumber))
		}
		return err
	}
	return nil
}

type UpdateMotherAccountInput struct {
	Name                string           `json:"name" validate:"required,max=100"`
	AccountNumber       string           `json:"account_number" validate:"required,max=50"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
}

func UpdateMotherAccount(ctx context.Context, bankId string, id int, input *UpdateMotherAccountInput) (*Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.AccountNumber = strings.TrimSpace(input.AccountNumber)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateThreshold(input.LowBalanceThreshold); err != nil {
		return nil, err
	}
	account, err := GetAccountOfKind(ctx, bankId, id, AccountKindMotherAccount)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":           input.Name,
		"account_number": input.AccountNumber,
	}
	if input.LowBalanceThreshold != nil {
		updates["low_balance_threshold"] = *input.LowBalanceThreshold
	}
	return updateAccount(ctx, account, updates)
}

// ToggleActiveMotherAccount flips is_active. Deactivated mother accounts reject new
// operations but keep their history.
func ToggleActiveMotherAccount(ctx context.Context, bankId string, id int, isActive bool) (*Account, error) {
	account, err := GetAccountOfKind(ctx, bankId, id, AccountKindMotherAccount)
	if err != nil {
		return nil, err
	}
	return updateAccount(ctx, account, map[string]interface{}{"is_active": isActive})
}

type UpdateProfitAccountInput struct {
	Name                string           `json:"name" validate:"required,max=100"`
	Description         string           `json:"description" validate:"max=1000"`
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
}

func UpdateProfitAccount(ctx context.Context, bankId string, id int, input *UpdateProfitAccountInput) (*Account, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := validateThreshold(input.LowBalanceThreshold); err != nil {
		return nil, err
	}
	account, err := GetAccountOfKind(ctx, bankId, id, AccountKindProfitAccount)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"name":        input.Name,
		"description": input.Description,
	}
	if input.LowBalanceThreshold != nil {
		updates["low_balance_threshold"] = *input.LowBalanceThreshold
	}
	return updateAccount(ctx, account, updates)
}

func UpdateHandCashThreshold(ctx context.Context, bankId string, threshold decimal.Decimal) (*Account, error) {
	if err := validateThreshold(&threshold); err != nil {
		return nil, err
	}
	account, err := GetHandCash(config.GetDB().WithContext(ctx), bankId)
	if err != nil {
		return nil, err
	}
	return updateAccount(ctx, account, map[string]interface{}{"low_balance_threshold": threshold})
}

// updateAccount writes non-balance columns only. Balances change through ApplyDelta.
func updateAccount(ctx context.Context, account *Account, updates map[string]interface{}) (*Account, error) {
	if _, ok := updates["balance"]; ok {
		return nil, fmt.Errorf("%w: balance can only change through the ledger", ErrInvalidInput)
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateAccountNumber, updates["account_number"])
		}
		return nil, err
	}
	InvalidateAccountCache(account.BankId)
	return GetAccount(ctx, account.BankId, account.ID)
}

func GetAccount(ctx context.Context, bankId string, id int) (*Account, error) {
	account, err := utils.FetchModel[Account](ctx, bankId, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrAccountNotFound, id)
		}
		return nil, err
	}
	return account, nil
}

func GetAccountOfKind(ctx context.Context, bankId string, id int, kind AccountKind) (*Account, error) {
	account, err := GetAccount(ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if account.Kind != kind {
		return nil, fmt.Errorf("%w: account %d is not a %s", ErrAccountNotFound, id, kind)
	}
	return account, nil
}

func GetAccounts(ctx context.Context, bankId string, kind *AccountKind) ([]*Account, error) {
	return FindAccounts(config.GetDB().WithContext(ctx), bankId, kind)
}

// FindAccounts lists accounts of a bank through db, which may be a transaction.
func FindAccounts(db *gorm.DB, bankId string, kind *AccountKind) ([]*Account, error) {
	dbCtx := db.Where("bank_id = ?", bankId)
	if kind != nil {
		dbCtx = dbCtx.Where("kind = ?", *kind)
	}
	var results []*Account
	if err := dbCtx.Order("kind").Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetHandCash loads the bank's hand cash account using db (plain handle or tx).
func GetHandCash(db *gorm.DB, bankId string) (*Account, error) {
	var account Account
	err := db.Where("bank_id = ? AND kind = ?", bankId, AccountKindHandCash).Take(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: hand cash of bank %s", ErrAccountNotFound, bankId)
		}
		return nil, err
	}
	return &account, nil
}

func InvalidateAccountCache(bankId string) {
	if err := utils.RemoveRedisList[Account](bankId); err != nil {
		config.LogError(config.GetLogger(), "Account", "InvalidateAccountCache", "remove cached accounts", bankId, err)
	}
}
