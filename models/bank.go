package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Bank is the tenant. Every other ledger row carries its id in bank_id.
type Bank struct {
	ID             uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name           string    `gorm:"index;size:255;not null" json:"name"`
	Currency       string    `gorm:"size:10;not null;default:'BDT'" json:"currency"`
	CurrencySymbol string    `gorm:"size:10" json:"currency_symbol"`
	Timezone       string    `gorm:"size:64;not null;default:'UTC'" json:"timezone"`
	OwnerId        string    `gorm:"index;size:64" json:"owner_id"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBank struct {
	Name           string `json:"name" validate:"required,max=255"`
	Currency       string `json:"currency" validate:"omitempty,max=10"`
	CurrencySymbol string `json:"currency_symbol" validate:"omitempty,max=10"`
	Timezone       string `json:"timezone" validate:"omitempty,timezone"`
}

func (input *NewBank) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// CreateBank creates the bank together with the owner membership of the caller, its
// single hand cash account and the default expense categories.
func CreateBank(ctx context.Context, input *NewBank) (*Bank, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	timezone := input.Timezone
	if timezone == "" {
		timezone = config.GetLedgerSettings().DefaultTimezone
	}
	currency := input.Currency
	if currency == "" {
		currency = "BDT"
	}

	bank := Bank{
		ID:             uuid.New(),
		Name:           input.Name,
		Currency:       currency,
		CurrencySymbol: input.CurrencySymbol,
		Timezone:       timezone,
		OwnerId:        utils.GetPerformerFromContext(ctx),
		IsActive:       utils.NewTrue(),
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Error; err != nil {
		return nil, err
	}

	if err := tx.Create(&bank).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	bankId := bank.ID.String()
	if err := createOwnerMembership(tx, bankId, bank.OwnerId); err != nil {
		tx.Rollback()
		return nil, err
	}

	handCash := Account{
		BankId:   bankId,
		Kind:     AccountKindHandCash,
		Name:     "Hand Cash",
		IsActive: utils.NewTrue(),
	}
	if err := tx.Create(&handCash).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := createDefaultExpenseCategories(tx, bankId); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &bank, nil
}

func UpdateBank(ctx context.Context, bankId string, input *NewBank) (*Bank, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	bank, err := GetBank(ctx, bankId)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":            input.Name,
		"currency_symbol": input.CurrencySymbol,
	}
	if input.Currency != "" {
		updates["currency"] = input.Currency
	}
	if input.Timezone != "" {
		updates["timezone"] = input.Timezone
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(bank).Updates(updates).Error; err != nil {
		return nil, err
	}
	return GetBank(ctx, bankId)
}

func GetBank(ctx context.Context, bankId string) (*Bank, error) {
	return FindBank(config.GetDB().WithContext(ctx), bankId)
}

// GetActiveBankIds lists every active bank, used by scheduled tools.
func GetActiveBankIds(ctx context.Context) ([]string, error) {
	var ids []string
	err := config.GetDB().WithContext(ctx).Model(&Bank{}).
		Where("is_active = ?", true).
		Order("created_at").
		Pluck("id", &ids).Error
	return ids, err
}

// FindBank loads a bank through db, which may be a transaction.
func FindBank(db *gorm.DB, bankId string) (*Bank, error) {
	id, err := uuid.Parse(bankId)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBankNotFound, bankId)
	}
	var bank Bank
	if err := db.Where("id = ?", id.String()).Take(&bank).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBankNotFound, bankId)
		}
		return nil, err
	}
	return &bank, nil
}

// LockBank takes the tenant-wide lock on the bank row. Business operations share it;
// backup, restore and reset take it exclusively so they wait for in-flight operations
// and block new ones until commit.
func LockBank(tx *gorm.DB, bankId string, exclusive bool) (*Bank, error) {
	strength := "SHARE"
	if exclusive {
		strength = "UPDATE"
	}
	return FindBank(tx.Clauses(clause.Locking{Strength: strength}), bankId)
}
