package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"gorm.io/gorm"
)

type ExpenseCategory struct {
	ID        int       `gorm:"primary_key" json:"id"`
	BankId    string    `gorm:"size:64;not null;uniqueIndex:idx_category_bank_name,priority:1" json:"bank_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_category_bank_name,priority:2" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

var DefaultExpenseCategories = []string{
	"Office Stationery",
	"Paper Cost",
	"Ink",
	"Printer Cartridge",
	"Furniture",
	"Advertisements",
	"Electricity Bill",
	"Room Rent",
	"Internet Bill",
	"Other",
}

func createDefaultExpenseCategories(tx *gorm.DB, bankId string) error {
	categories := make([]ExpenseCategory, 0, len(DefaultExpenseCategories))
	for _, name := range DefaultExpenseCategories {
		categories = append(categories, ExpenseCategory{BankId: bankId, Name: name})
	}
	return tx.Create(&categories).Error
}

type NewExpenseCategory struct {
	Name string `json:"name" validate:"required,max=100"`
}

func CreateExpenseCategory(ctx context.Context, bankId string, input *NewExpenseCategory) (*ExpenseCategory, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := utils.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	category := ExpenseCategory{BankId: bankId, Name: input.Name}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&category).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCategory, input.Name)
		}
		return nil, err
	}
	return &category, nil
}

func GetExpenseCategories(ctx context.Context, bankId string) ([]*ExpenseCategory, error) {
	return utils.FetchAllModels[ExpenseCategory](ctx, bankId, "name")
}

// FindExpenseCategory resolves a category for an expense of bankId.
// Unknown ids and ids of other banks are both InvalidCategory.
func FindExpenseCategory(tx *gorm.DB, bankId string, id int) (*ExpenseCategory, error) {
	var category ExpenseCategory
	err := tx.Where("id = ? AND bank_id = ?", id, bankId).Take(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrInvalidCategory, id)
		}
		return nil, err
	}
	return &category, nil
}
