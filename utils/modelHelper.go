package utils

import (
	"context"
	"errors"

	"github.com/agentbank/ledger_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (bank_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, bankId string, id int, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("bank_id = ?", bankId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// fetch all models of a bank
func FetchAllModels[T any](ctx context.Context, bankId string, order string) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("bank_id = ?", bankId)
	if order != "" {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	if err := dbCtx.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
