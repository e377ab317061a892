package models

import (
	"context"
	"fmt"
	"sort"

	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// withoutTenantScope lets a lookup see rows of other banks so the caller can
// report TenantMismatch instead of a plain not-found.
func withoutTenantScope(tx *gorm.DB) *gorm.DB {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return tx.WithContext(utils.SetSkipTenantScopeInContext(ctx, true))
}

// LockAccounts row-locks the given accounts FOR UPDATE in ascending id order and checks
// they belong to bankId. Must run inside a transaction.
func LockAccounts(tx *gorm.DB, bankId string, ids []int) (map[int]*Account, error) {
	ids = utils.UniqueSlice(ids)
	sort.Ints(ids)
	result := make(map[int]*Account, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var rows []*Account
	err := withoutTenantScope(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ID] = row
	}
	for _, id := range ids {
		row, ok := result[id]
		if !ok {
			return nil, fmt.Errorf("%w: id=%d", ErrAccountNotFound, id)
		}
		if row.BankId != bankId {
			return nil, fmt.Errorf("%w: account %d", ErrTenantMismatch, id)
		}
	}
	return result, nil
}

// LockAccount is LockAccounts for a single id.
func LockAccount(tx *gorm.DB, bankId string, id int) (*Account, error) {
	accounts, err := LockAccounts(tx, bankId, []int{id})
	if err != nil {
		return nil, err
	}
	return accounts[id], nil
}

// ApplyDelta adds delta to the account balance inside the caller's transaction and
// journals it. Negative balances are allowed.
func ApplyDelta(tx *gorm.DB, bankId string, accountId int, delta decimal.Decimal, ref LedgerRef) (decimal.Decimal, error) {
	account, err := LockAccount(tx, bankId, accountId)
	if err != nil {
		return decimal.Zero, err
	}
	newBalance := account.Balance.Add(delta)

	err = tx.Model(&Account{}).
		Where("id = ? AND bank_id = ?", accountId, bankId).
		Update("balance", newBalance).Error
	if err != nil {
		return decimal.Zero, err
	}

	entry := LedgerEntry{
		BankId:        bankId,
		AccountId:     accountId,
		ReferenceType: ref.Type,
		ReferenceId:   ref.Id,
		Action:        ref.Action,
		Delta:         delta,
		BalanceAfter:  newBalance,
		PerformedBy:   ref.PerformedBy,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}
