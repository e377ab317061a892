package models

import (
	"context"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
)

type LowBalanceAlert struct {
	AccountId int             `json:"account_id"`
	Kind      AccountKind     `json:"kind"`
	Name      string          `json:"name"`
	Balance   decimal.Decimal `json:"balance"`
	Threshold decimal.Decimal `json:"threshold"`
}

// FindLowBalanceAccounts returns active accounts with a positive threshold and a
// balance strictly below it.
func FindLowBalanceAccounts(accounts []*Account) []LowBalanceAlert {
	alerts := []LowBalanceAlert{}
	for _, a := range accounts {
		if !a.Active() || !a.LowBalanceThreshold.IsPositive() {
			continue
		}
		if a.Balance.LessThan(a.LowBalanceThreshold) {
			alerts = append(alerts, LowBalanceAlert{
				AccountId: a.ID,
				Kind:      a.Kind,
				Name:      a.Name,
				Balance:   a.Balance,
				Threshold: a.LowBalanceThreshold,
			})
		}
	}
	return alerts
}

// GetLowBalanceAlerts is advisory and may read balances cached in redis.
func GetLowBalanceAlerts(ctx context.Context, bankId string) ([]LowBalanceAlert, error) {
	accounts, err := getCachedAccounts(ctx, bankId)
	if err != nil {
		return nil, err
	}
	return FindLowBalanceAccounts(accounts), nil
}

func getCachedAccounts(ctx context.Context, bankId string) ([]*Account, error) {
	logger := config.GetLogger()
	cached, err := utils.RetrieveRedisList[Account](bankId)
	if err != nil {
		config.LogError(logger, "Alerts", "getCachedAccounts", "read cached accounts", bankId, err)
	}
	if cached != nil {
		return cached, nil
	}
	accounts, err := GetAccounts(ctx, bankId, nil)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedisList(accounts, bankId); err != nil {
		config.LogError(logger, "Alerts", "getCachedAccounts", "cache accounts", bankId, err)
	}
	return accounts, nil
}
