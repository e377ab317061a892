package workflow

import (
	"context"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func CreateMotherAccount(ctx context.Context, bankId string, input *models.NewMotherAccount) (*models.Account, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return createAccount(ctx, bankId, "CreateMotherAccount", input.OpeningBalance, func() *models.Account {
		return models.NewMotherAccountRecord(bankId, input)
	})
}

func CreateProfitAccount(ctx context.Context, bankId string, input *models.NewProfitAccount) (*models.Account, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return createAccount(ctx, bankId, "CreateProfitAccount", input.OpeningBalance, func() *models.Account {
		return models.NewProfitAccountRecord(bankId, input)
	})
}

// createAccount inserts the account with a zero balance and posts any opening
// balance as an opening_balance ledger entry.
func createAccount(ctx context.Context, bankId string, name string, opening *decimal.Decimal, build func() *models.Account) (*models.Account, error) {
	performer := utils.GetPerformerFromContext(ctx)

	var result *models.Account
	err := runLedgerOperation(ctx, bankId, name, func(tx *gorm.DB) error {
		account := build()
		if err := models.InsertAccount(tx, account); err != nil {
			return err
		}
		if opening != nil && !opening.IsZero() {
			balance, err := models.ApplyDelta(tx, bankId, account.ID, *opening, models.LedgerRef{
				Type:        models.LedgerReferenceOpeningBalance,
				Id:          account.ID,
				Action:      models.LedgerActionPost,
				PerformedBy: performer,
			})
			if err != nil {
				return err
			}
			account.Balance = balance
		}
		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
