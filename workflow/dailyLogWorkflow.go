package workflow

import (
	"context"
	"time"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"gorm.io/gorm"
)

// GenerateDailyLog rolls up the bank's calendar day (bank timezone) into the
// (bank, date) daily log, overwriting an earlier run. A zero date means today.
// Balances are only read.
func GenerateDailyLog(ctx context.Context, bankId string, date time.Time) (*models.DailyLog, error) {
	performer := utils.GetPerformerFromContext(ctx)

	var result *models.DailyLog
	err := runLedgerOperation(ctx, bankId, "GenerateDailyLog", func(tx *gorm.DB) error {
		bank, err := models.FindBank(tx, bankId)
		if err != nil {
			return err
		}
		day := date
		if day.IsZero() {
			day, err = utils.ConvertToDate(time.Now(), bank.Timezone)
			if err != nil {
				return err
			}
		}
		start, end, err := utils.DayRange(day, bank.Timezone)
		if err != nil {
			return err
		}

		totals, err := models.SumDailyTotals(tx, bankId, start, end)
		if err != nil {
			return err
		}
		accounts, err := models.FindAccounts(tx, bankId, nil)
		if err != nil {
			return err
		}
		dailyLog, err := models.NewDailyLog(bankId, day, totals, accounts, performer)
		if err != nil {
			return err
		}
		result, err = models.UpsertDailyLog(tx, dailyLog)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
