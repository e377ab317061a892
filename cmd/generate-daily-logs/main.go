package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/agentbank/ledger_backend/workflow"
)

// Scheduled end-of-day snapshot. Safe to re-run: a day is overwritten, never duplicated.
func main() {
	bankID := flag.String("bank-id", "", "Optional: generate only for one bank (uuid string). If empty, all active banks.")
	date := flag.String("date", "", "Optional: calendar day (YYYY-MM-DD) in each bank's timezone. Defaults to today.")
	flag.Parse()

	var day time.Time
	if strings.TrimSpace(*date) != "" {
		parsed, err := utils.ParseDate(*date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -date: %v\n", err)
			os.Exit(2)
		}
		day = parsed
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetUserIdInContext(context.Background(), "GenerateDailyLogs")

	bankIds := []string{strings.TrimSpace(*bankID)}
	if bankIds[0] == "" {
		ids, err := models.GetActiveBankIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list banks: %v\n", err)
			os.Exit(1)
		}
		bankIds = ids
	}
	if len(bankIds) == 0 {
		fmt.Fprintln(os.Stderr, "no banks found")
		return
	}

	failed := 0
	for _, id := range bankIds {
		dailyLog, err := workflow.GenerateDailyLog(ctx, id, day)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "bank %s: daily log failed: %v\n", id, err)
			continue
		}
		fmt.Printf("bank=%s date=%s deposits=%s withdrawals=%s cash_in=%s expenses=%s hand_cash=%s\n",
			id, time.Time(dailyLog.LogDate).Format("2006-01-02"),
			dailyLog.TotalDeposits, dailyLog.TotalWithdrawals, dailyLog.TotalCashIn,
			dailyLog.TotalExpenses, dailyLog.HandCashBalance)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
