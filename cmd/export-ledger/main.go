package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/models/reports"
	"github.com/agentbank/ledger_backend/utils"
)

func main() {
	bankID := flag.String("bank-id", "", "Bank to export (uuid string).")
	from := flag.String("from", "", "First day (YYYY-MM-DD) in the bank timezone.")
	to := flag.String("to", "", "Last day (YYYY-MM-DD), inclusive. Defaults to -from.")
	out := flag.String("out", "ledger.xlsx", "Output file.")
	flag.Parse()

	if strings.TrimSpace(*bankID) == "" || strings.TrimSpace(*from) == "" {
		fmt.Fprintln(os.Stderr, "-bank-id and -from are required")
		os.Exit(2)
	}
	if strings.TrimSpace(*to) == "" {
		*to = *from
	}
	fromDate, err := utils.ParseDate(*from)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from: %v\n", err)
		os.Exit(2)
	}
	toDate, err := utils.ParseDate(*to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -to: %v\n", err)
		os.Exit(2)
	}

	config.ConnectDatabaseWithRetry()
	ctx := context.Background()

	bank, err := models.GetBank(ctx, *bankID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bank %s: %v\n", *bankID, err)
		os.Exit(1)
	}
	start, _, err := utils.DayRange(fromDate, bank.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timezone %s: %v\n", bank.Timezone, err)
		os.Exit(1)
	}
	_, end, err := utils.DayRange(toDate, bank.Timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "timezone %s: %v\n", bank.Timezone, err)
		os.Exit(1)
	}

	f, err := reports.BuildLedgerWorkbook(ctx, bank.ID.String(), start, end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	if err := f.SaveAs(*out); err != nil {
		fmt.Fprintf(os.Stderr, "save %s: %v\n", *out, err)
		os.Exit(1)
	}
	fmt.Printf("exported bank=%s from=%s to=%s -> %s\n", bank.ID, *from, *to, *out)
}
