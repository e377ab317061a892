package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/google/uuid"
)

// Nightly drift check: balances against the ledger journal. Exits 3 when any
// bank has findings so the scheduler can alert.
func main() {
	bankID := flag.String("bank-id", "", "Optional: verify only one bank (uuid string). If empty, all active banks.")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	ctx := utils.SetUserIdInContext(context.Background(), "VerifyLedger")
	ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())

	bankIds := []string{strings.TrimSpace(*bankID)}
	if bankIds[0] == "" {
		ids, err := models.GetActiveBankIds(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list banks: %v\n", err)
			os.Exit(1)
		}
		bankIds = ids
	}

	failed, drifted := 0, 0
	for _, id := range bankIds {
		result, err := workflow.VerifyLedger(ctx, id)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "bank %s: verification failed: %v\n", id, err)
			continue
		}
		if !result.Consistent {
			drifted++
		}
		fmt.Printf("bank=%s accounts=%d findings=%d correlation_id=%s\n",
			id, result.AccountsChecked, len(result.Findings), result.CorrelationId)
		for _, f := range result.Findings {
			fmt.Printf("  %s %s#%d: %s\n", f.CheckType, f.EntityType, f.EntityId, f.Details)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
	if drifted > 0 {
		os.Exit(3)
	}
}
