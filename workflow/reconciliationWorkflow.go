package workflow

import (
	"context"
	"fmt"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReconciliationResult summarizes one VerifyLedger run.
type ReconciliationResult struct {
	CorrelationId   string                         `json:"correlation_id"`
	Consistent      bool                           `json:"consistent"`
	AccountsChecked int                            `json:"accounts_checked"`
	Findings        []*models.ReconciliationReport `json:"findings"`
}

// VerifyLedger checks every account balance against the sum of its ledger
// deltas and looks for records that were never posted. Findings are stored as
// reconciliation reports under one correlation id. Balances are only read, and
// all checks see the same snapshot.
func VerifyLedger(ctx context.Context, bankId string) (*ReconciliationResult, error) {
	cid, ok := utils.GetCorrelationIdFromContext(ctx)
	if !ok || cid == "" {
		cid = uuid.NewString()
	}

	var result *ReconciliationResult
	err := runLedgerOperation(ctx, bankId, "VerifyLedger", func(tx *gorm.DB) error {
		accounts, err := models.FindAccounts(tx, bankId, nil)
		if err != nil {
			return err
		}
		mismatches, err := models.FindBalanceMismatches(tx, bankId)
		if err != nil {
			return err
		}
		unposted, err := models.FindUnpostedRecords(tx, bankId)
		if err != nil {
			return err
		}

		findings := buildReconciliationReports(bankId, cid, mismatches, unposted)
		if err := models.InsertReconciliationReports(tx, findings); err != nil {
			return err
		}
		result = &ReconciliationResult{
			CorrelationId:   cid,
			Consistent:      len(findings) == 0,
			AccountsChecked: len(accounts),
			Findings:        findings,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	entry := config.GetLogger().WithFields(logrus.Fields{
		"field":          "VerifyLedger",
		"bank_id":        bankId,
		"correlation_id": cid,
		"accounts":       result.AccountsChecked,
		"findings":       len(result.Findings),
	})
	if result.Consistent {
		entry.Info("ledger verified")
	} else {
		entry.Warn("ledger drift detected")
	}
	return result, nil
}

func buildReconciliationReports(bankId, correlationId string, mismatches []models.BalanceMismatch, unposted []models.UnpostedRecord) []*models.ReconciliationReport {
	reports := make([]*models.ReconciliationReport, 0, len(mismatches)+len(unposted))
	for _, m := range mismatches {
		reports = append(reports, &models.ReconciliationReport{
			BankId:        bankId,
			CheckType:     models.ReconciliationCheckAccountBalance,
			EntityType:    string(m.Kind),
			EntityId:      m.AccountId,
			Expected:      m.LedgerTotal,
			Actual:        m.Balance,
			Details:       fmt.Sprintf("balance=%s != sum(ledger_entries.delta)=%s", m.Balance, m.LedgerTotal),
			CorrelationId: correlationId,
		})
	}
	for _, u := range unposted {
		reports = append(reports, &models.ReconciliationReport{
			BankId:        bankId,
			CheckType:     models.ReconciliationCheckUnposted,
			EntityType:    string(u.ReferenceType),
			EntityId:      u.ReferenceId,
			Expected:      u.Amount,
			Details:       fmt.Sprintf("%s %d has no ledger entries", u.ReferenceType, u.ReferenceId),
			CorrelationId: correlationId,
		})
	}
	return reports
}
