package workflow

import (
	"fmt"

	"github.com/agentbank/ledger_backend/models"
	"gorm.io/gorm"
)

// Request keys are scoped per operation, so the same key may be reused for a
// deposit and an expense without colliding.
const (
	idempotencyDeposit    = "deposit"
	idempotencyWithdrawal = "withdrawal"
	idempotencyCashIn     = "cash_in"
	idempotencyExpense    = "expense"
)

// claimRequest claims requestKey inside tx. An empty key claims nothing.
// When the key was committed before, previous carries the record it produced.
func claimRequest(tx *gorm.DB, bankId, operation, requestKey string) (claimed, previous *models.IdempotencyKey, err error) {
	if requestKey == "" {
		return nil, nil, nil
	}
	claimed, previous, err = models.ClaimIdempotencyKey(tx, bankId, operation, requestKey)
	if err != nil {
		return nil, nil, err
	}
	if previous != nil && previous.ReferenceId == 0 {
		return nil, nil, fmt.Errorf("%w: request key %q has no record", models.ErrConcurrencyConflict, requestKey)
	}
	return claimed, previous, nil
}

func completeRequest(tx *gorm.DB, claimed *models.IdempotencyKey, referenceType models.LedgerReferenceType, referenceId int) error {
	if claimed == nil {
		return nil
	}
	return claimed.Complete(tx, referenceType, referenceId)
}

// postTransactionOnce posts record unless requestKey already produced a
// transaction, in which case that transaction is returned unchanged.
func postTransactionOnce(tx *gorm.DB, bankId, operation, requestKey string, record *models.Transaction) (*TransactionResult, error) {
	claimed, previous, err := claimRequest(tx, bankId, operation, requestKey)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		stored, err := models.FindTransaction(tx, bankId, previous.ReferenceId)
		if err != nil {
			return nil, err
		}
		return &TransactionResult{Transaction: stored, Balances: []AccountBalance{}, Replayed: true}, nil
	}

	result, err := postTransaction(tx, bankId, record)
	if err != nil {
		return nil, err
	}
	if err := completeRequest(tx, claimed, models.LedgerReferenceTransaction, result.Transaction.ID); err != nil {
		return nil, err
	}
	return result, nil
}
