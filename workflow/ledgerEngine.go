package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/agentbank/ledger_backend/workflow")

// AccountBalance is a balance as committed by an operation.
type AccountBalance struct {
	AccountId int                `json:"account_id"`
	Kind      models.AccountKind `json:"kind"`
	Balance   decimal.Decimal    `json:"balance"`
}

type operationOptions struct {
	name      string
	timeout   time.Duration
	lockWait  time.Duration
	exclusive bool
	// guard runs first inside every attempt, before the bank row lock.
	guard func(tx *gorm.DB) (release func(), err error)
}

// runLedgerOperation executes fn as one database transaction holding the shared
// tenant lock, retrying lock conflicts with backoff.
func runLedgerOperation(ctx context.Context, bankId string, name string, fn func(tx *gorm.DB) error) error {
	settings := config.GetLedgerSettings()
	return runOperation(ctx, bankId, settings, operationOptions{
		name:     name,
		timeout:  settings.OperationTimeout,
		lockWait: settings.LockWait,
	}, fn)
}

func runOperation(ctx context.Context, bankId string, settings config.LedgerSettings, opts operationOptions, fn func(tx *gorm.DB) error) error {
	ctx, span := tracer.Start(ctx, "ledger."+opts.name, trace.WithAttributes(
		attribute.String("bank.id", bankId),
		attribute.Bool("ledger.exclusive", opts.exclusive),
	))
	defer span.End()

	ctx = utils.SetBankIdInContext(ctx, bankId)
	logger := config.GetLogger()
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	err := retryConflicts(ctx, settings.MaxAttempts, settings.BaseBackoff, settings.MaxBackoff, func(attempt int) error {
		err := classifyError(ctx, runAttempt(ctx, bankId, opts, fn))
		if models.IsRetryable(err) {
			logger.WithFields(logrus.Fields{
				"bank_id":        bankId,
				"operation":      opts.name,
				"attempt":        attempt,
				"correlation_id": correlationId,
			}).Warn(err.Error())
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if !models.IsValidationError(err) {
			config.LogError(logger, "LedgerEngine", opts.name, "operation failed", logrus.Fields{
				"bank_id":        bankId,
				"correlation_id": correlationId,
			}, err)
		}
		return err
	}

	models.InvalidateAccountCache(bankId)
	return nil
}

func runAttempt(ctx context.Context, bankId string, opts operationOptions, fn func(tx *gorm.DB) error) error {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	db := config.GetDB()
	return db.WithContext(attemptCtx).Transaction(func(tx *gorm.DB) error {
		lockWait := max(int(opts.lockWait/time.Second), 1)
		if err := tx.Exec(fmt.Sprintf("SET innodb_lock_wait_timeout = %d", lockWait)).Error; err != nil {
			return err
		}
		// The variable lives on the pooled connection, so it goes back with the server default.
		defer resetLockWait(attemptCtx, tx)
		if opts.guard != nil {
			release, err := opts.guard(tx)
			if err != nil {
				return err
			}
			defer release()
		}
		if _, err := models.LockBank(tx, bankId, opts.exclusive); err != nil {
			return err
		}
		return fn(tx)
	})
}

func resetLockWait(ctx context.Context, tx *gorm.DB) {
	err := tx.WithContext(context.WithoutCancel(ctx)).Exec("SET innodb_lock_wait_timeout = DEFAULT").Error
	if err != nil {
		config.LogError(config.GetLogger(), "LedgerEngine", "resetLockWait", "restore innodb_lock_wait_timeout", nil, err)
	}
}

// postDeltas applies deltas in ascending account order and returns the new balances.
func postDeltas(tx *gorm.DB, bankId string, deltas []balanceDelta, ref models.LedgerRef) (map[int]decimal.Decimal, error) {
	balances := make(map[int]decimal.Decimal, len(deltas))
	for _, d := range deltas {
		newBalance, err := models.ApplyDelta(tx, bankId, d.AccountId, d.Amount, ref)
		if err != nil {
			return nil, err
		}
		balances[d.AccountId] = newBalance
	}
	return balances, nil
}

func toAccountBalances(accounts map[int]*models.Account, balances map[int]decimal.Decimal) []AccountBalance {
	result := make([]AccountBalance, 0, len(balances))
	for _, id := range sortedKeys(balances) {
		kind := models.AccountKind("")
		if a, ok := accounts[id]; ok {
			kind = a.Kind
		}
		result = append(result, AccountBalance{AccountId: id, Kind: kind, Balance: balances[id]})
	}
	return result
}
