package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/agentbank/ledger_backend/models"
)

// classifyError maps driver and context failures of one attempt onto ledger error kinds.
// parentCtx is the caller's context: when it is done the caller gave up and the
// error is returned as is, so the operation is not retried.
func classifyError(parentCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if models.IsRetryable(err) {
		return err
	}
	if models.IsLockConflictError(err) {
		return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
	}
	if models.IsOutOfRangeError(err) {
		return fmt.Errorf("%w: resulting balance is out of range", models.ErrInvalidAmount)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if parentErr := parentCtx.Err(); parentErr != nil {
			return parentErr
		}
		return fmt.Errorf("%w: attempt timed out", models.ErrConcurrencyConflict)
	}
	return err
}

func retryBackoff(attempt int, base, maxBackoff time.Duration) time.Duration {
	if attempt <= 1 {
		return base
	}
	exp := float64(attempt - 1)
	delay := time.Duration(float64(base) * math.Pow(2, exp))
	if delay > maxBackoff || delay <= 0 {
		return maxBackoff
	}
	return delay
}

// retryConflicts runs fn until it succeeds, fails with a non-retryable error, or
// maxAttempts is reached. Only ErrConcurrencyConflict is retried.
func retryConflicts(ctx context.Context, maxAttempts int, base, maxBackoff time.Duration, fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil || !models.IsRetryable(err) || attempt >= maxAttempts {
			return err
		}
		timer := time.NewTimer(retryBackoff(attempt, base, maxBackoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
