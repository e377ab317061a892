package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/agentbank/ledger_backend/models"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestClassifyError(t *testing.T) {
	parent := context.Background()

	deadlock := fmt.Errorf("update account: %w", &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"})
	if err := classifyError(parent, deadlock); !errors.Is(err, models.ErrConcurrencyConflict) {
		t.Fatalf("deadlock: expected conflict, got %v", err)
	}
	lockWait := &mysqlDriver.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}
	if err := classifyError(parent, lockWait); !errors.Is(err, models.ErrConcurrencyConflict) {
		t.Fatalf("lock wait: expected conflict, got %v", err)
	}
	if err := classifyError(parent, context.DeadlineExceeded); !errors.Is(err, models.ErrConcurrencyConflict) {
		t.Fatalf("attempt timeout: expected conflict, got %v", err)
	}
	outOfRange := fmt.Errorf("apply delta: %w", &mysqlDriver.MySQLError{Number: 1264, Message: "Out of range value for column 'balance'"})
	if err := classifyError(parent, outOfRange); !errors.Is(err, models.ErrInvalidAmount) || models.IsRetryable(err) {
		t.Fatalf("out of range: expected ErrInvalidAmount, got %v", err)
	}
	if err := classifyError(parent, models.ErrInvalidAmount); !errors.Is(err, models.ErrInvalidAmount) || models.IsRetryable(err) {
		t.Fatalf("validation error must pass through unchanged, got %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := classifyError(cancelled, context.Canceled); models.IsRetryable(err) {
		t.Fatalf("caller cancellation must not be retried, got %v", err)
	}
}

func TestRetryBackoff(t *testing.T) {
	base := 10 * time.Millisecond
	maxBackoff := 50 * time.Millisecond
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond, 50 * time.Millisecond}
	for i, w := range want {
		if got := retryBackoff(i+1, base, maxBackoff); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
}

func TestRetryConflicts_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := retryConflicts(context.Background(), 3, time.Millisecond, time.Millisecond, func(attempt int) error {
		calls++
		if attempt < 3 {
			return models.ErrConcurrencyConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryConflicts_SurfacesConflictAfterMaxAttempts(t *testing.T) {
	calls := 0
	err := retryConflicts(context.Background(), 3, time.Millisecond, time.Millisecond, func(int) error {
		calls++
		return models.ErrConcurrencyConflict
	})
	if !errors.Is(err, models.ErrConcurrencyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetryConflicts_ValidationErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := retryConflicts(context.Background(), 5, time.Millisecond, time.Millisecond, func(int) error {
		calls++
		return models.ErrInvalidShortageAmount
	})
	if !errors.Is(err, models.ErrInvalidShortageAmount) || calls != 1 {
		t.Fatalf("expected one call with the validation error, got %d calls and %v", calls, err)
	}
}

// Two expenses of 50 against a balance of 100 must serialize on the row lock.
// The fake store below stands in for SELECT ... FOR UPDATE: each operation
// retries on a failed lock attempt exactly as runOperation does.
type fakeLockedStore struct {
	mu       sync.Mutex
	busy     bool
	balances map[int]int
}

func (s *fakeLockedStore) tryApply(accountId, delta int) error {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return models.ErrConcurrencyConflict
	}
	s.busy = true
	s.mu.Unlock()

	time.Sleep(time.Millisecond)

	s.mu.Lock()
	s.balances[accountId] += delta
	s.busy = false
	s.mu.Unlock()
	return nil
}

func TestConcurrentExpenses_NoLostUpdate(t *testing.T) {
	store := &fakeLockedStore{balances: map[int]int{handCashId: 100}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = retryConflicts(context.Background(), 50, time.Millisecond, 2*time.Millisecond, func(int) error {
				return store.tryApply(handCashId, -50)
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("expense %d failed: %v", i, err)
		}
	}
	if store.balances[handCashId] != 0 {
		t.Fatalf("expected balance 0, got %d", store.balances[handCashId])
	}
}
