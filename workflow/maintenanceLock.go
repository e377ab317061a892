package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/bsm/redislock"
	"gorm.io/gorm"
)

func maintenanceLockKey(bankId string) string {
	return fmt.Sprintf("maintenance:%s", bankId)
}

// runMaintenanceOperation runs backup, restore and reset. Only one may run per bank;
// a second one fails fast with ErrRestoreInProgress. The bank row is locked
// exclusively so no business operation commits meanwhile.
func runMaintenanceOperation(ctx context.Context, bankId string, name string, fn func(tx *gorm.DB) error) error {
	settings := config.GetLedgerSettings()
	logger := config.GetLogger()
	opts := operationOptions{
		name:      name,
		timeout:   settings.MaintenanceTimeout,
		lockWait:  settings.MaintenanceTimeout,
		exclusive: true,
	}

	lock, err := obtainMaintenanceLock(ctx, bankId, settings)
	switch {
	case errors.Is(err, models.ErrRestoreInProgress):
		return err
	case err != nil:
		// Redis unavailable: serialize through the database instead.
		config.LogError(logger, "Maintenance", name, "redis lock unavailable, using GET_LOCK", bankId, err)
		opts.guard = advisoryMaintenanceGuard(bankId)
	case lock == nil:
		opts.guard = advisoryMaintenanceGuard(bankId)
	default:
		defer func() {
			if rerr := lock.Release(context.Background()); rerr != nil && !errors.Is(rerr, redislock.ErrLockNotHeld) {
				config.LogError(logger, "Maintenance", name, "release redis lock", bankId, rerr)
			}
		}()
	}

	return runOperation(ctx, bankId, settings, opts, fn)
}

// obtainMaintenanceLock returns nil, nil when redis is not configured.
func obtainMaintenanceLock(ctx context.Context, bankId string, settings config.LedgerSettings) (*redislock.Lock, error) {
	locker := config.GetRedisLock()
	if locker == nil {
		return nil, nil
	}
	ttl := settings.MaintenanceTimeout*time.Duration(settings.MaxAttempts) + 30*time.Second
	lock, err := locker.Obtain(ctx, maintenanceLockKey(bankId), ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, fmt.Errorf("%w: bank %s", models.ErrRestoreInProgress, bankId)
	}
	if err != nil {
		return nil, err
	}
	return lock, nil
}

// advisoryMaintenanceGuard takes a MySQL advisory lock on the attempt's connection
// when redis is not available.
func advisoryMaintenanceGuard(bankId string) func(tx *gorm.DB) (func(), error) {
	return func(tx *gorm.DB) (func(), error) {
		lockName := maintenanceLockKey(bankId)
		ok, err := acquireAdvisoryLock(tx, lockName, 0)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: bank %s", models.ErrRestoreInProgress, bankId)
		}
		return func() { releaseAdvisoryLock(tx, lockName) }, nil
	}
}
