package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// LedgerSettings tunes the transaction engine. Every field has an env override.
type LedgerSettings struct {
	// MaxAttempts bounds how many times a conflicting operation is retried (LEDGER_MAX_ATTEMPTS).
	MaxAttempts int
	// LockWait is the InnoDB row lock wait per statement (LEDGER_LOCK_WAIT_SECONDS).
	LockWait time.Duration
	// OperationTimeout caps one attempt of a business operation (LEDGER_OP_TIMEOUT_SECONDS).
	OperationTimeout time.Duration
	// MaintenanceTimeout caps backup, restore and reset (LEDGER_MAINTENANCE_TIMEOUT_SECONDS).
	MaintenanceTimeout time.Duration
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	// BackupRetention is the number of backups kept per bank (BACKUP_RETENTION).
	BackupRetention int
	// BackupBucket mirrors backup blobs to GCS when set (BACKUP_GCS_BUCKET).
	BackupBucket    string
	DefaultTimezone string
	PhoneRegion     string
}

func GetLedgerSettings() LedgerSettings {
	return LedgerSettings{
		MaxAttempts:        intFromEnv("LEDGER_MAX_ATTEMPTS", 3),
		LockWait:           time.Duration(intFromEnv("LEDGER_LOCK_WAIT_SECONDS", 5)) * time.Second,
		OperationTimeout:   time.Duration(intFromEnv("LEDGER_OP_TIMEOUT_SECONDS", 15)) * time.Second,
		MaintenanceTimeout: time.Duration(intFromEnv("LEDGER_MAINTENANCE_TIMEOUT_SECONDS", 120)) * time.Second,
		BaseBackoff:        time.Duration(intFromEnv("LEDGER_RETRY_BASE_BACKOFF_MS", 50)) * time.Millisecond,
		MaxBackoff:         time.Duration(intFromEnv("LEDGER_RETRY_MAX_BACKOFF_MS", 1000)) * time.Millisecond,
		BackupRetention:    intFromEnv("BACKUP_RETENTION", 3),
		BackupBucket:       strings.TrimSpace(os.Getenv("BACKUP_GCS_BUCKET")),
		DefaultTimezone:    stringFromEnv("DEFAULT_TIMEZONE", "UTC"),
		PhoneRegion:        stringFromEnv("DEFAULT_PHONE_REGION", "BD"),
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvTrue reports whether an env flag is set to a truthy value.
func EnvTrue(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
