package models

import (
	"errors"

	"github.com/agentbank/ledger_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
)

// ErrRecordNotFound is shared with utils so FetchModel results compare equal.
var ErrRecordNotFound = utils.ErrorRecordNotFound

// Error kinds surfaced by the ledger. Call sites wrap them with context using %w.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrAccountNotFound        = errors.New("account not found")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrTenantMismatch         = errors.New("record belongs to another bank")
	ErrInvalidShortageAmount  = errors.New("invalid shortage amount")
	ErrInvalidTarget          = errors.New("invalid cash-in target")
	ErrInvalidCategory        = errors.New("invalid expense category")
	ErrInvalidSource          = errors.New("invalid expense source")
	ErrConcurrencyConflict    = errors.New("concurrency conflict, please retry")
	ErrRestoreInProgress      = errors.New("restore or reset already in progress")
	ErrBankNotFound           = errors.New("bank not found")
	ErrDuplicateAccountNumber = errors.New("account number already exists")
	ErrDuplicateCategory      = errors.New("expense category already exists")
	ErrDuplicateMember        = errors.New("user is already a member of the bank")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnsupportedBackup      = errors.New("unsupported backup schema")
)

// IsRetryable reports whether the whole operation may be retried as is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

// IsValidationError reports errors caused by the request itself.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrInvalidShortageAmount, ErrInvalidTarget, ErrInvalidCategory,
		ErrInvalidSource, ErrInvalidInput, ErrAccountInactive, ErrDuplicateAccountNumber,
		ErrDuplicateCategory, ErrDuplicateMember, ErrUnsupportedBackup,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func mysqlErrorNumber(err error) uint16 {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}

func IsDuplicateKeyError(err error) bool {
	return mysqlErrorNumber(err) == 1062
}

// IsOutOfRangeError matches a value that does not fit its column (1264), such as
// a balance pushed past decimal(20,4).
func IsOutOfRangeError(err error) bool {
	return mysqlErrorNumber(err) == 1264
}

// IsLockConflictError matches InnoDB deadlock (1213) and lock wait timeout (1205).
func IsLockConflictError(err error) bool {
	n := mysqlErrorNumber(err)
	return n == 1213 || n == 1205
}
