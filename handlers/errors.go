package handlers

import (
	"errors"
	"net/http"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/gin-gonic/gin"
)

type errorKind struct {
	err    error
	code   string
	status int
}

// Order matters: the first kind the error wraps wins.
var errorKinds = []errorKind{
	{models.ErrInvalidInput, "InvalidInput", http.StatusBadRequest},
	{models.ErrInvalidAmount, "InvalidAmount", http.StatusUnprocessableEntity},
	{models.ErrInvalidShortageAmount, "InvalidShortageAmount", http.StatusUnprocessableEntity},
	{models.ErrInvalidTarget, "InvalidTarget", http.StatusUnprocessableEntity},
	{models.ErrInvalidCategory, "InvalidCategory", http.StatusUnprocessableEntity},
	{models.ErrInvalidSource, "InvalidSource", http.StatusUnprocessableEntity},
	{models.ErrAccountInactive, "AccountInactive", http.StatusUnprocessableEntity},
	{models.ErrUnsupportedBackup, "UnsupportedBackup", http.StatusUnprocessableEntity},
	{models.ErrAccountNotFound, "AccountNotFound", http.StatusNotFound},
	{models.ErrBankNotFound, "BankNotFound", http.StatusNotFound},
	{models.ErrRecordNotFound, "NotFound", http.StatusNotFound},
	{models.ErrTenantMismatch, "TenantMismatch", http.StatusForbidden},
	{models.ErrDuplicateAccountNumber, "DuplicateAccountNumber", http.StatusConflict},
	{models.ErrDuplicateCategory, "DuplicateCategory", http.StatusConflict},
	{models.ErrDuplicateMember, "DuplicateMember", http.StatusConflict},
	{models.ErrConcurrencyConflict, "ConcurrencyConflict", http.StatusConflict},
	{models.ErrRestoreInProgress, "RestoreInProgress", http.StatusLocked},
}

// errorStatus maps an engine error onto its HTTP status and stable code.
func errorStatus(err error) (int, string) {
	for _, kind := range errorKinds {
		if errors.Is(err, kind.err) {
			return kind.status, kind.code
		}
	}
	return http.StatusInternalServerError, "Internal"
}

func renderError(c *gin.Context, funcName string, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "Handlers", funcName, c.FullPath(), nil, err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error", "code": code})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "code": "InvalidInput"})
}
