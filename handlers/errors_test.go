package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/agentbank/ledger_backend/models"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: amount must be greater than zero", models.ErrInvalidAmount), http.StatusUnprocessableEntity, "InvalidAmount"},
		{fmt.Errorf("%w: id=4", models.ErrAccountNotFound), http.StatusNotFound, "AccountNotFound"},
		{fmt.Errorf("transaction 9: %w", models.ErrRecordNotFound), http.StatusNotFound, "NotFound"},
		{fmt.Errorf("%w: account 3", models.ErrTenantMismatch), http.StatusForbidden, "TenantMismatch"},
		{fmt.Errorf("%w: attempt timed out", models.ErrConcurrencyConflict), http.StatusConflict, "ConcurrencyConflict"},
		{models.ErrRestoreInProgress, http.StatusLocked, "RestoreInProgress"},
		{fmt.Errorf("%w: u1", models.ErrDuplicateMember), http.StatusConflict, "DuplicateMember"},
		{fmt.Errorf("%w: accounts collide with existing rows", models.ErrUnsupportedBackup), http.StatusUnprocessableEntity, "UnsupportedBackup"},
		{fmt.Errorf("%w: Name: required", models.ErrInvalidInput), http.StatusBadRequest, "InvalidInput"},
		{errors.New("connection refused"), http.StatusInternalServerError, "Internal"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		if status != tc.status || code != tc.code {
			t.Errorf("%v: expected %d/%s, got %d/%s", tc.err, tc.status, tc.code, status, code)
		}
	}
}
