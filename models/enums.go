package models

import (
	"encoding/json"
	"fmt"
)

type AccountKind string

const (
	AccountKindHandCash      AccountKind = "hand_cash"
	AccountKindMotherAccount AccountKind = "mother_account"
	AccountKindProfitAccount AccountKind = "profit_account"
)

func (k AccountKind) IsValid() bool {
	switch k {
	case AccountKindHandCash, AccountKindMotherAccount, AccountKindProfitAccount:
		return true
	}
	return false
}

// convert request input to enum type
func (k *AccountKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: account kind must be string", ErrInvalidInput)
	}
	v := AccountKind(s)
	if s != "" && !v.IsValid() {
		return fmt.Errorf("%w: invalid account kind %q", ErrInvalidInput, s)
	}
	*k = v
	return nil
}

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeCashIn     TransactionType = "cash_in"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypeWithdrawal, TransactionTypeCashIn:
		return true
	}
	return false
}

// LedgerReferenceType names the record a ledger entry was posted for.
type LedgerReferenceType string

const (
	LedgerReferenceTransaction    LedgerReferenceType = "transaction"
	LedgerReferenceExpense        LedgerReferenceType = "expense"
	LedgerReferenceOpeningBalance LedgerReferenceType = "opening_balance"
)

type LedgerAction string

const (
	// first posting of a record
	LedgerActionPost LedgerAction = "post"
	// net change caused by editing a record
	LedgerActionAdjust LedgerAction = "adjust"
)
