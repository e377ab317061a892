package workflow

import (
	"errors"
	"testing"

	"github.com/agentbank/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDepositInputValidate(t *testing.T) {
	cases := []struct {
		name  string
		input DepositInput
		want  error
	}{
		{"zero amount", DepositInput{MotherAccountId: 1, Amount: dec("0")}, models.ErrInvalidAmount},
		{"negative amount", DepositInput{MotherAccountId: 1, Amount: dec("-5")}, models.ErrInvalidAmount},
		{"too many decimals", DepositInput{MotherAccountId: 1, Amount: dec("1.00001")}, models.ErrInvalidAmount},
		{"more than 16 integer digits", DepositInput{MotherAccountId: 1, Amount: dec("123456789012345678901")}, models.ErrInvalidAmount},
		{"oversized commission", DepositInput{MotherAccountId: 1, Amount: dec("10"), Commission: decPtr("10000000000000000"), ProfitAccountId: intPtr(2)}, models.ErrInvalidAmount},
		{"largest storable amount", DepositInput{MotherAccountId: 1, Amount: dec("9999999999999999.9999")}, nil},
		{"missing mother account", DepositInput{Amount: dec("10")}, models.ErrInvalidInput},
		{"commission without profit account", DepositInput{MotherAccountId: 1, Amount: dec("10"), Commission: decPtr("1")}, models.ErrInvalidInput},
		{"negative commission", DepositInput{MotherAccountId: 1, Amount: dec("10"), Commission: decPtr("-1"), ProfitAccountId: intPtr(2)}, models.ErrInvalidAmount},
		{"ok", DepositInput{MotherAccountId: 1, Amount: dec("10.1234"), Commission: decPtr("0.5"), ProfitAccountId: intPtr(2)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.input.validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestWithdrawalInputValidate_Shortage(t *testing.T) {
	base := WithdrawalInput{MotherAccountId: 1, Amount: dec("800")}

	withShortage := base
	withShortage.ShortageAmount = decPtr("500")
	if err := withShortage.validate(true); err != nil {
		t.Fatalf("valid shortage rejected: %v", err)
	}

	equal := base
	equal.ShortageAmount = decPtr("800")
	if err := equal.validate(true); err != nil {
		t.Fatalf("shortage equal to amount rejected: %v", err)
	}

	for _, s := range []string{"0", "-1", "800.0001"} {
		bad := base
		bad.ShortageAmount = decPtr(s)
		if err := bad.validate(true); !errors.Is(err, models.ErrInvalidShortageAmount) {
			t.Fatalf("shortage %s: expected ErrInvalidShortageAmount, got %v", s, err)
		}
	}

	missing := base
	if err := missing.validate(true); !errors.Is(err, models.ErrInvalidShortageAmount) {
		t.Fatalf("missing shortage: expected ErrInvalidShortageAmount, got %v", err)
	}

	plainWithShortage := withShortage
	if err := plainWithShortage.validate(false); !errors.Is(err, models.ErrInvalidShortageAmount) {
		t.Fatalf("plain withdrawal with shortage: expected ErrInvalidShortageAmount, got %v", err)
	}
}

func TestCashInInputValidate(t *testing.T) {
	if err := (&CashInInput{TargetKind: "vault", Amount: dec("1")}).validate(); !errors.Is(err, models.ErrInvalidTarget) {
		t.Fatalf("unknown kind: got %v", err)
	}
	if err := (&CashInInput{TargetKind: models.AccountKindMotherAccount, Amount: dec("1")}).validate(); !errors.Is(err, models.ErrInvalidTarget) {
		t.Fatalf("missing target id: got %v", err)
	}
	if err := (&CashInInput{TargetKind: models.AccountKindHandCash, Amount: dec("1")}).validate(); err != nil {
		t.Fatalf("hand cash target: %v", err)
	}
}

func TestExpenseInputValidate(t *testing.T) {
	if err := (&ExpenseInput{Amount: dec("1"), DeductedFrom: models.AccountKindHandCash}).validate(); !errors.Is(err, models.ErrInvalidCategory) {
		t.Fatalf("missing category: got %v", err)
	}
	if err := (&ExpenseInput{CategoryId: 1, Amount: dec("1"), DeductedFrom: "wallet"}).validate(); !errors.Is(err, models.ErrInvalidSource) {
		t.Fatalf("bad source: got %v", err)
	}
	if err := (&ExpenseInput{CategoryId: 1, Amount: dec("1"), DeductedFrom: models.AccountKindProfitAccount}).validate(); !errors.Is(err, models.ErrInvalidSource) {
		t.Fatalf("missing source id: got %v", err)
	}
	if err := (&ExpenseInput{CategoryId: 1, Amount: dec("1"), DeductedFrom: models.AccountKindHandCash, ReceiptUrl: "not a url"}).validate(); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("bad receipt url: got %v", err)
	}
}

func TestApplyTransactionEdit(t *testing.T) {
	stored := &models.Transaction{
		ID:              7,
		Type:            models.TransactionTypeWithdrawal,
		Amount:          dec("800"),
		ShortageAmount:  dec("500"),
		MotherAccountId: intPtr(motherA),
		Notes:           "old",
	}

	t.Run("amount below stored shortage", func(t *testing.T) {
		_, err := applyTransactionEdit(stored, &EditTransactionInput{Amount: decPtr("400")})
		if !errors.Is(err, models.ErrInvalidShortageAmount) {
			t.Fatalf("expected ErrInvalidShortageAmount, got %v", err)
		}
	})

	t.Run("amount and shortage together", func(t *testing.T) {
		notes := "new"
		updated, err := applyTransactionEdit(stored, &EditTransactionInput{Amount: decPtr("400"), ShortageAmount: decPtr("100"), Notes: &notes})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.Amount.Equal(dec("400")) || !updated.ShortageAmount.Equal(dec("100")) || updated.Notes != "new" {
			t.Fatalf("unexpected result %+v", updated)
		}
		if !stored.Amount.Equal(dec("800")) || stored.Notes != "old" {
			t.Fatalf("stored record was modified")
		}
	})

	t.Run("clearing the shortage", func(t *testing.T) {
		updated, err := applyTransactionEdit(stored, &EditTransactionInput{ShortageAmount: decPtr("0")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !updated.ShortageAmount.IsZero() {
			t.Fatalf("shortage not cleared: %s", updated.ShortageAmount)
		}
	})

	t.Run("shortage on deposit", func(t *testing.T) {
		deposit := &models.Transaction{Type: models.TransactionTypeDeposit, Amount: dec("10")}
		_, err := applyTransactionEdit(deposit, &EditTransactionInput{ShortageAmount: decPtr("1")})
		if !errors.Is(err, models.ErrInvalidShortageAmount) {
			t.Fatalf("expected ErrInvalidShortageAmount, got %v", err)
		}
	})

	t.Run("invalid amount", func(t *testing.T) {
		_, err := applyTransactionEdit(stored, &EditTransactionInput{Amount: decPtr("0")})
		if !errors.Is(err, models.ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount, got %v", err)
		}
	})
}

func TestApplyExpenseEdit(t *testing.T) {
	stored := &models.Expense{ID: 3, CategoryId: 1, Amount: dec("50"), SourceAccountId: handCashId}
	updated, err := applyExpenseEdit(stored, &EditExpenseInput{Amount: decPtr("75"), CategoryId: intPtr(2)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.Amount.Equal(dec("75")) || updated.CategoryId != 2 || updated.SourceAccountId != handCashId {
		t.Fatalf("unexpected result %+v", updated)
	}
	if _, err := applyExpenseEdit(stored, &EditExpenseInput{CategoryId: intPtr(0)}); !errors.Is(err, models.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCheckTransactionAccounts(t *testing.T) {
	inactive := false
	accounts := map[int]*models.Account{
		handCashId: {ID: handCashId, Kind: models.AccountKindHandCash},
		motherA:    {ID: motherA, Kind: models.AccountKindMotherAccount},
		motherB:    {ID: motherB, Kind: models.AccountKindMotherAccount, IsActive: &inactive},
		profitId:   {ID: profitId, Kind: models.AccountKindProfitAccount},
	}

	ok := &models.Transaction{Type: models.TransactionTypeDeposit, MotherAccountId: intPtr(motherA), ProfitAccountId: intPtr(profitId)}
	if err := checkTransactionAccounts(ok, accounts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inactiveMother := &models.Transaction{Type: models.TransactionTypeDeposit, MotherAccountId: intPtr(motherB)}
	if err := checkTransactionAccounts(inactiveMother, accounts); !errors.Is(err, models.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}

	missing := &models.Transaction{Type: models.TransactionTypeDeposit, MotherAccountId: intPtr(99)}
	if err := checkTransactionAccounts(missing, accounts); !errors.Is(err, models.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	kind := models.AccountKindMotherAccount
	wrongTarget := &models.Transaction{Type: models.TransactionTypeCashIn, TargetKind: &kind, TargetAccountId: intPtr(profitId)}
	if err := checkTransactionAccounts(wrongTarget, accounts); !errors.Is(err, models.ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
}

func TestCheckNewlyAffectedAccounts(t *testing.T) {
	inactive := false
	accounts := map[int]*models.Account{
		handCashId: {ID: handCashId, Kind: models.AccountKindHandCash},
		motherB:    {ID: motherB, Kind: models.AccountKindMotherAccount, IsActive: &inactive},
		profitId:   {ID: profitId, Kind: models.AccountKindProfitAccount, IsActive: &inactive},
	}
	stored := &models.Transaction{
		Type:            models.TransactionTypeWithdrawal,
		Amount:          dec("800"),
		MotherAccountId: intPtr(motherB),
		ProfitAccountId: intPtr(profitId),
	}

	metadataOnly := *stored
	metadataOnly.Notes = "corrected"
	if err := checkNewlyAffectedAccounts(stored, &metadataOnly, accounts); err != nil {
		t.Fatalf("edit without new postings must pass, got %v", err)
	}

	addShortage := *stored
	addShortage.ShortageAmount = dec("500")
	if err := checkNewlyAffectedAccounts(stored, &addShortage, accounts); !errors.Is(err, models.ErrAccountInactive) {
		t.Fatalf("shortage on an inactive mother account: expected ErrAccountInactive, got %v", err)
	}

	addCommission := *stored
	addCommission.Commission = dec("5")
	if err := checkNewlyAffectedAccounts(stored, &addCommission, accounts); !errors.Is(err, models.ErrAccountInactive) {
		t.Fatalf("commission on an inactive profit account: expected ErrAccountInactive, got %v", err)
	}

	wrongKind := *stored
	wrongKind.ShortageAmount = dec("100")
	wrongKind.ShortageAccountId = intPtr(profitId)
	if err := checkNewlyAffectedAccounts(stored, &wrongKind, accounts); !errors.Is(err, models.ErrInvalidShortageAmount) {
		t.Fatalf("shortage on a profit account: expected ErrInvalidShortageAmount, got %v", err)
	}
}
