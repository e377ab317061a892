package workflow

import (
	"testing"

	"github.com/agentbank/ledger_backend/models"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

// applyDeltas plays deltas onto a balance map the way postDeltas does in the store.
func applyDeltas(balances map[int]decimal.Decimal, deltas []balanceDelta) {
	for _, d := range deltas {
		balances[d.AccountId] = balances[d.AccountId].Add(d.Amount)
	}
}

const (
	handCashId = 1
	motherA    = 2
	motherB    = 3
	profitId   = 4
)

func TestTransactionEffects_WithdrawalThenShortage(t *testing.T) {
	balances := map[int]decimal.Decimal{handCashId: dec("1000"), motherA: dec("5000")}

	plain := &models.Transaction{Type: models.TransactionTypeWithdrawal, Amount: dec("300"), MotherAccountId: intPtr(motherA)}
	applyDeltas(balances, transactionEffects(plain, handCashId))
	if !balances[handCashId].Equal(dec("700")) || !balances[motherA].Equal(dec("5000")) {
		t.Fatalf("after withdrawal: hand=%s mother=%s", balances[handCashId], balances[motherA])
	}

	shortage := &models.Transaction{
		Type:            models.TransactionTypeWithdrawal,
		Amount:          dec("800"),
		ShortageAmount:  dec("500"),
		MotherAccountId: intPtr(motherA),
	}
	applyDeltas(balances, transactionEffects(shortage, handCashId))
	if !balances[handCashId].Equal(dec("400")) {
		t.Fatalf("hand cash: expected 400, got %s", balances[handCashId])
	}
	if !balances[motherA].Equal(dec("4500")) {
		t.Fatalf("mother: expected 4500, got %s", balances[motherA])
	}
}

func TestTransactionEffects_ShortageCoversWholeAmount(t *testing.T) {
	record := &models.Transaction{
		Type:              models.TransactionTypeWithdrawal,
		Amount:            dec("250"),
		ShortageAmount:    dec("250"),
		MotherAccountId:   intPtr(motherA),
		ShortageAccountId: intPtr(motherB),
	}
	deltas := netDeltas(nil, transactionEffects(record, handCashId))
	if len(deltas) != 1 {
		t.Fatalf("expected only the shortage account to move, got %+v", deltas)
	}
	if deltas[0].AccountId != motherB || !deltas[0].Amount.Equal(dec("-250")) {
		t.Fatalf("unexpected delta %+v", deltas[0])
	}
}

func TestTransactionEffects_DepositWithCommission(t *testing.T) {
	record := &models.Transaction{
		Type:            models.TransactionTypeDeposit,
		Amount:          dec("1200.5"),
		Commission:      dec("12.25"),
		MotherAccountId: intPtr(motherA),
		ProfitAccountId: intPtr(profitId),
	}
	balances := map[int]decimal.Decimal{}
	applyDeltas(balances, transactionEffects(record, handCashId))
	if !balances[handCashId].Equal(dec("1200.5")) {
		t.Fatalf("hand cash: got %s", balances[handCashId])
	}
	if !balances[profitId].Equal(dec("12.25")) {
		t.Fatalf("profit: got %s", balances[profitId])
	}
	if !balances[motherA].IsZero() {
		t.Fatalf("deposit must not move the mother account, got %s", balances[motherA])
	}
}

func TestTransactionEffects_CashInTarget(t *testing.T) {
	kind := models.AccountKindProfitAccount
	record := &models.Transaction{
		Type:            models.TransactionTypeCashIn,
		Amount:          dec("75"),
		TargetKind:      &kind,
		TargetAccountId: intPtr(profitId),
	}
	deltas := transactionEffects(record, handCashId)
	if len(deltas) != 1 || deltas[0].AccountId != profitId || !deltas[0].Amount.Equal(dec("75")) {
		t.Fatalf("unexpected deltas %+v", deltas)
	}
}

func TestNetDeltas_EditRoundTripIsIdentity(t *testing.T) {
	original := &models.Transaction{Type: models.TransactionTypeDeposit, Amount: dec("100")}
	edited := *original
	edited.Amount = dec("150")

	balances := map[int]decimal.Decimal{handCashId: dec("1000")}
	applyDeltas(balances, transactionEffects(original, handCashId))

	// A -> B -> A
	applyDeltas(balances, netDeltas(transactionEffects(original, handCashId), transactionEffects(&edited, handCashId)))
	if !balances[handCashId].Equal(dec("1150")) {
		t.Fatalf("after edit to 150: got %s", balances[handCashId])
	}
	applyDeltas(balances, netDeltas(transactionEffects(&edited, handCashId), transactionEffects(original, handCashId)))
	if !balances[handCashId].Equal(dec("1100")) {
		t.Fatalf("after edit back to 100: got %s", balances[handCashId])
	}
}

func TestNetDeltas_RepeatedEditToSameAmountIsNoop(t *testing.T) {
	stored := &models.Transaction{
		Type:            models.TransactionTypeWithdrawal,
		Amount:          dec("800"),
		ShortageAmount:  dec("500"),
		MotherAccountId: intPtr(motherA),
	}
	deltas := netDeltas(transactionEffects(stored, handCashId), transactionEffects(stored, handCashId))
	if len(deltas) != 0 {
		t.Fatalf("expected no net change, got %+v", deltas)
	}
}

func TestNetDeltas_SortedByAccountId(t *testing.T) {
	deltas := netDeltas(nil, []balanceDelta{
		{AccountId: 9, Amount: dec("1")},
		{AccountId: 3, Amount: dec("2")},
		{AccountId: 5, Amount: dec("3")},
		{AccountId: 3, Amount: dec("-2")},
	})
	ids := deltaAccountIds(deltas)
	if len(ids) != 2 || ids[0] != 5 || ids[1] != 9 {
		t.Fatalf("expected [5 9], got %v", ids)
	}
	if !deltas[0].Amount.Equal(dec("3")) || !deltas[1].Amount.Equal(dec("1")) {
		t.Fatalf("unexpected amounts %+v", deltas)
	}
}

func TestExpenseEffects(t *testing.T) {
	e := &models.Expense{Amount: dec("50"), SourceAccountId: motherA}
	deltas := expenseEffects(e)
	if len(deltas) != 1 || deltas[0].AccountId != motherA || !deltas[0].Amount.Equal(dec("-50")) {
		t.Fatalf("unexpected deltas %+v", deltas)
	}
}
