package workflow

import (
	"sort"

	"github.com/agentbank/ledger_backend/models"
	"github.com/shopspring/decimal"
)

// balanceDelta is one signed change to one account.
type balanceDelta struct {
	AccountId int
	Amount    decimal.Decimal
}

// shortageAccountOf returns the account that covers a withdrawal shortage.
func shortageAccountOf(t *models.Transaction) int {
	if t.ShortageAccountId != nil {
		return *t.ShortageAccountId
	}
	if t.MotherAccountId != nil {
		return *t.MotherAccountId
	}
	return 0
}

// transactionEffects derives the balance effect of a stored transaction from its own
// fields only. Reversing an edit relies on this being a pure function of the record.
func transactionEffects(t *models.Transaction, handCashId int) []balanceDelta {
	var deltas []balanceDelta
	switch t.Type {
	case models.TransactionTypeDeposit:
		deltas = append(deltas, balanceDelta{AccountId: handCashId, Amount: t.Amount})
	case models.TransactionTypeWithdrawal:
		shortage := t.ShortageAmount
		deltas = append(deltas, balanceDelta{AccountId: handCashId, Amount: t.Amount.Sub(shortage).Neg()})
		if shortage.IsPositive() {
			deltas = append(deltas, balanceDelta{AccountId: shortageAccountOf(t), Amount: shortage.Neg()})
		}
	case models.TransactionTypeCashIn:
		if t.TargetAccountId != nil {
			deltas = append(deltas, balanceDelta{AccountId: *t.TargetAccountId, Amount: t.Amount})
		}
	}
	if t.Commission.IsPositive() && t.ProfitAccountId != nil {
		deltas = append(deltas, balanceDelta{AccountId: *t.ProfitAccountId, Amount: t.Commission})
	}
	return deltas
}

func expenseEffects(e *models.Expense) []balanceDelta {
	return []balanceDelta{{AccountId: e.SourceAccountId, Amount: e.Amount.Neg()}}
}

// netDeltas reverses previous and applies next, merged per account. Zero nets are
// dropped and the result is ordered by account id, which is also the lock order.
func netDeltas(previous, next []balanceDelta) []balanceDelta {
	sums := make(map[int]decimal.Decimal)
	for _, d := range previous {
		sums[d.AccountId] = sums[d.AccountId].Sub(d.Amount)
	}
	for _, d := range next {
		sums[d.AccountId] = sums[d.AccountId].Add(d.Amount)
	}
	result := make([]balanceDelta, 0, len(sums))
	for id, amount := range sums {
		if amount.IsZero() {
			continue
		}
		result = append(result, balanceDelta{AccountId: id, Amount: amount})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AccountId < result[j].AccountId })
	return result
}

func deltaAccountIds(deltas []balanceDelta) []int {
	ids := make([]int, 0, len(deltas))
	for _, d := range deltas {
		ids = append(ids, d.AccountId)
	}
	return ids
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
