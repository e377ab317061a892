package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/shopspring/decimal"
)

func TestLedgerEngineIntegration(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "ledger_test")
	t.Setenv("BACKUP_GCS_BUCKET", "")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := utils.SetUserIdInContext(context.Background(), "tester")

	t.Run("withdrawal with shortage", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "1000")

		if _, err := workflow.Withdrawal(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("300")}); err != nil {
			t.Fatalf("Withdrawal: %v", err)
		}
		expectBalance(t, ctx, bankId, handCashId, "700")
		expectBalance(t, ctx, bankId, mother, "5000")

		shortage := dec("500")
		result, err := workflow.WithdrawalWithShortage(ctx, bankId, &workflow.WithdrawalInput{
			MotherAccountId: mother,
			Amount:          dec("800"),
			ShortageAmount:  &shortage,
		})
		if err != nil {
			t.Fatalf("WithdrawalWithShortage: %v", err)
		}
		if result.Transaction.Type != models.TransactionTypeWithdrawal || !result.Transaction.Amount.Equal(dec("800")) {
			t.Fatalf("unexpected transaction %+v", result.Transaction)
		}
		expectBalance(t, ctx, bankId, handCashId, "400")
		expectBalance(t, ctx, bankId, mother, "4500")

		tooMuch := dec("900")
		_, err = workflow.WithdrawalWithShortage(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("800"), ShortageAmount: &tooMuch})
		if !errors.Is(err, models.ErrInvalidShortageAmount) {
			t.Fatalf("expected ErrInvalidShortageAmount, got %v", err)
		}
		expectBalance(t, ctx, bankId, handCashId, "400")
	})

	t.Run("concurrent expenses serialize", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")
		deposit(t, ctx, bankId, mother, "100")
		category := firstCategory(t, ctx, bankId)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = workflow.RecordExpense(ctx, bankId, &workflow.ExpenseInput{
					CategoryId:   category,
					Amount:       dec("50"),
					DeductedFrom: models.AccountKindHandCash,
				})
			}(i)
		}
		wg.Wait()
		for i, err := range errs {
			if err != nil {
				t.Fatalf("expense %d: %v", i, err)
			}
		}
		expectBalance(t, ctx, bankId, handCashId, "0")
	})

	t.Run("repeated request key posts once", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")

		results := make([]*workflow.TransactionResult, 3)
		errs := make([]error, 3)
		var wg sync.WaitGroup
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = workflow.Deposit(ctx, bankId, &workflow.DepositInput{
					MotherAccountId: mother,
					Amount:          dec("250"),
					IdempotencyKey:  "till-7-0001",
				})
			}(i)
		}
		wg.Wait()

		replayed := 0
		for i, err := range errs {
			if err != nil {
				t.Fatalf("deposit %d: %v", i, err)
			}
			if results[i].Replayed {
				replayed++
			}
			if results[i].Transaction.ID != results[0].Transaction.ID {
				t.Fatalf("expected one transaction, got ids %d and %d", results[0].Transaction.ID, results[i].Transaction.ID)
			}
		}
		if replayed != 2 {
			t.Fatalf("expected 2 replayed responses, got %d", replayed)
		}
		expectBalance(t, ctx, bankId, handCashId, "250")

		// Keys are scoped per operation.
		category := firstCategory(t, ctx, bankId)
		expense, err := workflow.RecordExpense(ctx, bankId, &workflow.ExpenseInput{
			CategoryId:     category,
			Amount:         dec("50"),
			DeductedFrom:   models.AccountKindHandCash,
			IdempotencyKey: "till-7-0001",
		})
		if err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
		if expense.Replayed {
			t.Fatal("expense must not replay a deposit key")
		}
		expectBalance(t, ctx, bankId, handCashId, "200")
	})

	t.Run("edit round trip", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")
		result := deposit(t, ctx, bankId, mother, "100")

		for _, amount := range []string{"150", "100", "100"} {
			a := dec(amount)
			if _, err := workflow.EditTransaction(ctx, bankId, result.Transaction.ID, &workflow.EditTransactionInput{Amount: &a}); err != nil {
				t.Fatalf("EditTransaction(%s): %v", amount, err)
			}
		}
		expectBalance(t, ctx, bankId, handCashId, "100")

		entries, err := models.GetLedgerEntries(ctx, bankId, &handCashId, nil, nil)
		if err != nil {
			t.Fatalf("GetLedgerEntries: %v", err)
		}
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Delta)
		}
		if !sum.Equal(dec("100")) {
			t.Fatalf("ledger entries must add up to the balance, got %s", sum)
		}
	})

	t.Run("verify ledger reports drift", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "100")

		result, err := workflow.VerifyLedger(ctx, bankId)
		if err != nil {
			t.Fatalf("VerifyLedger: %v", err)
		}
		if !result.Consistent || result.AccountsChecked != 2 {
			t.Fatalf("expected a consistent ledger over 2 accounts, got %+v", result)
		}

		if err := config.GetDB().Model(&models.Account{}).
			Where("id = ? AND bank_id = ?", handCashId, bankId).
			Update("balance", dec("90")).Error; err != nil {
			t.Fatalf("tamper: %v", err)
		}
		result, err = workflow.VerifyLedger(ctx, bankId)
		if err != nil {
			t.Fatalf("VerifyLedger: %v", err)
		}
		if result.Consistent || len(result.Findings) != 1 || result.Findings[0].EntityId != handCashId {
			t.Fatalf("expected one hand cash finding, got %+v", result.Findings)
		}
		reports, err := models.GetReconciliationReports(ctx, bankId, 10)
		if err != nil {
			t.Fatalf("GetReconciliationReports: %v", err)
		}
		if len(reports) != 1 || reports[0].CorrelationId != result.CorrelationId {
			t.Fatalf("expected the finding to be stored, got %+v", reports)
		}
	})

	t.Run("cross bank ids are rejected", func(t *testing.T) {
		bankA, handCashA := newBank(t, ctx)
		bankB, _ := newBank(t, ctx)
		motherB := newMother(t, ctx, bankB, "B-1", "0")

		_, err := workflow.Deposit(ctx, bankA, &workflow.DepositInput{MotherAccountId: motherB, Amount: dec("10")})
		if !errors.Is(err, models.ErrTenantMismatch) {
			t.Fatalf("expected ErrTenantMismatch, got %v", err)
		}
		expectBalance(t, ctx, bankA, handCashA, "0")
		expectBalance(t, ctx, bankB, motherB, "0")
	})

	t.Run("daily log is idempotent", func(t *testing.T) {
		bankId, _ := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "250")
		deposit(t, ctx, bankId, mother, "40")

		first, err := workflow.GenerateDailyLog(ctx, bankId, time.Time{})
		if err != nil {
			t.Fatalf("GenerateDailyLog: %v", err)
		}
		second, err := workflow.GenerateDailyLog(ctx, bankId, time.Time{})
		if err != nil {
			t.Fatalf("GenerateDailyLog again: %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected the same row, got %d and %d", first.ID, second.ID)
		}
		if !second.TotalDeposits.Equal(dec("40")) || !second.HandCashBalance.Equal(dec("40")) {
			t.Fatalf("unexpected totals %+v", second)
		}
		logs, err := models.GetLatestDailyLogs(ctx, bankId, 10)
		if err != nil {
			t.Fatalf("GetLatestDailyLogs: %v", err)
		}
		if len(logs) != 1 {
			t.Fatalf("expected one daily log, got %d", len(logs))
		}
	})

	t.Run("backup retention and restore", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")
		deposit(t, ctx, bankId, mother, "100")

		var created []*models.Backup
		for i := 0; i < 4; i++ {
			backup, err := workflow.CreateBackup(ctx, bankId, fmt.Sprintf("backup %d", i+1))
			if err != nil {
				t.Fatalf("CreateBackup %d: %v", i+1, err)
			}
			created = append(created, backup)
		}
		backups, err := models.GetBackups(ctx, bankId)
		if err != nil {
			t.Fatalf("GetBackups: %v", err)
		}
		if len(backups) != 3 {
			t.Fatalf("expected 3 backups, got %d", len(backups))
		}
		for _, b := range backups {
			if b.ID == created[0].ID {
				t.Fatalf("oldest backup %d was not evicted", b.ID)
			}
		}

		deposit(t, ctx, bankId, mother, "55")
		expectBalance(t, ctx, bankId, handCashId, "155")

		summary, err := workflow.RestoreBackup(ctx, bankId, created[3].ID)
		if err != nil {
			t.Fatalf("RestoreBackup: %v", err)
		}
		if summary.Transactions != 1 {
			t.Fatalf("expected 1 restored transaction, got %d", summary.Transactions)
		}
		expectBalance(t, ctx, bankId, handCashId, "100")

		otherBank, _ := newBank(t, ctx)
		if _, err := workflow.RestoreBackup(ctx, otherBank, created[3].ID); !errors.Is(err, models.ErrTenantMismatch) {
			t.Fatalf("expected ErrTenantMismatch, got %v", err)
		}

		if err := workflow.ResetAll(ctx, bankId); err != nil {
			t.Fatalf("ResetAll: %v", err)
		}
		expectBalance(t, ctx, bankId, handCashId, "0")
		expectBalance(t, ctx, bankId, mother, "0")
	})

	t.Run("restore reproduces the backed up state", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "1000")
		shortage := dec("200")
		if _, err := workflow.WithdrawalWithShortage(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("600"), ShortageAmount: &shortage}); err != nil {
			t.Fatalf("WithdrawalWithShortage: %v", err)
		}
		if _, err := workflow.RecordExpense(ctx, bankId, &workflow.ExpenseInput{
			CategoryId:   firstCategory(t, ctx, bankId),
			Amount:       dec("75"),
			DeductedFrom: models.AccountKindHandCash,
		}); err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}

		first, err := workflow.CreateBackup(ctx, bankId, "before")
		if err != nil {
			t.Fatalf("CreateBackup: %v", err)
		}
		stored, err := models.FindBackup(config.GetDB().WithContext(ctx), bankId, first.ID)
		if err != nil {
			t.Fatalf("FindBackup: %v", err)
		}
		backedUp, err := models.DecodeBackupSnapshot(stored.Data)
		if err != nil {
			t.Fatalf("DecodeBackupSnapshot: %v", err)
		}

		deposit(t, ctx, bankId, mother, "55")
		if _, err := workflow.RestoreBackup(ctx, bankId, first.ID); err != nil {
			t.Fatalf("RestoreBackup: %v", err)
		}
		restored := currentState(t, ctx, bankId)
		if want := snapshotJSON(t, backedUp); restored != want {
			t.Fatalf("restored state differs from the backup\nwant %s\ngot  %s", want, restored)
		}
		expectBalance(t, ctx, bankId, handCashId, "525")
		expectBalance(t, ctx, bankId, mother, "4800")

		second, err := workflow.CreateBackup(ctx, bankId, "after restore")
		if err != nil {
			t.Fatalf("CreateBackup: %v", err)
		}
		deposit(t, ctx, bankId, mother, "70")
		if _, err := workflow.RestoreBackup(ctx, bankId, second.ID); err != nil {
			t.Fatalf("RestoreBackup: %v", err)
		}
		if again := currentState(t, ctx, bankId); again != restored {
			t.Fatalf("second round trip changed the state\nwant %s\ngot  %s", restored, again)
		}
	})

	t.Run("maintenance fails fast while another one runs", func(t *testing.T) {
		bankId, _ := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")
		deposit(t, ctx, bankId, mother, "10")
		backup, err := workflow.CreateBackup(ctx, bankId, "held")
		if err != nil {
			t.Fatalf("CreateBackup: %v", err)
		}

		lock, err := config.GetRedisLock().Obtain(ctx, "maintenance:"+bankId, time.Minute, nil)
		if err != nil {
			t.Fatalf("Obtain: %v", err)
		}
		started := time.Now()
		if _, err := workflow.RestoreBackup(ctx, bankId, backup.ID); !errors.Is(err, models.ErrRestoreInProgress) {
			t.Fatalf("RestoreBackup: expected ErrRestoreInProgress, got %v", err)
		}
		if err := workflow.ResetAll(ctx, bankId); !errors.Is(err, models.ErrRestoreInProgress) {
			t.Fatalf("ResetAll: expected ErrRestoreInProgress, got %v", err)
		}
		if elapsed := time.Since(started); elapsed > 2*time.Second {
			t.Fatalf("expected both calls to fail fast, took %s", elapsed)
		}
		if err := lock.Release(ctx); err != nil {
			t.Fatalf("Release: %v", err)
		}
		if err := workflow.ResetAll(ctx, bankId); err != nil {
			t.Fatalf("ResetAll after release: %v", err)
		}
	})

	t.Run("expense edit round trip", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "500")
		deposit(t, ctx, bankId, mother, "100")
		category := firstCategory(t, ctx, bankId)

		result, err := workflow.RecordExpense(ctx, bankId, &workflow.ExpenseInput{
			CategoryId:      category,
			Amount:          dec("50"),
			DeductedFrom:    models.AccountKindMotherAccount,
			SourceAccountId: &mother,
		})
		if err != nil {
			t.Fatalf("RecordExpense: %v", err)
		}
		expectBalance(t, ctx, bankId, mother, "450")

		for _, step := range []struct{ amount, mother string }{{"80", "420"}, {"50", "450"}} {
			amount := dec(step.amount)
			edited, err := workflow.EditExpense(ctx, bankId, result.Expense.ID, &workflow.EditExpenseInput{Amount: &amount})
			if err != nil {
				t.Fatalf("EditExpense(%s): %v", step.amount, err)
			}
			if !edited.Expense.Amount.Equal(amount) {
				t.Fatalf("expected amount %s, got %s", step.amount, edited.Expense.Amount)
			}
			expectBalance(t, ctx, bankId, mother, step.mother)
		}
		expectBalance(t, ctx, bankId, handCashId, "100")

		unknown := 999999
		if _, err := workflow.EditExpense(ctx, bankId, result.Expense.ID, &workflow.EditExpenseInput{CategoryId: &unknown}); err == nil {
			t.Fatal("expected an unknown category to be rejected")
		}
		expectBalance(t, ctx, bankId, mother, "450")

		entries, err := models.GetLedgerEntries(ctx, bankId, &mother, nil, nil)
		if err != nil {
			t.Fatalf("GetLedgerEntries: %v", err)
		}
		sum := decimal.Zero
		for _, e := range entries {
			sum = sum.Add(e.Delta)
		}
		if !sum.Equal(dec("450")) {
			t.Fatalf("ledger entries must add up to the balance, got %s", sum)
		}
	})

	t.Run("shortage edit round trip", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "1000")

		shortage := dec("500")
		result, err := workflow.WithdrawalWithShortage(ctx, bankId, &workflow.WithdrawalInput{
			MotherAccountId: mother,
			Amount:          dec("800"),
			ShortageAmount:  &shortage,
		})
		if err != nil {
			t.Fatalf("WithdrawalWithShortage: %v", err)
		}
		expectBalance(t, ctx, bankId, handCashId, "700")
		expectBalance(t, ctx, bankId, mother, "4500")

		steps := []struct{ amount, shortage, handCash, mother string }{
			{"1000", "600", "600", "4400"},
			{"800", "500", "700", "4500"},
		}
		for _, step := range steps {
			amount, shortage := dec(step.amount), dec(step.shortage)
			if _, err := workflow.EditTransaction(ctx, bankId, result.Transaction.ID, &workflow.EditTransactionInput{
				Amount:         &amount,
				ShortageAmount: &shortage,
			}); err != nil {
				t.Fatalf("EditTransaction(%s/%s): %v", step.amount, step.shortage, err)
			}
			expectBalance(t, ctx, bankId, handCashId, step.handCash)
			expectBalance(t, ctx, bankId, mother, step.mother)
		}

		verified, err := workflow.VerifyLedger(ctx, bankId)
		if err != nil {
			t.Fatalf("VerifyLedger: %v", err)
		}
		if !verified.Consistent {
			t.Fatalf("expected a consistent ledger, got %+v", verified.Findings)
		}
	})

	t.Run("inactive mother account", func(t *testing.T) {
		bankId, handCashId := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "1000")
		plain, err := workflow.Withdrawal(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("300")})
		if err != nil {
			t.Fatalf("Withdrawal: %v", err)
		}
		if _, err := models.ToggleActiveMotherAccount(ctx, bankId, mother, false); err != nil {
			t.Fatalf("ToggleActiveMotherAccount: %v", err)
		}

		_, err = workflow.Withdrawal(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("10")})
		if !errors.Is(err, models.ErrAccountInactive) {
			t.Fatalf("Withdrawal: expected ErrAccountInactive, got %v", err)
		}

		// Adding a shortage would start posting to the inactive account.
		shortage := dec("100")
		_, err = workflow.EditTransaction(ctx, bankId, plain.Transaction.ID, &workflow.EditTransactionInput{ShortageAmount: &shortage})
		if !errors.Is(err, models.ErrAccountInactive) {
			t.Fatalf("EditTransaction: expected ErrAccountInactive, got %v", err)
		}
		expectBalance(t, ctx, bankId, handCashId, "700")
		expectBalance(t, ctx, bankId, mother, "5000")

		// Metadata of old records stays editable.
		note := "late receipt"
		if _, err := workflow.EditTransaction(ctx, bankId, plain.Transaction.ID, &workflow.EditTransactionInput{Notes: &note}); err != nil {
			t.Fatalf("EditTransaction notes: %v", err)
		}
	})

	t.Run("lock wait goes back to the server default", func(t *testing.T) {
		bankId, _ := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "0")

		sqlDB, err := config.GetDB().DB()
		if err != nil {
			t.Fatalf("DB: %v", err)
		}
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { sqlDB.SetMaxOpenConns(50) })

		deposit(t, ctx, bankId, mother, "10")
		if err := workflow.ResetAll(ctx, bankId); err != nil {
			t.Fatalf("ResetAll: %v", err)
		}

		var session, global int
		row := config.GetDB().WithContext(ctx).Raw("SELECT @@SESSION.innodb_lock_wait_timeout, @@GLOBAL.innodb_lock_wait_timeout").Row()
		if err := row.Scan(&session, &global); err != nil {
			t.Fatalf("Scan: %v", err)
		}
		if session != global {
			t.Fatalf("pooled connection kept innodb_lock_wait_timeout=%d, server default is %d", session, global)
		}
	})

	t.Run("import rejects rows of another bank", func(t *testing.T) {
		bankA, _ := newBank(t, ctx)
		mother := newMother(t, ctx, bankA, "A-1", "0")
		deposit(t, ctx, bankA, mother, "10")
		backup, err := workflow.CreateBackup(ctx, bankA, "source")
		if err != nil {
			t.Fatalf("CreateBackup: %v", err)
		}
		stored, err := models.FindBackup(config.GetDB().WithContext(ctx), bankA, backup.ID)
		if err != nil {
			t.Fatalf("FindBackup: %v", err)
		}
		snapshot, err := models.DecodeBackupSnapshot(stored.Data)
		if err != nil {
			t.Fatalf("DecodeBackupSnapshot: %v", err)
		}

		bankB, handCashB := newBank(t, ctx)
		data, err := json.Marshal(moveSnapshot(snapshot, bankB))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if _, err := workflow.ImportBackup(ctx, bankB, "foreign", data); !errors.Is(err, models.ErrUnsupportedBackup) {
			t.Fatalf("expected ErrUnsupportedBackup, got %v", err)
		}
		backups, err := models.GetBackups(ctx, bankB)
		if err != nil {
			t.Fatalf("GetBackups: %v", err)
		}
		if len(backups) != 0 {
			t.Fatalf("expected nothing stored, got %d backups", len(backups))
		}
		expectBalance(t, ctx, bankA, mother, "0")
		expectBalance(t, ctx, bankB, handCashB, "0")
	})

	t.Run("bank members", func(t *testing.T) {
		bankId, _ := newBank(t, ctx)

		owner, err := models.FindBankMembership(ctx, bankId, "tester")
		if err != nil {
			t.Fatalf("FindBankMembership: %v", err)
		}
		if owner == nil || owner.Role != models.BankMemberRoleOwner {
			t.Fatalf("expected the creator to be an owner, got %+v", owner)
		}

		teller, err := models.AddBankMember(ctx, bankId, &models.NewBankMember{UserId: "teller-1"})
		if err != nil {
			t.Fatalf("AddBankMember: %v", err)
		}
		if teller.Role != models.BankMemberRoleUser || teller.InvitedBy != "tester" {
			t.Fatalf("unexpected member %+v", teller)
		}
		if _, err := models.AddBankMember(ctx, bankId, &models.NewBankMember{UserId: "teller-1"}); !errors.Is(err, models.ErrDuplicateMember) {
			t.Fatalf("expected ErrDuplicateMember, got %v", err)
		}

		banks, err := models.GetBanksOfUser(ctx, "teller-1")
		if err != nil {
			t.Fatalf("GetBanksOfUser: %v", err)
		}
		if len(banks) != 1 || banks[0].ID.String() != bankId {
			t.Fatalf("expected teller to see one bank, got %d", len(banks))
		}

		if _, err := models.UpdateBankMemberRole(ctx, bankId, owner.ID, models.BankMemberRoleUser); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("expected the creator to stay owner, got %v", err)
		}
		if err := models.RemoveBankMember(ctx, bankId, owner.ID); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("expected the creator removal to fail, got %v", err)
		}
		if err := models.RemoveBankMember(ctx, bankId, teller.ID); err != nil {
			t.Fatalf("RemoveBankMember: %v", err)
		}
		gone, err := models.FindBankMembership(ctx, bankId, "teller-1")
		if err != nil || gone != nil {
			t.Fatalf("expected no membership, got %+v (%v)", gone, err)
		}
	})

	t.Run("period report", func(t *testing.T) {
		bankId, _ := newBank(t, ctx)
		mother := newMother(t, ctx, bankId, "A-1", "5000")
		deposit(t, ctx, bankId, mother, "1000")
		deposit(t, ctx, bankId, mother, "500")
		if _, err := workflow.Withdrawal(ctx, bankId, &workflow.WithdrawalInput{MotherAccountId: mother, Amount: dec("300")}); err != nil {
			t.Fatalf("Withdrawal: %v", err)
		}
		category := firstCategory(t, ctx, bankId)
		for _, amount := range []string{"40", "35"} {
			if _, err := workflow.RecordExpense(ctx, bankId, &workflow.ExpenseInput{
				CategoryId:   category,
				Amount:       dec(amount),
				DeductedFrom: models.AccountKindHandCash,
			}); err != nil {
				t.Fatalf("RecordExpense: %v", err)
			}
		}
		if _, err := workflow.GenerateDailyLog(ctx, bankId, time.Time{}); err != nil {
			t.Fatalf("GenerateDailyLog: %v", err)
		}

		today, err := utils.ConvertToDate(time.Now(), "Asia/Dhaka")
		if err != nil {
			t.Fatalf("ConvertToDate: %v", err)
		}
		report, err := models.GetPeriodReport(ctx, bankId, today.AddDate(0, 0, -6), today)
		if err != nil {
			t.Fatalf("GetPeriodReport: %v", err)
		}
		if !report.TotalDeposits.Equal(dec("1500")) || report.DepositCount != 2 {
			t.Fatalf("unexpected deposits %s/%d", report.TotalDeposits, report.DepositCount)
		}
		if !report.TotalWithdrawals.Equal(dec("300")) || report.WithdrawalCount != 1 {
			t.Fatalf("unexpected withdrawals %s/%d", report.TotalWithdrawals, report.WithdrawalCount)
		}
		if !report.NetFlow.Equal(dec("1125")) {
			t.Fatalf("expected net flow 1125, got %s", report.NetFlow)
		}
		if len(report.ExpensesByCategory) != 1 {
			t.Fatalf("expected one category, got %+v", report.ExpensesByCategory)
		}
		byCategory := report.ExpensesByCategory[0]
		if byCategory.CategoryId != category || !byCategory.Total.Equal(dec("75")) || byCategory.Count != 2 {
			t.Fatalf("unexpected category total %+v", byCategory)
		}
		if len(report.DailyLogs) != 1 {
			t.Fatalf("expected one daily log, got %d", len(report.DailyLogs))
		}

		if _, err := models.GetPeriodReport(ctx, bankId, today, today.AddDate(0, 0, -1)); !errors.Is(err, models.ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

// currentState serializes the bank's rows the way a backup stores them.
func currentState(t *testing.T, ctx context.Context, bankId string) string {
	t.Helper()
	snapshot, err := models.LoadBackupSnapshot(config.GetDB().WithContext(ctx), bankId)
	if err != nil {
		t.Fatalf("LoadBackupSnapshot: %v", err)
	}
	return snapshotJSON(t, snapshot)
}

func snapshotJSON(t *testing.T, snapshot *models.BackupSnapshot) string {
	t.Helper()
	copied := *snapshot
	copied.TakenAt = time.Time{}
	b, err := json.Marshal(&copied)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return string(b)
}

// moveSnapshot relabels every row of s as belonging to bankId, keeping the ids.
func moveSnapshot(s *models.BackupSnapshot, bankId string) *models.BackupSnapshot {
	s.BankId = bankId
	for _, a := range s.Accounts {
		a.BankId = bankId
	}
	for _, c := range s.Categories {
		c.BankId = bankId
	}
	for _, tr := range s.Transactions {
		tr.BankId = bankId
	}
	for _, e := range s.Expenses {
		e.BankId = bankId
	}
	for _, le := range s.LedgerEntries {
		le.BankId = bankId
	}
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newBank(t *testing.T, ctx context.Context) (string, int) {
	t.Helper()
	bank, err := models.CreateBank(ctx, &models.NewBank{Name: "Outlet", Timezone: "Asia/Dhaka"})
	if err != nil {
		t.Fatalf("CreateBank: %v", err)
	}
	bankId := bank.ID.String()
	handCash, err := models.GetHandCash(config.GetDB().WithContext(ctx), bankId)
	if err != nil {
		t.Fatalf("GetHandCash: %v", err)
	}
	return bankId, handCash.ID
}

func newMother(t *testing.T, ctx context.Context, bankId, number, opening string) int {
	t.Helper()
	balance := dec(opening)
	account, err := workflow.CreateMotherAccount(ctx, bankId, &models.NewMotherAccount{
		Name:           "Mother " + number,
		AccountNumber:  number,
		OpeningBalance: &balance,
	})
	if err != nil {
		t.Fatalf("CreateMotherAccount: %v", err)
	}
	return account.ID
}

func deposit(t *testing.T, ctx context.Context, bankId string, mother int, amount string) *workflow.TransactionResult {
	t.Helper()
	result, err := workflow.Deposit(ctx, bankId, &workflow.DepositInput{MotherAccountId: mother, Amount: dec(amount)})
	if err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	return result
}

func firstCategory(t *testing.T, ctx context.Context, bankId string) int {
	t.Helper()
	categories, err := models.GetExpenseCategories(ctx, bankId)
	if err != nil || len(categories) == 0 {
		t.Fatalf("GetExpenseCategories: %v (%d)", err, len(categories))
	}
	return categories[0].ID
}

func expectBalance(t *testing.T, ctx context.Context, bankId string, accountId int, want string) {
	t.Helper()
	account, err := models.GetAccount(ctx, bankId, accountId)
	if err != nil {
		t.Fatalf("GetAccount(%d): %v", accountId, err)
	}
	if !account.Balance.Equal(dec(want)) {
		t.Fatalf("account %d: expected balance %s, got %s", accountId, want, account.Balance)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun("run", "-d", "--name", name, "-p", "127.0.0.1:0:6379", "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("ledger-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=ledger_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		// mysqladmin answers before the root user is ready on first boot
		if _, err := dockerRun("exec", name, "mysql", "-h", "127.0.0.1", "-uroot", "-ptestpw", "-e", "SELECT 1"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
