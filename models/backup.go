package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BackupSchemaVersion is bumped whenever BackupSnapshot changes shape.
const BackupSchemaVersion = 1

type Backup struct {
	ID            int            `gorm:"primary_key" json:"id"`
	BankId        string         `gorm:"size:64;not null;index:idx_backup_bank_created,priority:1" json:"bank_id"`
	Label         string         `gorm:"size:255" json:"label"`
	SchemaVersion int            `gorm:"not null" json:"schema_version"`
	Data          datatypes.JSON `gorm:"type:longtext" json:"data,omitempty"`
	CreatedBy     string         `gorm:"size:64" json:"created_by"`
	CreatedAt     time.Time      `gorm:"autoCreateTime;index:idx_backup_bank_created,priority:2" json:"created_at"`
}

// BackupSnapshot is the blob stored in Backup.Data. Daily logs and backups
// themselves are not part of it.
type BackupSnapshot struct {
	SchemaVersion int                `json:"schema_version"`
	BankId        string             `json:"bank_id"`
	TakenAt       time.Time          `json:"taken_at"`
	Accounts      []*Account         `json:"accounts"`
	Transactions  []*Transaction     `json:"transactions"`
	Expenses      []*Expense         `json:"expenses"`
	Categories    []*ExpenseCategory `json:"categories"`
	LedgerEntries []*LedgerEntry     `json:"ledger_entries"`
}

// Validate checks the snapshot can replace the state of bankId.
func (s *BackupSnapshot) Validate(bankId string) error {
	if s.SchemaVersion != BackupSchemaVersion {
		return fmt.Errorf("%w: version %d", ErrUnsupportedBackup, s.SchemaVersion)
	}
	if s.BankId != bankId {
		return fmt.Errorf("%w: backup of bank %s", ErrTenantMismatch, s.BankId)
	}
	handCash := 0
	accountIds := make(map[int]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.BankId != bankId {
			return fmt.Errorf("%w: account %d", ErrTenantMismatch, a.ID)
		}
		if accountIds[a.ID] {
			return fmt.Errorf("%w: account %d appears twice", ErrUnsupportedBackup, a.ID)
		}
		accountIds[a.ID] = true
		if !a.Kind.IsValid() {
			return fmt.Errorf("%w: account %d has kind %q", ErrUnsupportedBackup, a.ID, a.Kind)
		}
		if a.Kind == AccountKindHandCash {
			handCash++
		}
	}
	if handCash != 1 {
		return fmt.Errorf("%w: expected exactly one hand cash account, got %d", ErrUnsupportedBackup, handCash)
	}
	categoryIds := make(map[int]bool, len(s.Categories))
	for _, c := range s.Categories {
		if c.BankId != bankId {
			return fmt.Errorf("%w: category %d", ErrTenantMismatch, c.ID)
		}
		if categoryIds[c.ID] {
			return fmt.Errorf("%w: category %d appears twice", ErrUnsupportedBackup, c.ID)
		}
		categoryIds[c.ID] = true
	}
	seen := make(map[int]bool, len(s.Transactions))
	for _, t := range s.Transactions {
		if t.BankId != bankId {
			return fmt.Errorf("%w: transaction %d", ErrTenantMismatch, t.ID)
		}
		if seen[t.ID] {
			return fmt.Errorf("%w: transaction %d appears twice", ErrUnsupportedBackup, t.ID)
		}
		seen[t.ID] = true
		for _, id := range []*int{t.MotherAccountId, t.ShortageAccountId, t.ProfitAccountId, t.TargetAccountId} {
			if id != nil && !accountIds[*id] {
				return fmt.Errorf("%w: transaction %d references unknown account %d", ErrUnsupportedBackup, t.ID, *id)
			}
		}
	}
	seen = make(map[int]bool, len(s.Expenses))
	for _, e := range s.Expenses {
		if e.BankId != bankId {
			return fmt.Errorf("%w: expense %d", ErrTenantMismatch, e.ID)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: expense %d appears twice", ErrUnsupportedBackup, e.ID)
		}
		seen[e.ID] = true
		if !accountIds[e.SourceAccountId] {
			return fmt.Errorf("%w: expense %d references unknown account %d", ErrUnsupportedBackup, e.ID, e.SourceAccountId)
		}
		if !categoryIds[e.CategoryId] {
			return fmt.Errorf("%w: expense %d references unknown category %d", ErrUnsupportedBackup, e.ID, e.CategoryId)
		}
	}
	seen = make(map[int]bool, len(s.LedgerEntries))
	for _, le := range s.LedgerEntries {
		if le.BankId != bankId {
			return fmt.Errorf("%w: ledger entry %d", ErrTenantMismatch, le.ID)
		}
		if seen[le.ID] {
			return fmt.Errorf("%w: ledger entry %d appears twice", ErrUnsupportedBackup, le.ID)
		}
		seen[le.ID] = true
		if !accountIds[le.AccountId] {
			return fmt.Errorf("%w: ledger entry %d references unknown account %d", ErrUnsupportedBackup, le.ID, le.AccountId)
		}
	}
	return nil
}

// CheckSnapshotIdsFree fails with ErrUnsupportedBackup when a row id of the snapshot
// is already used by another bank, as happens with blobs from another environment.
func CheckSnapshotIdsFree(tx *gorm.DB, bankId string, s *BackupSnapshot) error {
	tables := []struct {
		name  string
		model interface{}
		ids   []int
	}{
		{"account", &Account{}, rowIds(s.Accounts, func(a *Account) int { return a.ID })},
		{"transaction", &Transaction{}, rowIds(s.Transactions, func(t *Transaction) int { return t.ID })},
		{"expense", &Expense{}, rowIds(s.Expenses, func(e *Expense) int { return e.ID })},
		{"category", &ExpenseCategory{}, rowIds(s.Categories, func(c *ExpenseCategory) int { return c.ID })},
		{"ledger entry", &LedgerEntry{}, rowIds(s.LedgerEntries, func(le *LedgerEntry) int { return le.ID })},
	}
	for _, table := range tables {
		if len(table.ids) == 0 {
			continue
		}
		var taken []int
		err := withoutTenantScope(tx).Model(table.model).
			Where("id IN ? AND bank_id <> ?", table.ids, bankId).
			Limit(5).
			Pluck("id", &taken).Error
		if err != nil {
			return err
		}
		if len(taken) > 0 {
			return fmt.Errorf("%w: %s ids %v belong to another bank", ErrUnsupportedBackup, table.name, taken)
		}
	}
	return nil
}

func rowIds[T any](rows []*T, id func(*T) int) []int {
	ids := make([]int, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, id(row))
	}
	return ids
}

func DecodeBackupSnapshot(data []byte) (*BackupSnapshot, error) {
	var snapshot BackupSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedBackup, err)
	}
	return &snapshot, nil
}

// LoadBackupSnapshot reads the whole state of bankId inside tx.
func LoadBackupSnapshot(tx *gorm.DB, bankId string) (*BackupSnapshot, error) {
	snapshot := BackupSnapshot{
		SchemaVersion: BackupSchemaVersion,
		BankId:        bankId,
		TakenAt:       time.Now().UTC(),
	}
	if err := tx.Where("bank_id = ?", bankId).Order("id").Find(&snapshot.Accounts).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("bank_id = ?", bankId).Order("id").Find(&snapshot.Transactions).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("bank_id = ?", bankId).Order("id").Find(&snapshot.Expenses).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("bank_id = ?", bankId).Order("id").Find(&snapshot.Categories).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("bank_id = ?", bankId).Order("id").Find(&snapshot.LedgerEntries).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

const restoreBatchSize = 500

// ReplaceBankState deletes the ledger rows of bankId and reinserts the snapshot rows
// with their original ids and timestamps.
func ReplaceBankState(tx *gorm.DB, bankId string, snapshot *BackupSnapshot) error {
	for _, model := range []interface{}{&IdempotencyKey{}, &LedgerEntry{}, &Transaction{}, &Expense{}, &Account{}, &ExpenseCategory{}} {
		if err := tx.Where("bank_id = ?", bankId).Delete(model).Error; err != nil {
			return err
		}
	}
	batches := []struct {
		name string
		rows interface{}
		n    int
	}{
		{"categories", snapshot.Categories, len(snapshot.Categories)},
		{"accounts", snapshot.Accounts, len(snapshot.Accounts)},
		{"transactions", snapshot.Transactions, len(snapshot.Transactions)},
		{"expenses", snapshot.Expenses, len(snapshot.Expenses)},
		{"ledger entries", snapshot.LedgerEntries, len(snapshot.LedgerEntries)},
	}
	for _, batch := range batches {
		if batch.n == 0 {
			continue
		}
		if err := tx.CreateInBatches(batch.rows, restoreBatchSize).Error; err != nil {
			if IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: %s collide with existing rows: %v", ErrUnsupportedBackup, batch.name, err)
			}
			return err
		}
	}
	return nil
}

// ResetBankState removes every transaction, expense, ledger entry and daily log of
// bankId along with its request keys and zeroes all balances. Accounts, categories
// and backups stay.
func ResetBankState(tx *gorm.DB, bankId string) error {
	for _, model := range []interface{}{&IdempotencyKey{}, &LedgerEntry{}, &Transaction{}, &Expense{}, &DailyLog{}} {
		if err := tx.Where("bank_id = ?", bankId).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Model(&Account{}).Where("bank_id = ?", bankId).Update("balance", 0).Error
}

func InsertBackup(tx *gorm.DB, backup *Backup) error {
	return tx.Create(backup).Error
}

// SelectEvictions returns the ids to delete so that at most keep backups remain.
// Newest first by created_at, ties broken by the higher id.
func SelectEvictions(backups []*Backup, keep int) []int {
	if keep < 0 {
		keep = 0
	}
	if len(backups) <= keep {
		return nil
	}
	sorted := append([]*Backup(nil), backups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
		}
		return sorted[i].ID > sorted[j].ID
	})
	ids := make([]int, 0, len(sorted)-keep)
	for _, b := range sorted[keep:] {
		ids = append(ids, b.ID)
	}
	return ids
}

// EnforceBackupRetention deletes the oldest backups of bankId beyond keep and
// returns the evicted ids.
func EnforceBackupRetention(tx *gorm.DB, bankId string, keep int) ([]int, error) {
	var backups []*Backup
	err := tx.Select("id", "bank_id", "created_at").
		Where("bank_id = ?", bankId).
		Find(&backups).Error
	if err != nil {
		return nil, err
	}
	evict := SelectEvictions(backups, keep)
	if len(evict) == 0 {
		return nil, nil
	}
	if err := tx.Where("bank_id = ? AND id IN ?", bankId, evict).Delete(&Backup{}).Error; err != nil {
		return nil, err
	}
	return evict, nil
}

// FindBackup loads a backup with its blob. Backups of other banks are TenantMismatch.
func FindBackup(tx *gorm.DB, bankId string, id int) (*Backup, error) {
	var backup Backup
	err := withoutTenantScope(tx).Where("id = ?", id).Take(&backup).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("backup %d: %w", id, ErrRecordNotFound)
		}
		return nil, err
	}
	if backup.BankId != bankId {
		return nil, fmt.Errorf("%w: backup %d", ErrTenantMismatch, id)
	}
	return &backup, nil
}

func DeleteBackupRecord(tx *gorm.DB, bankId string, id int) error {
	if _, err := FindBackup(tx, bankId, id); err != nil {
		return err
	}
	return tx.Where("id = ? AND bank_id = ?", id, bankId).Delete(&Backup{}).Error
}

// GetBackups lists backup metadata, newest first, without the blob.
func GetBackups(ctx context.Context, bankId string) ([]*Backup, error) {
	var results []*Backup
	err := config.GetDB().WithContext(ctx).
		Select("id", "bank_id", "label", "schema_version", "created_by", "created_at").
		Where("bank_id = ?", bankId).
		Order("created_at DESC").Order("id DESC").
		Find(&results).Error
	return results, err
}
