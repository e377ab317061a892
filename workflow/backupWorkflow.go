package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type RestoreSummary struct {
	BackupId      int `json:"backup_id"`
	Accounts      int `json:"accounts"`
	Transactions  int `json:"transactions"`
	Expenses      int `json:"expenses"`
	Categories    int `json:"categories"`
	LedgerEntries int `json:"ledger_entries"`
}

func backupLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		label = "Backup " + time.Now().UTC().Format("2006-01-02 15:04:05")
	}
	if len(label) > 255 {
		return "", fmt.Errorf("%w: label is longer than 255 characters", models.ErrInvalidInput)
	}
	return label, nil
}

// CreateBackup stores the bank's full state as one versioned blob. Backups beyond
// the retention limit are evicted oldest first in the same unit.
func CreateBackup(ctx context.Context, bankId string, label string) (*models.Backup, error) {
	label, err := backupLabel(label)
	if err != nil {
		return nil, err
	}
	settings := config.GetLedgerSettings()
	performer := utils.GetPerformerFromContext(ctx)

	var result *models.Backup
	var evicted []int
	err = runMaintenanceOperation(ctx, bankId, "CreateBackup", func(tx *gorm.DB) error {
		snapshot, err := models.LoadBackupSnapshot(tx, bankId)
		if err != nil {
			return err
		}
		data, err := json.Marshal(snapshot)
		if err != nil {
			return err
		}
		result, evicted, err = storeBackup(tx, bankId, label, data, performer, settings.BackupRetention)
		return err
	})
	if err != nil {
		return nil, err
	}
	archiveBackup(ctx, settings.BackupBucket, bankId, result, evicted)
	return result, nil
}

// ImportBackup stores an uploaded blob as a backup of bankId after checking it
// could be restored: rows must reference accounts and categories of the blob and
// their ids must not belong to another bank.
func ImportBackup(ctx context.Context, bankId string, label string, data []byte) (*models.Backup, error) {
	label, err := backupLabel(label)
	if err != nil {
		return nil, err
	}
	snapshot, err := models.DecodeBackupSnapshot(data)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Validate(bankId); err != nil {
		return nil, err
	}
	settings := config.GetLedgerSettings()
	performer := utils.GetPerformerFromContext(ctx)

	var result *models.Backup
	var evicted []int
	err = runMaintenanceOperation(ctx, bankId, "ImportBackup", func(tx *gorm.DB) error {
		if err := models.CheckSnapshotIdsFree(tx, bankId, snapshot); err != nil {
			return err
		}
		var err error
		result, evicted, err = storeBackup(tx, bankId, label, data, performer, settings.BackupRetention)
		return err
	})
	if err != nil {
		return nil, err
	}
	archiveBackup(ctx, settings.BackupBucket, bankId, result, evicted)
	return result, nil
}

func storeBackup(tx *gorm.DB, bankId, label string, data []byte, performer string, retention int) (*models.Backup, []int, error) {
	backup := &models.Backup{
		BankId:        bankId,
		Label:         label,
		SchemaVersion: models.BackupSchemaVersion,
		Data:          datatypes.JSON(data),
		CreatedBy:     performer,
	}
	if err := models.InsertBackup(tx, backup); err != nil {
		return nil, nil, err
	}
	evicted, err := models.EnforceBackupRetention(tx, bankId, retention)
	if err != nil {
		return nil, nil, err
	}
	return backup, evicted, nil
}

// RestoreBackup replaces accounts, transactions, expenses, categories and ledger
// entries of the bank with the backup's content. Daily logs and backups are kept.
func RestoreBackup(ctx context.Context, bankId string, backupId int) (*RestoreSummary, error) {
	var summary *RestoreSummary
	err := runMaintenanceOperation(ctx, bankId, "RestoreBackup", func(tx *gorm.DB) error {
		backup, err := models.FindBackup(tx, bankId, backupId)
		if err != nil {
			return err
		}
		if backup.SchemaVersion != models.BackupSchemaVersion {
			return fmt.Errorf("%w: version %d", models.ErrUnsupportedBackup, backup.SchemaVersion)
		}
		snapshot, err := models.DecodeBackupSnapshot(backup.Data)
		if err != nil {
			return err
		}
		if err := snapshot.Validate(bankId); err != nil {
			return err
		}
		if err := models.CheckSnapshotIdsFree(tx, bankId, snapshot); err != nil {
			return err
		}
		if err := models.ReplaceBankState(tx, bankId, snapshot); err != nil {
			return err
		}
		summary = &RestoreSummary{
			BackupId:      backup.ID,
			Accounts:      len(snapshot.Accounts),
			Transactions:  len(snapshot.Transactions),
			Expenses:      len(snapshot.Expenses),
			Categories:    len(snapshot.Categories),
			LedgerEntries: len(snapshot.LedgerEntries),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ResetAll deletes transactions, expenses, ledger entries and daily logs and zeroes
// every balance of the bank.
func ResetAll(ctx context.Context, bankId string) error {
	return runMaintenanceOperation(ctx, bankId, "ResetAll", func(tx *gorm.DB) error {
		return models.ResetBankState(tx, bankId)
	})
}

func DeleteBackup(ctx context.Context, bankId string, backupId int) error {
	err := runLedgerOperation(ctx, bankId, "DeleteBackup", func(tx *gorm.DB) error {
		return models.DeleteBackupRecord(tx, bankId, backupId)
	})
	if err != nil {
		return err
	}
	archiveBackup(ctx, config.GetLedgerSettings().BackupBucket, bankId, nil, []int{backupId})
	return nil
}

// archiveBackup mirrors committed backups to GCS. Failures are logged only.
func archiveBackup(ctx context.Context, bucket, bankId string, backup *models.Backup, evicted []int) {
	if bucket == "" {
		return
	}
	logger := config.GetLogger()
	if backup != nil {
		objectName := utils.BackupObjectName(bankId, backup.ID)
		if err := utils.UploadBytesToGCS(ctx, bucket, objectName, backup.Data, "application/json"); err != nil {
			config.LogError(logger, "Backup", "archiveBackup", "upload backup", objectName, err)
		}
	}
	for _, id := range evicted {
		objectName := utils.BackupObjectName(bankId, id)
		if err := utils.DeleteObjectFromGCS(ctx, bucket, objectName); err != nil {
			config.LogError(logger, "Backup", "archiveBackup", "delete evicted backup", objectName, err)
		}
	}
}
