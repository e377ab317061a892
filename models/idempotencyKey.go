package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IdempotencyKey remembers which record a client request key produced.
// Unique constraint: (bank_id, operation, request_key).
type IdempotencyKey struct {
	ID            int                 `gorm:"primary_key" json:"id"`
	BankId        string              `gorm:"size:64;not null;uniqueIndex:uniq_idem,priority:1" json:"bank_id"`
	Operation     string              `gorm:"size:50;not null;uniqueIndex:uniq_idem,priority:2" json:"operation"`
	RequestKey    string              `gorm:"size:255;not null;uniqueIndex:uniq_idem,priority:3" json:"request_key"`
	ReferenceType LedgerReferenceType `gorm:"size:20" json:"reference_type"`
	ReferenceId   int                 `json:"reference_id"`
	CreatedAt     time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

// ClaimIdempotencyKey inserts the key inside tx. If an earlier request already
// committed the same key, its row is returned as previous and nothing is claimed.
// A concurrent request with the same key blocks on the unique index until the
// first one commits or rolls back.
func ClaimIdempotencyKey(tx *gorm.DB, bankId, operation, requestKey string) (claimed *IdempotencyKey, previous *IdempotencyKey, err error) {
	key := &IdempotencyKey{
		BankId:     bankId,
		Operation:  operation,
		RequestKey: requestKey,
	}
	if err := tx.Create(key).Error; err == nil {
		return key, nil, nil
	} else if !IsDuplicateKeyError(err) {
		return nil, nil, err
	}

	var existing IdempotencyKey
	err = tx.Clauses(clause.Locking{Strength: "SHARE"}).
		Where("bank_id = ? AND operation = ? AND request_key = ?", bankId, operation, requestKey).
		Take(&existing).Error
	if err != nil {
		return nil, nil, err
	}
	return nil, &existing, nil
}

// Complete points the claimed key at the record it produced.
func (k *IdempotencyKey) Complete(tx *gorm.DB, referenceType LedgerReferenceType, referenceId int) error {
	k.ReferenceType = referenceType
	k.ReferenceId = referenceId
	return tx.Model(&IdempotencyKey{}).
		Where("id = ? AND bank_id = ?", k.ID, k.BankId).
		Updates(map[string]interface{}{"reference_type": referenceType, "reference_id": referenceId}).Error
}
