package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/utils"
	"gorm.io/gorm"
)

type BankMemberRole string

const (
	BankMemberRoleOwner BankMemberRole = "owner"
	BankMemberRoleUser  BankMemberRole = "user"
)

// BankMember grants a user access to one bank. Owners manage members, backups and
// resets; users run the day to day postings.
type BankMember struct {
	ID        int            `gorm:"primary_key" json:"id"`
	BankId    string         `gorm:"size:64;not null;uniqueIndex:idx_member_bank_user,priority:1" json:"bank_id"`
	UserId    string         `gorm:"size:64;not null;uniqueIndex:idx_member_bank_user,priority:2;index" json:"user_id"`
	Role      BankMemberRole `gorm:"size:20;not null" json:"role"`
	InvitedBy string         `gorm:"size:64" json:"invited_by"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBankMember struct {
	UserId string         `json:"user_id" validate:"required,max=64"`
	Role   BankMemberRole `json:"role" validate:"omitempty,oneof=owner user"`
}

func (input *NewBankMember) validate() error {
	input.UserId = strings.TrimSpace(input.UserId)
	if err := utils.ValidateStruct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if input.Role == "" {
		input.Role = BankMemberRoleUser
	}
	return nil
}

func createOwnerMembership(tx *gorm.DB, bankId, userId string) error {
	return tx.Create(&BankMember{
		BankId:    bankId,
		UserId:    userId,
		Role:      BankMemberRoleOwner,
		InvitedBy: userId,
	}).Error
}

func AddBankMember(ctx context.Context, bankId string, input *NewBankMember) (*BankMember, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	member := BankMember{
		BankId:    bankId,
		UserId:    input.UserId,
		Role:      input.Role,
		InvitedBy: utils.GetPerformerFromContext(ctx),
	}
	if err := config.GetDB().WithContext(ctx).Create(&member).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateMember, input.UserId)
		}
		return nil, err
	}
	return &member, nil
}

func GetBankMembers(ctx context.Context, bankId string) ([]*BankMember, error) {
	var results []*BankMember
	err := config.GetDB().WithContext(ctx).
		Where("bank_id = ?", bankId).
		Order("created_at").Order("id").
		Find(&results).Error
	return results, err
}

// FindBankMembership returns nil without error when userId is not a member.
func FindBankMembership(ctx context.Context, bankId, userId string) (*BankMember, error) {
	var member BankMember
	err := config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND user_id = ?", bankId, userId).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func findBankMember(tx *gorm.DB, bankId string, id int) (*BankMember, error) {
	var member BankMember
	err := tx.Where("bank_id = ? AND id = ?", bankId, id).Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("member %d: %w", id, ErrRecordNotFound)
	}
	return &member, err
}

// UpdateBankMemberRole changes a member's role. The bank's creator stays an owner.
func UpdateBankMemberRole(ctx context.Context, bankId string, id int, role BankMemberRole) (*BankMember, error) {
	if role != BankMemberRoleOwner && role != BankMemberRoleUser {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	var member *BankMember
	err := config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bank, err := LockBank(tx, bankId, true)
		if err != nil {
			return err
		}
		member, err = findBankMember(tx, bankId, id)
		if err != nil {
			return err
		}
		if member.UserId == bank.OwnerId && role != BankMemberRoleOwner {
			return fmt.Errorf("%w: the bank creator must stay an owner", ErrInvalidInput)
		}
		member.Role = role
		return tx.Model(member).Update("role", role).Error
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveBankMember revokes access. The bank's creator cannot be removed.
func RemoveBankMember(ctx context.Context, bankId string, id int) error {
	return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bank, err := LockBank(tx, bankId, true)
		if err != nil {
			return err
		}
		member, err := findBankMember(tx, bankId, id)
		if err != nil {
			return err
		}
		if member.UserId == bank.OwnerId {
			return fmt.Errorf("%w: the bank creator cannot be removed", ErrInvalidInput)
		}
		return tx.Where("bank_id = ? AND id = ?", bankId, id).Delete(&BankMember{}).Error
	})
}

// GetBanksOfUser lists the banks userId belongs to.
func GetBanksOfUser(ctx context.Context, userId string) ([]*Bank, error) {
	var results []*Bank
	err := config.GetDB().WithContext(ctx).
		Joins("JOIN bank_members ON bank_members.bank_id = banks.id").
		Where("bank_members.user_id = ?", userId).
		Order("banks.created_at").
		Find(&results).Error
	return results, err
}
