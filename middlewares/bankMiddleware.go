package middlewares

import (
	"errors"
	"net/http"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/gin-gonic/gin"
)

const (
	bankKey       = "bank"
	memberRoleKey = "bankMemberRole"
)

// BankMiddleware resolves :bankId, checks the caller is a member of the bank (admins
// may act on any bank) and puts the bank id into the request context.
func BankMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		bankId := c.Param("bankId")
		ctx := c.Request.Context()

		bank, err := models.GetBank(ctx, bankId)
		if err != nil {
			if errors.Is(err, models.ErrBankNotFound) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "bank not found", "code": "BankNotFound"})
				return
			}
			config.LogError(config.GetLogger(), "Middleware", "BankMiddleware", "load bank", bankId, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		userId, _ := utils.GetUserIdFromContext(ctx)
		member, err := models.FindBankMembership(ctx, bank.ID.String(), userId)
		if err != nil {
			config.LogError(config.GetLogger(), "Middleware", "BankMiddleware", "load membership", bankId, err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		role, ok := memberRole(bank, member, userId, IsAdmin(c))
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "code": "TenantMismatch"})
			return
		}
		if !utils.DereferencePtr(bank.IsActive, true) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "bank is inactive", "code": "BankInactive"})
			return
		}

		c.Set(bankKey, bank)
		c.Set(memberRoleKey, role)
		c.Request = c.Request.WithContext(utils.SetBankIdInContext(ctx, bank.ID.String()))
		c.Next()
	}
}

// BankFromContext returns the bank resolved by BankMiddleware.
func BankFromContext(c *gin.Context) *models.Bank {
	bank, _ := c.MustGet(bankKey).(*models.Bank)
	return bank
}

// memberRole resolves the caller's role in bank. The creator is an owner even
// without a membership row.
func memberRole(bank *models.Bank, member *models.BankMember, userId string, admin bool) (models.BankMemberRole, bool) {
	switch {
	case admin:
		return models.BankMemberRoleOwner, true
	case member != nil:
		return member.Role, true
	case userId != "" && bank.OwnerId == userId:
		return models.BankMemberRoleOwner, true
	}
	return "", false
}

// RequireBankOwner limits a route to owners of the bank resolved by BankMiddleware.
func RequireBankOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(memberRoleKey); role != models.BankMemberRoleOwner {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "only bank owners may do this", "code": "OwnerRequired"})
			return
		}
		c.Next()
	}
}
