package handlers

import (
	"net/http"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/gin-gonic/gin"
)

// getMyBanksHandler lists the banks the caller is a member of.
func getMyBanksHandler(c *gin.Context) {
	userId, _ := utils.GetUserIdFromContext(c.Request.Context())
	banks, err := models.GetBanksOfUser(c.Request.Context(), userId)
	if err != nil {
		renderError(c, "getMyBanksHandler", err)
		return
	}
	c.JSON(http.StatusOK, banks)
}

func getMembersHandler(c *gin.Context) {
	members, err := models.GetBankMembers(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "getMembersHandler", err)
		return
	}
	c.JSON(http.StatusOK, members)
}

func addMemberHandler(c *gin.Context) {
	var input models.NewBankMember
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	member, err := models.AddBankMember(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "addMemberHandler", err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

type updateMemberRoleRequest struct {
	Role models.BankMemberRole `json:"role"`
}

func updateMemberRoleHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input updateMemberRoleRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	member, err := models.UpdateBankMemberRole(c.Request.Context(), bankIdOf(c), id, input.Role)
	if err != nil {
		renderError(c, "updateMemberRoleHandler", err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func removeMemberHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := models.RemoveBankMember(c.Request.Context(), bankIdOf(c), id); err != nil {
		renderError(c, "removeMemberHandler", err)
		return
	}
	c.Status(http.StatusNoContent)
}
