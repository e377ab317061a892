package handlers

import (
	"net/http"

	"github.com/agentbank/ledger_backend/middlewares"
	"github.com/agentbank/ledger_backend/models"
	"github.com/gin-gonic/gin"
)

func createBankHandler(c *gin.Context) {
	var input models.NewBank
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	bank, err := models.CreateBank(c.Request.Context(), &input)
	if err != nil {
		renderError(c, "createBankHandler", err)
		return
	}
	c.JSON(http.StatusCreated, bank)
}

func getBankHandler(c *gin.Context) {
	c.JSON(http.StatusOK, middlewares.BankFromContext(c))
}

func updateBankHandler(c *gin.Context) {
	var input models.NewBank
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	bank, err := models.UpdateBank(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "updateBankHandler", err)
		return
	}
	c.JSON(http.StatusOK, bank)
}
