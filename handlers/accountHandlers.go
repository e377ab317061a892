package handlers

import (
	"net/http"
	"strings"

	"github.com/agentbank/ledger_backend/config"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func getAccountsHandler(c *gin.Context) {
	var kind *models.AccountKind
	if raw := strings.TrimSpace(c.Query("kind")); raw != "" {
		k := models.AccountKind(raw)
		if !k.IsValid() {
			badRequest(c, "invalid kind")
			return
		}
		kind = &k
	}
	accounts, err := models.GetAccounts(c.Request.Context(), bankIdOf(c), kind)
	if err != nil {
		renderError(c, "getAccountsHandler", err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

func getHandCashHandler(c *gin.Context) {
	ctx := c.Request.Context()
	account, err := models.GetHandCash(config.GetDB().WithContext(ctx), bankIdOf(c))
	if err != nil {
		renderError(c, "getHandCashHandler", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func createMotherAccountHandler(c *gin.Context) {
	var input models.NewMotherAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := workflow.CreateMotherAccount(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "createMotherAccountHandler", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func updateMotherAccountHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.UpdateMotherAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := models.UpdateMotherAccount(c.Request.Context(), bankIdOf(c), id, &input)
	if err != nil {
		renderError(c, "updateMotherAccountHandler", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func toggleActiveMotherAccountHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input toggleActiveRequest
	if err := c.ShouldBindJSON(&input); err != nil || input.IsActive == nil {
		badRequest(c, "is_active is required")
		return
	}
	account, err := models.ToggleActiveMotherAccount(c.Request.Context(), bankIdOf(c), id, *input.IsActive)
	if err != nil {
		renderError(c, "toggleActiveMotherAccountHandler", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func createProfitAccountHandler(c *gin.Context) {
	var input models.NewProfitAccount
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := workflow.CreateProfitAccount(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "createProfitAccountHandler", err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

func updateProfitAccountHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input models.UpdateProfitAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	account, err := models.UpdateProfitAccount(c.Request.Context(), bankIdOf(c), id, &input)
	if err != nil {
		renderError(c, "updateProfitAccountHandler", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

type thresholdRequest struct {
	LowBalanceThreshold *decimal.Decimal `json:"low_balance_threshold"`
}

func updateHandCashThresholdHandler(c *gin.Context) {
	var input thresholdRequest
	if err := c.ShouldBindJSON(&input); err != nil || input.LowBalanceThreshold == nil {
		badRequest(c, "low_balance_threshold is required")
		return
	}
	account, err := models.UpdateHandCashThreshold(c.Request.Context(), bankIdOf(c), *input.LowBalanceThreshold)
	if err != nil {
		renderError(c, "updateHandCashThresholdHandler", err)
		return
	}
	c.JSON(http.StatusOK, account)
}

func getLedgerEntriesHandler(c *gin.Context) {
	accountId, ok := optionalIntQuery(c, "account_id")
	if !ok {
		return
	}
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	entries, err := models.GetLedgerEntries(c.Request.Context(), bankIdOf(c), accountId, from, to)
	if err != nil {
		renderError(c, "getLedgerEntriesHandler", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func getExpenseCategoriesHandler(c *gin.Context) {
	categories, err := models.GetExpenseCategories(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "getExpenseCategoriesHandler", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func createExpenseCategoryHandler(c *gin.Context) {
	var input models.NewExpenseCategory
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	category, err := models.CreateExpenseCategory(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "createExpenseCategoryHandler", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
