package handlers

import (
	"net/http"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

func depositHandler(c *gin.Context) {
	var input workflow.DepositInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.IdempotencyKey = requestKey(c, input.IdempotencyKey)
	result, err := workflow.Deposit(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "depositHandler", err)
		return
	}
	c.JSON(createdStatus(result.Replayed), result)
}

// withdrawalHandler takes the shortage path when shortage_amount is non-zero.
func withdrawalHandler(c *gin.Context) {
	var input workflow.WithdrawalInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.IdempotencyKey = requestKey(c, input.IdempotencyKey)
	ctx := c.Request.Context()
	var (
		result *workflow.TransactionResult
		err    error
	)
	if input.HasShortage() {
		result, err = workflow.WithdrawalWithShortage(ctx, bankIdOf(c), &input)
	} else {
		result, err = workflow.Withdrawal(ctx, bankIdOf(c), &input)
	}
	if err != nil {
		renderError(c, "withdrawalHandler", err)
		return
	}
	c.JSON(createdStatus(result.Replayed), result)
}

func cashInHandler(c *gin.Context) {
	var input workflow.CashInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.IdempotencyKey = requestKey(c, input.IdempotencyKey)
	result, err := workflow.CashIn(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "cashInHandler", err)
		return
	}
	c.JSON(createdStatus(result.Replayed), result)
}

func editTransactionHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input workflow.EditTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := workflow.EditTransaction(c.Request.Context(), bankIdOf(c), id, &input)
	if err != nil {
		renderError(c, "editTransactionHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getTransactionHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := models.GetTransaction(c.Request.Context(), bankIdOf(c), id)
	if err != nil {
		renderError(c, "getTransactionHandler", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func listTransactionsHandler(c *gin.Context) {
	filter := models.TransactionFilter{
		PerformedBy: optionalStringQuery(c, "performed_by"),
		Search:      optionalStringQuery(c, "search"),
	}
	if raw := optionalStringQuery(c, "type"); raw != nil {
		t := models.TransactionType(*raw)
		if !t.IsValid() {
			badRequest(c, "invalid type")
			return
		}
		filter.Type = &t
	}
	var ok bool
	if filter.MotherAccountId, ok = optionalIntQuery(c, "mother_account_id"); !ok {
		return
	}
	if filter.From, filter.To, ok = dateRangeQuery(c); !ok {
		return
	}
	if filter.Limit, filter.Offset, ok = pagingQuery(c); !ok {
		return
	}
	records, err := models.ListTransactions(c.Request.Context(), bankIdOf(c), filter)
	if err != nil {
		renderError(c, "listTransactionsHandler", err)
		return
	}
	c.JSON(http.StatusOK, records)
}
