package handlers

import (
	"net/http"

	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

func recordExpenseHandler(c *gin.Context) {
	var input workflow.ExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	input.IdempotencyKey = requestKey(c, input.IdempotencyKey)
	result, err := workflow.RecordExpense(c.Request.Context(), bankIdOf(c), &input)
	if err != nil {
		renderError(c, "recordExpenseHandler", err)
		return
	}
	c.JSON(createdStatus(result.Replayed), result)
}

func editExpenseHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input workflow.EditExpenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	result, err := workflow.EditExpense(c.Request.Context(), bankIdOf(c), id, &input)
	if err != nil {
		renderError(c, "editExpenseHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getExpenseHandler(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	record, err := models.GetExpense(c.Request.Context(), bankIdOf(c), id)
	if err != nil {
		renderError(c, "getExpenseHandler", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func listExpensesHandler(c *gin.Context) {
	var filter models.ExpenseFilter
	if raw := optionalStringQuery(c, "deducted_from"); raw != nil {
		kind := models.AccountKind(*raw)
		if !kind.IsValid() {
			badRequest(c, "invalid deducted_from")
			return
		}
		filter.DeductedFrom = &kind
	}
	var ok bool
	if filter.CategoryId, ok = optionalIntQuery(c, "category_id"); !ok {
		return
	}
	if filter.From, filter.To, ok = dateRangeQuery(c); !ok {
		return
	}
	if filter.Limit, filter.Offset, ok = pagingQuery(c); !ok {
		return
	}
	records, err := models.ListExpenses(c.Request.Context(), bankIdOf(c), filter)
	if err != nil {
		renderError(c, "listExpensesHandler", err)
		return
	}
	c.JSON(http.StatusOK, records)
}
