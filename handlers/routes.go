package handlers

import (
	"github.com/agentbank/ledger_backend/middlewares"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the ledger API under /api. Every route requires a bearer
// token; routes below /api/banks/:bankId are scoped to that bank and need a
// membership. Member management, restore, reset and backup import or delete are
// for owners.
func RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api", middlewares.AuthMiddleware())
	api.GET("/banks", getMyBanksHandler)
	api.POST("/banks", createBankHandler)

	bank := api.Group("/banks/:bankId", middlewares.BankMiddleware())
	owner := middlewares.RequireBankOwner()
	bank.GET("", getBankHandler)
	bank.PUT("", owner, updateBankHandler)

	bank.GET("/members", getMembersHandler)
	bank.POST("/members", owner, addMemberHandler)
	bank.PUT("/members/:id", owner, updateMemberRoleHandler)
	bank.DELETE("/members/:id", owner, removeMemberHandler)

	bank.GET("/accounts", getAccountsHandler)
	bank.GET("/hand-cash", getHandCashHandler)
	bank.PUT("/hand-cash/threshold", updateHandCashThresholdHandler)
	bank.POST("/mother-accounts", createMotherAccountHandler)
	bank.PUT("/mother-accounts/:id", updateMotherAccountHandler)
	bank.PUT("/mother-accounts/:id/active", toggleActiveMotherAccountHandler)
	bank.POST("/profit-accounts", createProfitAccountHandler)
	bank.PUT("/profit-accounts/:id", updateProfitAccountHandler)
	bank.GET("/ledger-entries", getLedgerEntriesHandler)

	bank.GET("/expense-categories", getExpenseCategoriesHandler)
	bank.POST("/expense-categories", createExpenseCategoryHandler)

	bank.POST("/deposits", depositHandler)
	bank.POST("/withdrawals", withdrawalHandler)
	bank.POST("/cash-ins", cashInHandler)
	bank.GET("/transactions", listTransactionsHandler)
	bank.GET("/transactions/:id", getTransactionHandler)
	bank.PUT("/transactions/:id", editTransactionHandler)

	bank.POST("/expenses", recordExpenseHandler)
	bank.GET("/expenses", listExpensesHandler)
	bank.GET("/expenses/:id", getExpenseHandler)
	bank.PUT("/expenses/:id", editExpenseHandler)

	bank.GET("/summary/today", todaySummaryHandler)
	bank.GET("/report", periodReportHandler)
	bank.GET("/alerts", lowBalanceAlertsHandler)
	bank.POST("/daily-logs", generateDailyLogHandler)
	bank.GET("/daily-logs", getDailyLogsHandler)
	bank.POST("/reconciliation", verifyLedgerHandler)
	bank.GET("/reconciliation", getReconciliationReportsHandler)
	bank.GET("/export", exportLedgerHandler)

	bank.POST("/backups", createBackupHandler)
	bank.GET("/backups", getBackupsHandler)
	bank.POST("/backups/import", owner, importBackupHandler)
	bank.GET("/backups/:id/download", downloadBackupHandler)
	bank.DELETE("/backups/:id", owner, deleteBackupHandler)
	bank.POST("/backups/:id/restore", owner, restoreBackupHandler)
	bank.POST("/reset", owner, resetAllHandler)
}
