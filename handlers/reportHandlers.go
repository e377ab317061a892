package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/middlewares"
	"github.com/agentbank/ledger_backend/models"
	"github.com/agentbank/ledger_backend/models/reports"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/agentbank/ledger_backend/workflow"
	"github.com/gin-gonic/gin"
)

func todaySummaryHandler(c *gin.Context) {
	summary, err := models.GetTodaySummary(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "todaySummaryHandler", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func lowBalanceAlertsHandler(c *gin.Context) {
	alerts, err := models.GetLowBalanceAlerts(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "lowBalanceAlertsHandler", err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

type generateDailyLogRequest struct {
	Date string `json:"date"`
}

func generateDailyLogHandler(c *gin.Context) {
	var input generateDailyLogRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	var date time.Time
	if strings.TrimSpace(input.Date) != "" {
		parsed, err := utils.ParseDate(input.Date)
		if err != nil {
			badRequest(c, "date must be YYYY-MM-DD")
			return
		}
		date = parsed
	}
	dailyLog, err := workflow.GenerateDailyLog(c.Request.Context(), bankIdOf(c), date)
	if err != nil {
		renderError(c, "generateDailyLogHandler", err)
		return
	}
	c.JSON(http.StatusOK, dailyLog)
}

// periodReportHandler sums the from..to days (YYYY-MM-DD, both required).
func periodReportHandler(c *gin.Context) {
	from, err := utils.ParseDate(strings.TrimSpace(c.Query("from")))
	if err != nil {
		badRequest(c, "from must be YYYY-MM-DD")
		return
	}
	to, err := utils.ParseDate(strings.TrimSpace(c.Query("to")))
	if err != nil {
		badRequest(c, "to must be YYYY-MM-DD")
		return
	}
	report, err := models.GetPeriodReport(c.Request.Context(), bankIdOf(c), from, to)
	if err != nil {
		renderError(c, "periodReportHandler", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// getDailyLogsHandler returns the from..to range when both are given, otherwise
// the latest logs.
func getDailyLogsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	fromRaw, toRaw := strings.TrimSpace(c.Query("from")), strings.TrimSpace(c.Query("to"))
	if fromRaw != "" && toRaw != "" {
		from, err := utils.ParseDate(fromRaw)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return
		}
		to, err := utils.ParseDate(toRaw)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return
		}
		logs, err := models.GetDailyLogs(ctx, bankIdOf(c), from, to)
		if err != nil {
			renderError(c, "getDailyLogsHandler", err)
			return
		}
		c.JSON(http.StatusOK, logs)
		return
	}

	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	logs, err := models.GetLatestDailyLogs(ctx, bankIdOf(c), utils.DereferencePtr(limit))
	if err != nil {
		renderError(c, "getDailyLogsHandler", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

// exportLedgerHandler streams an xlsx of the from..to days, today by default.
func exportLedgerHandler(c *gin.Context) {
	from, to, ok := dateRangeQuery(c)
	if !ok {
		return
	}
	if from == nil || to == nil {
		bank := middlewares.BankFromContext(c)
		today, err := utils.ConvertToDate(time.Now(), bank.Timezone)
		if err != nil {
			renderError(c, "exportLedgerHandler", err)
			return
		}
		start, end, err := utils.DayRange(today, bank.Timezone)
		if err != nil {
			renderError(c, "exportLedgerHandler", err)
			return
		}
		if from == nil {
			from = &start
		}
		if to == nil {
			to = &end
		}
	}

	f, err := reports.BuildLedgerWorkbook(c.Request.Context(), bankIdOf(c), *from, *to)
	if err != nil {
		renderError(c, "exportLedgerHandler", err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=ledger.xlsx")
	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}

func verifyLedgerHandler(c *gin.Context) {
	result, err := workflow.VerifyLedger(c.Request.Context(), bankIdOf(c))
	if err != nil {
		renderError(c, "verifyLedgerHandler", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func getReconciliationReportsHandler(c *gin.Context) {
	limit, ok := optionalIntQuery(c, "limit")
	if !ok {
		return
	}
	reports, err := models.GetReconciliationReports(c.Request.Context(), bankIdOf(c), utils.DereferencePtr(limit, 100))
	if err != nil {
		renderError(c, "getReconciliationReportsHandler", err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
