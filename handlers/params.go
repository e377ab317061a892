package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/agentbank/ledger_backend/middlewares"
	"github.com/agentbank/ledger_backend/utils"
	"github.com/gin-gonic/gin"
)

func bankIdOf(c *gin.Context) string {
	return middlewares.BankFromContext(c).ID.String()
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &v, true
}

func optionalStringQuery(c *gin.Context, name string) *string {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	return &raw
}

// dateRangeQuery reads from/to as YYYY-MM-DD calendar days of the bank and
// returns the half-open UTC interval [start of from, end of to).
func dateRangeQuery(c *gin.Context) (from, to *time.Time, ok bool) {
	timezone := middlewares.BankFromContext(c).Timezone
	if raw := strings.TrimSpace(c.Query("from")); raw != "" {
		date, err := utils.ParseDate(raw)
		if err != nil {
			badRequest(c, "from must be YYYY-MM-DD")
			return nil, nil, false
		}
		start, _, err := utils.DayRange(date, timezone)
		if err != nil {
			badRequest(c, err.Error())
			return nil, nil, false
		}
		from = &start
	}
	if raw := strings.TrimSpace(c.Query("to")); raw != "" {
		date, err := utils.ParseDate(raw)
		if err != nil {
			badRequest(c, "to must be YYYY-MM-DD")
			return nil, nil, false
		}
		_, end, err := utils.DayRange(date, timezone)
		if err != nil {
			badRequest(c, err.Error())
			return nil, nil, false
		}
		to = &end
	}
	return from, to, true
}

func pagingQuery(c *gin.Context) (limit, offset int, ok bool) {
	l, ok := optionalIntQuery(c, "limit")
	if !ok {
		return 0, 0, false
	}
	o, ok := optionalIntQuery(c, "offset")
	if !ok {
		return 0, 0, false
	}
	return utils.DereferencePtr(l), utils.DereferencePtr(o), true
}

const idempotencyHeader = "Idempotency-Key"

// requestKey prefers the key in the body and falls back to the Idempotency-Key header.
func requestKey(c *gin.Context, bodyKey string) string {
	if bodyKey != "" {
		return bodyKey
	}
	return strings.TrimSpace(c.GetHeader(idempotencyHeader))
}

// createdStatus answers 200 for a replayed request.
func createdStatus(replayed bool) int {
	if replayed {
		return http.StatusOK
	}
	return http.StatusCreated
}
