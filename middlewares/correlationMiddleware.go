package middlewares

import (
	"github.com/agentbank/ledger_backend/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const correlationHeader = "x-correlation-id"

// CorrelationMiddleware attaches one correlation id per request and echoes it back.
func CorrelationMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		cid := c.GetHeader(correlationHeader)
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Header(correlationHeader, cid)
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	}
}
