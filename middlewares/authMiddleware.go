package middlewares

import (
	"net/http"
	"strings"

	"github.com/agentbank/ledger_backend/utils"
	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// AuthMiddleware requires a bearer token from the identity provider and records
// its subject as the performer of every operation in the request.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		if !strings.HasPrefix(auth, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		token := strings.TrimSpace(auth[len(bearerPrefix):])

		claims, err := utils.JwtValidate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := utils.SetUserIdInContext(c.Request.Context(), claims.Subject)
		ctx = utils.SetUserRoleInContext(ctx, claims.Role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// IsAdmin reports whether the caller's token carries the admin role.
func IsAdmin(c *gin.Context) bool {
	role, _ := utils.GetUserRoleFromContext(c.Request.Context())
	return role == "admin"
}
