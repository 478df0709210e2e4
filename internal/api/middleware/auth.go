package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/internal/pkg/jwt"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
)

const (
	TenantIDKey = "tenantID"
)

// Auth validates the bearer token and stores the tenant id on the context.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.AuthError(c, "missing authorization header")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			response.AuthError(c, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwt.ParseToken(tokenString, jwtSecret)
		if err != nil {
			response.AuthError(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(TenantIDKey, claims.TenantID)
		c.Next()
	}
}

// GetTenantID reads the tenant id set by Auth.
func GetTenantID(c *gin.Context) (int64, bool) {
	tenantID, exists := c.Get(TenantIDKey)
	if !exists {
		return 0, false
	}
	id, ok := tenantID.(int64)
	return id, ok
}
