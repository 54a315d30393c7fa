package api

import (
	"net/http"
	"strings"

	"github.com/abigailajohn/VVMA/internal/config"
	"github.com/abigailajohn/VVMA/internal/http/api/handlers"
	"github.com/abigailajohn/VVMA/internal/security"
	"github.com/gin-gonic/gin"
)

// authMiddleware requires a valid bearer token and stashes the caller's
// identity in the request context.
func authMiddleware(jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header missing"})
			return
		}
		token := header
		if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			token = strings.TrimSpace(header[7:])
		}

		claims, errParse := security.ParseUserToken(jwtCfg.Secret, token)
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.Set(handlers.ContextUserID, claims.UserID)
		c.Set(handlers.ContextUserEmail, claims.Email)
		c.Set(handlers.ContextUserRole, claims.Role)
		c.Next()
	}
}
