package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fz-restaurant/internal/utils"
)

const ClaimsKey = "claims"

// JWTAuth requires a bearer token carrying the admin role.
func JWTAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenStr := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || tokenStr == header {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing bearer token",
				"error":   "UNAUTHORIZED",
			})
			return
		}

		claims, err := utils.ParseToken(secret, tokenStr)
		if err != nil {
			log.WithError(err).WithField("path", c.Request.URL.Path).Debug("Rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
				"error":   "UNAUTHORIZED",
			})
			return
		}
		if claims.Role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Admin access required",
				"error":   "FORBIDDEN",
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
