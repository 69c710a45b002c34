package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// StaffIDKey holds the authenticated staff member's subject claim.
const StaffIDKey = "staff_id"

var staffRoles = map[string]bool{"staff": true, "manager": true, "admin": true}

// StaffAuth guards staff-only routes such as refunds with an HS256 bearer
// token carrying a staff role. An empty secret disables the check, which
// config only allows outside production.
func StaffAuth(secret string, logger *zap.Logger) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Staff authorization required"})
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil || token == nil || !token.Valid {
			logger.Warn("Rejected staff token", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		role, _ := claims["role"].(string)
		if !ok || !staffRoles[role] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "message": "Staff role required"})
			return
		}
		if sub, ok := claims["sub"].(string); ok {
			c.Set(StaffIDKey, sub)
		}
		c.Next()
	}
}
