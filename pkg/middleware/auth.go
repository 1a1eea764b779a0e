package middleware

import (
	"strings"

	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/jwt"
	"campus-support/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Context keys set by Authenticate
const (
	ClaimsKey = "claims"
	UserIDKey = "userID"
	RoleKey   = "userRole"
)

// Authenticate resolves an optional bearer token. Requests without an
// Authorization header continue as guests; a malformed or expired token is
// rejected so a client never silently loses its identity.
func Authenticate(jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			log.Warn("Invalid JWT token", "error", err.Error(), "path", c.Request.URL.Path)
			c.Error(errors.Unauthorized("Invalid or expired token"))
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, string(claims.Role))
		c.Next()
	}
}

// RequireAuth rejects guests
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ClaimsFrom(c) == nil {
			c.Error(errors.Unauthorized("Authentication required"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the caller's claims, nil for guests
func ClaimsFrom(c *gin.Context) *jwt.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
