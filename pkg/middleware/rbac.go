package middleware

import (
	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// RequireAnyRole returns middleware that requires the user to have at least one of the specified roles
func RequireAnyRole(roles ...jwt.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			c.Error(errors.Unauthorized("Authentication required"))
			c.Abort()
			return
		}

		for _, role := range roles {
			if claims.HasRole(role) {
				c.Next()
				return
			}
		}

		c.Error(errors.Forbidden("Your role does not allow this operation"))
		c.Abort()
	}
}

// RequireStaff admits admins and support agents
func RequireStaff() gin.HandlerFunc {
	return RequireAnyRole(jwt.RoleAdmin, jwt.RoleSupport)
}
