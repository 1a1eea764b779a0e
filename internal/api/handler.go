// Package api holds the HTTP handlers of the support service.
package api

import (
	"strconv"

	"campus-support/backend/internal/models"
	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// actorFrom resolves the caller from the auth middleware; guests get a zero Actor
func actorFrom(c *gin.Context) models.Actor {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		return models.Actor{}
	}
	return models.Actor{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   string(claims.Role),
		Staff:  claims.IsStaff(),
	}
}

func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.Error(errors.InvalidArgument("Invalid " + name))
		return 0, false
	}
	return uint(id), true
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.Error(errors.InvalidArgument("Invalid " + name))
		return 0, false
	}
	return n, true
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(errors.InvalidArgument("Invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}

func withGuards(guards []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(guards)+1)
	chain = append(chain, guards...)
	return append(chain, handler)
}
