package router

import (
	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers probe and metrics endpoints outside /api/v1
func (r *Router) setupHealthRoutes() {
	r.Engine.GET("/health", r.Container.Health.LiveHandler())
	r.Engine.GET("/ready", r.Container.Health.ReadyHandler())
	r.Engine.GET("/metrics", gin.WrapH(r.Container.MetricsHandler))
}
