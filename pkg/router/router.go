package router

import (
	"context"
	"net/http"
	"time"

	"campus-support/backend/internal/api"
	"campus-support/backend/pkg/config"
	"campus-support/backend/pkg/di"
	"campus-support/backend/pkg/errors"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/pkg/middleware"
	"campus-support/backend/pkg/validator"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	limiter gin.HandlerFunc
}

// New creates a new router with the given container. ctx bounds background
// work owned by the middleware.
func New(ctx context.Context, container *di.Container) *Router {
	logger.SetGlobal(container.Logger)
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Logger first so every later middleware sees the request-scoped logger.
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(corsMiddleware(cfg.Security.AllowedOrigins))

	opts := middleware.DefaultRateLimiterOptions()
	if cfg.Security.RateLimit > 0 {
		opts.Limit = rate.Limit(cfg.Security.RateLimit)
	}
	if cfg.Security.RateLimitBurst > 0 {
		opts.Burst = cfg.Security.RateLimitBurst
	}

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
		limiter:   middleware.NewRateLimiter(container.Logger, opts).Middleware(ctx),
	}
}

// AddOpenAPIValidation validates /api/v1 requests against the schema at path.
// Must run before SetupRoutes.
func (r *Router) AddOpenAPIValidation(path string) error {
	v, err := validator.NewOpenAPIValidator(path)
	if err != nil {
		return err
	}
	r.Engine.Use(v.Middleware())
	r.Logger.Info("OpenAPI request validation enabled", "schema", path)
	return nil
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	r.setupHealthRoutes()

	v1 := r.Engine.Group("/api/v1")
	// The limiter keys by user id, so it runs after Authenticate.
	v1.Use(middleware.Authenticate(r.Container.JWTService, r.Logger), r.limiter)

	v1.GET("/health", r.Container.Health.LiveHandler())

	var chatGuards, escalateGuards []gin.HandlerFunc
	if redis := r.Container.Redis; redis != nil {
		chatGuards = append(chatGuards,
			middleware.WindowLimit(redis, "chat", r.Config.Security.ChatLimitPerMinute, time.Minute, r.Logger))
		escalateGuards = append(escalateGuards,
			middleware.WindowLimit(redis, "escalate", r.Config.Security.EscalateLimitPerHour, time.Hour, r.Logger))
	}

	api.NewChatHandler(r.Container.AssistantService, r.Container.ConversationService).RegisterRoutes(v1, chatGuards...)
	api.NewFAQHandler(r.Container.FAQService).RegisterRoutes(v1)
	api.NewEscalationHandler(r.Container.EscalationService).RegisterRoutes(v1, escalateGuards...)
	api.NewTicketHandler(r.Container.TicketService).RegisterRoutes(v1)

	r.Engine.NoRoute(func(c *gin.Context) {
		c.Error(errors.NotFound("Route not found"))
	})
}

func corsMiddleware(allowed []string) gin.HandlerFunc {
	allowAll := len(allowed) == 0
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		switch {
		case allowAll:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case origins[origin]:
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Add("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Authorization, Origin, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Retry-After")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
