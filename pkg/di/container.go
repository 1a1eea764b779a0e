package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"campus-support/backend/ai"
	"campus-support/backend/internal/notify"
	"campus-support/backend/internal/repository"
	"campus-support/backend/internal/service"
	"campus-support/backend/pkg/config"
	"campus-support/backend/pkg/health"
	"campus-support/backend/pkg/jwt"
	"campus-support/backend/pkg/logger"
	"campus-support/backend/shared/observability"
	"campus-support/backend/shared/redis"

	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config         *config.Config
	DB             *gorm.DB
	Logger         *logger.Logger
	JWTService     *jwt.Service
	Store          *repository.Store
	Oracle         *ai.Client
	Notifier       notify.Notifier
	Redis          *redis.Client
	Metrics        *observability.Metrics
	MetricsHandler http.Handler
	Health         *health.Checker

	FAQService          *service.FAQService
	ConversationService *service.ConversationService
	AssistantService    *service.AssistantService
	EscalationService   *service.EscalationService
	TicketService       *service.TicketService

	closers []func() error
}

// New creates a new dependency injection container
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger) (*Container, error) {
	if log == nil {
		log = logger.GetGlobal()
	}
	c := &Container{
		Config:     cfg,
		DB:         db,
		Logger:     log,
		JWTService: jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, 24*time.Hour),
		Store:      repository.NewStore(db),
	}

	provider, handler, err := observability.SetupPrometheusMetrics(cfg.Observability.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to set up metrics: %w", err)
	}
	c.closers = append(c.closers, func() error { return provider.Shutdown(context.Background()) })
	c.MetricsHandler = handler
	if c.Metrics, err = observability.NewMetrics(provider); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}

	c.Oracle = ai.NewClient(ai.ClientConfig{
		BaseURL: cfg.Assistant.OracleURL,
		APIKey:  cfg.Assistant.OracleAPIKey,
		Model:   cfg.Assistant.OracleModel,
	}, log)
	if !c.Oracle.Configured() {
		log.Warn("Oracle API key not set, chat will answer 503")
	}

	c.Notifier = c.newNotifier()

	if cfg.Redis.URL != "" {
		client, err := redis.NewClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// Distributed limits are optional; the in-process limiter still applies.
			log.LogError(err, "Redis unavailable, distributed rate limits disabled")
		} else {
			c.Redis = client
			c.closers = append(c.closers, client.Close)
		}
	}

	c.FAQService = service.NewFAQService(c.Store, c.Metrics, log)
	c.ConversationService = service.NewConversationService(c.Store)
	c.AssistantService = service.NewAssistantService(c.ConversationService, c.FAQService, c.Oracle, service.AssistantConfig{
		OracleTimeout: cfg.Assistant.OracleTimeout,
		HistoryLimit:  cfg.Assistant.HistoryLimit,
		MaxMessageLen: cfg.Assistant.MaxMessageLen,
	}, c.Metrics, log)
	c.EscalationService = service.NewEscalationService(c.Store, c.Notifier, service.EscalationConfig{
		TranscriptSize: cfg.Assistant.TranscriptSize,
		NotifyTimeout:  cfg.Notify.Timeout,
	}, c.Metrics, log)
	c.TicketService = service.NewTicketService(c.Store, log)

	c.Health = health.NewChecker(log, 30*time.Second)
	c.Health.RegisterDatabaseCheck(func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})
	c.Health.RegisterOracleCheck(c.Oracle)
	if c.Redis != nil {
		c.Health.RegisterRedisCheck(c.Redis.Ping)
	}

	return c, nil
}

// newNotifier always logs and adds Kafka and Slack when configured
func (c *Container) newNotifier() notify.Notifier {
	channels := notify.Multi{notify.NewLogNotifier(c.Logger)}
	if len(c.Config.Notify.KafkaBrokers) > 0 {
		kafka := notify.NewKafkaNotifier(c.Config.Notify.KafkaBrokers, c.Config.Notify.KafkaTopic)
		c.closers = append(c.closers, kafka.Close)
		channels = append(channels, kafka)
	}
	if c.Config.Notify.SlackWebhookURL != "" {
		channels = append(channels, notify.NewSlackNotifier(c.Config.Notify.SlackWebhookURL))
	}
	return channels
}

// Close drains pending notifications and releases external clients
func (c *Container) Close() error {
	c.EscalationService.Wait()

	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
