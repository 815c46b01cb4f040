package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"user-record-service/cmd/api/infrastructure"
	ginhandler "user-record-service/internal/adapter/gin/handler"
	"user-record-service/internal/adapter/grpc/middleware"
	"user-record-service/internal/config"
	"user-record-service/internal/usecase/user"
	redisclient "user-record-service/pkg/redis"
)

// Container holds all application dependencies
type Container struct {
	Config        *config.Config
	Logger        *zap.Logger
	Storage       *infrastructure.Storage
	RedisClient   *redisclient.Client
	RecordStore   *user.RecordStore
	RateLimiter   *middleware.RateLimiter
	UserHandler   *ginhandler.UserHandler
	HealthHandler *ginhandler.HealthHandler
}

// NewContainer creates and initializes all application dependencies
func NewContainer(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Container, error) {
	// Validate configuration before initializing any dependencies
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	c := &Container{Config: cfg, Logger: l}

	// Redis is shared by the rate limiter and the redis backend
	rdb, err := infrastructure.NewRedisClient(cfg, l)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}
	c.RedisClient = rdb

	storage, err := infrastructure.NewStorage(ctx, cfg, rdb, l)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.Storage = storage

	c.RecordStore = user.New(storage.Store, l)

	if rdb != nil {
		c.RateLimiter = middleware.NewRateLimiter(
			rdb.Client,
			middleware.RateLimiterConfig{
				RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
				WindowSeconds:     cfg.RateLimit.WindowSeconds,
				Enabled:           cfg.RateLimit.Enabled,
			},
			l,
		)
	}

	c.UserHandler = ginhandler.NewUserHandler(c.RecordStore, l)
	c.HealthHandler = ginhandler.NewHealthHandler(cfg.Logger.ServiceName, cfg.Storage.Backend, c.RecordStore)

	return c, nil
}

// Close closes all resources held by the container
func (c *Container) Close() error {
	var errs []error

	if c.Storage != nil {
		if err := c.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}

	// Close Redis connection
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	return errors.Join(errs...)
}
