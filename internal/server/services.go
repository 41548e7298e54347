package server

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/leadloom/leadloom/internal/config"
	"github.com/leadloom/leadloom/internal/service"
	"github.com/leadloom/leadloom/internal/service/ai"
	"github.com/leadloom/leadloom/internal/service/notion"
	"github.com/leadloom/leadloom/pkg/cache"
)

// Services is the fully wired service graph shared by the HTTP server and the
// one-shot CLI commands.
type Services struct {
	DB    *gorm.DB
	Redis *redis.Client

	Content       *service.ContentService
	Sources       *service.SourceService
	Publish       *service.PublishService
	Analytics     *service.AnalyticsService
	Notifications *service.NotificationService
	Monitoring    *service.MonitoringService
	Auth          *service.AuthService
	Scheduler     *service.Scheduler
	Housekeeper   *service.Housekeeper
}

func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Services, error) {
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	svc := &Services{DB: db}

	var (
		summaries cache.Cache
		sessions  cache.Cache
		runLock   service.RunLock
	)
	cacheTTL := config.Duration(cfg.Cache.TTL)
	sessionTTL := config.Duration(cfg.Auth.SessionTTL)

	if cfg.Redis.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			svc.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		svc.Redis = client

		summaries = cache.NewRedisCache(client, cfg.Redis.Prefix+"cache:", cacheTTL)
		sessions = cache.NewRedisCache(client, cfg.Redis.Prefix, sessionTTL)
		runLock = service.NewRedisLock(client, cfg.Redis.Prefix+"scheduler:lock", config.Duration(cfg.Scheduler.LockTTL), logger)
		logger.Info("Using redis for cache, sessions and scheduler lock", zap.String("addr", cfg.Redis.Addr))
	} else {
		summaries = cache.NewMemoryCache(cacheTTL)
		sessions = cache.NewMemoryCache(sessionTTL)
	}

	generator, err := ai.NewGeminiGenerator(ctx, ai.Config{
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     config.Duration(cfg.AI.Timeout),
	}, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}

	seeds := notion.NewClient(notion.Config{
		BaseURL:      cfg.Notion.BaseURL,
		Token:        cfg.Notion.Token,
		APIVersion:   cfg.Notion.APIVersion,
		StatusFilter: cfg.Notion.StatusFilter,
	}, logger)

	svc.Notifications = service.NewNotificationService(db, logger)
	svc.Monitoring = service.NewMonitoringService(db, logger)
	svc.Content = service.NewContentService(db, generator, seeds, logger)
	svc.Sources = service.NewSourceService(db, logger)
	svc.Analytics = service.NewAnalyticsService(db, summaries, logger)
	svc.Auth = service.NewAuthService(&cfg.Auth, sessions, logger)
	publishManager, err := service.NewPublishManager(ctx, &cfg.Publisher, logger)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Publish = service.NewPublishService(
		&cfg.Publisher,
		db,
		publishManager,
		svc.Notifications,
		svc.Monitoring,
		svc.Analytics,
		logger,
	)
	// Every publish run, timed or triggered, goes through the scheduler's lock.
	svc.Scheduler = service.NewScheduler(&cfg.Scheduler, logger, svc.Publish, runLock)
	if cfg.Monitoring.Enabled {
		svc.Housekeeper = service.NewHousekeeper(
			svc.Monitoring,
			svc.Analytics,
			logger,
			config.Duration(cfg.Monitoring.CleanupInterval),
			cfg.Monitoring.RetentionDays,
		)
	}

	return svc, nil
}

// Close releases the database pool and the redis client.
func (s *Services) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
