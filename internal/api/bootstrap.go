package api

import (
	"fmt"

	"shopcsv/internal/cache"
	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/queue"
	"shopcsv/internal/report"
	"shopcsv/internal/services/shopify"
)

// Bootstrap connects the database, state store and job queue from cfg and
// returns a ready server. The returned cleanup releases them.
func Bootstrap(cfg *config.Config, logger *logger.Logger) (*Server, func(), error) {
	db, err := database.New(cfg.DatabaseURL, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	var states cache.StateStore = cache.NewMemoryStateStore()
	var redisStates *cache.RedisStateStore
	if cfg.RedisURL != "" {
		redisStates, err = cache.NewRedisStateStore(cfg.RedisURL)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		states = redisStates
	} else {
		logger.Warn("REDIS_URL not set, OAuth state is kept in memory")
	}

	publisher := queue.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)

	server := New(cfg, logger, db, Dependencies{
		OAuth:     shopify.NewOAuthService(cfg, logger),
		States:    states,
		Generator: report.NewGenerator(cfg, logger, report.ShopifyAPIFactory(cfg, logger)),
		Jobs:      publisher,
	})

	cleanup := func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close publisher: %v", err)
		}
		if redisStates != nil {
			redisStates.Close()
		}
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database: %v", err)
		}
	}
	return server, cleanup, nil
}
