package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonathan/skill-roadmap/internal/cache"
	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/db"
	"github.com/jonathan/skill-roadmap/internal/events"
	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/metrics"
	"github.com/jonathan/skill-roadmap/internal/roadmap"
)

// components holds the backing services of the engine. Optional backends
// degrade to in-process implementations when they are not configured.
type components struct {
	repo        roadmap.Repository
	skills      roadmap.SkillLookup
	memory      *roadmap.MemoryRepository // set when no database is configured
	cache       cache.Cache
	memoryCache *cache.MemoryCache // set when no redis is configured
	publisher   events.Publisher
	metrics     *metrics.Metrics
	generator   llm.Generator
	client      *llm.ResilientClient
	llmConfig   *llm.Config
	health      func(context.Context) error
	closers     []func() error
}

func buildComponents(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (*components, error) {
	c := &components{
		metrics: metrics.New(),
		health:  func(context.Context) error { return nil },
	}

	if err := c.connectStorage(ctx, cfg, logger); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectCache(ctx, cfg, logger); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.connectEvents(cfg, logger); err != nil {
		c.Close()
		return nil, err
	}

	c.llmConfig = cfg.LLMConfig()
	generator, err := llm.NewGenerator(ctx, c.llmConfig)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create LLM generator: %w", err)
	}
	c.generator = generator
	c.closers = append(c.closers, generator.Close)
	c.client = llm.NewResilientClient(generator, c.llmConfig.GetModel(llm.TierFallback), llm.WithLogger(logger))

	return c, nil
}

func (c *components) connectStorage(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, roadmaps are kept in memory")
		c.memory = roadmap.NewMemoryRepository()
		c.repo, c.skills = c.memory, c.memory
		return nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.closers = append(c.closers, func() error {
		database.Close()
		return nil
	})
	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	c.repo, c.skills = database, database
	c.health = database.Ping
	return nil
}

func (c *components) connectCache(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) error {
	if cfg.RedisURL == "" {
		c.memoryCache = cache.NewMemoryCache(
			cache.WithTTL(cfg.CacheTTL),
			cache.WithSweepInterval(cfg.CacheSweepInterval),
			cache.WithLogger(logger),
		)
		c.cache = c.memoryCache
		return nil
	}

	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, client.Close)
	c.cache = cache.NewRedisCache(client, cfg.CacheTTL, logger)
	return nil
}

func (c *components) connectEvents(cfg *config.ServerConfig, logger *slog.Logger) error {
	if cfg.NATSURL == "" {
		c.publisher = events.Noop{}
		return nil
	}

	publisher, err := events.Connect(cfg.NATSURL, logger)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, publisher.Close)
	c.publisher = publisher
	return nil
}

// service assembles the roadmap engine over the components.
func (c *components) service(logger *slog.Logger) *roadmap.Service {
	return roadmap.NewService(
		roadmap.NewStore(c.repo),
		c.skills,
		c.cache,
		c.client,
		c.llmConfig.GetModel(llm.TierDefault),
		roadmap.WithMetrics(c.metrics),
		roadmap.WithPublisher(c.publisher),
		roadmap.WithLogger(logger),
	)
}

// Close releases the components in reverse order of acquisition.
func (c *components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
