package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/server"
	"github.com/jonathan/skill-roadmap/internal/server/ratelimit"
)

func newServeCmd(global *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  `Start an HTTP server that exposes REST endpoints for generating, revising and tracking learning roadmaps.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, global.configFile, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, configFile string, port int) error {
	cfg, err := config.LoadServerConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return fmt.Errorf("failed to load JWT config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := buildComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("Error releasing resources", "error", err)
		}
	}()

	limiter := ratelimit.NewLimiter(ratelimit.LoadConfig())
	srv := server.New(server.Config{
		Addr:        cfg.Addr(),
		Roadmaps:    deps.service(logger),
		Tokens:      server.NewJWTService(jwtConfig).AsTokenValidator(),
		RateLimiter: limiter,
		Metrics:     deps.metrics.Handler(),
		HealthCheck: deps.health,
		Logger:      logger,
	})

	logger.Info("Starting roadmap service",
		"addr", cfg.Addr(),
		"llm_provider", cfg.LLMProvider,
		"default_model", deps.llmConfig.GetModel(llm.TierDefault),
		"database", cfg.DatabaseURL != "",
		"redis", cfg.RedisURL != "",
		"nats", cfg.NATSURL != "")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return limiter.Run(gctx) })
	if deps.memoryCache != nil {
		g.Go(func() error { return deps.memoryCache.Run(gctx) })
	}
	return g.Wait()
}
