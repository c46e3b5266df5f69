package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/skill-roadmap/internal/cache"
	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/observability"
	"github.com/jonathan/skill-roadmap/internal/roadmap"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// completerFactory builds the completion client, its default model and a release func.
type completerFactory func(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (roadmap.Completer, string, func() error, error)

func defaultCompleter(ctx context.Context, cfg *config.ServerConfig, logger *slog.Logger) (roadmap.Completer, string, func() error, error) {
	llmConfig := cfg.LLMConfig()
	generator, err := llm.NewGenerator(ctx, llmConfig)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create LLM generator: %w", err)
	}
	client := llm.NewResilientClient(generator, llmConfig.GetModel(llm.TierFallback), llm.WithLogger(logger))
	return client, llmConfig.GetModel(llm.TierDefault), generator.Close, nil
}

type generateOptions struct {
	skill        string
	level        string
	goals        []string
	months       int
	style        string
	availability int
	verbose      bool
}

func newGenerateCmd(global *globalOptions, newCompleter completerFactory) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one roadmap against the configured model",
		Long:  "Generates a single roadmap with the configured LLM provider, using an in-memory store, and prints it. Falls back to the deterministic plan when the model is unavailable.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, global.configFile, opts, newCompleter)
		},
	}
	cmd.Flags().StringVarP(&opts.skill, "skill", "s", "", "Skill name (required)")
	cmd.Flags().StringVarP(&opts.level, "level", "l", "Beginner", "Skill level")
	cmd.Flags().StringSliceVarP(&opts.goals, "goal", "g", nil, "Learning goal (repeatable, required)")
	cmd.Flags().IntVarP(&opts.months, "months", "m", types.DefaultTimeframeMonths, "Timeframe in months")
	cmd.Flags().StringVar(&opts.style, "style", "", "Learning style, e.g. hands-on")
	cmd.Flags().IntVar(&opts.availability, "availability", 0, "Hours per week")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log retries and model switches")

	if err := cmd.MarkFlagRequired("skill"); err != nil {
		panic(fmt.Sprintf("failed to mark skill flag as required: %v", err))
	}
	if err := cmd.MarkFlagRequired("goal"); err != nil {
		panic(fmt.Sprintf("failed to mark goal flag as required: %v", err))
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, configFile string, opts *generateOptions, newCompleter completerFactory) error {
	cfg, err := config.LoadServerConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogFormat, level)
	ctx := cmd.Context()

	client, model, closeClient, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeClient(); err != nil {
			logger.Warn("Error closing LLM client", "error", err)
		}
	}()

	repo := roadmap.NewMemoryRepository()
	skill := types.Skill{ID: uuid.New(), Name: opts.skill, Level: opts.level}
	repo.AddSkill(skill)

	service := roadmap.NewService(roadmap.NewStore(repo), repo, cache.NewMemoryCache(), client, model,
		roadmap.WithLogger(logger))

	result, err := service.Generate(ctx, uuid.New(), types.GenerateRequest{
		SkillID:   skill.ID,
		Goals:     opts.goals,
		Timeframe: opts.months,
		Preferences: types.Preferences{
			LearningStyle: opts.style,
			Availability:  opts.availability,
		},
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintRoadmap(result.Roadmap)
	if result.Message != "" {
		fmt.Fprintln(cmd.OutOrStdout(), result.Message)
	}
	return nil
}
