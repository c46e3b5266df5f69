// Package main provides the entry point for the skill roadmap engine.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "roadmap_agent",
		Short:         "Skill Roadmap HTTP API Server",
		Long:          "Skill Roadmap generates personalized, multi-step learning roadmaps for a skill, learner goals and a timeframe, and revises them from learner feedback via REST API.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "Optional config file (yaml or json); environment variables override it")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newPlanCmd(),
		newGenerateCmd(opts, defaultCompleter),
		newTokenCmd(),
		newSkillsCmd(opts),
	)
	return rootCmd
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger for the configured format.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
