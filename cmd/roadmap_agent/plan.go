package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/skill-roadmap/internal/observability"
	"github.com/jonathan/skill-roadmap/internal/planning"
)

type planOptions struct {
	level  string
	goals  []string
	months int
	json   bool
}

func newPlanCmd() *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Build a deterministic learning plan offline",
		Long:  "Builds the phased learning plan the service falls back to when the generative model is unavailable. No network access is needed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.level, "level", "l", planning.LevelBeginner, "Skill level (Beginner, Intermediate, Advanced)")
	cmd.Flags().StringSliceVarP(&opts.goals, "goal", "g", nil, "Learning goal (repeatable)")
	cmd.Flags().IntVarP(&opts.months, "months", "m", 3, "Timeframe in months")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the plan as JSON")
	return cmd
}

func runPlan(cmd *cobra.Command, opts *planOptions) error {
	if opts.months < 0 {
		return fmt.Errorf("months must not be negative, got %d", opts.months)
	}

	plan := planning.BuildFallback(opts.level, opts.goals, opts.months)
	if opts.json {
		return printJSON(cmd, plan)
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintPlan(plan)
	return nil
}
