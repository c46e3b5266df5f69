package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/skill-roadmap/internal/config"
	"github.com/jonathan/skill-roadmap/internal/db"
	"github.com/jonathan/skill-roadmap/internal/types"
)

func newSkillsCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "Manage the skill catalogue",
	}

	var skill types.Skill
	var id string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a catalogue skill",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id != "" {
				parsed, err := uuid.Parse(id)
				if err != nil {
					return fmt.Errorf("invalid id: %w", err)
				}
				skill.ID = parsed
			}
			return runSkillsAdd(cmd, global.configFile, &skill)
		},
	}
	addCmd.Flags().StringVar(&id, "id", "", "Skill ID (default: random)")
	addCmd.Flags().StringVarP(&skill.Name, "name", "n", "", "Skill name (required)")
	addCmd.Flags().StringVarP(&skill.Level, "level", "l", "Beginner", "Skill level")
	addCmd.Flags().StringVarP(&skill.Category, "category", "c", "", "Skill category")
	if err := addCmd.MarkFlagRequired("name"); err != nil {
		panic(fmt.Sprintf("failed to mark name flag as required: %v", err))
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List catalogue skills as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSkillsList(cmd, global.configFile)
		},
	}

	cmd.AddCommand(addCmd, listCmd)
	return cmd
}

func openDatabase(ctx context.Context, configFile string) (*db.DB, error) {
	cfg, err := config.LoadServerConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set (set DATABASE_URL environment variable or use a config file)")
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}

func runSkillsAdd(cmd *cobra.Command, configFile string, skill *types.Skill) error {
	ctx := cmd.Context()
	database, err := openDatabase(ctx, configFile)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.UpsertSkill(ctx, skill); err != nil {
		return fmt.Errorf("failed to save skill: %w", err)
	}
	return printJSON(cmd, skill)
}

func runSkillsList(cmd *cobra.Command, configFile string) error {
	ctx := cmd.Context()
	database, err := openDatabase(ctx, configFile)
	if err != nil {
		return err
	}
	defer database.Close()

	skills, err := database.ListSkills(ctx)
	if err != nil {
		return fmt.Errorf("failed to list skills: %w", err)
	}
	return printJSON(cmd, skills)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
