package planning

import (
	"strconv"
	"strings"

	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/prompts"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// Token budget of the generation call.
const (
	maxResponseTokens = 2000
	contextTokens     = 4000
)

// BuildGenerationPrompt renders the generation prompt for a skill and request.
func BuildGenerationPrompt(skill *types.Skill, req *types.GenerateRequest) string {
	level, category, name := LevelBeginner, "General", "the selected skill"
	if skill != nil {
		if skill.Level != "" {
			level = skill.Level
		}
		if skill.Category != "" {
			category = skill.Category
		}
		if skill.Name != "" {
			name = skill.Name
		}
	}

	goals := "Master the basics"
	if len(req.Goals) > 0 {
		goals = strings.Join(req.Goals, ", ")
	}
	availability := "flexible"
	if req.Preferences.Availability > 0 {
		availability = strconv.Itoa(req.Preferences.Availability)
	}

	return prompts.Generate.MustBuild(map[string]string{
		"Level":         level,
		"Category":      category,
		"SkillName":     name,
		"Goals":         goals,
		"Timeframe":     strconv.Itoa(req.Timeframe),
		"Availability":  availability,
		"LearningStyle": req.Preferences.LearningStyleOrDefault(),
	})
}

// GenerationTokenBudget caps the response so prompt and response fit the model context.
func GenerationTokenBudget(prompt string) int {
	return max(1, min(maxResponseTokens, contextTokens-llm.EstimateTokens(prompt)))
}
