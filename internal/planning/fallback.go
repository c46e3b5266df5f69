package planning

import (
	"fmt"
	"math"
	"strings"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// Skill levels understood by the fallback builder.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

const defaultGoalText = "general progress"

type phase struct {
	name      string
	weight    float64
	resources []string
}

var phases = []phase{
	{name: "Discovery", weight: 0.2, resources: []string{"Official documentation", "Beginner tutorials", "Introductory videos"}},
	{name: "Fundamentals", weight: 0.3, resources: []string{"Online courses", "Practice exercises", "Reference documentation"}},
	{name: "Practice", weight: 0.3, resources: []string{"Guided projects", "Case studies", "Community forums"}},
	{name: "Mastery", weight: 0.2, resources: []string{"Specialized books", "Advanced courses", "Personal projects"}},
}

// BuildFallback produces a plan without any external call. It never fails.
func BuildFallback(level string, goals []string, timeframeMonths int) *types.Plan {
	if level == "" {
		level = LevelBeginner
	}
	months := timeframeMonths
	if months < 1 {
		months = 1
	}

	goalText := joinGoals(goals)
	totalWeeks := months * 4
	difficulty := difficultyFor(level)
	count := min(stepCount(months), len(phases))

	steps := make([]types.Step, 0, count)
	for i := 0; i < count; i++ {
		p := phases[i]
		weeks := max(1, int(math.Round(float64(totalWeeks)*p.weight)))

		steps = append(steps, types.Step{
			Title:       fmt.Sprintf("Phase %d: %s of %s", i+1, p.name, difficulty),
			Description: fmt.Sprintf("%s phase targeting: %s", p.name, goalText),
			Duration:    formatWeeks(weeks),
			Resources:   append([]string(nil), p.resources...),
			ProgressIndicators: []string{
				"Comprehension quiz",
				fmt.Sprintf("%s mini-project", p.name),
				"Skills self-assessment",
			},
			Dependencies: []string{},
		})
	}

	return &types.Plan{
		Title:       fmt.Sprintf("Roadmap: %s (%d months)", goalText, months),
		Description: fmt.Sprintf("Learning plan for %s adapted to the %s level, over %d months", goalText, level, months),
		Steps:       steps,
	}
}

// stepCount scales the number of steps with the timeframe, within [3, 9].
func stepCount(months int) int {
	n := int(math.Ceil(float64(months) * 1.5))
	return min(9, max(3, n))
}

func difficultyFor(level string) string {
	lower := strings.ToLower(level)
	switch {
	case strings.Contains(lower, "beginner"):
		return "fundamentals"
	case strings.Contains(lower, "intermediate"):
		return "intermediate concepts"
	default:
		return "advanced concepts"
	}
}

func joinGoals(goals []string) string {
	kept := make([]string, 0, len(goals))
	for _, g := range goals {
		if g = strings.TrimSpace(g); g != "" {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return defaultGoalText
	}
	return strings.Join(kept, ", ")
}

func formatWeeks(n int) string {
	if n == 1 {
		return "1 week"
	}
	return fmt.Sprintf("%d weeks", n)
}
