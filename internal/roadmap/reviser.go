package roadmap

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/planning"
	"github.com/jonathan/skill-roadmap/internal/prompts"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// MinFeedbackLength is the shortest feedback, in characters, that is sent for revision.
const MinFeedbackLength = 10

// RevisionTokenBudget is the response budget of a revision call.
const RevisionTokenBudget = 1000

// Completer is the completion capability shared by generation and revision.
type Completer interface {
	Complete(ctx context.Context, prompt, preferredModel string, maxTokens int) (*llm.Completion, error)
}

// Reviser rewrites roadmap steps from learner feedback.
type Reviser struct {
	client Completer
	model  string
	logger *slog.Logger
}

// NewReviser creates a reviser that asks model through client.
func NewReviser(client Completer, model string, logger *slog.Logger) *Reviser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reviser{client: client, model: model, logger: logger}
}

// Revise replaces r's steps with a revision of them, reporting whether the
// steps changed. Short feedback skips the call. Any call or parse failure keeps
// the current steps. An explicit progress is clamped and applied either way.
func (v *Reviser) Revise(ctx context.Context, r *types.Roadmap, feedback string, progress *int) bool {
	defer func() {
		if progress != nil {
			r.OverallProgress = ClampProgress(*progress)
		}
	}()

	if utf8.RuneCountInString(feedback) < MinFeedbackLength {
		v.logger.Debug("Feedback too short, skipping revision", "roadmap_id", r.ID)
		return false
	}

	prompt, err := v.buildPrompt(r.Steps, feedback, progress)
	if err != nil {
		v.logger.Warn("Failed to build revision prompt", "roadmap_id", r.ID, "error", err)
		return false
	}

	completion, err := v.client.Complete(ctx, prompt, v.model, RevisionTokenBudget)
	if err != nil {
		v.logger.Warn("Revision call failed, keeping current steps", "roadmap_id", r.ID, "error", err)
		return false
	}

	steps, ok := planning.NormalizeSteps(completion.Text)
	if !ok {
		v.logger.Warn("Revision output is not a step list, keeping current steps", "roadmap_id", r.ID)
		return false
	}

	r.Steps = reconcileIDs(r.Steps, steps)
	return true
}

func (v *Reviser) buildPrompt(steps []types.Step, feedback string, progress *int) (string, error) {
	encoded, err := json.MarshalIndent(steps, "", "  ")
	if err != nil {
		return "", err
	}

	progressText := "not specified"
	if progress != nil {
		progressText = strconv.Itoa(*progress)
	}

	return prompts.Revise.Build(map[string]string{
		"Steps":    string(encoded),
		"Feedback": feedback,
		"Progress": progressText,
	})
}

// reconcileIDs keeps the identifier of every revised step that names an
// existing step once; all other steps get a fresh identifier.
func reconcileIDs(current, revised []types.Step) []types.Step {
	known := make(map[uuid.UUID]bool, len(current))
	for _, step := range current {
		known[step.ID] = true
	}

	used := make(map[uuid.UUID]bool, len(revised))
	for i := range revised {
		id := revised[i].ID
		if id == uuid.Nil || !known[id] || used[id] {
			id = uuid.New()
		}
		used[id] = true
		revised[i].ID = id
	}
	return revised
}
