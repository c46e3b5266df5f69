// Package planning turns generated text into roadmap plans and builds the
// deterministic plan used when generation is unavailable.
package planning

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/schemas"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// Plan-level defaults for generated content.
const (
	DefaultPlanTitle       = "Custom Roadmap"
	DefaultPlanDescription = "AI-generated Roadmap"
)

// Kind tags the outcome of Normalize.
type Kind int

const (
	// Parsed means the text decoded to a plan with a steps array.
	Parsed Kind = iota
	// Malformed means no JSON could be recovered; Result.Plan is the stub plan.
	Malformed
	// MissingSteps means JSON decoded but steps is absent or not an array; Result.Plan is nil.
	MissingSteps
)

func (k Kind) String() string {
	switch k {
	case Parsed:
		return "parsed"
	case Malformed:
		return "malformed"
	case MissingSteps:
		return "missing_steps"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of normalizing generated text.
type Result struct {
	Kind Kind
	Plan *types.Plan
	// Err describes why the text was Malformed or MissingSteps.
	Err error
}

// Cacheable reports whether the result may be stored in the plan cache.
func (r Result) Cacheable() bool {
	return r.Kind == Parsed || r.Kind == Malformed
}

// MalformedStub returns the single-step plan used when generated text holds no JSON.
func MalformedStub() *types.Plan {
	return &types.Plan{
		Title:       DefaultPlanTitle,
		Description: "Automatically generated learning plan",
		Steps: []types.Step{
			{
				Title:              "Getting Started",
				Description:        "First learning step",
				Duration:           types.DefaultStepDuration,
				Resources:          []string{types.DefaultStepResource},
				ProgressIndicators: []string{types.DefaultStepIndicator},
				Dependencies:       []string{},
			},
		},
	}
}

// Normalize decodes generated text into a plan, filling every missing step field.
// Decoding is attempted on the raw text, then with markdown fences stripped,
// then on the outermost {...} span.
func Normalize(raw string) Result {
	content, err := decode(raw, schemas.ValidatePlan, llm.ExtractJSON)
	if err != nil {
		var shapeErr *ShapeError
		if errors.As(err, &shapeErr) {
			return Result{Kind: MissingSteps, Err: err}
		}
		return Result{Kind: Malformed, Plan: MalformedStub(), Err: err}
	}

	var doc struct {
		Title       any   `json:"title"`
		Description any   `json:"description"`
		Steps       []any `json:"steps"`
	}
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return Result{Kind: MissingSteps, Err: &ShapeError{Message: "undecodable plan", Cause: err}}
	}

	plan := &types.Plan{
		Title:       stringValue(doc.Title, DefaultPlanTitle),
		Description: stringValue(doc.Description, DefaultPlanDescription),
		Steps:       make([]types.Step, 0, len(doc.Steps)),
	}
	for _, entry := range doc.Steps {
		fields, _ := entry.(map[string]any)
		plan.Steps = append(plan.Steps, normalizeStep(fields, false))
	}
	return Result{Kind: Parsed, Plan: plan}
}

// NormalizeSteps decodes a revised step list. Unlike Normalize it honours the
// id, completed and notes fields the source provides. Steps whose id is missing
// or invalid carry uuid.Nil. It reports false when no step list can be recovered.
func NormalizeSteps(raw string) ([]types.Step, bool) {
	content, err := decode(raw, stepListShape, llm.ExtractJSONArray, llm.ExtractJSON)
	if err != nil {
		return nil, false
	}

	var entries []any
	switch {
	case schemas.ValidateRevisedSteps(content) == nil:
		if err := json.Unmarshal([]byte(content), &entries); err != nil {
			return nil, false
		}
	case schemas.ValidatePlan(content) == nil:
		// Some models wrap the list in a plan object
		var doc struct {
			Steps []any `json:"steps"`
		}
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return nil, false
		}
		entries = doc.Steps
	default:
		return nil, false
	}

	steps := make([]types.Step, 0, len(entries))
	for _, entry := range entries {
		fields, _ := entry.(map[string]any)
		steps = append(steps, normalizeStep(fields, true))
	}
	return steps, true
}

// decode returns the first candidate text that is valid JSON accepted by
// shape. Candidates are the raw text, the fence-stripped first JSON value,
// then each extract span in turn. It fails with a *ShapeError when JSON was
// found but no candidate had the expected shape, and with a *ParseError when
// no candidate was JSON at all.
func decode(raw string, shape func(string) error, extracts ...func(string) string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	candidates := []string{trimmed, llm.CleanJSONBlock(trimmed)}
	for _, extract := range extracts {
		candidates = append(candidates, extract(trimmed))
	}

	var parseErr, shapeErr error
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		var v any
		if err := json.Unmarshal([]byte(candidate), &v); err != nil {
			if parseErr == nil {
				parseErr = err
			}
			continue
		}
		if err := shape(candidate); err != nil {
			if shapeErr == nil {
				shapeErr = err
			}
			continue
		}
		return candidate, nil
	}

	if shapeErr != nil {
		return "", &ShapeError{Message: "steps missing or not an array", Cause: shapeErr}
	}
	return "", &ParseError{Message: "no JSON could be recovered from generated text", Cause: parseErr}
}

// stepListShape accepts a bare step array or a plan object wrapping one.
func stepListShape(content string) error {
	if err := schemas.ValidateRevisedSteps(content); err == nil {
		return nil
	}
	return schemas.ValidatePlan(content)
}

func normalizeStep(fields map[string]any, keepState bool) types.Step {
	step := types.Step{
		Title:              stringValue(fields["title"], types.DefaultStepTitle),
		Description:        stringValue(fields["description"], types.DefaultStepDescription),
		Duration:           stringValue(fields["duration"], types.DefaultStepDuration),
		Resources:          listValue(fields["resources"], []string{types.DefaultStepResource}),
		ProgressIndicators: indicators(fields),
		Dependencies:       listValue(fields["dependencies"], []string{}),
	}
	if !keepState {
		return step
	}

	if id, ok := fields["id"].(string); ok {
		if parsed, err := uuid.Parse(id); err == nil {
			step.ID = parsed
		}
	}
	if completed, ok := fields["completed"].(bool); ok {
		step.Completed = completed
	}
	if notes, ok := fields["notes"].(string); ok {
		step.Notes = notes
	}
	return step
}

// indicators prefers the camelCase key, then the snake_case key the API
// serializes, then the legacy "indicators" key.
func indicators(fields map[string]any) []string {
	for _, key := range []string{"progressIndicators", "progress_indicators", "indicators"} {
		if list, ok := asList(fields[key]); ok {
			return list
		}
	}
	return []string{types.DefaultStepIndicator}
}

func stringValue(v any, def string) string {
	switch val := v.(type) {
	case string:
		if strings.TrimSpace(val) != "" {
			return val
		}
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return def
}

func listValue(v any, def []string) []string {
	if list, ok := asList(v); ok {
		return list
	}
	return def
}

// asList accepts a JSON array, keeping its scalar entries as strings.
// A non-empty bare string is treated as a one-element list.
func asList(v any) ([]string, bool) {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			switch s := item.(type) {
			case string:
				if s != "" {
					out = append(out, s)
				}
			case float64:
				out = append(out, strconv.FormatFloat(s, 'f', -1, 64))
			}
		}
		return out, true
	case string:
		if val != "" {
			return []string{val}, true
		}
	}
	return nil, false
}
