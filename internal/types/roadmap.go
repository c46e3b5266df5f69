// Package types provides type definitions for structured data used throughout the skill-roadmap system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// Default step field values applied whenever a source omits them.
const (
	DefaultStepTitle       = "Step"
	DefaultStepDescription = "Step description"
	DefaultStepDuration    = "2 weeks"
	DefaultStepResource    = "Online documentation"
	DefaultStepIndicator   = "Practice exercise"
)

// Generation sources recorded on a roadmap.
const (
	SourceAI       = "ai"
	SourceCache    = "cache"
	SourceFallback = "fallback"
)

// Step is one ordered unit of a Roadmap.
type Step struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Duration           string    `json:"duration"`
	Resources          []string  `json:"resources"`
	ProgressIndicators []string  `json:"progress_indicators"`
	Completed          bool      `json:"completed"`
	Notes              string    `json:"notes"`
	// Dependencies lists step identifiers. They are informational and never
	// gate completion.
	Dependencies []string `json:"dependencies"`
}

// Plan is a detached roadmap payload that is not yet owned by any Roadmap.
// It is what the cache stores and what the generators produce.
type Plan struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`
}

// Roadmap is the persisted multi-step learning plan owned by a user.
type Roadmap struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	SkillID         uuid.UUID `json:"skill_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Steps           []Step    `json:"steps"`
	OverallProgress int       `json:"overall_progress"`
	Source          string    `json:"source"`
	AIModel         string    `json:"ai_model,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Skill is the read-only catalogue record a roadmap is generated for.
type Skill struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Level    string    `json:"level"`
	Category string    `json:"category"`
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	out := s
	out.Resources = cloneStrings(s.Resources)
	out.ProgressIndicators = cloneStrings(s.ProgressIndicators)
	out.Dependencies = cloneStrings(s.Dependencies)
	return out
}

// Clone returns a deep copy of the plan. A nil plan clones to nil.
func (p *Plan) Clone() *Plan {
	if p == nil {
		return nil
	}
	out := &Plan{
		Title:       p.Title,
		Description: p.Description,
		Steps:       make([]Step, len(p.Steps)),
	}
	for i, step := range p.Steps {
		out.Steps[i] = step.Clone()
	}
	return out
}

// Clone returns a deep copy of the roadmap.
func (r *Roadmap) Clone() *Roadmap {
	if r == nil {
		return nil
	}
	out := *r
	out.Steps = make([]Step, len(r.Steps))
	for i, step := range r.Steps {
		out.Steps[i] = step.Clone()
	}
	return &out
}

// CompletedSteps counts the completed steps.
func (r *Roadmap) CompletedSteps() int {
	n := 0
	for _, step := range r.Steps {
		if step.Completed {
			n++
		}
	}
	return n
}

// StepIndex returns the position of the step with the given ID, or -1.
func (r *Roadmap) StepIndex(id uuid.UUID) int {
	for i, step := range r.Steps {
		if step.ID == id {
			return i
		}
	}
	return -1
}

func cloneStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
