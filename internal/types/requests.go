package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultTimeframeMonths is used when a generate request omits the timeframe.
const DefaultTimeframeMonths = 3

// Preferences carries the optional learner preferences of a generate request.
type Preferences struct {
	LearningStyle string `json:"learning_style,omitempty"`
	Availability  int    `json:"availability,omitempty" validate:"gte=0,lte=168"` // hours per week
}

// GenerateRequest asks the engine for a new roadmap.
type GenerateRequest struct {
	SkillID     uuid.UUID   `json:"skill_id" validate:"required"`
	Goals       []string    `json:"goals" validate:"required,min=1,dive,required"`
	Timeframe   int         `json:"timeframe" validate:"gte=0,lte=120"` // months
	Preferences Preferences `json:"preferences"`
}

// FeedbackRequest asks the engine to revise a roadmap from free-form feedback.
type FeedbackRequest struct {
	Feedback string `json:"feedback"`
	Progress *int   `json:"progress,omitempty"`
}

// StepPatch holds the step fields to merge. Nil fields are left untouched.
type StepPatch struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Duration           *string   `json:"duration,omitempty"`
	Resources          *[]string `json:"resources,omitempty"`
	ProgressIndicators *[]string `json:"progress_indicators,omitempty"`
	Completed          *bool     `json:"completed,omitempty"`
	Notes              *string   `json:"notes,omitempty"`
	Dependencies       *[]string `json:"dependencies,omitempty"`
}

// UpdateStepRequest is the HTTP body for a step update.
type UpdateStepRequest struct {
	StepPatch
	OverallProgress *int `json:"overall_progress,omitempty"`
}

// ReorderRequest is the HTTP body for a reorder.
type ReorderRequest struct {
	Order []uuid.UUID `json:"order" validate:"required"`
}

// Validate validates the GenerateRequest using the validator.
func (r *GenerateRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate checks that an order was supplied. Completeness is checked against the stored steps.
func (r *ReorderRequest) Validate() error {
	return validator.New().Struct(r)
}

// ApplyDefaults fills the timeframe when it was omitted.
func (r *GenerateRequest) ApplyDefaults() {
	if r.Timeframe == 0 {
		r.Timeframe = DefaultTimeframeMonths
	}
}

// LearningStyleOrDefault returns the learning style used for cache keys and prompts.
func (p Preferences) LearningStyleOrDefault() string {
	if p.LearningStyle == "" {
		return "default"
	}
	return p.LearningStyle
}
