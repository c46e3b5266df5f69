package roadmap

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// StepRef addresses a step either by position or by identifier.
type StepRef struct {
	Index int
	ID    uuid.UUID
	ByID  bool
}

// StepAt addresses the step at index i.
func StepAt(i int) StepRef {
	return StepRef{Index: i}
}

// StepWithID addresses the step with the given identifier.
func StepWithID(id uuid.UUID) StepRef {
	return StepRef{ID: id, ByID: true}
}

// ParseStepRef accepts a step UUID or a zero-based index.
func ParseStepRef(s string) (StepRef, error) {
	if id, err := uuid.Parse(s); err == nil {
		return StepWithID(id), nil
	}
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return StepRef{}, &ValidationError{Field: "step", Message: "must be a step index or step id"}
	}
	return StepAt(i), nil
}

func (r StepRef) String() string {
	if r.ByID {
		return r.ID.String()
	}
	return strconv.Itoa(r.Index)
}

// Store is the ownership-checked roadmap store. Every operation requires the
// caller to be the owner of the roadmap it touches.
type Store struct {
	repo Repository
	now  func() time.Time
}

// NewStore creates a store over repo.
func NewStore(repo Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// WithClock replaces the clock used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Create persists a new roadmap for userID from a detached plan.
// Steps receive fresh identifiers and start incomplete.
func (s *Store) Create(ctx context.Context, userID, skillID uuid.UUID, plan *types.Plan, source, model string) (*types.Roadmap, error) {
	content := plan.Clone()
	if content == nil {
		content = &types.Plan{}
	}

	now := s.now().UTC()
	r := &types.Roadmap{
		ID:              uuid.New(),
		UserID:          userID,
		SkillID:         skillID,
		Title:           content.Title,
		Description:     content.Description,
		Steps:           make([]types.Step, len(content.Steps)),
		OverallProgress: 0,
		Source:          source,
		AIModel:         model,
		CreatedAt:       now,
		LastUpdated:     now,
	}
	for i, step := range content.Steps {
		step.ID = uuid.New()
		step.Completed = false
		r.Steps[i] = withDefaults(step)
	}

	if err := s.repo.InsertRoadmap(ctx, r); err != nil {
		return nil, internalError("insert roadmap", err)
	}
	return r, nil
}

// Get returns the roadmap if userID owns it.
func (s *Store) Get(ctx context.Context, id, userID uuid.UUID) (*types.Roadmap, error) {
	r, err := s.repo.GetRoadmap(ctx, id)
	if err != nil {
		return nil, internalError("get roadmap", err)
	}
	if r == nil {
		return nil, fmt.Errorf("roadmap %s: %w", id, ErrNotFound)
	}
	if r.UserID != userID {
		return nil, fmt.Errorf("roadmap %s: %w", id, ErrForbidden)
	}
	return r, nil
}

// GetBySkill returns the most recent roadmap userID holds for skillID.
func (s *Store) GetBySkill(ctx context.Context, skillID, userID uuid.UUID) (*types.Roadmap, error) {
	r, err := s.repo.FindRoadmapBySkill(ctx, userID, skillID)
	if err != nil {
		return nil, internalError("find roadmap by skill", err)
	}
	if r == nil {
		return nil, fmt.Errorf("roadmap for skill %s: %w", skillID, ErrNotFound)
	}
	return r, nil
}

// ListByUser returns the roadmaps of userID, newest first.
func (s *Store) ListByUser(ctx context.Context, userID uuid.UUID) ([]types.Roadmap, error) {
	list, err := s.repo.ListRoadmapsByUser(ctx, userID)
	if err != nil {
		return nil, internalError("list roadmaps", err)
	}
	if list == nil {
		list = []types.Roadmap{}
	}
	return list, nil
}

// UpdateStep merges patch into the addressed step. Overall progress is
// recomputed from completed steps unless progress is given, in which case it
// is clamped to [0, 100] and used instead.
func (s *Store) UpdateStep(ctx context.Context, id, userID uuid.UUID, ref StepRef, patch types.StepPatch, progress *int) (*types.Roadmap, error) {
	r, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	idx := ref.Index
	if ref.ByID {
		idx = r.StepIndex(ref.ID)
	}
	if idx < 0 || idx >= len(r.Steps) {
		return nil, fmt.Errorf("step %s of roadmap %s: %w", ref, id, ErrNotFound)
	}

	r.Steps[idx] = withDefaults(applyPatch(r.Steps[idx], patch))
	if progress != nil {
		r.OverallProgress = ClampProgress(*progress)
	} else {
		r.OverallProgress = ComputeProgress(r)
	}

	return r, s.Save(ctx, r)
}

// Reorder rearranges the steps to follow order, which must be a permutation
// of the current step identifiers.
func (s *Store) Reorder(ctx context.Context, id, userID uuid.UUID, order []uuid.UUID) (*types.Roadmap, error) {
	r, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if len(order) != len(r.Steps) {
		return nil, fmt.Errorf("%w: got %d ids for %d steps", ErrInvalidOrder, len(order), len(r.Steps))
	}

	byID := make(map[uuid.UUID]types.Step, len(r.Steps))
	for _, step := range r.Steps {
		byID[step.ID] = step
	}

	reordered := make([]types.Step, 0, len(order))
	seen := make(map[uuid.UUID]bool, len(order))
	for _, stepID := range order {
		step, ok := byID[stepID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown step %s", ErrInvalidOrder, stepID)
		}
		if seen[stepID] {
			return nil, fmt.Errorf("%w: duplicate step %s", ErrInvalidOrder, stepID)
		}
		seen[stepID] = true
		reordered = append(reordered, step)
	}

	r.Steps = reordered
	return r, s.Save(ctx, r)
}

// Delete removes the roadmap if userID owns it.
func (s *Store) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}

	deleted, err := s.repo.DeleteRoadmap(ctx, id)
	if err != nil {
		return internalError("delete roadmap", err)
	}
	if !deleted {
		return fmt.Errorf("roadmap %s: %w", id, ErrNotFound)
	}
	return nil
}

// Save persists r after refreshing its LastUpdated timestamp.
func (s *Store) Save(ctx context.Context, r *types.Roadmap) error {
	r.LastUpdated = s.now().UTC()

	updated, err := s.repo.UpdateRoadmap(ctx, r)
	if err != nil {
		return internalError("update roadmap", err)
	}
	if !updated {
		return fmt.Errorf("roadmap %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

// ComputeProgress returns round(100 * completed / total), or 0 for an empty roadmap.
func ComputeProgress(r *types.Roadmap) int {
	if len(r.Steps) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(r.CompletedSteps()) / float64(len(r.Steps))))
}

// ClampProgress bounds p to [0, 100].
func ClampProgress(p int) int {
	return min(100, max(0, p))
}

func applyPatch(step types.Step, patch types.StepPatch) types.Step {
	if patch.Title != nil {
		step.Title = *patch.Title
	}
	if patch.Description != nil {
		step.Description = *patch.Description
	}
	if patch.Duration != nil {
		step.Duration = *patch.Duration
	}
	if patch.Resources != nil {
		step.Resources = append([]string{}, (*patch.Resources)...)
	}
	if patch.ProgressIndicators != nil {
		step.ProgressIndicators = append([]string{}, (*patch.ProgressIndicators)...)
	}
	if patch.Completed != nil {
		step.Completed = *patch.Completed
	}
	if patch.Notes != nil {
		step.Notes = *patch.Notes
	}
	if patch.Dependencies != nil {
		step.Dependencies = append([]string{}, (*patch.Dependencies)...)
	}
	return step
}

// withDefaults fills empty step fields so a persisted step is always complete.
func withDefaults(step types.Step) types.Step {
	if step.Title == "" {
		step.Title = types.DefaultStepTitle
	}
	if step.Description == "" {
		step.Description = types.DefaultStepDescription
	}
	if step.Duration == "" {
		step.Duration = types.DefaultStepDuration
	}
	if step.Resources == nil {
		step.Resources = []string{types.DefaultStepResource}
	}
	if step.ProgressIndicators == nil {
		step.ProgressIndicators = []string{types.DefaultStepIndicator}
	}
	if step.Dependencies == nil {
		step.Dependencies = []string{}
	}
	return step
}
