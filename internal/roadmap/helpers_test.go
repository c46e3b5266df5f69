package roadmap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/llm"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// fakeCompleter returns its text or err, recording every prompt it receives.
type fakeCompleter struct {
	mu      sync.Mutex
	text    string
	model   string
	err     error
	prompts []string
	budgets []int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, preferredModel string, maxTokens int) (*llm.Completion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.budgets = append(f.budgets, maxTokens)
	if f.err != nil {
		return nil, f.err
	}
	model := f.model
	if model == "" {
		model = preferredModel
	}
	return &llm.Completion{Text: f.text, Model: model, Attempts: 1}, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// failingRepository fails every call.
type failingRepository struct{}

var errRepoDown = errors.New("connection refused")

func (failingRepository) InsertRoadmap(context.Context, *types.Roadmap) error { return errRepoDown }
func (failingRepository) GetRoadmap(context.Context, uuid.UUID) (*types.Roadmap, error) {
	return nil, errRepoDown
}
func (failingRepository) FindRoadmapBySkill(context.Context, uuid.UUID, uuid.UUID) (*types.Roadmap, error) {
	return nil, errRepoDown
}
func (failingRepository) ListRoadmapsByUser(context.Context, uuid.UUID) ([]types.Roadmap, error) {
	return nil, errRepoDown
}
func (failingRepository) UpdateRoadmap(context.Context, *types.Roadmap) (bool, error) {
	return false, errRepoDown
}
func (failingRepository) DeleteRoadmap(context.Context, uuid.UUID) (bool, error) {
	return false, errRepoDown
}
func (failingRepository) GetSkill(context.Context, uuid.UUID) (*types.Skill, error) {
	return nil, errRepoDown
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current time and advances it by one second.
func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(time.Second)
	return now
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func threeStepPlan() *types.Plan {
	return &types.Plan{
		Title:       "Go",
		Description: "Learn Go",
		Steps: []types.Step{
			{Title: "One", Completed: true},
			{Title: "Two"},
			{Title: "Three"},
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}
