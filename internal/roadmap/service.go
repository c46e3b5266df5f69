// Package roadmap implements the roadmap engine: generation with cache and
// fallback, feedback revision, and the ownership-checked store.
package roadmap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/cache"
	"github.com/jonathan/skill-roadmap/internal/events"
	"github.com/jonathan/skill-roadmap/internal/metrics"
	"github.com/jonathan/skill-roadmap/internal/planning"
	"github.com/jonathan/skill-roadmap/internal/types"
)

// FallbackMessage accompanies roadmaps built without the generative service.
const FallbackMessage = "Roadmap generated with the fallback system"

// GenerateResult is the outcome of Generate.
type GenerateResult struct {
	Roadmap *types.Roadmap `json:"roadmap"`
	Source  string         `json:"source"`
	Message string         `json:"message,omitempty"`
}

// Service is the engine facade used by the HTTP layer and the CLI.
type Service struct {
	store        *Store
	skills       SkillLookup
	cache        cache.Cache
	client       Completer
	reviser      *Reviser
	defaultModel string
	metrics      metrics.Recorder
	events       events.Publisher
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets the domain event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService wires the engine. defaultModel is the preferred model of every completion.
func NewService(store *Store, skills SkillLookup, c cache.Cache, client Completer, defaultModel string, opts ...Option) *Service {
	s := &Service{
		store:        store,
		skills:       skills,
		cache:        c,
		client:       client,
		defaultModel: defaultModel,
		metrics:      metrics.Noop{},
		events:       events.Noop{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reviser = NewReviser(client, defaultModel, s.logger)
	return s
}

// Generate creates a roadmap for userID. Cached content is reused without an
// external call; generated content is cached; when generation fails or its
// output lacks steps, a deterministic plan is persisted instead (and not cached).
// It fails only for invalid requests, unknown skills, and storage errors.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID, req types.GenerateRequest) (*GenerateResult, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, toValidationError(err)
	}

	skill, err := s.skills.GetSkill(ctx, req.SkillID)
	if err != nil {
		return nil, internalError("get skill", err)
	}
	if skill == nil {
		return nil, fmt.Errorf("skill %s: %w", req.SkillID, ErrNotFound)
	}

	key := cache.FingerprintRequest(userID, &req)
	if plan, ok := s.cache.Get(ctx, key); ok {
		s.logger.Info("Roadmap served from cache", "user_id", userID, "skill_id", skill.ID)
		return s.persist(ctx, userID, skill.ID, plan, types.SourceCache, "")
	}

	prompt := planning.BuildGenerationPrompt(skill, &req)
	completion, err := s.client.Complete(ctx, prompt, s.defaultModel, planning.GenerationTokenBudget(prompt))
	if err != nil {
		s.logger.Warn("Roadmap generation failed, using fallback", "user_id", userID, "skill_id", skill.ID, "error", err)
		return s.persistFallback(ctx, userID, skill, &req)
	}
	s.metrics.CompletionAttempts(completion.Model, completion.Attempts)

	result := planning.Normalize(completion.Text)
	switch result.Kind {
	case planning.Parsed, planning.Malformed:
		if result.Kind == planning.Malformed {
			s.logger.Warn("Generated roadmap was not JSON, using stub plan", "model", completion.Model, "error", result.Err)
		}
		s.cache.Put(ctx, key, result.Plan)
		return s.persist(ctx, userID, skill.ID, result.Plan, types.SourceAI, completion.Model)
	case planning.MissingSteps:
		s.logger.Warn("Generated roadmap has no steps, using fallback", "model", completion.Model, "error", result.Err)
		return s.persistFallback(ctx, userID, skill, &req)
	default:
		return nil, internalError("normalize", fmt.Errorf("unexpected result kind %v", result.Kind))
	}
}

// ReviseWithFeedback revises the steps of a roadmap from learner feedback.
// Revision failures keep the current steps; the roadmap timestamp is always refreshed.
func (s *Service) ReviseWithFeedback(ctx context.Context, id, userID uuid.UUID, feedback string, progress *int) (*types.Roadmap, error) {
	r, err := s.store.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	revised := s.reviser.Revise(ctx, r, feedback, progress)
	if err := s.store.Save(ctx, r); err != nil {
		return nil, err
	}

	s.metrics.RevisionCompleted(revised)
	s.publish(ctx, events.SubjectRevised, events.RoadmapEvent{
		RoadmapID: r.ID,
		UserID:    r.UserID,
		SkillID:   r.SkillID,
		StepCount: len(r.Steps),
		Revised:   revised,
	})
	return r, nil
}

// UpdateStep merges patch into one step of the caller's roadmap.
func (s *Service) UpdateStep(ctx context.Context, id, userID uuid.UUID, ref StepRef, patch types.StepPatch, progress *int) (*types.Roadmap, error) {
	return s.store.UpdateStep(ctx, id, userID, ref, patch, progress)
}

// Reorder rearranges the steps of the caller's roadmap.
func (s *Service) Reorder(ctx context.Context, id, userID uuid.UUID, order []uuid.UUID) (*types.Roadmap, error) {
	req := types.ReorderRequest{Order: order}
	if err := req.Validate(); err != nil {
		return nil, toValidationError(err)
	}
	return s.store.Reorder(ctx, id, userID, order)
}

// Get returns one of the caller's roadmaps.
func (s *Service) Get(ctx context.Context, id, userID uuid.UUID) (*types.Roadmap, error) {
	return s.store.Get(ctx, id, userID)
}

// GetBySkill returns the caller's most recent roadmap for a skill.
func (s *Service) GetBySkill(ctx context.Context, skillID, userID uuid.UUID) (*types.Roadmap, error) {
	return s.store.GetBySkill(ctx, skillID, userID)
}

// List returns the caller's roadmaps, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]types.Roadmap, error) {
	return s.store.ListByUser(ctx, userID)
}

// Delete removes one of the caller's roadmaps.
func (s *Service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return s.store.Delete(ctx, id, userID)
}

func (s *Service) persistFallback(ctx context.Context, userID uuid.UUID, skill *types.Skill, req *types.GenerateRequest) (*GenerateResult, error) {
	plan := planning.BuildFallback(skill.Level, req.Goals, req.Timeframe)
	result, err := s.persist(ctx, userID, skill.ID, plan, types.SourceFallback, "")
	if err != nil {
		return nil, err
	}
	result.Message = FallbackMessage
	return result, nil
}

func (s *Service) persist(ctx context.Context, userID, skillID uuid.UUID, plan *types.Plan, source, model string) (*GenerateResult, error) {
	r, err := s.store.Create(ctx, userID, skillID, plan, source, model)
	if err != nil {
		return nil, err
	}

	s.metrics.GenerationCompleted(source)
	s.publish(ctx, events.SubjectGenerated, events.RoadmapEvent{
		RoadmapID: r.ID,
		UserID:    userID,
		SkillID:   skillID,
		Source:    source,
		Model:     model,
		StepCount: len(r.Steps),
	})
	return &GenerateResult{Roadmap: r, Source: source}, nil
}

func (s *Service) publish(ctx context.Context, subject string, event events.RoadmapEvent) {
	event.OccurredAt = time.Now().UTC()
	if err := s.events.Publish(ctx, subject, event); err != nil {
		s.logger.Warn("Failed to publish roadmap event", "subject", subject, "roadmap_id", event.RoadmapID, "error", err)
	}
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
		}
	}
	return &ValidationError{Message: err.Error()}
}
