package roadmap

import (
	"context"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// Repository persists roadmaps. Lookups return nil, nil for absent rows.
type Repository interface {
	InsertRoadmap(ctx context.Context, r *types.Roadmap) error
	GetRoadmap(ctx context.Context, id uuid.UUID) (*types.Roadmap, error)
	// FindRoadmapBySkill returns the most recently created roadmap of userID for skillID.
	FindRoadmapBySkill(ctx context.Context, userID, skillID uuid.UUID) (*types.Roadmap, error)
	// ListRoadmapsByUser returns the roadmaps of userID, newest first.
	ListRoadmapsByUser(ctx context.Context, userID uuid.UUID) ([]types.Roadmap, error)
	// UpdateRoadmap overwrites the mutable fields; it reports false when no row matched.
	UpdateRoadmap(ctx context.Context, r *types.Roadmap) (bool, error)
	// DeleteRoadmap reports false when no row matched.
	DeleteRoadmap(ctx context.Context, id uuid.UUID) (bool, error)
}

// SkillLookup resolves catalogue skills. It returns nil, nil for unknown ids.
type SkillLookup interface {
	GetSkill(ctx context.Context, id uuid.UUID) (*types.Skill, error)
}
