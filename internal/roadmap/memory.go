package roadmap

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// MemoryRepository keeps roadmaps and skills in process memory.
// It backs the offline CLI commands and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	roadmaps map[uuid.UUID]*types.Roadmap
	skills   map[uuid.UUID]*types.Skill
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		roadmaps: make(map[uuid.UUID]*types.Roadmap),
		skills:   make(map[uuid.UUID]*types.Skill),
	}
}

// AddSkill registers a catalogue skill.
func (m *MemoryRepository) AddSkill(skill types.Skill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills[skill.ID] = &skill
}

// GetSkill implements SkillLookup.
func (m *MemoryRepository) GetSkill(_ context.Context, id uuid.UUID) (*types.Skill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	skill, ok := m.skills[id]
	if !ok {
		return nil, nil
	}
	out := *skill
	return &out, nil
}

// InsertRoadmap implements Repository.
func (m *MemoryRepository) InsertRoadmap(_ context.Context, r *types.Roadmap) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roadmaps[r.ID] = r.Clone()
	return nil
}

// GetRoadmap implements Repository.
func (m *MemoryRepository) GetRoadmap(_ context.Context, id uuid.UUID) (*types.Roadmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.roadmaps[id]
	if !ok {
		return nil, nil
	}
	return r.Clone(), nil
}

// FindRoadmapBySkill implements Repository.
func (m *MemoryRepository) FindRoadmapBySkill(ctx context.Context, userID, skillID uuid.UUID) (*types.Roadmap, error) {
	list, _ := m.ListRoadmapsByUser(ctx, userID)
	for i := range list {
		if list[i].SkillID == skillID {
			return &list[i], nil
		}
	}
	return nil, nil
}

// ListRoadmapsByUser implements Repository.
func (m *MemoryRepository) ListRoadmapsByUser(_ context.Context, userID uuid.UUID) ([]types.Roadmap, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Roadmap, 0)
	for _, r := range m.roadmaps {
		if r.UserID == userID {
			out = append(out, *r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateRoadmap implements Repository.
func (m *MemoryRepository) UpdateRoadmap(_ context.Context, r *types.Roadmap) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.roadmaps[r.ID]
	if !ok {
		return false, nil
	}
	updated := r.Clone()
	// Owner and creation time are immutable
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	m.roadmaps[r.ID] = updated
	return true, nil
}

// DeleteRoadmap implements Repository.
func (m *MemoryRepository) DeleteRoadmap(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roadmaps[id]; !ok {
		return false, nil
	}
	delete(m.roadmaps, id)
	return true, nil
}
