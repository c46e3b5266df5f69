// Package cache memoizes generated roadmap plans by request fingerprint.
package cache

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// KeyPrefix namespaces every fingerprint.
const KeyPrefix = "roadmap:"

// Cache stores generated plans keyed by fingerprint.
// Implementations return deep copies, so callers may mutate what they get.
type Cache interface {
	// Get returns the live plan for key, or false when absent or expired.
	Get(ctx context.Context, key string) (*types.Plan, bool)
	// Put stores plan under key, overwriting any previous entry and resetting its age.
	Put(ctx context.Context, key string, plan *types.Plan)
}

// Fingerprint derives the cache key of a generation request.
// Goals keep their given order, so reordered goals produce a different key.
func Fingerprint(userID, skillID uuid.UUID, goals []string, timeframe int, learningStyle string) string {
	if learningStyle == "" {
		learningStyle = "default"
	}

	parts := make([]string, 0, len(goals)+4)
	parts = append(parts, userID.String(), skillID.String())
	parts = append(parts, goals...)
	parts = append(parts, strconv.Itoa(timeframe), learningStyle)
	return KeyPrefix + strings.Join(parts, "|")
}

// FingerprintRequest derives the cache key of req for userID.
func FingerprintRequest(userID uuid.UUID, req *types.GenerateRequest) string {
	return Fingerprint(userID, req.SkillID, req.Goals, req.Timeframe, req.Preferences.LearningStyleOrDefault())
}
