package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/skill-roadmap/internal/types"
)

const roadmapColumns = `id, user_id, skill_id, title, description, steps, overall_progress, source, ai_model, created_at, last_updated`

// InsertRoadmap stores a new roadmap. Steps are kept as a JSONB document.
func (db *DB) InsertRoadmap(ctx context.Context, r *types.Roadmap) error {
	steps, err := encodeSteps(r.Steps)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO roadmaps (`+roadmapColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.UserID, r.SkillID, r.Title, r.Description, steps,
		r.OverallProgress, r.Source, r.AIModel, r.CreatedAt, r.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to insert roadmap: %w", err)
	}
	return nil
}

// GetRoadmap retrieves a roadmap by ID. It returns nil, nil when the roadmap does not exist.
func (db *DB) GetRoadmap(ctx context.Context, id uuid.UUID) (*types.Roadmap, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+roadmapColumns+` FROM roadmaps WHERE id = $1`,
		id,
	)
	r, err := scanRoadmap(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get roadmap: %w", err)
	}
	return r, nil
}

// FindRoadmapBySkill retrieves the newest roadmap of a user for a skill
func (db *DB) FindRoadmapBySkill(ctx context.Context, userID, skillID uuid.UUID) (*types.Roadmap, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+roadmapColumns+` FROM roadmaps
		 WHERE user_id = $1 AND skill_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, skillID,
	)
	r, err := scanRoadmap(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find roadmap by skill: %w", err)
	}
	return r, nil
}

// ListRoadmapsByUser retrieves all roadmaps of a user, newest first
func (db *DB) ListRoadmapsByUser(ctx context.Context, userID uuid.UUID) ([]types.Roadmap, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+roadmapColumns+` FROM roadmaps
		 WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmaps: %w", err)
	}
	defer rows.Close()

	roadmaps := []types.Roadmap{}
	for rows.Next() {
		r, err := scanRoadmap(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap: %w", err)
		}
		roadmaps = append(roadmaps, *r)
	}
	return roadmaps, rows.Err()
}

// UpdateRoadmap overwrites the mutable columns of a roadmap.
// Owner, skill and creation time never change.
func (db *DB) UpdateRoadmap(ctx context.Context, r *types.Roadmap) (bool, error) {
	steps, err := encodeSteps(r.Steps)
	if err != nil {
		return false, err
	}

	result, err := db.pool.Exec(ctx,
		`UPDATE roadmaps
		 SET title = $2, description = $3, steps = $4, overall_progress = $5,
		     source = $6, ai_model = $7, last_updated = $8
		 WHERE id = $1`,
		r.ID, r.Title, r.Description, steps, r.OverallProgress, r.Source, r.AIModel, r.LastUpdated,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update roadmap: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteRoadmap deletes a roadmap
func (db *DB) DeleteRoadmap(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx, `DELETE FROM roadmaps WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete roadmap: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

func scanRoadmap(row pgx.Row) (*types.Roadmap, error) {
	var r types.Roadmap
	var steps []byte
	if err := row.Scan(&r.ID, &r.UserID, &r.SkillID, &r.Title, &r.Description, &steps,
		&r.OverallProgress, &r.Source, &r.AIModel, &r.CreatedAt, &r.LastUpdated); err != nil {
		return nil, err
	}

	decoded, err := decodeSteps(steps)
	if err != nil {
		return nil, err
	}
	r.Steps = decoded
	r.CreatedAt = r.CreatedAt.UTC()
	r.LastUpdated = r.LastUpdated.UTC()
	return &r, nil
}

func encodeSteps(steps []types.Step) ([]byte, error) {
	if steps == nil {
		steps = []types.Step{}
	}
	b, err := json.Marshal(steps)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal steps: %w", err)
	}
	return b, nil
}

func decodeSteps(b []byte) ([]types.Step, error) {
	steps := []types.Step{}
	if len(b) == 0 {
		return steps, nil
	}
	if err := json.Unmarshal(b, &steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	return steps, nil
}
