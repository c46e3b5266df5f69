package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/skill-roadmap/internal/types"
)

// GetSkill retrieves a catalogue skill by ID. It returns nil, nil when the skill does not exist.
func (db *DB) GetSkill(ctx context.Context, id uuid.UUID) (*types.Skill, error) {
	var s types.Skill
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, level, category FROM skills WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.Level, &s.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get skill: %w", err)
	}
	return &s, nil
}

// UpsertSkill inserts a skill or updates the one with the same ID.
// A nil ID is replaced by a new one.
func (db *DB) UpsertSkill(ctx context.Context, s *types.Skill) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO skills (id, name, level, category)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET name = $2, level = $3, category = $4`,
		s.ID, s.Name, s.Level, s.Category,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert skill %s: %w", s.Name, err)
	}
	return nil
}

// ListSkills retrieves the whole catalogue ordered by name
func (db *DB) ListSkills(ctx context.Context) ([]types.Skill, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, name, level, category FROM skills ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	defer rows.Close()

	skills := []types.Skill{}
	for rows.Next() {
		var s types.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Level, &s.Category); err != nil {
			return nil, fmt.Errorf("failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}
	return skills, rows.Err()
}
