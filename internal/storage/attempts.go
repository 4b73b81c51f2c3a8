package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateAttempt stores a finished run.
func (p *PostgresClient) CreateAttempt(ctx context.Context, attempt *Attempt) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO attempts (id, run_id, level_id, source, state, score, passed, iterations, details, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, attempt.ID, attempt.RunID, attempt.LevelID, attempt.Source, attempt.State,
		attempt.Score, attempt.Passed, attempt.Iterations, attempt.Details,
		attempt.StartedAt, attempt.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

// GetAttemptByRunID looks up the attempt persisted for a run.
func (p *PostgresClient) GetAttemptByRunID(ctx context.Context, runID uuid.UUID) (*Attempt, error) {
	var a Attempt
	err := p.pool.QueryRow(ctx, `
		SELECT id, run_id, level_id, source, state, score, passed, iterations, details, started_at, completed_at
		FROM attempts
		WHERE run_id = $1
	`, runID).Scan(
		&a.ID, &a.RunID, &a.LevelID, &a.Source, &a.State, &a.Score,
		&a.Passed, &a.Iterations, &a.Details, &a.StartedAt, &a.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("attempt not found")
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &a, nil
}

// ListAttemptsByLevel returns the most recent attempts for a level.
func (p *PostgresClient) ListAttemptsByLevel(ctx context.Context, levelID string, limit int) ([]*Attempt, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.pool.Query(ctx, `
		SELECT id, run_id, level_id, source, state, score, passed, iterations, details, started_at, completed_at
		FROM attempts
		WHERE level_id = $1
		ORDER BY completed_at DESC
		LIMIT $2
	`, levelID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var a Attempt
		err := rows.Scan(
			&a.ID, &a.RunID, &a.LevelID, &a.Source, &a.State, &a.Score,
			&a.Passed, &a.Iterations, &a.Details, &a.StartedAt, &a.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, &a)
	}
	return attempts, nil
}

// GetLevelStats aggregates attempt counts and scores for a level.
func (p *PostgresClient) GetLevelStats(ctx context.Context, levelID string) (*LevelStats, error) {
	var stats LevelStats
	stats.LevelID = levelID

	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE passed),
		       COALESCE(ROUND(AVG(score)), 0)
		FROM attempts
		WHERE level_id = $1
	`, levelID).Scan(&stats.Attempts, &stats.Passed, &stats.AverageScore)
	if err != nil {
		return nil, fmt.Errorf("failed to get level stats: %w", err)
	}
	return &stats, nil
}
