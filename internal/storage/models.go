package storage

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one finished run of a learner sketch against a level.
// Details holds the serialized grading result as JSONB.
type Attempt struct {
	ID          uuid.UUID `json:"id"`
	RunID       uuid.UUID `json:"run_id"`
	LevelID     string    `json:"level_id"`
	Source      string    `json:"source"`
	State       string    `json:"state"`
	Score       int       `json:"score"`
	Passed      bool      `json:"passed"`
	Iterations  int       `json:"iterations"`
	Details     []byte    `json:"details"` // JSONB
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// LevelStats aggregates attempt outcomes for one level.
type LevelStats struct {
	LevelID      string `json:"level_id"`
	Attempts     int    `json:"attempts"`
	Passed       int    `json:"passed"`
	AverageScore int    `json:"average_score"`
}
