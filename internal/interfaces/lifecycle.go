package interfaces

import (
	"context"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/config"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/levels"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/runner"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/storage"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State      string `json:"state"`
	LevelCount int    `json:"level_count"`
	ActiveRuns int    `json:"active_runs"`
}

type LifecycleManager interface {
	Config() *config.Config
	Storage() *storage.PostgresClient
	Catalog() *levels.Catalog
	Runner() *runner.Engine
	Streamer() *runner.Streamer
	GetCurrentStatus() SystemStatus
	ReloadLevels() error
	Shutdown(ctx context.Context) error
}
