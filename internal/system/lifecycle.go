package system

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/api/rest"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/api/websocket"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/auth"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/config"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interfaces"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/levels"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/runner"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/storage"
	"go.uber.org/zap"
)

// LifecycleManager owns every long-lived component and controls the
// start and stop order.
type LifecycleManager struct {
	config      *config.Config
	storage     *storage.PostgresClient
	catalog     *levels.Catalog
	runEngine   *runner.Engine
	streamer    *runner.Streamer
	authService *auth.AuthService
	wsHub       *websocket.Hub
	logger      *zap.Logger

	restServer *rest.Server

	stateMu      sync.RWMutex
	currentState SystemState

	bridgeCancel context.CancelFunc

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

func NewLifecycleManager(
	db *storage.PostgresClient,
	cfg *config.Config,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	catalog, err := levels.NewCatalog(cfg.Levels.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load level catalog: %w", err)
	}

	streamer := runner.NewStreamer()

	var store runner.AttemptStore
	var authService *auth.AuthService
	if db != nil {
		store = db
		authService = auth.NewAuthService(db, cfg.Auth)
	}

	runEngine := runner.NewEngine(store, streamer, logger, runner.Config{
		MaxLoopIterations:  cfg.Runtime.MaxLoopIterations,
		MaxRunDuration:     cfg.Runtime.MaxRunDuration,
		DefaultToleranceMs: int64(cfg.Runtime.DefaultToleranceMs),
	})

	return &LifecycleManager{
		config:       cfg,
		storage:      db,
		catalog:      catalog,
		runEngine:    runEngine,
		streamer:     streamer,
		authService:  authService,
		wsHub:        websocket.NewHub(logger),
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting Warina teaching core")

	go lm.wsHub.Run()
	lm.startEventBridge()

	if err := lm.startRESTServer(); err != nil {
		lm.setState(StateError)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)

	lm.logger.Info("System started successfully",
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Int("levels", lm.catalog.Count()),
		zap.Bool("persistence", lm.storage != nil))

	return nil
}

// startEventBridge forwards run events from the streamer onto the
// WebSocket hub until shutdown.
func (lm *LifecycleManager) startEventBridge() {
	ctx, cancel := context.WithCancel(context.Background())
	lm.bridgeCancel = cancel

	events := lm.streamer.SubscribeAll()
	go func() {
		defer lm.streamer.UnsubscribeAll(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				lm.wsHub.Broadcast(websocket.NewRunEventMessage(event))
			}
		}
	}()
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	return lm.restServer.Start()
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)

		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	// Stop accepting new runs and cancel active ones first so their
	// final events still reach connected clients.
	lm.runEngine.CancelAll()

	var wg sync.WaitGroup
	errChan := make(chan error, 2)

	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	if lm.bridgeCancel != nil {
		lm.bridgeCancel()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		lm.logger.Info("Graceful shutdown completed")
		return nil
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		return fmt.Errorf("shutdown timeout exceeded")
	case err := <-errChan:
		return err
	}
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()
	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Forcing unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()

	return interfaces.SystemStatus{
		State:      lm.currentState.String(),
		LevelCount: lm.catalog.Count(),
		ActiveRuns: lm.runEngine.ActiveRuns(),
	}
}

// ReloadLevels re-reads the level catalog from disk.
func (lm *LifecycleManager) ReloadLevels() error {
	return lm.catalog.Reload()
}

// Storage returns the storage client, nil when persistence is disabled
func (lm *LifecycleManager) Storage() *storage.PostgresClient {
	return lm.storage
}

// Config returns the configuration
func (lm *LifecycleManager) Config() *config.Config {
	return lm.config
}

// Catalog returns the level catalog
func (lm *LifecycleManager) Catalog() *levels.Catalog {
	return lm.catalog
}

// Runner returns the live run engine
func (lm *LifecycleManager) Runner() *runner.Engine {
	return lm.runEngine
}

// Streamer returns the run event streamer
func (lm *LifecycleManager) Streamer() *runner.Streamer {
	return lm.streamer
}
