package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/api/websocket"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/auth"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/config"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/interfaces"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/timeline"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router      *gin.Engine
	lm          interfaces.LifecycleManager
	logger      *zap.Logger
	server      *http.Server
	wsHub       *websocket.Hub
	authService *auth.AuthService
	extractor   *timeline.Extractor
}

// NewServer wires the REST surface. authService may be nil when the
// service runs without a database; auth endpoints then return 503 and
// protected routes are open.
func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub, authService *auth.AuthService) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:      gin.New(),
		lm:          lm,
		logger:      logger,
		wsHub:       wsHub,
		authService: authService,
		extractor:   timeline.NewExtractor(logger),
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Fatal("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

// authRequired falls through when no auth service is configured.
func (s *Server) authRequired() gin.HandlerFunc {
	if s.authService == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return s.authService.AuthMiddleware()
}

func (s *Server) requirePermission(p auth.Permission) gin.HandlerFunc {
	if s.authService == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return auth.RequirePermission(p)
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware())

	// Public routes (no auth required)
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== AUTH ENDPOINTS (PUBLIC) ====================
		authPublic := v1.Group("/auth")
		{
			authPublic.POST("/login", s.login)
			authPublic.POST("/refresh", s.refreshToken)
		}

		// ==================== AUTH ENDPOINTS (AUTHENTICATED) ====================
		authProtected := v1.Group("/auth")
		authProtected.Use(s.authRequired())
		{
			authProtected.POST("/logout", s.logout)
			authProtected.GET("/me", s.getCurrentUser)
		}

		// ==================== USER MANAGEMENT (ADMIN ONLY) ====================
		users := v1.Group("/users")
		users.Use(s.authRequired())
		users.Use(s.requirePermission(auth.PermAdmin))
		{
			users.POST("", s.createUser)
			users.GET("", s.listUsers)
		}

		// ==================== SKETCH VALIDATION (PUBLIC) ====================
		// Editors lint against this without starting a run.
		v1.POST("/sketch/check", s.checkSketch)

		// ==================== LEVELS ====================
		levels := v1.Group("/levels")
		{
			levels.GET("", s.listLevels)
			levels.GET("/:id", s.getLevel)

			// Static grading, no waiting involved
			levels.POST("/:id/check", s.checkLevel)

			// Live runs execute in real time
			levels.POST("/:id/runs", s.startRun)

			// Authoring and review: Instructor+
			levels.POST("", s.authRequired(), s.requirePermission(auth.PermInstructor), s.createLevel)
			levels.GET("/:id/attempts", s.authRequired(), s.requirePermission(auth.PermInstructor), s.listLevelAttempts)
			levels.GET("/:id/stats", s.authRequired(), s.requirePermission(auth.PermInstructor), s.getLevelStats)
		}

		// ==================== RUNS ====================
		runs := v1.Group("/runs")
		{
			runs.GET("/:id", s.getRun)
			runs.POST("/:id/cancel", s.cancelRun)
			runs.GET("/:id/attempt", s.authRequired(), s.requirePermission(auth.PermInstructor), s.getRunAttempt)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
			system.POST("/reload-levels", s.authRequired(), s.requirePermission(auth.PermInstructor), s.reloadLevels)
			system.POST("/shutdown", s.authRequired(), s.requirePermission(auth.PermAdmin), s.shutdown)
		}

		// ==================== WEBSOCKET (PUBLIC) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/live", s.wsLiveConnection)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsLiveConnection(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
