package rest

import (
	"net/http"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	status := s.lm.GetCurrentStatus()
	c.JSON(http.StatusOK, status)
}

// POST /api/v1/system/reload-levels
func (s *Server) reloadLevels(c *gin.Context) {
	if err := s.lm.ReloadLevels(); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SYSTEM_500", "Failed to reload levels", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "levels reloaded",
		"count":   s.lm.Catalog().Count(),
	})
}

// POST /api/v1/system/shutdown
func (s *Server) shutdown(c *gin.Context) {
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Shutdown initiated",
	})

	// Trigger shutdown in background
	go func() {
		ctx := c.Request.Context()
		s.lm.Shutdown(ctx)
	}()
}
