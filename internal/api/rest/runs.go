package rest

import (
	"errors"
	"net/http"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// POST /api/v1/levels/:id/runs
// Starts a live execution. The caller follows progress over the
// WebSocket feed or by polling the run status.
func (s *Server) startRun(c *gin.Context) {
	level, err := s.lm.Catalog().Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("LEVEL_404", "Level not found", nil))
		return
	}

	var req SketchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SKETCH_400", "Invalid request body", err.Error()))
		return
	}

	runID, err := s.lm.Runner().StartRun(c.Request.Context(), level, req.Source)
	if err != nil {
		var serr *sketch.Error
		if errors.As(err, &serr) {
			c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse(string(serr.Code), serr.Message, serr))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("RUN_500", "Failed to start run", err.Error()))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"run_id":   runID,
		"level_id": level.ID,
	})
}

// GET /api/v1/runs/:id
func (s *Server) getRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("RUN_400", "Invalid run id", nil))
		return
	}

	run, ok := s.lm.Runner().Get(runID)
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("RUN_404", "Run not found", nil))
		return
	}

	c.JSON(http.StatusOK, run)
}

// POST /api/v1/runs/:id/cancel
func (s *Server) cancelRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("RUN_400", "Invalid run id", nil))
		return
	}

	if err := s.lm.Runner().Cancel(runID); err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("RUN_409", "Cannot cancel run", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "run cancelled"})
}

// GET /api/v1/runs/:id/attempt (Instructor+)
func (s *Server) getRunAttempt(c *gin.Context) {
	store := s.lm.Storage()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("STORE_503", "Persistence is not configured", nil))
		return
	}

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("RUN_400", "Invalid run id", nil))
		return
	}

	attempt, err := store.GetAttemptByRunID(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("ATTEMPT_404", "Attempt not found", nil))
		return
	}

	c.JSON(http.StatusOK, attempt)
}
