package rest

import (
	"io"
	"net/http"

	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/grade"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/levels"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/sketch"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/timeline"
	"github.com/Walid-Belmo/MVP-WARINA-3-sub000/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SketchRequest struct {
	Source string `json:"source" binding:"required"`
}

type CheckResponse struct {
	Report   sketch.Report      `json:"report"`
	Sequence *timeline.Sequence `json:"sequence,omitempty"`
	Result   *grade.Result      `json:"result,omitempty"`
}

// POST /api/v1/sketch/check
// Static validation only, no level involved.
func (s *Server) checkSketch(c *gin.Context) {
	var req SketchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SKETCH_400", "Invalid request body", err.Error()))
		return
	}

	report := sketch.Check(req.Source)

	resp := CheckResponse{Report: report}
	if report.Valid {
		if prog, perr := sketch.Parse(req.Source); perr == nil {
			if seq, xerr := s.extractor.Extract(prog); xerr == nil {
				resp.Sequence = seq
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GET /api/v1/levels
func (s *Server) listLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": s.lm.Catalog().List()})
}

// GET /api/v1/levels/:id
func (s *Server) getLevel(c *gin.Context) {
	level, err := s.lm.Catalog().Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("LEVEL_404", "Level not found", nil))
		return
	}
	c.JSON(http.StatusOK, level.Public())
}

// POST /api/v1/levels/:id/check
// Grades a submission against the level's reference timeline using
// virtual time. The response always carries the validation report;
// sequence and result are present only for valid sketches.
func (s *Server) checkLevel(c *gin.Context) {
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

	report := sketch.Check(req.Source)
	if !report.Valid {
		c.JSON(http.StatusOK, CheckResponse{Report: report})
		return
	}

	prog, perr := sketch.Parse(req.Source)
	if perr != nil {
		c.JSON(http.StatusOK, CheckResponse{Report: report})
		return
	}

	submitted, xerr := s.extractor.Extract(prog)
	if xerr != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("SKETCH_422", "Sketch execution failed", xerr))
		return
	}

	target, terr := s.targetSequence(level)
	if terr != nil {
		s.logger.Error("Broken target sketch",
			zap.String("level_id", level.ID), zap.Error(terr))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("LEVEL_500", "Level target sketch is broken", nil))
		return
	}

	tolerance := level.ToleranceMs
	if tolerance <= 0 {
		tolerance = int64(s.lm.Config().Runtime.DefaultToleranceMs)
	}
	validator := grade.NewValidator(tolerance)
	result := validator.Validate(target, submitted)

	c.JSON(http.StatusOK, CheckResponse{
		Report:   report,
		Sequence: submitted,
		Result:   &result,
	})
}

func (s *Server) targetSequence(level *levels.Level) (*timeline.Sequence, error) {
	prog, err := sketch.ParseLenient(level.TargetSketch)
	if err != nil {
		return nil, err
	}
	return s.extractor.Extract(prog)
}

// POST /api/v1/levels (Instructor+)
// The target sketch must validate and extract before the level is
// accepted into the catalog.
func (s *Server) createLevel(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("LEVEL_400", "Failed to read request body", err.Error()))
		return
	}

	catalog := s.lm.Catalog()
	if err := catalog.Validator().ValidateDefinition(data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("LEVEL_422", "Level definition invalid", err.Error()))
		return
	}

	level, err := levels.FromJSON(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("LEVEL_400", "Invalid level JSON", err.Error()))
		return
	}

	if _, err := s.targetSequence(level); err != nil {
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("LEVEL_422", "Target sketch does not execute", err.Error()))
		return
	}

	if err := catalog.Add(level); err != nil {
		c.JSON(http.StatusConflict, types.NewErrorResponse("LEVEL_409", "Failed to add level", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, level.Public())
}

// GET /api/v1/levels/:id/attempts (Instructor+)
func (s *Server) listLevelAttempts(c *gin.Context) {
	store := s.lm.Storage()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("STORE_503", "Persistence is not configured", nil))
		return
	}

	attempts, err := store.ListAttemptsByLevel(c.Request.Context(), c.Param("id"), 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("STORE_500", "Failed to list attempts", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

// GET /api/v1/levels/:id/stats (Instructor+)
func (s *Server) getLevelStats(c *gin.Context) {
	store := s.lm.Storage()
	if store == nil {
		c.JSON(http.StatusServiceUnavailable, types.NewErrorResponse("STORE_503", "Persistence is not configured", nil))
		return
	}

	stats, err := store.GetLevelStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("STORE_500", "Failed to get stats", err.Error()))
		return
	}

	c.JSON(http.StatusOK, stats)
}
