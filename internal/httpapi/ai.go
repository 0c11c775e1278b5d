package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/checklist"
	"github.com/MdSium003/AgamiOps/internal/inventory"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
	"github.com/MdSium003/AgamiOps/internal/store"
)

// The generation endpoints return exactly the normalized document; which
// path produced it travels in a header.
func setSource(c *gin.Context, src pipeline.Source) {
	c.Header(headerGenerationSource, string(src))
}

func (s *Server) handleInventoryAnalysis(c *gin.Context) {
	var req struct {
		InventoryData json.RawMessage `json:"inventoryData"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "AI inventory analysis failed")
		return
	}
	res, err := s.inventory.Analyze(c.Request.Context(), decodeUpload(req.InventoryData))
	if errors.Is(err, inventory.ErrInvalidInput) {
		respondError(c, *badRequest("inventoryData must be a non-empty array"))
		return
	}
	if err != nil {
		s.writeError(c, err, "AI inventory analysis failed")
		return
	}
	setSource(c, res.Source)
	c.JSON(http.StatusOK, res.Analysis)
}

func (s *Server) handlePlanChecklist(c *gin.Context) {
	var req struct {
		Model json.RawMessage `json:"model"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "AI checklist generation failed")
		return
	}
	tasks, err := s.checklist.Generate(c.Request.Context(), checklist.BriefFrom(decodeAny(req.Model)))
	var stageErr *pipeline.StageError
	switch {
	case errors.Is(err, checklist.ErrInvalidInput):
		respondError(c, *badRequest("model is required"))
	case errors.Is(err, checklist.ErrNotConfigured):
		respondError(c, apiError{Status: http.StatusNotImplemented, Message: "Generation not configured on server"})
	case errors.As(err, &stageErr) && stageErr.Stage == pipeline.StateUnparsable:
		s.log.Warn("checklist response unparsable", "error", err)
		respondError(c, apiError{Status: http.StatusInternalServerError, Message: "Failed to parse AI response"})
	case err != nil:
		s.writeError(c, err, "AI checklist generation failed")
	default:
		setSource(c, pipeline.SourceGenerated)
		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	}
}

func (s *Server) handleBusinessModels(c *gin.Context) {
	var req businessmodel.Request
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "AI generation failed")
		return
	}
	res, err := s.models.Generate(c.Request.Context(), userID(c), req)
	if errors.Is(err, businessmodel.ErrInvalidInput) {
		respondError(c, *badRequest("idea is required"))
		return
	}
	if err != nil {
		s.writeError(c, err, "AI generation failed")
		return
	}
	setSource(c, res.Source)
	c.JSON(http.StatusOK, gin.H{"models": res.Models})
}

type generationView struct {
	ID        int64           `json:"id"`
	Idea      string          `json:"idea"`
	Models    json.RawMessage `json:"models"`
	CreatedAt time.Time       `json:"createdAt"`
}

func (s *Server) handleListGenerations(c *gin.Context) {
	gens, err := s.store.ListGenerations(c.Request.Context(), userID(c), maxHistory)
	if err != nil {
		s.writeError(c, err, "Failed to fetch previous generations")
		return
	}
	out := make([]generationView, 0, len(gens))
	for _, g := range gens {
		out = append(out, generationView{ID: g.ID, Idea: g.Idea, Models: g.Models, CreatedAt: g.CreatedAt})
	}
	c.JSON(http.StatusOK, gin.H{"generations": out})
}

func (s *Server) handleDeleteGeneration(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err == nil {
		err = s.store.DeleteGeneration(c.Request.Context(), userID(c), id)
	} else {
		err = store.ErrNotFound
	}
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Generation not found"))
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to delete generation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
