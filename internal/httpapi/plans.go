package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/checklist"
	"github.com/MdSium003/AgamiOps/internal/coerce"
	"github.com/MdSium003/AgamiOps/internal/inventory"
	"github.com/MdSium003/AgamiOps/internal/report"
	"github.com/MdSium003/AgamiOps/internal/store"
)

type planView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Model     json.RawMessage `json:"model"`
	Tasks     json.RawMessage `json:"tasks"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func viewPlan(p store.Plan) planView {
	return planView{ID: p.ID, Name: p.Name, Model: p.Model, Tasks: p.Tasks, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

// present reports whether a raw JSON field was sent with a non-null value.
func present(raw json.RawMessage) bool {
	b := bytes.TrimSpace(raw)
	return len(b) > 0 && !bytes.Equal(b, []byte("null"))
}

func jsonOrNil(raw json.RawMessage) json.RawMessage {
	if !present(raw) {
		return nil
	}
	return raw
}

func decodeAny(raw json.RawMessage) any {
	var v any
	if present(raw) {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (s *Server) handleListPlans(c *gin.Context) {
	plans, err := s.store.ListPlans(c.Request.Context(), userID(c))
	if err != nil {
		s.writeError(c, err, "Failed to fetch plans")
		return
	}
	out := make([]planView, 0, len(plans))
	for _, p := range plans {
		out = append(out, viewPlan(p))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

func (s *Server) loadPlan(c *gin.Context) (store.Plan, bool) {
	p, err := s.store.GetPlan(c.Request.Context(), userID(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Not found"))
		return store.Plan{}, false
	}
	if err != nil {
		s.writeError(c, err, "Failed to fetch plan")
		return store.Plan{}, false
	}
	return p, true
}

func (s *Server) handleGetPlan(c *gin.Context) {
	if p, ok := s.loadPlan(c); ok {
		c.JSON(http.StatusOK, viewPlan(p))
	}
}

func (s *Server) handleSavePlan(c *gin.Context) {
	var req struct {
		ID    any             `json:"id"`
		Name  any             `json:"name"`
		Model json.RawMessage `json:"model"`
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to save plan")
		return
	}
	id := strings.TrimSpace(coerce.String(req.ID, ""))
	if id == "" || !present(req.Model) {
		respondError(c, *badRequest("id and model are required"))
		return
	}
	name := coerce.String(req.Name, "")
	if name == "" {
		name = coerce.String(coerce.Map(decodeAny(req.Model))["name"], "Plan")
	}
	err := s.store.SavePlan(c.Request.Context(), store.Plan{
		ID: id, UserID: userID(c), Name: name, Model: req.Model, Tasks: jsonOrNil(req.Tasks),
	})
	if errors.Is(err, store.ErrConflict) {
		respondError(c, apiError{Status: http.StatusConflict, Message: "Plan id already in use"})
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to save plan")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

// handleUpdateTasks stores the checklist after normalizing it. Completion
// must follow the checklist order.
func (s *Server) handleUpdateTasks(c *gin.Context) {
	var req struct {
		Tasks json.RawMessage `json:"tasks"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to update tasks")
		return
	}
	arr, ok := coerce.Slice(decodeAny(req.Tasks))
	if !ok {
		respondError(c, *badRequest("tasks must be array"))
		return
	}
	tasks := checklist.NormalizeSaved(arr, s.now())
	if err := checklist.ValidateProgress(tasks); err != nil {
		respondError(c, *badRequest("Tasks must be completed in order"))
		return
	}
	doc, err := json.Marshal(tasks)
	if err != nil {
		s.writeError(c, err, "Failed to update tasks")
		return
	}
	err = s.store.UpdatePlanTasks(c.Request.Context(), userID(c), c.Param("id"), doc)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Not found"))
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to update tasks")
		return
	}
	done, total := checklist.Progress(tasks)
	c.JSON(http.StatusOK, gin.H{"ok": true, "done": done, "total": total})
}

func (s *Server) handleDeletePlan(c *gin.Context) {
	err := s.store.DeletePlan(c.Request.Context(), userID(c), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Not found"))
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to delete plan")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) reportPlan(p store.Plan) report.Plan {
	now := s.now()
	rp := report.Plan{Name: p.Name, Model: businessmodel.NormalizeOne(decodeAny(p.Model), now)}
	if present(p.Tasks) {
		rp.Tasks = checklist.NormalizeSaved(decodeAny(p.Tasks), now)
	}
	return rp
}

func (s *Server) handlePlanReport(c *gin.Context) {
	p, ok := s.loadPlan(c)
	if !ok {
		return
	}
	doc, err := report.PlanHTML(s.reportPlan(p))
	if err != nil {
		s.writeError(c, err, "Failed to render report")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(doc))
}

func (s *Server) handlePlanPDF(c *gin.Context) {
	p, ok := s.loadPlan(c)
	if !ok {
		return
	}
	doc, err := report.PlanHTML(s.reportPlan(p))
	if err != nil {
		s.writeError(c, err, "Failed to render report")
		return
	}
	pdf, err := s.pdf.Render(c.Request.Context(), doc)
	if errors.Is(err, report.ErrUnavailable) {
		respondError(c, apiError{Status: http.StatusServiceUnavailable, Message: "PDF rendering unavailable"})
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to render PDF")
		return
	}
	name := inventory.SafeFileName("plan-"+p.ID+".pdf", s.now())
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

type shareSummaryView struct {
	ID          int64     `json:"id"`
	PlanID      string    `json:"plan_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type shareView struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	PlanID    string          `json:"plan_id"`
	Name      string          `json:"name"`
	Model     json.RawMessage `json:"model"`
	Tasks     json.RawMessage `json:"tasks"`
	CreatedAt time.Time       `json:"created_at"`
}

type collaboratorView struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
}

func (s *Server) handleCreateShare(c *gin.Context) {
	var req struct {
		PlanID any             `json:"planId"`
		Name   any             `json:"name"`
		Model  json.RawMessage `json:"model"`
		Tasks  json.RawMessage `json:"tasks"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to create share")
		return
	}
	planID := strings.TrimSpace(coerce.String(req.PlanID, ""))
	if planID == "" {
		respondError(c, *badRequest("planId required"))
		return
	}
	sh, err := s.store.CreateShare(c.Request.Context(), store.Share{
		UserID: userID(c),
		PlanID: planID,
		Name:   coerce.String(req.Name, ""),
		Model:  jsonOrNil(req.Model),
		Tasks:  jsonOrNil(req.Tasks),
	})
	if errors.Is(err, store.ErrConflict) {
		respondError(c, *badRequest("This project is already shared"))
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to create share")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": sh.ID, "url": "/share/" + strconv.FormatInt(sh.ID, 10)})
}

func (s *Server) handleListShares(c *gin.Context) {
	shares, err := s.store.ListShares(c.Request.Context(), maxShares)
	if err != nil {
		s.writeError(c, err, "Failed to load shares")
		return
	}
	out := make([]shareSummaryView, 0, len(shares))
	for _, sh := range shares {
		out = append(out, shareSummaryView{
			ID: sh.ID, PlanID: sh.PlanID, Name: sh.Name, Description: sh.Description,
			UserID: sh.UserID, CreatedAt: sh.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"shares": out})
}

func (s *Server) handleGetShare(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, *notFound("Not found"))
		return
	}
	sh, err := s.store.GetShare(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, *notFound("Not found"))
		return
	}
	if err != nil {
		s.writeError(c, err, "Failed to load share")
		return
	}
	c.JSON(http.StatusOK, shareView{
		ID: sh.ID, UserID: sh.UserID, PlanID: sh.PlanID, Name: sh.Name,
		Model: sh.Model, Tasks: sh.Tasks, CreatedAt: sh.CreatedAt,
	})
}

func (s *Server) handleCollaborate(c *gin.Context) {
	var req struct {
		ShareID any    `json:"share_id"`
		Message string `json:"message"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to request collaboration")
		return
	}
	shareID := int64(coerce.Int(req.ShareID, 0))
	if shareID <= 0 {
		respondError(c, *badRequest("Share ID required"))
		return
	}
	id, err := s.store.RequestCollaboration(c.Request.Context(), shareID, userID(c), req.Message)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, *notFound("Share not found"))
	case errors.Is(err, store.ErrOwnShare):
		respondError(c, *badRequest("Cannot collaborate on your own project"))
	case errors.Is(err, store.ErrConflict):
		respondError(c, *badRequest("Already requested collaboration"))
	case err != nil:
		s.writeError(c, err, "Failed to request collaboration")
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
	}
}

func (s *Server) handleListCollaborators(c *gin.Context) {
	shareID, err := strconv.ParseInt(c.Param("share_id"), 10, 64)
	if err != nil {
		respondError(c, *notFound("Share not found"))
		return
	}
	list, err := s.store.ListCollaborators(c.Request.Context(), userID(c), shareID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respondError(c, *notFound("Share not found"))
		return
	case errors.Is(err, store.ErrForbidden):
		respondError(c, apiError{Status: http.StatusForbidden, Message: "Not authorized"})
		return
	case err != nil:
		s.writeError(c, err, "Failed to load collaborators")
		return
	}
	out := make([]collaboratorView, 0, len(list))
	for _, cl := range list {
		out = append(out, collaboratorView{
			ID: cl.ID, Message: cl.Message, Status: cl.Status, CreatedAt: cl.CreatedAt,
			Name: cl.Name, Email: cl.Email, Company: cl.Company,
		})
	}
	c.JSON(http.StatusOK, gin.H{"collaborators": out})
}
