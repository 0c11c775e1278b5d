// Package httpapi exposes accounts, plans, the marketplace, inventory and the
// generation endpoints over HTTP.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/MdSium003/AgamiOps/internal/auth"
	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/checklist"
	"github.com/MdSium003/AgamiOps/internal/inventory"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/report"
	"github.com/MdSium003/AgamiOps/internal/session"
	"github.com/MdSium003/AgamiOps/internal/store"
)

const (
	maxBodyBytes = 10 << 20
	maxShares    = 100
	maxHistory   = 50

	headerGenerationSource = "X-Generation-Source"
)

type Options struct {
	Store     *store.Store
	Sessions  session.Store
	Signer    *session.Signer
	Auth      *auth.Service
	Google    *auth.GoogleProvider // nil disables Google sign-in
	Models    *businessmodel.Service
	Inventory *inventory.Service
	Checklist *checklist.Service
	PDF       report.PDFRenderer
	Log       *logger.Logger

	FrontendOrigins []string
	Production      bool
	SessionTTL      time.Duration
	// ServiceName enables otelgin spans when non-empty.
	ServiceName string
}

type Server struct {
	store     *store.Store
	sessions  session.Store
	signer    *session.Signer
	auth      *auth.Service
	google    *auth.GoogleProvider
	models    *businessmodel.Service
	inventory *inventory.Service
	checklist *checklist.Service
	pdf       report.PDFRenderer
	log       *logger.Logger

	origins    []string
	production bool
	sessionTTL time.Duration
	service    string
	now        func() time.Time
}

func NewServer(opts Options) *Server {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	pdf := opts.PDF
	if pdf == nil {
		pdf = report.NewChromiumPDFRenderer("")
	}
	return &Server{
		store:      opts.Store,
		sessions:   opts.Sessions,
		signer:     opts.Signer,
		auth:       opts.Auth,
		google:     opts.Google,
		models:     opts.Models,
		inventory:  opts.Inventory,
		checklist:  opts.Checklist,
		pdf:        pdf,
		log:        logger.OrNop(opts.Log).With("component", "httpapi"),
		origins:    opts.FrontendOrigins,
		production: opts.Production,
		sessionTTL: ttl,
		service:    opts.ServiceName,
		now:        time.Now,
	}
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.service != "" {
		r.Use(otelgin.Middleware(s.service))
	}
	r.Use(requestLogger(s.log))
	r.Use(corsMiddleware(s.origins, s.production))
	r.Use(limitBody(maxBodyBytes))
	r.Use(s.loadSession())

	r.GET("/", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "Backend is ready"}) })
	r.GET("/healthz", s.handleHealth)
	r.Static("/uploads", s.inventory.UploadDir())

	a := r.Group("/auth")
	{
		a.POST("/register", s.handleRegister)
		a.POST("/login", s.handleLogin)
		a.POST("/logout", s.handleLogout)
		a.GET("/verify-email", s.handleVerifyEmail)
		a.POST("/resend-verification", s.handleResendVerification)
		a.GET("/me", s.handleMe)
		a.POST("/complete-profile", s.requireUser(), s.handleCompleteProfile)
		a.GET("/google", s.handleGoogleStart)
		a.GET("/google/callback", s.handleGoogleCallback)
	}

	// Marketplace
	r.GET("/shares", s.handleListShares)
	r.GET("/share/:id", s.handleGetShare)
	r.POST("/shares", s.requireUser(), s.handleCreateShare)
	r.POST("/collaborate", s.requireUser(), s.handleCollaborate)
	r.GET("/collaborators/:share_id", s.requireUser(), s.handleListCollaborators)

	plans := r.Group("/plans", s.requireUser())
	{
		plans.GET("", s.handleListPlans)
		plans.POST("", s.handleSavePlan)
		plans.GET("/:id", s.handleGetPlan)
		plans.PATCH("/:id/tasks", s.handleUpdateTasks)
		plans.DELETE("/:id", s.handleDeletePlan)
		plans.GET("/:id/report", s.handlePlanReport)
		plans.GET("/:id/report.pdf", s.handlePlanPDF)
	}

	inv := r.Group("/inventory", s.requireUser())
	{
		inv.GET("", s.handleListInventory)
		inv.POST("", s.handleAddInventory)
		inv.PUT("/:id", s.handleUpdateInventory)
		inv.DELETE("/:id", s.handleDeleteInventory)
		inv.POST("/analyze-image", s.handleAnalyzeImage)
	}

	ai := r.Group("/ai")
	{
		ai.POST("/inventory-analysis", s.handleInventoryAnalysis)
		ai.POST("/plan-checklist", s.handlePlanChecklist)
		ai.POST("/business-models", s.handleBusinessModels)
		ai.GET("/business-models/previous", s.requireUser(), s.handleListGenerations)
		ai.DELETE("/business-models/previous/:id", s.requireUser(), s.handleDeleteGeneration)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		s.log.Error("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "database unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "database": string(s.store.Dialect())})
}

// frontURL joins path onto the first configured frontend origin.
func (s *Server) frontURL(path string) string {
	origin := "http://localhost:5173"
	if len(s.origins) > 0 && strings.TrimSpace(s.origins[0]) != "" {
		origin = strings.TrimSpace(s.origins[0])
	}
	return strings.TrimRight(origin, "/") + path
}
