// Package app assembles the service graph from configuration. The graph is
// built once, shared read-only by all requests and closed on shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/auth"
	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/checklist"
	"github.com/MdSium003/AgamiOps/internal/config"
	"github.com/MdSium003/AgamiOps/internal/generation"
	"github.com/MdSium003/AgamiOps/internal/httpapi"
	"github.com/MdSium003/AgamiOps/internal/inventory"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/mailer"
	"github.com/MdSium003/AgamiOps/internal/observability"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
	"github.com/MdSium003/AgamiOps/internal/report"
	"github.com/MdSium003/AgamiOps/internal/session"
	"github.com/MdSium003/AgamiOps/internal/store"
)

const shutdownTimeout = 15 * time.Second

// Generators is the part of the graph that needs no database: the CLI tools
// run the pipelines directly.
type Generators struct {
	Invoker   *generation.Invoker
	Models    *businessmodel.Service
	Inventory *inventory.Service
	Checklist *checklist.Service
}

// NewGenerators builds the generation invoker and the three pipeline
// services. recorder may be nil.
func NewGenerators(ctx context.Context, cfg *config.Config, recorder businessmodel.Recorder, log *logger.Logger) (*Generators, error) {
	log = logger.OrNop(log)
	inv, err := generation.New(ctx, generation.Settings{
		Provider:        cfg.Generation.Provider,
		GeminiAPIKey:    cfg.Generation.GeminiAPIKey,
		GeminiModel:     cfg.Generation.GeminiModel,
		AnthropicAPIKey: cfg.Generation.AnthropicAPIKey,
		AnthropicModel:  cfg.Generation.AnthropicModel,
		Timeout:         cfg.GenerationTimeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("init generation: %w", err)
	}
	if !inv.Available() {
		log.Warn("no generation credentials configured; deterministic fallbacks only", "provider", inv.Provider())
	} else {
		log.Info("generation configured", "provider", inv.Provider(), "timeout", inv.Timeout().String())
	}
	runner := pipeline.NewRunner(inv, log)
	return &Generators{
		Invoker:   inv,
		Models:    businessmodel.NewService(runner, recorder, log),
		Inventory: inventory.NewService(runner, cfg.Server.UploadDir, log),
		Checklist: checklist.NewService(runner),
	}, nil
}

type App struct {
	Config *config.Config
	Log    *logger.Logger

	store         *store.Store
	sessions      session.Store
	traceShutdown func(context.Context) error
	server        *http.Server
}

// New opens every backing service named by cfg. On error anything already
// opened is closed again.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (a *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log = logger.OrNop(log)
	a = &App{Config: cfg, Log: log, traceShutdown: func(context.Context) error { return nil }}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.traceShutdown, err = observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Telemetry.Enabled,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Server.Env,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		return a, fmt.Errorf("init tracing: %w", err)
	}

	a.store, err = store.Open(ctx, store.Options{URL: cfg.Database.URL, SQLitePath: cfg.Database.SQLitePath})
	if err != nil {
		return a, fmt.Errorf("open store: %w", err)
	}
	log.Info("store opened", "dialect", string(a.store.Dialect()))

	if cfg.Session.RedisAddr != "" {
		rs, err := session.NewRedisStore(ctx, cfg.Session.RedisAddr, cfg.SessionTTL())
		if err != nil {
			return a, fmt.Errorf("open session store: %w", err)
		}
		a.sessions = rs
		log.Info("sessions in redis", "addr", cfg.Session.RedisAddr)
	} else {
		a.sessions = session.NewMemoryStore(cfg.SessionTTL())
		log.Info("sessions in memory")
	}

	gens, err := NewGenerators(ctx, cfg, a.store, log)
	if err != nil {
		return a, err
	}

	mail, err := newMailer(cfg, log)
	if err != nil {
		return a, err
	}
	origin := frontendOrigin(cfg)

	var google *auth.GoogleProvider
	if cfg.GoogleOAuthEnabled() {
		google = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			RedirectURL:  cfg.Google.CallbackURL,
		})
	}

	pdf := report.NewChromiumPDFRenderer("")
	if !pdf.Available() {
		log.Warn("chromium not found; PDF reports disabled")
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		if cfg.Session.Secret == config.Default().Session.Secret {
			log.Warn("SESSION_SECRET is the development default")
		}
	}
	serviceName := ""
	if cfg.Telemetry.Enabled {
		serviceName = cfg.Telemetry.ServiceName
	}

	srv := httpapi.NewServer(httpapi.Options{
		Store:           a.store,
		Sessions:        a.sessions,
		Signer:          session.NewSigner(cfg.Session.Secret),
		Auth:            auth.NewService(a.store, mail, origin, log),
		Google:          google,
		Models:          gens.Models,
		Inventory:       gens.Inventory,
		Checklist:       gens.Checklist,
		PDF:             pdf,
		Log:             log,
		FrontendOrigins: cfg.Server.FrontendOrigins,
		Production:      cfg.IsProduction(),
		SessionTTL:      cfg.SessionTTL(),
		ServiceName:     serviceName,
	})
	a.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

func newMailer(cfg *config.Config, log *logger.Logger) (mailer.Mailer, error) {
	if cfg.Mail.SendGridAPIKey == "" {
		log.Warn("SENDGRID_API_KEY not set; verification emails are logged only")
		return mailer.NewLogMailer(log), nil
	}
	sg, err := mailer.NewSendGrid(cfg.Mail.SendGridAPIKey, cfg.Mail.From, "")
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	return sg, nil
}

// frontendOrigin is where verification links and OAuth redirects point.
func frontendOrigin(cfg *config.Config) string {
	if len(cfg.Server.FrontendOrigins) > 0 {
		return cfg.Server.FrontendOrigins[0]
	}
	return config.Default().Server.FrontendOrigins[0]
}

func (a *App) Handler() http.Handler { return a.server.Handler }

func (a *App) Addr() string { return a.server.Addr }

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("bizpilot listening", "addr", a.server.Addr)
		errCh <- a.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		a.Log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Log.Warn("http shutdown", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Close releases the store, the session store and the tracer provider.
func (a *App) Close() {
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.Log.Warn("close sessions", "error", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("close store", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.traceShutdown(ctx); err != nil {
		a.Log.Warn("trace shutdown", "error", err)
	}
}
