package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/session"
)

const (
	ctxSessionID = "session_id"
	ctxSession   = "session"
	ctxRequestID = "request_id"

	headerRequestID = "X-Request-Id"
)

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(ctxRequestID, reqID)
		c.Writer.Header().Set(headerRequestID, reqID)
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			fields = append(fields, "trace_id", sc.TraceID().String())
		}
		if uid := userID(c); uid != 0 {
			fields = append(fields, "user_id", uid)
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

// allowOrigin accepts configured origins, and outside production any
// localhost or 127.0.0.1 origin on any port.
func allowOrigin(origins []string, production bool) func(string) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return func(origin string) bool {
		if _, ok := allowed[origin]; ok {
			return true
		}
		if production {
			return false
		}
		u, err := url.Parse(origin)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return false
		}
		host := u.Hostname()
		return host == "localhost" || host == "127.0.0.1"
	}
}

func corsMiddleware(origins []string, production bool) gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOriginFunc:  allowOrigin(origins, production),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{headerGenerationSource, headerRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// loadSession resolves the session cookie. A missing, forged or expired
// cookie leaves the request anonymous.
func (s *Server) loadSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(session.CookieName)
		if err != nil || raw == "" {
			c.Next()
			return
		}
		id, ok := s.signer.Verify(raw)
		if !ok {
			c.Next()
			return
		}
		data, err := s.sessions.Get(c.Request.Context(), id)
		if err != nil {
			if !errors.Is(err, session.ErrNotFound) {
				s.log.Warn("load session", "error", err)
			}
			c.Next()
			return
		}
		c.Set(ctxSessionID, id)
		c.Set(ctxSession, data)
		c.Next()
	}
}

func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID(c) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

func sessionData(c *gin.Context) (string, session.Data, bool) {
	id := c.GetString(ctxSessionID)
	v, ok := c.Get(ctxSession)
	if !ok || id == "" {
		return "", session.Data{}, false
	}
	d, ok := v.(session.Data)
	return id, d, ok
}

func userID(c *gin.Context) int64 {
	_, d, ok := sessionData(c)
	if !ok {
		return 0
	}
	return d.UserID
}

// saveSession updates the current session, or starts one when the request
// has none.
func (s *Server) saveSession(c *gin.Context, d session.Data) error {
	if id, _, ok := sessionData(c); ok {
		err := s.sessions.Save(c.Request.Context(), id, d)
		if err == nil {
			c.Set(ctxSession, d)
			return nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return err
		}
	}
	return s.startSession(c, d)
}

// startSession replaces any current session with a new id and sets the
// cookie. Used on sign-in so a pre-login session id is never promoted.
func (s *Server) startSession(c *gin.Context, d session.Data) error {
	ctx := c.Request.Context()
	if old, _, ok := sessionData(c); ok {
		if err := s.sessions.Delete(ctx, old); err != nil {
			s.log.Warn("delete session", "error", err)
		}
	}
	id, err := s.sessions.Create(ctx, d)
	if err != nil {
		return err
	}
	c.Set(ctxSessionID, id)
	c.Set(ctxSession, d)
	s.setCookie(c, s.signer.Sign(id), int(s.sessionTTL/time.Second))
	return nil
}

func (s *Server) endSession(c *gin.Context) {
	if id, _, ok := sessionData(c); ok {
		if err := s.sessions.Delete(c.Request.Context(), id); err != nil {
			s.log.Warn("delete session", "error", err)
		}
	}
	c.Set(ctxSessionID, "")
	s.setCookie(c, "", -1)
}

func (s *Server) setCookie(c *gin.Context, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     session.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.production,
		SameSite: http.SameSiteLaxMode,
	})
}
