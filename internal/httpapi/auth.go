package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MdSium003/AgamiOps/internal/auth"
	"github.com/MdSium003/AgamiOps/internal/session"
	"github.com/MdSium003/AgamiOps/internal/store"
)

type userView struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Role    string `json:"role,omitempty"`
}

func viewUser(u store.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name, Company: u.Company, Role: u.Role}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Registration failed")
		return
	}
	res, err := s.auth.Register(c.Request.Context(), auth.RegisterInput{Email: req.Email, Password: req.Password, Name: req.Name})
	if err != nil {
		s.writeError(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":        res.User.ID,
		"email":     res.User.Email,
		"name":      res.User.Name,
		"message":   "Registration successful. Please check your email to verify your account.",
		"emailSent": res.EmailSent,
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Login failed")
		return
	}
	u, err := s.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(c, err, "Login failed")
		return
	}
	if err := s.startSession(c, session.Data{UserID: u.ID}); err != nil {
		s.writeError(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewUser(u), "profileCompleted": u.ProfileCompleted})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.endSession(c)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleVerifyEmail(c *gin.Context) {
	if err := s.auth.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		s.writeError(c, err, "Verification failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Email verified successfully! You can now log in.",
		"redirectUrl": "/login",
	})
}

func (s *Server) handleResendVerification(c *gin.Context) {
	var req credentials
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to resend verification email")
		return
	}
	if err := s.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err, "Failed to resend verification email")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Verification email sent successfully!"})
}

func (s *Server) handleMe(c *gin.Context) {
	uid := userID(c)
	if uid == 0 {
		c.JSON(http.StatusOK, gin.H{"user": nil, "profileCompleted": false})
		return
	}
	u, err := s.auth.User(c.Request.Context(), uid)
	if err != nil {
		s.log.Warn("session user lookup failed", "user_id", uid, "error", err)
		c.JSON(http.StatusOK, gin.H{"user": nil, "profileCompleted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewUser(u), "profileCompleted": u.ProfileCompleted})
}

func (s *Server) handleCompleteProfile(c *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Company  string `json:"company"`
		Role     string `json:"role"`
		Password string `json:"password"`
	}
	if err := readJSON(c, &req); err != nil {
		s.writeError(c, err, "Failed to complete profile")
		return
	}
	u, err := s.auth.CompleteProfile(c.Request.Context(), userID(c), auth.ProfileInput{
		Name: req.Name, Company: req.Company, Role: req.Role, Password: req.Password,
	})
	if err != nil {
		s.writeError(c, err, "Failed to complete profile")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewUser(u), "profileCompleted": true})
}

func (s *Server) googleDisabled(c *gin.Context) bool {
	if s.google != nil {
		return false
	}
	c.JSON(http.StatusNotImplemented, gin.H{"error": "Google OAuth not configured"})
	return true
}

func (s *Server) handleGoogleStart(c *gin.Context) {
	if s.googleDisabled(c) {
		return
	}
	_, d, _ := sessionData(c)
	d.OAuthState = auth.NewState()
	if err := s.saveSession(c, d); err != nil {
		s.writeError(c, err, "Failed to start Google sign-in")
		return
	}
	c.Redirect(http.StatusFound, s.google.AuthCodeURL(d.OAuthState))
}

func (s *Server) handleGoogleCallback(c *gin.Context) {
	if s.googleDisabled(c) {
		return
	}
	_, d, ok := sessionData(c)
	state := c.Query("state")
	if !ok || d.OAuthState == "" || state != d.OAuthState || c.Query("code") == "" {
		c.Redirect(http.StatusFound, s.frontURL("/login"))
		return
	}
	ctx := c.Request.Context()
	profile, err := s.google.Exchange(ctx, c.Query("code"))
	if err != nil {
		s.log.Warn("google exchange failed", "error", err)
		c.Redirect(http.StatusFound, s.frontURL("/login"))
		return
	}
	u, err := s.auth.SignInGoogle(ctx, profile)
	if err != nil {
		s.log.Error("google sign-in failed", "error", err)
		c.Redirect(http.StatusFound, s.frontURL("/login"))
		return
	}
	if err := s.startSession(c, session.Data{UserID: u.ID}); err != nil {
		s.log.Error("start session failed", "error", err)
		c.Redirect(http.StatusFound, s.frontURL("/login"))
		return
	}
	if u.ProfileCompleted {
		c.Redirect(http.StatusFound, s.frontURL("/"))
		return
	}
	c.Redirect(http.StatusFound, s.frontURL("/onboarding"))
}
