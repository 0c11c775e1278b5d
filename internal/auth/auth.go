// Package auth implements email/password accounts with email verification,
// profile completion and Google sign-in on top of the store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/mailer"
	"github.com/MdSium003/AgamiOps/internal/store"
)

const (
	MinPasswordLen = 6
	TokenTTL       = 24 * time.Hour
	bcryptCost     = 10
)

var (
	ErrEmailRequired       = errors.New("email required")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrEmailNotVerified    = errors.New("email not verified")
	ErrTokenRequired       = errors.New("verification token required")
	ErrInvalidToken        = errors.New("invalid verification token")
	ErrTokenExpired        = errors.New("verification token has expired")
	ErrUnknownEmail        = errors.New("email not found")
	ErrAlreadyVerified     = errors.New("email already verified")
	ErrVerificationPending = errors.New("verification email already sent")
	ErrSendFailed          = errors.New("failed to send verification email")
)

// UserStore is the slice of store.Store that accounts need.
type UserStore interface {
	CreateUser(ctx context.Context, u store.NewUser) (store.User, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
	UserByEmail(ctx context.Context, email string) (store.User, error)
	UserByGoogleID(ctx context.Context, googleID string) (store.User, error)
	UserByVerificationToken(ctx context.Context, token string) (store.User, error)
	MarkEmailVerified(ctx context.Context, id int64) error
	SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error
	CompleteProfile(ctx context.Context, id int64, p store.ProfileUpdate) (store.User, error)
	LinkGoogle(ctx context.Context, id int64, googleID, name string) (store.User, error)
}

type Service struct {
	users          UserStore
	mail           mailer.Mailer
	log            *logger.Logger
	frontendOrigin string
	now            func() time.Time
}

func NewService(users UserStore, mail mailer.Mailer, frontendOrigin string, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	if mail == nil {
		mail = mailer.NewLogMailer(log)
	}
	return &Service{users: users, mail: mail, log: log, frontendOrigin: frontendOrigin, now: time.Now}
}

// NewToken returns 32 random bytes, hex encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashPassword(pw string) (string, error) {
	if len(pw) < MinPasswordLen {
		return "", nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

type RegisterInput struct {
	Email    string
	Password string
	Name     string
}

type RegisterResult struct {
	User      store.User
	EmailSent bool
}

// Register creates an unverified account. A password shorter than
// MinPasswordLen is ignored, leaving an account that cannot log in with a
// password until the profile sets one. Mail failures are logged, not returned.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return RegisterResult{}, ErrEmailRequired
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return RegisterResult{}, err
	}
	token, err := NewToken()
	if err != nil {
		return RegisterResult{}, err
	}
	u, err := s.users.CreateUser(ctx, store.NewUser{
		Email:               email,
		PasswordHash:        hash,
		Name:                strings.TrimSpace(in.Name),
		VerificationToken:   token,
		VerificationExpires: s.now().Add(TokenTTL),
	})
	if errors.Is(err, store.ErrConflict) {
		return RegisterResult{}, ErrEmailTaken
	}
	if err != nil {
		return RegisterResult{}, err
	}
	sent := s.sendVerification(ctx, email, token)
	if !sent {
		s.log.Error("verification email failed", "user_id", u.ID)
	}
	return RegisterResult{User: u, EmailSent: sent}, nil
}

func (s *Service) sendVerification(ctx context.Context, email, token string) bool {
	if err := s.mail.Send(ctx, mailer.VerificationEmail(s.frontendOrigin, email, token)); err != nil {
		s.log.Warn("send verification email", "error", err)
		return false
	}
	return true
}

func (s *Service) Login(ctx context.Context, email, password string) (store.User, error) {
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return store.User{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if !u.EmailVerified {
		return store.User{}, ErrEmailNotVerified
	}
	return u, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}
	u, err := s.users.UserByVerificationToken(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if u.VerificationExpires.Before(s.now()) {
		return ErrTokenExpired
	}
	return s.users.MarkEmailVerified(ctx, u.ID)
}

func (s *Service) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrUnknownEmail
	}
	if err != nil {
		return err
	}
	if u.EmailVerified {
		return ErrAlreadyVerified
	}
	now := s.now()
	if u.VerificationToken != "" && u.VerificationExpires.After(now) {
		return ErrVerificationPending
	}
	token, err := NewToken()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationToken(ctx, u.ID, token, now.Add(TokenTTL)); err != nil {
		return err
	}
	if !s.sendVerification(ctx, email, token) {
		return ErrSendFailed
	}
	return nil
}

type ProfileInput struct {
	Name     string
	Company  string
	Role     string
	Password string
}

func (s *Service) CompleteProfile(ctx context.Context, userID int64, in ProfileInput) (store.User, error) {
	hash, err := hashPassword(in.Password)
	if err != nil {
		return store.User{}, err
	}
	return s.users.CompleteProfile(ctx, userID, store.ProfileUpdate{
		Name:         strings.TrimSpace(in.Name),
		Company:      strings.TrimSpace(in.Company),
		Role:         strings.TrimSpace(in.Role),
		PasswordHash: hash,
	})
}

func (s *Service) User(ctx context.Context, id int64) (store.User, error) {
	return s.users.UserByID(ctx, id)
}

// SignInGoogle finds the account for a Google profile: by Google id, then by
// email (linking it), else a new account.
func (s *Service) SignInGoogle(ctx context.Context, p GoogleProfile) (store.User, error) {
	if p.ID == "" {
		return store.User{}, fmt.Errorf("google profile without id")
	}
	u, err := s.users.UserByGoogleID(ctx, p.ID)
	switch {
	case err == nil:
		if u.Name == "" && p.Name != "" {
			return s.users.LinkGoogle(ctx, u.ID, p.ID, p.Name)
		}
		return u, nil
	case !errors.Is(err, store.ErrNotFound):
		return store.User{}, err
	}

	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email != "" {
		existing, err := s.users.UserByEmail(ctx, email)
		if err == nil {
			return s.users.LinkGoogle(ctx, existing.ID, p.ID, p.Name)
		}
		if !errors.Is(err, store.ErrNotFound) {
			return store.User{}, err
		}
	}
	return s.users.CreateUser(ctx, store.NewUser{Email: email, Name: p.Name, GoogleID: p.ID})
}
