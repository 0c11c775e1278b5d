package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type User struct {
	ID                  int64
	Email               string
	PasswordHash        string
	Name                string
	Company             string
	Role                string
	ProfileCompleted    bool
	EmailVerified       bool
	VerificationToken   string
	VerificationExpires time.Time
	GoogleID            string
	CreatedAt           time.Time
}

type userRow struct {
	ID                  int64          `db:"id"`
	Email               sql.NullString `db:"email"`
	PasswordHash        sql.NullString `db:"password_hash"`
	Name                string         `db:"name"`
	Company             string         `db:"company"`
	Role                string         `db:"role"`
	ProfileCompleted    bool           `db:"profile_completed"`
	EmailVerified       bool           `db:"email_verified"`
	VerificationToken   sql.NullString `db:"verification_token"`
	VerificationExpires string         `db:"verification_expires"`
	GoogleID            sql.NullString `db:"google_id"`
	CreatedAt           string         `db:"created_at"`
}

func (r userRow) user() User {
	return User{
		ID:                  r.ID,
		Email:               r.Email.String,
		PasswordHash:        r.PasswordHash.String,
		Name:                r.Name,
		Company:             r.Company,
		Role:                r.Role,
		ProfileCompleted:    r.ProfileCompleted,
		EmailVerified:       r.EmailVerified,
		VerificationToken:   r.VerificationToken.String,
		VerificationExpires: parseTime(r.VerificationExpires),
		GoogleID:            r.GoogleID.String,
		CreatedAt:           parseTime(r.CreatedAt),
	}
}

const userColumns = `id, email, password_hash, name, company, role, profile_completed, email_verified,
	verification_token, verification_expires, google_id, created_at`

type NewUser struct {
	Email               string
	PasswordHash        string
	Name                string
	GoogleID            string
	EmailVerified       bool
	VerificationToken   string
	VerificationExpires time.Time
}

// CreateUser inserts a user. The email is stored lower-cased; a duplicate email
// or Google id yields ErrConflict.
func (s *Store) CreateUser(ctx context.Context, u NewUser) (User, error) {
	expires := ""
	if !u.VerificationExpires.IsZero() {
		expires = formatTime(u.VerificationExpires)
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO users
		(email, password_hash, name, email_verified, verification_token, verification_expires, google_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		nullable(strings.ToLower(strings.TrimSpace(u.Email))), nullable(u.PasswordHash), u.Name, u.EmailVerified,
		nullable(u.VerificationToken), expires, nullable(u.GoogleID), s.stamp(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return s.UserByID(ctx, id)
}

func (s *Store) userWhere(ctx context.Context, cond string, arg any) (User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.q("SELECT "+userColumns+" FROM users WHERE "+cond), arg)
	if err != nil {
		return User{}, notFound(err)
	}
	return row.user(), nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	return s.userWhere(ctx, "id = ?", id)
}

func (s *Store) UserByEmail(ctx context.Context, email string) (User, error) {
	return s.userWhere(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) UserByGoogleID(ctx context.Context, googleID string) (User, error) {
	return s.userWhere(ctx, "google_id = ?", googleID)
}

func (s *Store) UserByVerificationToken(ctx context.Context, token string) (User, error) {
	return s.userWhere(ctx, "verification_token = ?", token)
}

// MarkEmailVerified sets the verified flag and clears the pending token.
func (s *Store) MarkEmailVerified(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users
		SET email_verified = ?, verification_token = NULL, verification_expires = '' WHERE id = ?`), true, id)
	if err != nil {
		return fmt.Errorf("verify user: %w", err)
	}
	return affected(res)
}

func (s *Store) SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users
		SET verification_token = ?, verification_expires = ? WHERE id = ?`), nullable(token), formatTime(expires), id)
	if err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return affected(res)
}

type ProfileUpdate struct {
	// Name replaces the stored name only when non-empty.
	Name    string
	Company string
	Role    string
	// PasswordHash replaces the stored hash only when non-empty.
	PasswordHash string
}

func (s *Store) CompleteProfile(ctx context.Context, id int64, p ProfileUpdate) (User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users
		SET name = COALESCE(?, name), company = ?, role = ?,
		    password_hash = COALESCE(?, password_hash), profile_completed = ?
		WHERE id = ?`),
		nullable(p.Name), p.Company, p.Role, nullable(p.PasswordHash), true, id)
	if err != nil {
		return User{}, fmt.Errorf("complete profile: %w", err)
	}
	if err := affected(res); err != nil {
		return User{}, err
	}
	return s.UserByID(ctx, id)
}

// LinkGoogle attaches googleID to an existing user and fills a blank name.
func (s *Store) LinkGoogle(ctx context.Context, id int64, googleID, name string) (User, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE users
		SET google_id = ?, name = CASE WHEN name = '' THEN ? ELSE name END WHERE id = ?`),
		googleID, name, id)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrConflict
		}
		return User{}, fmt.Errorf("link google: %w", err)
	}
	if err := affected(res); err != nil {
		return User{}, err
	}
	return s.UserByID(ctx, id)
}
