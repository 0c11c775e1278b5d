package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrOwnShare rejects a collaboration request on the caller's own share.
var ErrOwnShare = errors.New("cannot collaborate on your own project")

type Share struct {
	ID        int64
	UserID    int64
	PlanID    string
	Name      string
	Model     json.RawMessage
	Tasks     json.RawMessage
	CreatedAt time.Time
}

// ShareSummary is a marketplace listing entry.
type ShareSummary struct {
	ID          int64
	UserID      int64
	PlanID      string
	Name        string
	Description string
	CreatedAt   time.Time
}

type Collaborator struct {
	ID        int64
	Message   string
	Status    string
	CreatedAt time.Time
	Name      string
	Email     string
	Company   string
}

type shareRow struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	PlanID    string         `db:"plan_id"`
	Name      string         `db:"name"`
	Model     sql.NullString `db:"model"`
	Tasks     sql.NullString `db:"tasks"`
	CreatedAt string         `db:"created_at"`
}

func (r shareRow) share() Share {
	sh := Share{ID: r.ID, UserID: r.UserID, PlanID: r.PlanID, Name: r.Name, CreatedAt: parseTime(r.CreatedAt)}
	if r.Model.Valid {
		sh.Model = json.RawMessage(r.Model.String)
	}
	if r.Tasks.Valid {
		sh.Tasks = json.RawMessage(r.Tasks.String)
	}
	return sh
}

// CreateShare publishes a plan. Sharing the same plan twice yields ErrConflict.
func (s *Store) CreateShare(ctx context.Context, sh Share) (Share, error) {
	created := s.now()
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO shares
		(user_id, plan_id, name, model, tasks, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
		sh.UserID, sh.PlanID, sh.Name, rawOrNil(sh.Model), rawOrNil(sh.Tasks), formatTime(created),
	).Scan(&sh.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return Share{}, ErrConflict
		}
		return Share{}, fmt.Errorf("insert share: %w", err)
	}
	sh.CreatedAt = parseTime(formatTime(created))
	return sh, nil
}

// ListShares returns the newest shares first, at most limit.
func (s *Store) ListShares(ctx context.Context, limit int) ([]ShareSummary, error) {
	var rows []shareRow
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT id, user_id, plan_id, name, model, tasks, created_at
		FROM shares ORDER BY created_at DESC, id DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	out := make([]ShareSummary, len(rows))
	for i, r := range rows {
		out[i] = ShareSummary{
			ID:          r.ID,
			UserID:      r.UserID,
			PlanID:      r.PlanID,
			Name:        r.Name,
			Description: modelDescription(r.Model.String),
			CreatedAt:   parseTime(r.CreatedAt),
		}
	}
	return out, nil
}

func modelDescription(doc string) string {
	var m map[string]any
	if json.Unmarshal([]byte(doc), &m) != nil {
		return ""
	}
	d, _ := m["description"].(string)
	return d
}

func (s *Store) GetShare(ctx context.Context, id int64) (Share, error) {
	var row shareRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT id, user_id, plan_id, name, model, tasks, created_at
		FROM shares WHERE id = ?`), id)
	if err != nil {
		return Share{}, notFound(err)
	}
	return row.share(), nil
}

// RequestCollaboration records a pending request by userID on shareID.
func (s *Store) RequestCollaboration(ctx context.Context, shareID, userID int64, message string) (int64, error) {
	var owner int64
	if err := s.db.GetContext(ctx, &owner, s.q("SELECT user_id FROM shares WHERE id = ?"), shareID); err != nil {
		return 0, notFound(err)
	}
	if owner == userID {
		return 0, ErrOwnShare
	}
	var id int64
	err := s.db.QueryRowxContext(ctx, s.q(`INSERT INTO collaborators
		(share_id, user_id, message, status, created_at) VALUES (?, ?, ?, 'pending', ?) RETURNING id`),
		shareID, userID, message, s.stamp(),
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrConflict
		}
		return 0, fmt.Errorf("insert collaborator: %w", err)
	}
	return id, nil
}

// ListCollaborators is restricted to the share owner.
func (s *Store) ListCollaborators(ctx context.Context, ownerID, shareID int64) ([]Collaborator, error) {
	var owner int64
	if err := s.db.GetContext(ctx, &owner, s.q("SELECT user_id FROM shares WHERE id = ?"), shareID); err != nil {
		return nil, notFound(err)
	}
	if owner != ownerID {
		return nil, ErrForbidden
	}
	var rows []struct {
		ID        int64          `db:"id"`
		Message   string         `db:"message"`
		Status    string         `db:"status"`
		CreatedAt string         `db:"created_at"`
		Name      string         `db:"name"`
		Email     sql.NullString `db:"email"`
		Company   string         `db:"company"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT c.id, c.message, c.status, c.created_at, u.name, u.email, u.company
		FROM collaborators c JOIN users u ON c.user_id = u.id
		WHERE c.share_id = ? ORDER BY c.created_at DESC, c.id DESC`), shareID)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	out := make([]Collaborator, len(rows))
	for i, r := range rows {
		out[i] = Collaborator{
			ID:        r.ID,
			Message:   r.Message,
			Status:    r.Status,
			CreatedAt: parseTime(r.CreatedAt),
			Name:      r.Name,
			Email:     r.Email.String,
			Company:   r.Company,
		}
	}
	return out, nil
}
