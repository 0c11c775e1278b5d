package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

type Plan struct {
	ID        string
	UserID    int64
	Name      string
	Model     json.RawMessage
	Tasks     json.RawMessage // nil when the plan has no checklist yet
	CreatedAt time.Time
	UpdatedAt time.Time
}

type planRow struct {
	ID        string         `db:"id"`
	UserID    int64          `db:"user_id"`
	Name      string         `db:"name"`
	Model     string         `db:"model_json"`
	Tasks     sql.NullString `db:"tasks_json"`
	CreatedAt string         `db:"created_at"`
	UpdatedAt string         `db:"updated_at"`
}

func (r planRow) plan() Plan {
	p := Plan{
		ID:        r.ID,
		UserID:    r.UserID,
		Name:      r.Name,
		Model:     json.RawMessage(r.Model),
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
	}
	if r.Tasks.Valid && r.Tasks.String != "" {
		p.Tasks = json.RawMessage(r.Tasks.String)
	}
	return p
}

const planColumns = "id, user_id, name, model_json, tasks_json, created_at, updated_at"

func rawOrNil(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// SavePlan inserts or replaces a plan. A plan id already owned by another user
// yields ErrConflict.
func (s *Store) SavePlan(ctx context.Context, p Plan) error {
	now := s.stamp()
	res, err := s.db.ExecContext(ctx, s.q(`INSERT INTO user_plans
		(id, user_id, name, model_json, tasks_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, model_json = excluded.model_json,
			tasks_json = excluded.tasks_json, updated_at = excluded.updated_at
		WHERE user_plans.user_id = excluded.user_id`),
		p.ID, p.UserID, p.Name, string(p.Model), rawOrNil(p.Tasks), now, now)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	if err := affected(res); err != nil {
		return ErrConflict
	}
	return nil
}

func (s *Store) ListPlans(ctx context.Context, userID int64) ([]Plan, error) {
	var rows []planRow
	err := s.db.SelectContext(ctx, &rows, s.q("SELECT "+planColumns+
		" FROM user_plans WHERE user_id = ? ORDER BY created_at DESC, id"), userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]Plan, len(rows))
	for i, r := range rows {
		out[i] = r.plan()
	}
	return out, nil
}

func (s *Store) GetPlan(ctx context.Context, userID int64, id string) (Plan, error) {
	var row planRow
	err := s.db.GetContext(ctx, &row, s.q("SELECT "+planColumns+
		" FROM user_plans WHERE user_id = ? AND id = ?"), userID, id)
	if err != nil {
		return Plan{}, notFound(err)
	}
	return row.plan(), nil
}

func (s *Store) UpdatePlanTasks(ctx context.Context, userID int64, id string, tasks json.RawMessage) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE user_plans
		SET tasks_json = ?, updated_at = ? WHERE id = ? AND user_id = ?`),
		rawOrNil(tasks), s.stamp(), id, userID)
	if err != nil {
		return fmt.Errorf("update plan tasks: %w", err)
	}
	return affected(res)
}

func (s *Store) DeletePlan(ctx context.Context, userID int64, id string) error {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM user_plans WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return affected(res)
}
