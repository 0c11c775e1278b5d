package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MdSium003/AgamiOps/internal/businessmodel"
)

type Generation struct {
	ID        int64
	Idea      string
	Models    json.RawMessage
	CreatedAt time.Time
}

var _ businessmodel.Recorder = (*Store)(nil)

func (s *Store) RecordGeneration(ctx context.Context, userID int64, idea string, models []businessmodel.BusinessModel) error {
	doc, err := json.Marshal(models)
	if err != nil {
		return fmt.Errorf("encode models: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.q(`INSERT INTO business_model_generations
		(user_id, idea, models, created_at) VALUES (?, ?, ?, ?)`), userID, idea, string(doc), s.stamp())
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// ListGenerations returns the user's newest generations first, at most limit.
func (s *Store) ListGenerations(ctx context.Context, userID int64, limit int) ([]Generation, error) {
	var rows []struct {
		ID        int64  `db:"id"`
		Idea      string `db:"idea"`
		Models    string `db:"models"`
		CreatedAt string `db:"created_at"`
	}
	err := s.db.SelectContext(ctx, &rows, s.q(`SELECT id, idea, models, created_at
		FROM business_model_generations WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	out := make([]Generation, len(rows))
	for i, r := range rows {
		out[i] = Generation{ID: r.ID, Idea: r.Idea, Models: json.RawMessage(r.Models), CreatedAt: parseTime(r.CreatedAt)}
	}
	return out, nil
}

func (s *Store) DeleteGeneration(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM business_model_generations WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("delete generation: %w", err)
	}
	return affected(res)
}
