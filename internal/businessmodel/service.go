package businessmodel

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MdSium003/AgamiOps/internal/coerce"
	"github.com/MdSium003/AgamiOps/internal/extract"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
)

var ErrInvalidInput = errors.New("idea is required")

// Recorder stores a finished generation for a signed-in user.
type Recorder interface {
	RecordGeneration(ctx context.Context, userID int64, idea string, models []BusinessModel) error
}

type Service struct {
	runner   *pipeline.Runner
	recorder Recorder
	log      *logger.Logger
	now      func() time.Time
}

func NewService(runner *pipeline.Runner, recorder Recorder, log *logger.Logger) *Service {
	return &Service{runner: runner, recorder: recorder, log: logger.OrNop(log), now: time.Now}
}

type Result struct {
	Models []BusinessModel
	Source pipeline.Source
}

// Generate produces between MinCount and MaxCount models. userID 0 means an
// anonymous caller whose generation is not recorded.
func (s *Service) Generate(ctx context.Context, userID int64, req Request) (Result, error) {
	idea := strings.TrimSpace(coerce.String(req.Idea, ""))
	if idea == "" {
		return Result{}, ErrInvalidInput
	}
	location := strings.TrimSpace(coerce.String(req.Location, ""))
	count := ClampCount(req.Count)
	now := s.now()

	out, err := pipeline.Run(ctx, s.runner, pipeline.Spec[[]BusinessModel]{
		Schema:    "business_models",
		Prompt:    BuildPrompt(idea, location, count),
		Root:      extract.RootArray,
		Accept:    Accept,
		Normalize: func(v any) []BusinessModel { return Normalize(v, count, now) },
		Fallback:  func() any { return Fallback(idea, location, count) },
	})
	if err != nil {
		return Result{}, err
	}

	if userID != 0 && s.recorder != nil {
		label := idea
		if location != "" {
			label = idea + " (Location: " + location + ")"
		}
		if err := s.recorder.RecordGeneration(ctx, userID, label, out.Value); err != nil {
			s.log.Warn("record generation failed", "user_id", userID, "error", err)
		}
	}
	return Result{Models: out.Value, Source: out.Source}, nil
}

// NormalizeOne normalizes a single stored model document.
func NormalizeOne(v any, now time.Time) BusinessModel {
	return Normalize([]any{coerce.Canonical(v)}, 1, now)[0]
}
