package checklist

import (
	"context"
	"time"

	"github.com/MdSium003/AgamiOps/internal/coerce"
	"github.com/MdSium003/AgamiOps/internal/extract"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
)

type Service struct {
	runner *pipeline.Runner
	now    func() time.Time
}

func NewService(runner *pipeline.Runner) *Service {
	return &Service{runner: runner, now: time.Now}
}

// Generate has no heuristic fallback. An unconfigured server reports
// ErrNotConfigured; a failed or unparsable call returns the pipeline error.
func (s *Service) Generate(ctx context.Context, b Brief) ([]Task, error) {
	if !validBrief(b) {
		return nil, ErrInvalidInput
	}
	if !s.runner.Invoker().Available() {
		return nil, ErrNotConfigured
	}
	now := s.now()
	out, err := pipeline.Run(ctx, s.runner, pipeline.Spec[[]Task]{
		Schema: "checklist",
		Prompt: BuildPrompt(b),
		Root:   extract.RootArray,
		Accept: func(v any) bool {
			arr, ok := coerce.Slice(v)
			return ok && len(arr) > 0
		},
		Normalize: func(v any) []Task { return NormalizeGenerated(v, now) },
	})
	if err != nil {
		return nil, err
	}
	return out.Value, nil
}
