// Package pipeline runs one prompt through generation, extraction and
// normalization, falling back to a heuristic result when generation fails.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/MdSium003/AgamiOps/internal/extract"
	"github.com/MdSium003/AgamiOps/internal/generation"
	"github.com/MdSium003/AgamiOps/internal/logger"
)

type State string

const (
	StateStart       State = "start"
	StatePrompted    State = "prompted"
	StateInvoked     State = "invoked"
	StateParsed      State = "parsed"
	StateUnavailable State = "unavailable"
	StateUnparsable  State = "unparsable"
	StateNormalized  State = "normalized"
)

// Source says which path produced a normalized value.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// ErrEmptyPrompt is returned for a spec without a prompt.
var ErrEmptyPrompt = errors.New("pipeline: empty prompt")

// StageError reports the state a run stopped in when no fallback was defined.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Spec describes one schema. Normalize must be total. Fallback may be nil, in
// which case generation failures are returned to the caller.
type Spec[T any] struct {
	Schema    string
	Prompt    string
	Root      extract.Root
	Accept    func(any) bool
	Normalize func(any) T
	Fallback  func() any
	// Invoke overrides the plain text call, e.g. to attach an image.
	Invoke func(ctx context.Context, inv *generation.Invoker, prompt string) (string, error)
}

type Outcome[T any] struct {
	Value   T
	Source  Source
	Trail   []State
	Failure error
}

type Runner struct {
	inv    *generation.Invoker
	log    *logger.Logger
	tracer trace.Tracer
}

func NewRunner(inv *generation.Invoker, log *logger.Logger) *Runner {
	if inv == nil {
		inv = generation.Unavailable()
	}
	return &Runner{
		inv:    inv,
		log:    logger.OrNop(log),
		tracer: otel.Tracer("github.com/MdSium003/AgamiOps/internal/pipeline"),
	}
}

func (r *Runner) Invoker() *generation.Invoker { return r.inv }

// Run drives spec through the state machine. The only error returned is a
// *StageError when generation failed and spec has no fallback.
func Run[T any](ctx context.Context, r *Runner, spec Spec[T]) (Outcome[T], error) {
	ctx, span := r.tracer.Start(ctx, "pipeline."+spec.Schema)
	defer span.End()
	start := time.Now()

	out := Outcome[T]{Trail: []State{StateStart}}
	if strings.TrimSpace(spec.Prompt) == "" {
		return out, &StageError{Stage: StateStart, Err: ErrEmptyPrompt}
	}
	out.Trail = append(out.Trail, StatePrompted)

	invoke := spec.Invoke
	if invoke == nil {
		invoke = func(ctx context.Context, inv *generation.Invoker, prompt string) (string, error) {
			return inv.Invoke(ctx, prompt)
		}
	}
	text, err := invoke(ctx, r.inv, spec.Prompt)
	out.Trail = append(out.Trail, StateInvoked)

	var parsed any
	switch {
	case err != nil:
		out.Trail = append(out.Trail, StateUnavailable)
		out.Failure = err
	default:
		v, xerr := extract.Extract(text, spec.Root)
		if xerr == nil && spec.Accept != nil && !spec.Accept(v) {
			xerr = fmt.Errorf("%w: rejected %s shape", extract.ErrUnparsable, spec.Schema)
		}
		if xerr != nil {
			out.Trail = append(out.Trail, StateUnparsable)
			out.Failure = xerr
		} else {
			out.Trail = append(out.Trail, StateParsed)
			parsed = v
		}
	}

	if out.Failure != nil {
		stage := out.Trail[len(out.Trail)-1]
		if spec.Fallback == nil {
			r.finish(span, spec.Schema, out.Trail, "", out.Failure, start)
			span.SetStatus(codes.Error, out.Failure.Error())
			return out, &StageError{Stage: stage, Err: out.Failure}
		}
		parsed = spec.Fallback()
		out.Source = SourceFallback
	} else {
		out.Source = SourceGenerated
	}

	out.Value = spec.Normalize(parsed)
	out.Trail = append(out.Trail, StateNormalized)
	r.finish(span, spec.Schema, out.Trail, out.Source, out.Failure, start)
	return out, nil
}

func (r *Runner) finish(span trace.Span, schema string, trail []State, source Source, failure error, start time.Time) {
	states := make([]string, len(trail))
	for i, s := range trail {
		states[i] = string(s)
	}
	span.SetAttributes(
		attribute.String("pipeline.schema", schema),
		attribute.String("pipeline.state", states[len(states)-1]),
		attribute.String("pipeline.source", string(source)),
		attribute.String("generation.provider", r.inv.Provider()),
	)
	kv := []any{
		"schema", schema,
		"trail", strings.Join(states, ">"),
		"source", string(source),
		"provider", r.inv.Provider(),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if failure == nil {
		r.log.Info("pipeline run", kv...)
		return
	}
	kv = append(kv, "error", failure.Error())
	if class := generation.Classify(failure); class != "" {
		kv = append(kv, "failure", string(class))
	}
	r.log.Warn("pipeline run degraded", kv...)
}
