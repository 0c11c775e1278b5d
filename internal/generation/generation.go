// Package generation submits prompts to an external text-generation service.
package generation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// DefaultTimeout bounds a single generation call when none is configured.
const DefaultTimeout = 60 * time.Second

// ErrUnavailable reports that no generation capability is configured, or that
// the configured one failed. Callers treat both the same way.
var ErrUnavailable = errors.New("generation unavailable")

// Generator returns raw text for a prompt.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator is implemented by generators that accept an inline image.
type ImageGenerator interface {
	GenerateWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error)
}

type FailureClass string

const (
	FailureTimeout   FailureClass = "timeout"
	FailureRateLimit FailureClass = "rate_limit"
	FailureServer    FailureClass = "server"
	FailureClient    FailureClass = "client"
	FailureCanceled  FailureClass = "canceled"
)

// InvocationError wraps a failed call to a configured generator.
// errors.Is(err, ErrUnavailable) holds for every InvocationError.
type InvocationError struct {
	Provider string
	Class    FailureClass
	Err      error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("%s generation failed (%s): %v", e.Provider, e.Class, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

func (e *InvocationError) Is(target error) bool { return target == ErrUnavailable }

// Invoker makes exactly one bounded call per prompt. A nil generator is valid
// and makes every call report ErrUnavailable.
type Invoker struct {
	gen      Generator
	provider string
	timeout  time.Duration
}

func NewInvoker(provider string, gen Generator, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Invoker{gen: gen, provider: provider, timeout: timeout}
}

// Unavailable returns an invoker with no generator.
func Unavailable() *Invoker {
	return NewInvoker("none", nil, 0)
}

func (i *Invoker) Available() bool { return i != nil && i.gen != nil }

func (i *Invoker) Provider() string {
	if !i.Available() {
		return "none"
	}
	return i.provider
}

func (i *Invoker) Timeout() time.Duration { return i.timeout }

// SupportsImages reports whether the configured generator accepts images.
func (i *Invoker) SupportsImages() bool {
	if !i.Available() {
		return false
	}
	_, ok := i.gen.(ImageGenerator)
	return ok
}

func (i *Invoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if !i.Available() {
		return "", ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	text, err := i.gen.GenerateText(ctx, prompt)
	if err != nil {
		return "", &InvocationError{Provider: i.provider, Class: classifyTransportError(ctx, err), Err: err}
	}
	return text, nil
}

func (i *Invoker) InvokeWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	if !i.SupportsImages() {
		return "", ErrUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	text, err := i.gen.(ImageGenerator).GenerateWithImage(ctx, prompt, mimeType, data)
	if err != nil {
		return "", &InvocationError{Provider: i.provider, Class: classifyTransportError(ctx, err), Err: err}
	}
	return text, nil
}

// Classify extracts the failure class from an Invoke error, or "" when the
// error carries none.
func Classify(err error) FailureClass {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Class
	}
	return ""
}

func classifyTransportError(ctx context.Context, err error) FailureClass {
	if errors.Is(err, context.Canceled) && ctx.Err() == context.Canceled {
		return FailureCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return FailureTimeout
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return classifyStatus(ae.StatusCode)
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota"):
		return FailureRateLimit
	case strings.Contains(msg, "status code: 5") || strings.Contains(msg, "server error") || strings.Contains(msg, "unavailable"):
		return FailureServer
	case strings.Contains(msg, "status code: 4") || strings.Contains(msg, "invalid_argument") || strings.Contains(msg, "permission_denied"):
		return FailureClient
	default:
		return FailureServer
	}
}

func classifyStatus(code int) FailureClass {
	switch {
	case code == 429:
		return FailureRateLimit
	case code >= 500:
		return FailureServer
	case code >= 400:
		return FailureClient
	default:
		return FailureServer
	}
}
