package generation

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Settings struct {
	// Provider is gemini, anthropic, none or auto. auto picks Gemini when a
	// Gemini key is present, then Anthropic, then none.
	Provider        string
	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	Timeout         time.Duration
}

// New builds an invoker from settings. Missing credentials are not an error:
// the invoker is returned unavailable so callers fall back.
func New(ctx context.Context, s Settings) (*Invoker, error) {
	provider := strings.ToLower(strings.TrimSpace(s.Provider))
	if provider == "" || provider == "auto" {
		switch {
		case strings.TrimSpace(s.GeminiAPIKey) != "":
			provider = "gemini"
		case strings.TrimSpace(s.AnthropicAPIKey) != "":
			provider = "anthropic"
		default:
			provider = "none"
		}
	}
	switch provider {
	case "none":
		return NewInvoker("none", nil, s.Timeout), nil
	case "gemini":
		if strings.TrimSpace(s.GeminiAPIKey) == "" {
			return NewInvoker("gemini", nil, s.Timeout), nil
		}
		g, err := NewGeminiGenerator(ctx, s.GeminiAPIKey, s.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewInvoker("gemini", g, s.Timeout), nil
	case "anthropic":
		if strings.TrimSpace(s.AnthropicAPIKey) == "" {
			return NewInvoker("anthropic", nil, s.Timeout), nil
		}
		a, err := NewAnthropicGenerator(s.AnthropicAPIKey, s.AnthropicModel)
		if err != nil {
			return nil, err
		}
		return NewInvoker("anthropic", a, s.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown generation provider %q", s.Provider)
	}
}
