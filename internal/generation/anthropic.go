package generation

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const systemPrompt = "You are a pragmatic business analyst for small companies. Respond with strict JSON only, exactly matching the requested schema."

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicGenerator struct {
	messages AnthropicMessager
	model    anthropic.Model
}

func NewAnthropicGenerator(apiKey, model string) (*AnthropicGenerator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY not configured")
	}
	m := anthropic.ModelClaudeSonnet4_20250514
	if model != "" {
		m = anthropic.Model(model)
	}
	return &AnthropicGenerator{messages: newAnthropicClient(apiKey), model: m}, nil
}

func (a *AnthropicGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return a.send(ctx, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
}

func (a *AnthropicGenerator) GenerateWithImage(ctx context.Context, prompt, mimeType string, data []byte) (string, error) {
	img := anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(data))
	return a.send(ctx, anthropic.NewUserMessage(img, anthropic.NewTextBlock(prompt)))
}

func (a *AnthropicGenerator) send(ctx context.Context, msg anthropic.MessageParam) (string, error) {
	resp, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   4096,
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:    []anthropic.MessageParam{msg},
		Temperature: anthropic.Float(0.2),
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	return sb.String(), nil
}
