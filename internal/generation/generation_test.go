package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

type stubGenerator struct {
	text  string
	err   error
	calls int
	wait  bool
}

func (s *stubGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func TestInvokerUnavailable(t *testing.T) {
	inv := Unavailable()
	if inv.Available() {
		t.Fatal("expected unavailable invoker")
	}
	if _, err := inv.Invoke(context.Background(), "p"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if inv.Provider() != "none" {
		t.Fatalf("provider = %q", inv.Provider())
	}
}

func TestInvokerNilReceiver(t *testing.T) {
	var inv *Invoker
	if inv.Available() {
		t.Fatal("nil invoker must be unavailable")
	}
}

func TestInvokerSingleAttemptOnFailure(t *testing.T) {
	gen := &stubGenerator{err: assertErr("status code: 503 service unavailable")}
	inv := NewInvoker("stub", gen, time.Second)
	_, err := inv.Invoke(context.Background(), "p")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("call failure should be reported as unavailable, got %v", err)
	}
	if Classify(err) != FailureServer {
		t.Fatalf("class = %q", Classify(err))
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", gen.calls)
	}
}

func TestInvokerAppliesTimeout(t *testing.T) {
	gen := &stubGenerator{wait: true}
	inv := NewInvoker("stub", gen, 20*time.Millisecond)
	start := time.Now()
	_, err := inv.Invoke(context.Background(), "p")
	if Classify(err) != FailureTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout not applied")
	}
}

func TestInvokerDefaultTimeout(t *testing.T) {
	if got := NewInvoker("stub", &stubGenerator{}, 0).Timeout(); got != DefaultTimeout {
		t.Fatalf("timeout = %v", got)
	}
}

func TestInvokerWithoutImageSupport(t *testing.T) {
	inv := NewInvoker("stub", &stubGenerator{text: "{}"}, time.Second)
	if inv.SupportsImages() {
		t.Fatal("stub does not accept images")
	}
	if _, err := inv.InvokeWithImage(context.Background(), "p", "image/png", []byte{1}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClassifyTransportError(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		err  error
		want FailureClass
	}{
		{assertErr("status code: 429 too many requests"), FailureRateLimit},
		{assertErr("Error 429, RESOURCE_EXHAUSTED"), FailureRateLimit},
		{assertErr("status code: 400 bad request"), FailureClient},
		{assertErr("failed after 5 retries while waiting 4 seconds"), FailureServer},
		{context.DeadlineExceeded, FailureTimeout},
		{&anthropic.Error{StatusCode: 401}, FailureClient},
		{&anthropic.Error{StatusCode: 529}, FailureServer},
	}
	for i, tc := range cases {
		if got := classifyTransportError(ctx, tc.err); got != tc.want {
			t.Fatalf("case %d: classify = %q, want %q", i, got, tc.want)
		}
	}
}

type fakeMessager struct {
	params anthropic.MessageNewParams
	reply  string
}

func (f *fakeMessager) New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	f.params = params
	return &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: f.reply},
		{Type: "thinking", Text: "ignored"},
	}}, nil
}

func TestAnthropicGenerator(t *testing.T) {
	fake := &fakeMessager{reply: `{"ok":true}`}
	orig := newAnthropicClient
	newAnthropicClient = func(string) AnthropicMessager { return fake }
	t.Cleanup(func() { newAnthropicClient = orig })

	g, err := NewAnthropicGenerator("key", "")
	if err != nil {
		t.Fatalf("NewAnthropicGenerator: %v", err)
	}
	got, err := g.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("text = %q", got)
	}
	if fake.params.Model != anthropic.ModelClaudeSonnet4_20250514 {
		t.Fatalf("model = %q", fake.params.Model)
	}
	if len(fake.params.Messages) != 1 {
		t.Fatalf("messages = %d", len(fake.params.Messages))
	}
}

func TestNewAnthropicGeneratorRequiresKey(t *testing.T) {
	if _, err := NewAnthropicGenerator("  ", ""); err == nil {
		t.Fatal("expected error for empty key")
	}
}

type fakeGeminiModels struct {
	model    string
	contents []*genai.Content
	resp     *genai.GenerateContentResponse
}

func (f *fakeGeminiModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	return f.resp, nil
}

func TestGeminiGenerator(t *testing.T) {
	fake := &fakeGeminiModels{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: `[{"a":`}, {Text: `1}]`}}},
	}}}}
	g := &GeminiGenerator{models: fake, model: DefaultGeminiModel}
	got, err := g.GenerateText(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if got != `[{"a":1}]` {
		t.Fatalf("text = %q", got)
	}
	if fake.model != DefaultGeminiModel || len(fake.contents) != 1 {
		t.Fatalf("unexpected request: model=%q contents=%d", fake.model, len(fake.contents))
	}

	if _, err := g.GenerateWithImage(context.Background(), "describe", "image/png", []byte{0x89}); err != nil {
		t.Fatalf("GenerateWithImage: %v", err)
	}
	if n := len(fake.contents[0].Parts); n != 2 {
		t.Fatalf("image request parts = %d", n)
	}
}

func TestResponseTextEmpty(t *testing.T) {
	if responseText(nil) != "" || responseText(&genai.GenerateContentResponse{}) != "" {
		t.Fatal("expected empty text")
	}
}

func TestNewSelectsProvider(t *testing.T) {
	orig := newAnthropicClient
	newAnthropicClient = func(string) AnthropicMessager { return &fakeMessager{} }
	t.Cleanup(func() { newAnthropicClient = orig })

	inv, err := New(context.Background(), Settings{})
	if err != nil || inv.Available() {
		t.Fatalf("expected unavailable invoker without keys, got %v %v", inv.Available(), err)
	}
	inv, err = New(context.Background(), Settings{AnthropicAPIKey: "k"})
	if err != nil || inv.Provider() != "anthropic" {
		t.Fatalf("expected anthropic, got %q %v", inv.Provider(), err)
	}
	if _, err := New(context.Background(), Settings{Provider: "teletype"}); err == nil || !strings.Contains(err.Error(), "teletype") {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
