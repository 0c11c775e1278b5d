package businessmodel

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MdSium003/AgamiOps/internal/generation"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
)

var fixedNow = time.UnixMilli(1700000000000)

type queueGenerator struct {
	responses []string
	prompts   []string
}

func (q *queueGenerator) GenerateText(_ context.Context, prompt string) (string, error) {
	q.prompts = append(q.prompts, prompt)
	if len(q.responses) == 0 {
		return "", errors.New("no response queued")
	}
	r := q.responses[0]
	q.responses = q.responses[1:]
	return r, nil
}

type memRecorder struct {
	userID int64
	idea   string
	models []BusinessModel
}

func (m *memRecorder) RecordGeneration(_ context.Context, userID int64, idea string, models []BusinessModel) error {
	m.userID, m.idea, m.models = userID, idea, models
	return nil
}

func newService(gen generation.Generator, rec Recorder) *Service {
	inv := generation.Unavailable()
	if gen != nil {
		inv = generation.NewInvoker("queue", gen, time.Second)
	}
	s := NewService(pipeline.NewRunner(inv, logger.Nop()), rec, logger.Nop())
	s.now = func() time.Time { return fixedNow }
	return s
}

func decode(t *testing.T, s string) any {
	t.Helper()
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func checkScenario(t *testing.T, name string, sc Scenario) {
	t.Helper()
	n := len(sc.Months)
	if n == 0 || n > ProjectionMonths {
		t.Fatalf("%s: months length %d", name, n)
	}
	if len(sc.Revenue) != n || len(sc.Costs) != n || len(sc.Customers) != n {
		t.Fatalf("%s: unequal lengths months=%d revenue=%d costs=%d customers=%d", name, n, len(sc.Revenue), len(sc.Costs), len(sc.Customers))
	}
}

func checkModels(t *testing.T, models []BusinessModel) {
	t.Helper()
	seen := map[string]bool{}
	for _, m := range models {
		if m.ID == "" || seen[m.ID] {
			t.Fatalf("id %q missing or duplicated", m.ID)
		}
		seen[m.ID] = true
		if m.Name == "" {
			t.Fatal("name must be defaulted")
		}
		checkScenario(t, "base", m.Projections.Base)
		checkScenario(t, "best", m.Projections.Best)
		checkScenario(t, "worst", m.Projections.Worst)
	}
}

func TestClampCount(t *testing.T) {
	cases := []struct {
		in   any
		want int
	}{
		{nil, 3}, {5.0, 3}, {"5", 3}, {1.0, 2}, {2.0, 2}, {"abc", 3}, {0.0, 3}, {-4.0, 2},
	}
	for _, tc := range cases {
		if got := ClampCount(tc.in); got != tc.want {
			t.Fatalf("ClampCount(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	in := decode(t, `[{"name":"Cafe","projections":{"base":{"months":["Jan","Feb"],"revenue":[100,"200",null,4],"costs":"oops"}}}, 7, {"pricing": 12}]`)
	got := Normalize(in, 3, fixedNow)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	checkModels(t, got)

	base := got[0].Projections.Base
	if diff := cmp.Diff(Scenario{
		Months:    []string{"Jan", "Feb"},
		Revenue:   []float64{100, 200},
		Costs:     []float64{0, 0},
		Customers: []float64{0, 0},
	}, base); diff != "" {
		t.Fatalf("base scenario mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(DefaultMonths(), got[0].Projections.Best.Months); diff != "" {
		t.Fatalf("missing months should default (-want +got):\n%s", diff)
	}
	if got[1].Name != "Option 2" || got[1].Description != "" {
		t.Fatalf("non-object entry should fall to defaults: %+v", got[1])
	}
	if got[2].Pricing != "12" {
		t.Fatalf("pricing = %q", got[2].Pricing)
	}
	if got[0].ID != "1700000000000_0" {
		t.Fatalf("id = %q", got[0].ID)
	}
}

func TestNormalizeTruncatesMonthsAndModels(t *testing.T) {
	months := make([]any, 20)
	for i := range months {
		months[i] = "m"
	}
	in := []any{
		map[string]any{"projections": map[string]any{"worst": map[string]any{"months": months}}},
		map[string]any{}, map[string]any{}, map[string]any{},
	}
	got := Normalize(in, 3, fixedNow)
	if len(got) != 3 {
		t.Fatalf("expected truncation to 3, got %d", len(got))
	}
	if n := len(got[0].Projections.Worst.Months); n != ProjectionMonths {
		t.Fatalf("months = %d", n)
	}
}

func TestNormalizeTotality(t *testing.T) {
	inputs := []any{nil, "x", 4.0, true, map[string]any{}, []any{}, []any{nil, []any{1.0}, "s"},
		decode(t, `[{"projections":[1,2]}, {"projections":{"base":"x","best":{"months":{}}}}]`)}
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		inputs = append(inputs, randomTree(rng, 4))
	}
	for _, in := range inputs {
		checkModels(t, Normalize(in, 3, fixedNow))
		checkModels(t, Normalize([]any{in}, 3, fixedNow))
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	in := decode(t, `[{"id":"a","name":"A","projections":{"base":{"revenue":[1,2,3]}}},{"id":"a"},{}]`)
	once := Normalize(in, 3, fixedNow)
	twice := Normalize(once, 3, fixedNow.Add(time.Hour))
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("normalization drifted (-once +twice):\n%s", diff)
	}
	if once[1].ID == "a" {
		t.Fatal("duplicate id must be replaced")
	}
}

func TestFallbackDeterministic(t *testing.T) {
	a := Normalize(Fallback("bakery", "Dhaka", 3), 3, fixedNow)
	b := Normalize(Fallback("bakery", "Dhaka", 3), 3, fixedNow)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("fallback not deterministic:\n%s", diff)
	}
	checkModels(t, a)
	if len(a) != 3 || !strings.Contains(a[0].Description, "bakery") {
		t.Fatalf("unexpected fallback: %+v", a[0])
	}
	if a[0].Projections.Best.Revenue[0] <= a[0].Projections.Worst.Revenue[0] {
		t.Fatal("best scenario should exceed worst")
	}
}

func TestServiceGenerate(t *testing.T) {
	resp := "```json\n[{\"name\":\"A\"},{\"name\":\"B\"},{\"name\":\"C\"},{\"name\":\"D\"},{\"name\":\"E\"}]\n```"
	gen := &queueGenerator{responses: []string{resp}}
	rec := &memRecorder{}
	s := newService(gen, rec)

	res, err := s.Generate(context.Background(), 42, Request{Idea: " tea stall ", Location: "Sylhet", Count: 5.0})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Models) != 3 || res.Source != pipeline.SourceGenerated {
		t.Fatalf("expected 3 generated models, got %d from %s", len(res.Models), res.Source)
	}
	if !strings.Contains(gen.prompts[0], "Generate 3 distinct") || !strings.Contains(gen.prompts[0], "Idea: tea stall\nLocation: Sylhet") {
		t.Fatalf("unexpected prompt:\n%s", gen.prompts[0])
	}
	if rec.userID != 42 || rec.idea != "tea stall (Location: Sylhet)" || len(rec.models) != 3 {
		t.Fatalf("recorded %+v", rec)
	}
}

func TestServiceFallbacks(t *testing.T) {
	cases := []struct {
		name string
		gen  generation.Generator
	}{
		{"unavailable", nil},
		{"unparsable", &queueGenerator{responses: []string{"I cannot help with that."}}},
		{"empty array", &queueGenerator{responses: []string{"[]"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &memRecorder{}
			res, err := newService(tc.gen, rec).Generate(context.Background(), 0, Request{Idea: "bike repair", Count: "2"})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if res.Source != pipeline.SourceFallback || len(res.Models) != 2 {
				t.Fatalf("expected 2 fallback models, got %d from %s", len(res.Models), res.Source)
			}
			if rec.idea != "" {
				t.Fatal("anonymous generation must not be recorded")
			}
		})
	}
}

func TestServiceRejectsEmptyIdea(t *testing.T) {
	gen := &queueGenerator{}
	_, err := newService(gen, nil).Generate(context.Background(), 0, Request{Idea: "   "})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(gen.prompts) != 0 {
		t.Fatal("validation must happen before generation")
	}
}

func TestNormalizeOne(t *testing.T) {
	m := NormalizeOne(map[string]any{"name": "Stored"}, fixedNow)
	if m.Name != "Stored" || len(m.Projections.Base.Months) != ProjectionMonths {
		t.Fatalf("unexpected %+v", m)
	}
}

func randomTree(rng *rand.Rand, depth int) any {
	switch k := rng.Intn(7); {
	case depth == 0 || k == 0:
		return nil
	case k == 1:
		return rng.NormFloat64() * 1000
	case k == 2:
		return []string{"", "x", "12", "M1", "base"}[rng.Intn(5)]
	case k == 3:
		return rng.Intn(2) == 0
	case k == 4:
		arr := make([]any, rng.Intn(15))
		for i := range arr {
			arr[i] = randomTree(rng, depth-1)
		}
		return arr
	default:
		keys := []string{"id", "name", "projections", "base", "best", "worst", "months", "revenue", "costs", "customers", "pricing"}
		m := map[string]any{}
		for i := rng.Intn(6); i > 0; i-- {
			m[keys[rng.Intn(len(keys))]] = randomTree(rng, depth-1)
		}
		return m
	}
}

func TestNormalizeSynthesizedIDAvoidsKeptID(t *testing.T) {
	in := []any{
		map[string]any{"id": "1700000000000_1"},
		map[string]any{},
		map[string]any{"id": "1700000000000_1"},
	}
	got := Normalize(in, 3, fixedNow)
	checkModels(t, got)
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	want := []string{"1700000000000_1", "1700000000000_1_1", "1700000000000_2"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestServiceCoercesUntypedRequest(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"idea": 42, "location": 7, "count": "3"}`), &req); err != nil {
		t.Fatalf("decode request: %v", err)
	}
	gen := &queueGenerator{responses: []string{`[{"name":"A"}]`}}
	res, err := newService(gen, nil).Generate(context.Background(), 0, req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Source != pipeline.SourceGenerated || !strings.Contains(gen.prompts[0], "Idea: 42\nLocation: 7") {
		t.Fatalf("source %s prompt:\n%s", res.Source, gen.prompts[0])
	}

	for _, idea := range []any{nil, "", map[string]any{"a": 1.0}, []any{}} {
		if _, err := newService(nil, nil).Generate(context.Background(), 0, Request{Idea: idea}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("idea %#v: expected ErrInvalidInput, got %v", idea, err)
		}
	}
}
