package inventory

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/MdSium003/AgamiOps/internal/generation"
	"github.com/MdSium003/AgamiOps/internal/logger"
	"github.com/MdSium003/AgamiOps/internal/pipeline"
)

type queueGenerator struct {
	responses []string
	prompts   []string
	images    int
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

func (q *queueGenerator) GenerateWithImage(ctx context.Context, prompt, _ string, _ []byte) (string, error) {
	q.images++
	return q.GenerateText(ctx, prompt)
}

func records(t *testing.T, s string) []*Record {
	t.Helper()
	recs, err := DecodeRecords([]byte(s))
	if err != nil {
		t.Fatalf("DecodeRecords: %v", err)
	}
	return recs
}

func newService(t *testing.T, gen generation.Generator) *Service {
	t.Helper()
	inv := generation.Unavailable()
	if gen != nil {
		inv = generation.NewInvoker("queue", gen, time.Second)
	}
	s := NewService(pipeline.NewRunner(inv, logger.Nop()), t.TempDir(), logger.Nop())
	s.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return s
}

func checkBounds(t *testing.T, a Analysis) {
	t.Helper()
	if len(a.Suggestions) > 10 || len(a.TopPerformers) > 5 || len(a.AttentionItems) > 5 || len(a.Predictions) > 5 {
		t.Fatalf("list bounds exceeded: %d %d %d %d", len(a.Suggestions), len(a.TopPerformers), len(a.AttentionItems), len(a.Predictions))
	}
	if len(a.SupplyChain.Suppliers) > 5 || len(a.SupplyChain.Recommendations) > 5 || len(a.Summary.Categories) > 10 {
		t.Fatal("supply chain or category bounds exceeded")
	}
	if a.Summary.TotalItems < 0 || a.Summary.TotalValue < 0 || a.Summary.LowStockCount < 0 || a.Summary.OverstockCount < 0 {
		t.Fatalf("negative summary: %+v", a.Summary)
	}
	for _, s := range a.Suggestions {
		found := false
		for _, allowed := range SuggestionTypes {
			found = found || s.Type == allowed
		}
		if !found {
			t.Fatalf("suggestion type %q not allowed", s.Type)
		}
	}
	for _, p := range a.Predictions {
		if p.Confidence < 0 || p.Confidence > 100 {
			t.Fatalf("confidence %d out of range", p.Confidence)
		}
	}
	for _, s := range a.SupplyChain.Suppliers {
		if s.ReliabilityScore < 0 || s.ReliabilityScore > 100 || s.DistanceKm < 0 || s.LeadTimeDays < 0 {
			t.Fatalf("supplier out of range: %+v", s)
		}
	}
	c := a.Charts
	if len(c.StockDistribution.Labels) != 3 || len(c.StockDistribution.Datasets) != 1 || len(c.StockDistribution.Datasets[0].Data) != 3 {
		t.Fatal("stock chart shape")
	}
	if len(c.SalesPrediction.Labels) != 6 || len(c.SalesPrediction.Datasets[0].Data) != 6 {
		t.Fatal("sales chart shape")
	}
	for name, ch := range map[string]Chart[BarDataset]{"value": c.ValueDistribution, "category": c.CategoryAnalysis} {
		if len(ch.Labels) == 0 || len(ch.Datasets) != 1 || len(ch.Datasets[0].Data) != len(ch.Labels) {
			t.Fatalf("%s chart shape: labels=%d", name, len(ch.Labels))
		}
		for _, d := range ch.Datasets[0].Data {
			if d < 0 {
				t.Fatalf("%s chart negative value", name)
			}
		}
	}
	if len(c.ValueDistribution.Labels) > 8 || len(c.CategoryAnalysis.Labels) > 6 {
		t.Fatal("chart label bounds exceeded")
	}
}

func TestNormalizeAnalysisTotality(t *testing.T) {
	inputs := []any{nil, "text", 12.0, []any{1.0}, map[string]any{},
		map[string]any{"summary": "x", "suggestions": map[string]any{}, "charts": []any{}},
		map[string]any{"suggestions": []any{nil, 4.0, "s", []any{}}},
	}
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 300; i++ {
		inputs = append(inputs, randomTree(rng, 5))
	}
	for _, in := range inputs {
		checkBounds(t, NormalizeAnalysis(in, 4))
	}
}

func TestNormalizeAnalysisClampsAndDefaults(t *testing.T) {
	var in any
	raw := `{
	  "summary": {"totalValue": -5, "lowStockCount": "3", "categories": ["A", "", null, "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"]},
	  "suggestions": [{"type": "bogus"}, {"type": "RESTOCK", "title": "Order pens"}, 7],
	  "predictions": [{"confidence": 150}, {"confidence": -20}, {}, {}, {}, {}, {}],
	  "charts": {"valueDistribution": {"labels": ["x", "y"], "datasets": [{"data": [5, -1, 9]}]},
	             "stockDistribution": {"datasets": [{"data": ["4", 2.7]}]}},
	  "supplyChain": {"suppliers": [{"reliabilityScore": 400, "distanceKm": -3, "leadTimeDays": "2.5"}]}
	}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatal(err)
	}
	got := NormalizeAnalysis(in, 9)
	checkBounds(t, got)

	if got.Summary.TotalItems != 9 || got.Summary.TotalValue != 0 || got.Summary.LowStockCount != 3 {
		t.Fatalf("summary = %+v", got.Summary)
	}
	if len(got.Summary.Categories) != 10 || got.Summary.Categories[1] != "B" {
		t.Fatalf("categories = %v", got.Summary.Categories)
	}
	if got.Suggestions[0].Type != "info" || got.Suggestions[0].Title != "Suggestion" {
		t.Fatalf("suggestion[0] = %+v", got.Suggestions[0])
	}
	if got.Suggestions[1].Type != "restock" || got.Suggestions[2].Type != "info" {
		t.Fatalf("suggestions = %+v", got.Suggestions)
	}
	if len(got.Predictions) != 5 || got.Predictions[0].Confidence != 100 || got.Predictions[1].Confidence != 0 || got.Predictions[2].Confidence != 75 {
		t.Fatalf("predictions = %+v", got.Predictions)
	}
	if diff := cmp.Diff([]float64{5, 0}, got.Charts.ValueDistribution.Datasets[0].Data); diff != "" {
		t.Fatalf("value data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4, 2, 0}, got.Charts.StockDistribution.Datasets[0].Data); diff != "" {
		t.Fatalf("stock data (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Category A", "Category B", "Category C"}, got.Charts.CategoryAnalysis.Labels); diff != "" {
		t.Fatalf("category labels (-want +got):\n%s", diff)
	}
	s := got.SupplyChain.Suppliers[0]
	if s.ReliabilityScore != 100 || s.DistanceKm != 0 || s.LeadTimeDays != 2 || s.Name != "Supplier" || s.Location != "Unknown" {
		t.Fatalf("supplier = %+v", s)
	}
	if got.SupplyChain.Summary != defaultSupplyChainSummary {
		t.Fatalf("supply summary = %q", got.SupplyChain.Summary)
	}
}

func TestNormalizeAnalysisIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	inputs := []any{nil, Fallback(records(t, `[{"qty":5,"price":10,"category":"A"},{"qty":60,"price":2,"category":"B"}]`))}
	for i := 0; i < 100; i++ {
		inputs = append(inputs, randomTree(rng, 5))
	}
	for _, in := range inputs {
		once := NormalizeAnalysis(in, 3)
		twice := NormalizeAnalysis(once, 3)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("normalization drifted (-once +twice):\n%s", diff)
		}
	}
}

func TestFallbackScenario(t *testing.T) {
	recs := records(t, `[{"qty": 5, "price": 10, "category": "A"}, {"qty": 60, "price": 2, "category": "B"}]`)
	res, err := newService(t, nil).Analyze(context.Background(), recs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Source != pipeline.SourceFallback {
		t.Fatalf("source = %s", res.Source)
	}
	want := Summary{TotalItems: 2, TotalValue: 170, LowStockCount: 1, OverstockCount: 1, Categories: []string{"A", "B"}}
	if diff := cmp.Diff(want, res.Analysis.Summary); diff != "" {
		t.Fatalf("summary (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{1, 0, 1}, res.Analysis.Charts.StockDistribution.Datasets[0].Data); diff != "" {
		t.Fatalf("stock chart (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{50, 120}, res.Analysis.Charts.ValueDistribution.Datasets[0].Data); diff != "" {
		t.Fatalf("value chart (-want +got):\n%s", diff)
	}
	if res.Analysis.TopPerformers[0].Name != "Item 2" || res.Analysis.TopPerformers[0].Value != 120 {
		t.Fatalf("top performers = %+v", res.Analysis.TopPerformers)
	}
	if len(res.Analysis.AttentionItems) != 2 || !strings.HasPrefix(res.Analysis.AttentionItems[0].Issue, "Low stock") {
		t.Fatalf("attention items = %+v", res.Analysis.AttentionItems)
	}
	checkBounds(t, res.Analysis)
}

func TestFallbackDeterministic(t *testing.T) {
	recs := records(t, `[{"Product Name":"Pen","Stock":"4","Unit Cost":"$1.50","Type":"Office"},{"Product Name":"Desk","Stock":30,"Unit Cost":120,"Type":"Furniture"},{"Product Name":"Ink","Stock":75,"Unit Cost":3}]`)
	a := NormalizeAnalysis(Fallback(recs), len(recs))
	b := NormalizeAnalysis(Fallback(recs), len(recs))
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("fallback not deterministic:\n%s", diff)
	}
	if a.Summary.LowStockCount != 1 || a.Summary.OverstockCount != 1 {
		t.Fatalf("summary = %+v", a.Summary)
	}
	if diff := cmp.Diff([]string{"Office", "Furniture", "Uncategorized"}, a.Summary.Categories); diff != "" {
		t.Fatalf("categories (-want +got):\n%s", diff)
	}
	if a.Summary.TotalValue != 4*1.5+30*120+75*3 {
		t.Fatalf("total value = %v", a.Summary.TotalValue)
	}
}

func TestDetectColumns(t *testing.T) {
	cases := []struct {
		name string
		json string
		want Columns
	}{
		{"simple", `[{"qty":1,"price":2,"category":"A"}]`, Columns{Quantity: "qty", Price: "price", Category: "category"}},
		{"prefers single concept", `[{"stock_value":1,"units":2,"cost":3,"sku":"a"}]`, Columns{Quantity: "units", Price: "cost", Name: "sku"}},
		{"shared key used once", `[{"item_count":1,"product_name":"p","product_type":"t"}]`, Columns{Quantity: "item_count", Name: "product_name", Category: "product_type"}},
		{"no matches", `[{"a":1,"b":2}]`, Columns{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, DetectColumns(records(t, tc.json))); diff != "" {
				t.Fatalf("columns (-want +got):\n%s", diff)
			}
		})
	}
	if DetectColumns(nil) != (Columns{}) {
		t.Fatal("expected empty columns for no records")
	}
}

func TestAnalyzeGenerated(t *testing.T) {
	gen := &queueGenerator{responses: []string{"Here is the analysis:\n" + `{"summary":{"totalItems":2,"totalValue":99},"suggestions":[{"type":"warning","title":"t"}]}` + "\nThanks"}}
	recs := records(t, `[{"name":"Pen","qty":3},{"name":"Cup","qty":12}]`)
	res, err := newService(t, gen).Analyze(context.Background(), recs)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Source != pipeline.SourceGenerated || res.Analysis.Summary.TotalValue != 99 || res.Analysis.Suggestions[0].Type != "warning" {
		t.Fatalf("unexpected analysis: %+v", res)
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "Required JSON schema") || !strings.Contains(p, "Inventory Data Summary:") || !strings.Contains(p, `"columns": [`) {
		t.Fatalf("prompt missing sections:\n%s", p)
	}
	if !strings.Contains(p, "\"name\": \"Pen\",\n      \"qty\": 3") {
		t.Fatalf("sample data should keep column order:\n%s", p)
	}
}

func TestAnalyzeRejectsEmpty(t *testing.T) {
	if _, err := newService(t, nil).Analyze(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	recs := records(t, `[{"sku":"A1","qty":"","price":"2.5"},{"sku":"B2","qty":7,"price":null}]`)
	s := Summarize(recs)
	if s.TotalItems != 2 || len(s.SampleData) != 2 {
		t.Fatalf("summary = %+v", s)
	}
	if diff := cmp.Diff([]string{"sku", "qty", "price"}, s.Columns); diff != "" {
		t.Fatalf("columns (-want +got):\n%s", diff)
	}
	want := map[string]ColumnProfile{
		"sku":   {Type: "string", SampleValues: []any{"A1", "B2"}},
		"qty":   {Type: "number", SampleValues: []any{7.0}, HasNumeric: true},
		"price": {Type: "string", SampleValues: []any{"2.5"}, HasNumeric: true},
	}
	if diff := cmp.Diff(want, s.DataTypes); diff != "" {
		t.Fatalf("data types (-want +got):\n%s", diff)
	}
}

func TestAnalyzeImage(t *testing.T) {
	png := base64.StdEncoding.EncodeToString([]byte("\x89PNG fake"))
	gen := &queueGenerator{responses: []string{"```json\n{\"estimatedCount\": 3.7, \"quality\": \"poor\", \"productType\": \"bottle\"}\n```"}}
	s := newService(t, gen)
	res, err := s.AnalyzeImage(context.Background(), "data:image/png;base64,"+png, "../../etc/passwd")
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	want := ImageAnalysis{File: "/uploads/etcpasswd", EstimatedCount: 3, Quality: "Poor", ProductType: "bottle"}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("analysis (-want +got):\n%s", diff)
	}
	if gen.images != 1 {
		t.Fatal("expected the image call to be used")
	}
	if _, err := os.Stat(filepath.Join(s.UploadDir(), "etcpasswd")); err != nil {
		t.Fatalf("stored image: %v", err)
	}
}

func TestAnalyzeImageFallbackAndValidation(t *testing.T) {
	s := newService(t, nil)
	res, err := s.AnalyzeImage(context.Background(), "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte{1, 2}), "")
	if err != nil {
		t.Fatalf("AnalyzeImage: %v", err)
	}
	if res.File != "/uploads/upload_1700000000000.png" || res.EstimatedCount != 1 || res.Quality != "Good" || !strings.Contains(res.Note, "unavailable") {
		t.Fatalf("fallback = %+v", res)
	}
	if _, err := s.AnalyzeImage(context.Background(), "hello", "x.png"); !errors.Is(err, ErrImageRequired) {
		t.Fatalf("expected ErrImageRequired, got %v", err)
	}
	if _, err := s.AnalyzeImage(context.Background(), "data:image/png;base64,@@@", "x.png"); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func randomTree(rng *rand.Rand, depth int) any {
	switch k := rng.Intn(7); {
	case depth == 0 || k == 0:
		return nil
	case k == 1:
		return rng.NormFloat64() * 200
	case k == 2:
		return []string{"", "info", "bogus", "42", "-7", "A"}[rng.Intn(6)]
	case k == 3:
		return rng.Intn(2) == 0
	case k == 4:
		arr := make([]any, rng.Intn(14))
		for i := range arr {
			arr[i] = randomTree(rng, depth-1)
		}
		return arr
	default:
		keys := []string{"summary", "suggestions", "charts", "supplyChain", "suppliers", "type", "confidence",
			"reliabilityScore", "labels", "datasets", "data", "valueDistribution", "categoryAnalysis", "categories", "totalItems"}
		m := map[string]any{}
		for i := rng.Intn(8); i > 0; i-- {
			m[keys[rng.Intn(len(keys))]] = randomTree(rng, depth-1)
		}
		return m
	}
}
