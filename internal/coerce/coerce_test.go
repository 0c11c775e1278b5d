package coerce

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestString(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "d"},
		{"empty", "", "d"},
		{"text", "hello", "hello"},
		{"integer", float64(12), "12"},
		{"fraction", 2.5, "2.5"},
		{"bool", true, "true"},
		{"object", map[string]any{"a": 1.0}, "d"},
		{"array", []any{"x"}, "d"},
		{"nan", math.NaN(), "d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := String(tc.in, "d"); got != tc.want {
				t.Fatalf("String(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNumber(t *testing.T) {
	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{float64(3), 3, true},
		{"42", 42, true},
		{" $1,250.50 ", 1250.5, true},
		{"85%", 85, true},
		{json.Number("7"), 7, true},
		{7, 7, true},
		{"abc", 0, false},
		{"", 0, false},
		{nil, 0, false},
		{true, 0, false},
		{math.Inf(1), 0, false},
		{"NaN", 0, false},
	}
	for _, tc := range cases {
		got, ok := Number(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Number(%#v) = (%v, %v), want (%v, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestIntTruncatesAndBounds(t *testing.T) {
	if got := Int(9.9, 0); got != 9 {
		t.Fatalf("Int(9.9) = %d", got)
	}
	if got := Int(-9.9, 0); got != -9 {
		t.Fatalf("Int(-9.9) = %d", got)
	}
	if got := Int("x", 4); got != 4 {
		t.Fatalf("Int(x) = %d", got)
	}
	if got := Int(1e300, 0); got != maxExactInt {
		t.Fatalf("Int(1e300) = %d", got)
	}
	if got := ClampInt(150.0, 0, 100, 75); got != 100 {
		t.Fatalf("ClampInt(150) = %d", got)
	}
	if got := ClampInt(-4.0, 0, 100, 75); got != 0 {
		t.Fatalf("ClampInt(-4) = %d", got)
	}
	if got := ClampInt(nil, 0, 100, 75); got != 75 {
		t.Fatalf("ClampInt(nil) = %d", got)
	}
	if got := NonNegative(-3.0, 1); got != 0 {
		t.Fatalf("NonNegative(-3) = %v", got)
	}
}

func TestEnum(t *testing.T) {
	allowed := []string{"restock", "reduce", "info"}
	if got := Enum("RESTOCK", allowed, "info"); got != "restock" {
		t.Fatalf("got %q", got)
	}
	if got := Enum("bogus", allowed, "info"); got != "info" {
		t.Fatalf("got %q", got)
	}
	if got := Enum(3.0, allowed, "info"); got != "info" {
		t.Fatalf("got %q", got)
	}
}

func TestPath(t *testing.T) {
	var v any
	if err := json.Unmarshal([]byte(`{"charts":{"sales":{"datasets":[{"data":[1,2]}]}}}`), &v); err != nil {
		t.Fatal(err)
	}
	got := Path(v, "charts", "sales", "datasets", "[0]", "data")
	if diff := cmp.Diff([]any{1.0, 2.0}, got); diff != "" {
		t.Fatalf("Path mismatch (-want +got):\n%s", diff)
	}
	if Path(v, "charts", "missing", "[0]") != nil {
		t.Fatal("expected nil for missing path")
	}
	if Path("scalar", "a") != nil {
		t.Fatal("expected nil for scalar root")
	}
}

func TestStrings(t *testing.T) {
	got := Strings([]any{"A", "", nil, 3.0, "B"}, 3, nil)
	if diff := cmp.Diff([]string{"A", "3", "B"}, got); diff != "" {
		t.Fatalf("Strings mismatch (-want +got):\n%s", diff)
	}
	if got := Strings("nope", 3, []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("expected default, got %v", got)
	}
}

func TestCanonical(t *testing.T) {
	type item struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	got := Canonical([]item{{Name: "a", Value: 2}})
	want := []any{map[string]any{"name": "a", "value": 2.0}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Canonical mismatch (-want +got):\n%s", diff)
	}
}
