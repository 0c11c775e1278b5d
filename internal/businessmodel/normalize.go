package businessmodel

import (
	"fmt"
	"time"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

// ClampCount parses the requested number of models. Absent, zero or
// non-numeric input means DefaultCount.
func ClampCount(v any) int {
	n := coerce.Int(v, DefaultCount)
	if n == 0 {
		n = DefaultCount
	}
	return min(MaxCount, max(MinCount, n))
}

// Accept reports whether a parsed value can yield at least one model.
func Accept(v any) bool {
	arr, ok := coerce.Slice(v)
	return ok && len(arr) > 0
}

// Normalize converts untrusted data into at most count models. Existing
// unique ids are kept; missing or repeated ones are replaced with
// "<unix millis>_<index>" derived from now, suffixed if already taken.
func Normalize(v any, count int, now time.Time) []BusinessModel {
	arr, _ := coerce.Slice(coerce.Canonical(v))
	arr = coerce.Limit(arr, max(0, count))
	out := make([]BusinessModel, 0, len(arr))
	seen := make(map[string]bool, len(arr))
	for i, e := range arr {
		m := coerce.Map(e)
		id := coerce.String(m["id"], "")
		if id == "" || seen[id] {
			id = freshID(seen, now, i)
		}
		seen[id] = true
		out = append(out, BusinessModel{
			ID:                   id,
			Name:                 coerce.String(m["name"], fmt.Sprintf("Option %d", i+1)),
			Description:          coerce.String(m["description"], ""),
			TargetCustomer:       coerce.String(m["targetCustomer"], ""),
			ValueProp:            coerce.String(m["valueProp"], ""),
			Pricing:              coerce.String(m["pricing"], ""),
			RevenueStreams:       coerce.String(m["revenueStreams"], ""),
			StartupCosts:         coerce.String(m["startupCosts"], ""),
			KeyActivities:        coerce.String(m["keyActivities"], ""),
			Risks:                coerce.String(m["risks"], ""),
			MarketingPlan:        coerce.String(m["marketingPlan"], ""),
			Operations:           coerce.String(m["operations"], ""),
			FinancialAssumptions: coerce.String(m["financialAssumptions"], ""),
			Projections:          normalizeProjections(m["projections"]),
		})
	}
	return out
}

func normalizeProjections(v any) Projections {
	p := coerce.Map(v)
	return Projections{
		Base:  normalizeScenario(p["base"]),
		Best:  normalizeScenario(p["best"]),
		Worst: normalizeScenario(p["worst"]),
	}
}

func normalizeScenario(v any) Scenario {
	sc := coerce.Map(v)
	months := DefaultMonths()
	if arr, ok := coerce.Slice(sc["months"]); ok && len(arr) > 0 {
		arr = coerce.Limit(arr, ProjectionMonths)
		months = make([]string, len(arr))
		for i, m := range arr {
			months[i] = coerce.String(m, fmt.Sprintf("M%d", i+1))
		}
	}
	n := len(months)
	return Scenario{
		Months:    months,
		Revenue:   series(sc["revenue"], n),
		Costs:     series(sc["costs"], n),
		Customers: series(sc["customers"], n),
	}
}

// series truncates or zero-pads v to exactly n finite numbers.
func series(v any, n int) []float64 {
	out := make([]float64, n)
	arr, _ := coerce.Slice(v)
	for i := 0; i < n && i < len(arr); i++ {
		out[i] = coerce.Float(arr[i], 0)
	}
	return out
}

func DefaultMonths() []string {
	months := make([]string, ProjectionMonths)
	for i := range months {
		months[i] = fmt.Sprintf("M%d", i+1)
	}
	return months
}

// freshID returns "<unix millis>_<index>", suffixed until no kept id uses it.
func freshID(seen map[string]bool, now time.Time, i int) string {
	base := fmt.Sprintf("%d_%d", now.UnixMilli(), i)
	id := base
	for n := 1; seen[id]; n++ {
		id = fmt.Sprintf("%s_%d", base, n)
	}
	return id
}
