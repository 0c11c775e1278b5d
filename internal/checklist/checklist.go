// Package checklist generates an ordered startup execution checklist for a
// business model. Task i may only be completed after tasks 0..i-1.
package checklist

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

const MaxTasks = 20

var Categories = []string{"Planning", "Product", "Marketing", "Sales", "Ops", "Finance", "Legal"}

var (
	ErrNotConfigured = errors.New("generation not configured on server")
	ErrInvalidInput  = errors.New("model is required")
	ErrOutOfOrder    = errors.New("tasks must be completed in order")
)

type Task struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Details        string `json:"details"`
	Category       string `json:"category"`
	SuggestedOwner string `json:"suggestedOwner"`
	Done           bool   `json:"done"`
}

// Brief is the part of a business model the checklist prompt needs.
type Brief struct {
	Name                 string `json:"name"`
	Description          string `json:"description"`
	TargetCustomer       string `json:"targetCustomer"`
	ValueProp            string `json:"valueProp"`
	Pricing              string `json:"pricing"`
	RevenueStreams       string `json:"revenueStreams"`
	KeyActivities        string `json:"keyActivities"`
	MarketingPlan        string `json:"marketingPlan"`
	Operations           string `json:"operations"`
	Risks                string `json:"risks"`
	FinancialAssumptions string `json:"financialAssumptions"`
}

// BriefFrom extracts a Brief from an untyped model document.
func BriefFrom(model any) Brief {
	m := coerce.Map(coerce.Canonical(model))
	s := func(k string) string { return coerce.String(m[k], "") }
	return Brief{
		Name:                 s("name"),
		Description:          s("description"),
		TargetCustomer:       s("targetCustomer"),
		ValueProp:            s("valueProp"),
		Pricing:              s("pricing"),
		RevenueStreams:       s("revenueStreams"),
		KeyActivities:        s("keyActivities"),
		MarketingPlan:        s("marketingPlan"),
		Operations:           s("operations"),
		Risks:                s("risks"),
		FinancialAssumptions: s("financialAssumptions"),
	}
}

const schemaPrompt = `You are an operator coach. Create a practical 8-14 item startup execution checklist tailored to the provided business model.
The checklist MUST be strictly sequential like a journey: each task depends on the previous being completed. Order the items from first to last.
Return ONLY a JSON array (no prose).
Required JSON schema:
[{"title":"string","details":"string","category":"Planning|Product|Marketing|Sales|Ops|Finance|Legal","suggestedOwner":"short role"}]
At most 20 items.`

func BuildPrompt(b Brief) string {
	body, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		body = []byte("{}")
	}
	return schemaPrompt + "\n\nBusiness Model:\n" + string(body)
}

// NormalizeGenerated builds a fresh list: every task gets a new id and
// starts not done.
func NormalizeGenerated(v any, now time.Time) []Task {
	tasks := normalize(v, now, false)
	for i := range tasks {
		tasks[i].Done = false
	}
	return tasks
}

// NormalizeSaved normalizes a stored or client-edited list, keeping unique ids
// and done flags.
func NormalizeSaved(v any, now time.Time) []Task {
	return normalize(v, now, true)
}

func normalize(v any, now time.Time, keepIDs bool) []Task {
	arr, _ := coerce.Slice(coerce.Canonical(v))
	arr = coerce.Limit(arr, MaxTasks)
	out := make([]Task, len(arr))
	seen := make(map[string]bool, len(arr))
	for i, e := range arr {
		m := coerce.Map(e)
		id := ""
		if keepIDs {
			id = coerce.String(m["id"], "")
		}
		if id == "" || seen[id] {
			id = freshID(seen, now, i)
		}
		seen[id] = true
		out[i] = Task{
			ID:             id,
			Title:          coerce.String(m["title"], fmt.Sprintf("Task %d", i+1)),
			Details:        coerce.String(m["details"], ""),
			Category:       coerce.Enum(m["category"], Categories, "Planning"),
			SuggestedOwner: coerce.String(m["suggestedOwner"], "Founder"),
			Done:           coerce.Bool(m["done"]),
		}
	}
	return out
}

// ValidateProgress rejects a list where a done task follows an open one.
func ValidateProgress(tasks []Task) error {
	open := -1
	for i, t := range tasks {
		if !t.Done {
			if open < 0 {
				open = i
			}
			continue
		}
		if open >= 0 {
			return fmt.Errorf("%w: %q is done but %q is not", ErrOutOfOrder, t.Title, tasks[open].Title)
		}
	}
	return nil
}

// Progress reports how many leading tasks are done.
func Progress(tasks []Task) (done, total int) {
	for _, t := range tasks {
		if !t.Done {
			break
		}
		done++
	}
	return done, len(tasks)
}

func validBrief(b Brief) bool {
	return strings.TrimSpace(b.Name) != ""
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
