package inventory

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

type concept int

const (
	conceptQuantity concept = iota
	conceptPrice
	conceptName
	conceptCategory
)

var conceptPatterns = []*regexp.Regexp{
	conceptQuantity: regexp.MustCompile(`(?i)(qty|quantity|stock|count|units?)`),
	conceptPrice:    regexp.MustCompile(`(?i)(price|cost|value|amount)`),
	conceptName:     regexp.MustCompile(`(?i)(name|sku|product|item)`),
	conceptCategory: regexp.MustCompile(`(?i)(cat|category|type)`),
}

// Columns names the record keys chosen for each concept. Empty means none matched.
type Columns struct {
	Quantity string
	Price    string
	Name     string
	Category string
}

// DetectColumns assigns keys of the first record to concepts in the order
// quantity, price, name, category. A key matching a single concept is preferred
// over one matching several, and a key is assigned at most once.
func DetectColumns(records []*Record) Columns {
	if len(records) == 0 {
		return Columns{}
	}
	keys := records[0].Keys()
	matches := make(map[string]int, len(keys))
	for _, k := range keys {
		for _, re := range conceptPatterns {
			if re.MatchString(k) {
				matches[k]++
			}
		}
	}
	used := map[string]bool{}
	pick := func(c concept) string {
		re := conceptPatterns[c]
		fallback := ""
		for _, k := range keys {
			if used[k] || !re.MatchString(k) {
				continue
			}
			if matches[k] == 1 {
				used[k] = true
				return k
			}
			if fallback == "" {
				fallback = k
			}
		}
		if fallback != "" {
			used[fallback] = true
		}
		return fallback
	}
	var cols Columns
	cols.Quantity = pick(conceptQuantity)
	cols.Price = pick(conceptPrice)
	cols.Name = pick(conceptName)
	cols.Category = pick(conceptCategory)
	return cols
}

type valuedRecord struct {
	name  string
	qty   float64
	value float64
}

// Fallback computes an analysis from the records alone. The result is in
// decoded-JSON form and is expected to pass through NormalizeAnalysis.
func Fallback(records []*Record) any {
	cols := DetectColumns(records)
	field := func(r *Record, key string) any {
		if key == "" {
			return nil
		}
		v, _ := r.Get(key)
		return v
	}

	var low, optimal, over int
	var totalValue float64
	var categories []string
	categoryCount := map[string]int{}
	categoryValue := map[string]float64{}
	valued := make([]valuedRecord, 0, len(records))

	for i, r := range records {
		q := coerce.Float(field(r, cols.Quantity), 0)
		p := coerce.Float(field(r, cols.Price), 0)
		value := q * p
		totalValue += value
		switch {
		case q < LowStockThreshold:
			low++
		case q > OverstockThreshold:
			over++
		default:
			optimal++
		}
		c := coerce.String(field(r, cols.Category), "Uncategorized")
		if _, seen := categoryCount[c]; !seen {
			categories = append(categories, c)
		}
		categoryCount[c]++
		categoryValue[c] += value
		valued = append(valued, valuedRecord{
			name:  coerce.String(field(r, cols.Name), fmt.Sprintf("Item %d", i+1)),
			qty:   q,
			value: value,
		})
	}

	valueLabels := coerce.Limit(categories, 5)
	valueData := make([]any, len(valueLabels))
	for i, c := range valueLabels {
		valueData[i] = categoryValue[c]
	}
	countLabels := coerce.Limit(categories, maxCategoryLabels)
	countData := make([]any, len(countLabels))
	for i, c := range countLabels {
		countData[i] = float64(categoryCount[c])
	}

	return map[string]any{
		"summary": map[string]any{
			"totalItems":     float64(len(records)),
			"totalValue":     totalValue,
			"lowStockCount":  float64(low),
			"overstockCount": float64(over),
			"categories":     toAny(categories),
		},
		"suggestions": []any{
			map[string]any{"type": "restock", "title": "Restock low inventory", "description": fmt.Sprintf("There are %d items below threshold (%d).", low, LowStockThreshold), "impact": "Avoid stockouts"},
			map[string]any{"type": "reduce", "title": "Reduce overstock", "description": fmt.Sprintf("%d items exceed optimal levels (>%d).", over, OverstockThreshold), "impact": "Free up cashflow"},
		},
		"topPerformers":  topPerformers(valued),
		"attentionItems": attentionItems(valued),
		"predictions": []any{
			map[string]any{"timeframe": "Next 3 months", "description": "Stable demand expected with slight growth", "confidence": 70.0},
		},
		"charts": map[string]any{
			"stockDistribution": map[string]any{
				"datasets": []any{map[string]any{"data": []any{float64(low), float64(optimal), float64(over)}}},
			},
			"valueDistribution": map[string]any{
				"labels":   toAny(valueLabels),
				"datasets": []any{map[string]any{"data": valueData}},
			},
			"salesPrediction": map[string]any{
				"datasets": []any{map[string]any{"data": []any{1000.0, 1050.0, 1100.0, 1150.0, 1200.0, 1250.0}}},
			},
			"categoryAnalysis": map[string]any{
				"labels":   toAny(countLabels),
				"datasets": []any{map[string]any{"data": countData}},
			},
		},
		"supplyChain": map[string]any{
			"summary": "Fallback supply-chain: prioritize nearer regional hubs and reduce lead times.",
			"suppliers": []any{
				map[string]any{"name": "Regional Hub A", "location": "Nearest City", "distanceKm": 300.0, "leadTimeDays": 3.0, "reliabilityScore": 85.0},
				map[string]any{"name": "Regional Hub B", "location": "Secondary City", "distanceKm": 800.0, "leadTimeDays": 5.0, "reliabilityScore": 80.0},
			},
			"recommendations": []any{
				map[string]any{"title": "Dual-source critical SKUs", "description": "Reduce risk by onboarding a backup supplier for critical items.", "impact": "Reliability"},
				map[string]any{"title": "Consolidate shipments", "description": "Batch orders to reduce logistics cost per unit.", "impact": "Cost"},
			},
		},
	}
}

// topPerformers ranks records by stock value, keeping input order on ties.
func topPerformers(valued []valuedRecord) []any {
	ranked := make([]valuedRecord, 0, len(valued))
	for _, v := range valued {
		if v.value > 0 {
			ranked = append(ranked, v)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].value > ranked[j].value })
	out := []any{}
	for _, v := range coerce.Limit(ranked, maxListItems) {
		out = append(out, map[string]any{"name": v.name, "value": v.value, "reason": "Highest stock value"})
	}
	return out
}

// attentionItems lists low-stock records first, then overstocked ones.
func attentionItems(valued []valuedRecord) []any {
	out := []any{}
	for _, v := range valued {
		if len(out) == maxListItems {
			return out
		}
		if v.qty < LowStockThreshold {
			out = append(out, map[string]any{"name": v.name, "issue": fmt.Sprintf("Low stock (%g units)", v.qty), "action": "Restock soon"})
		}
	}
	for _, v := range valued {
		if len(out) == maxListItems {
			return out
		}
		if v.qty > OverstockThreshold {
			out = append(out, map[string]any{"name": v.name, "issue": fmt.Sprintf("Overstock (%g units)", v.qty), "action": "Pause reorders or run a promotion"})
		}
	}
	return out
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
