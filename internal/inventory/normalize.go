package inventory

import (
	"fmt"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

const (
	colorLow       = "#ef4444"
	colorOptimal   = "#10b981"
	colorOverstock = "#f59e0b"
	colorValue     = "#7c3aed"
	colorSalesFill = "rgba(124, 58, 237, 0.1)"

	defaultSupplyChainSummary = "Optimized sourcing and routing suggestions based on proximity and reliability."
)

var (
	stockLabels          = []string{"Low Stock", "Optimal", "Overstock"}
	defaultValueLabels   = []string{"Category 1", "Category 2", "Category 3"}
	defaultValueData     = []float64{1000, 2000, 1500}
	defaultSalesData     = []float64{1000, 1200, 1100, 1300, 1400, 1500}
	defaultCategoryLabel = []string{"Category A", "Category B", "Category C"}
	defaultCategoryData  = []float64{10, 15, 8}
)

// NormalizeAnalysis converts untrusted data into a complete Analysis.
// inputCount is the number of records analyzed and is the default totalItems.
func NormalizeAnalysis(v any, inputCount int) Analysis {
	root := coerce.Map(coerce.Canonical(v))
	summary := coerce.Map(root["summary"])
	supply := coerce.Map(root["supplyChain"])

	return Analysis{
		Summary: Summary{
			TotalItems:     coerce.NonNegativeInt(summary["totalItems"], max(0, inputCount)),
			TotalValue:     coerce.NonNegative(summary["totalValue"], 0),
			LowStockCount:  coerce.NonNegativeInt(summary["lowStockCount"], 0),
			OverstockCount: coerce.NonNegativeInt(summary["overstockCount"], 0),
			Categories:     coerce.Strings(summary["categories"], maxCategories, []string{}),
		},
		Suggestions: mapList(root["suggestions"], maxSuggestions, func(_ int, m map[string]any) Suggestion {
			return Suggestion{
				Type:        coerce.Enum(m["type"], SuggestionTypes, "info"),
				Title:       coerce.String(m["title"], "Suggestion"),
				Description: coerce.String(m["description"], ""),
				Impact:      coerce.String(m["impact"], ""),
			}
		}),
		TopPerformers: mapList(root["topPerformers"], maxListItems, func(_ int, m map[string]any) Performer {
			return Performer{
				Name:   coerce.String(m["name"], "Item"),
				Value:  coerce.NonNegative(m["value"], 0),
				Reason: coerce.String(m["reason"], "High performance"),
			}
		}),
		AttentionItems: mapList(root["attentionItems"], maxListItems, func(_ int, m map[string]any) AttentionItem {
			return AttentionItem{
				Name:   coerce.String(m["name"], "Item"),
				Issue:  coerce.String(m["issue"], "Needs attention"),
				Action: coerce.String(m["action"], "Review required"),
			}
		}),
		Predictions: mapList(root["predictions"], maxListItems, func(_ int, m map[string]any) Prediction {
			return Prediction{
				Timeframe:   coerce.String(m["timeframe"], "Future"),
				Description: coerce.String(m["description"], "Prediction"),
				Confidence:  coerce.ClampInt(m["confidence"], 0, 100, 75),
			}
		}),
		Charts: normalizeCharts(coerce.Map(root["charts"])),
		SupplyChain: SupplyChain{
			Summary: coerce.String(supply["summary"], defaultSupplyChainSummary),
			Suppliers: mapList(supply["suppliers"], maxListItems, func(_ int, m map[string]any) Supplier {
				return Supplier{
					Name:             coerce.String(m["name"], "Supplier"),
					Location:         coerce.String(m["location"], "Unknown"),
					DistanceKm:       coerce.NonNegative(m["distanceKm"], 0),
					LeadTimeDays:     coerce.NonNegativeInt(m["leadTimeDays"], 0),
					ReliabilityScore: coerce.ClampInt(m["reliabilityScore"], 0, 100, 75),
					Notes:            coerce.String(m["notes"], ""),
					RouteLink:        coerce.String(m["routeLink"], ""),
					MapEmbedURL:      coerce.String(m["mapEmbedUrl"], ""),
				}
			}),
			Recommendations: mapList(supply["recommendations"], maxListItems, func(_ int, m map[string]any) Recommendation {
				return Recommendation{
					Title:       coerce.String(m["title"], "Improve Supply Chain"),
					Description: coerce.String(m["description"], ""),
					Impact:      coerce.String(m["impact"], "Cost"),
				}
			}),
		},
	}
}

// mapList applies fn to at most n elements of v. Non-object elements are
// treated as empty objects. The result is never nil.
func mapList[T any](v any, n int, fn func(int, map[string]any) T) []T {
	arr, _ := coerce.Slice(v)
	arr = coerce.Limit(arr, n)
	out := make([]T, len(arr))
	for i, e := range arr {
		out[i] = fn(i, coerce.Map(e))
	}
	return out
}

func normalizeCharts(c map[string]any) Charts {
	stock := make([]int, len(stockLabels))
	for i := range stock {
		stock[i] = coerce.NonNegativeInt(coerce.Path(c, "stockDistribution", "datasets", "[0]", "data", fmt.Sprintf("[%d]", i)), 0)
	}

	valueLabels := chartLabels(coerce.Path(c, "valueDistribution", "labels"), maxValueLabels, defaultValueLabels)
	categoryLabels := chartLabels(coerce.Path(c, "categoryAnalysis", "labels"), maxCategoryLabels, defaultCategoryLabel)

	return Charts{
		StockDistribution: Chart[StockDataset]{
			Labels: append([]string(nil), stockLabels...),
			Datasets: []StockDataset{{
				Data:            stock,
				BackgroundColor: []string{colorLow, colorOptimal, colorOverstock},
			}},
		},
		ValueDistribution: Chart[BarDataset]{
			Labels: valueLabels,
			Datasets: []BarDataset{{
				Label:           "Value",
				Data:            chartData(coerce.Path(c, "valueDistribution", "datasets", "[0]", "data"), len(valueLabels), defaultValueData, false),
				BackgroundColor: colorValue,
			}},
		},
		SalesPrediction: Chart[LineDataset]{
			Labels: salesLabels(),
			Datasets: []LineDataset{{
				Label:           "Predicted Sales",
				Data:            chartData(coerce.Path(c, "salesPrediction", "datasets", "[0]", "data"), salesPredictionLen, defaultSalesData, false),
				BorderColor:     colorValue,
				BackgroundColor: colorSalesFill,
				Fill:            true,
			}},
		},
		CategoryAnalysis: Chart[BarDataset]{
			Labels: categoryLabels,
			Datasets: []BarDataset{{
				Label:           "Items",
				Data:            chartData(coerce.Path(c, "categoryAnalysis", "datasets", "[0]", "data"), len(categoryLabels), defaultCategoryData, true),
				BackgroundColor: colorOptimal,
			}},
		},
	}
}

func chartLabels(v any, n int, def []string) []string {
	labels := coerce.Strings(v, n, nil)
	if len(labels) == 0 {
		return append([]string(nil), def...)
	}
	return labels
}

// chartData returns exactly n non-negative values, truncating or zero-padding
// the input. integers truncates each value toward zero.
func chartData(v any, n int, def []float64, integers bool) []float64 {
	src := def
	if arr, ok := coerce.Slice(v); ok {
		src = make([]float64, len(arr))
		for i, e := range arr {
			if integers {
				src[i] = float64(coerce.NonNegativeInt(e, 0))
			} else {
				src[i] = coerce.NonNegative(e, 0)
			}
		}
	}
	out := make([]float64, n)
	copy(out, src)
	return out
}

func salesLabels() []string {
	labels := make([]string, salesPredictionLen)
	for i := range labels {
		labels[i] = fmt.Sprintf("Month %d", i+1)
	}
	return labels
}
