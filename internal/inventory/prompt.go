package inventory

import (
	"encoding/json"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

const analysisSchemaPrompt = `You are an expert inventory management and supply-chain AI analyst. Analyze the provided inventory data and generate comprehensive insights, recommendations, predictions, AND a supply chain optimization plan.

Return ONLY a valid JSON object with this exact structure.
Required JSON schema:
{
  "summary": {"totalItems":"number","totalValue":"number","lowStockCount":"number","overstockCount":"number","categories":["string, at most 10"]},
  "suggestions": [{"type":"restock|reduce|optimal|warning|info","title":"string","description":"string","impact":"string"}],
  "topPerformers": [{"name":"string","value":"number","reason":"string"}],
  "attentionItems": [{"name":"string","issue":"string","action":"string"}],
  "predictions": [{"timeframe":"string","description":"string","confidence":"number 0-100"}],
  "charts": {
    "stockDistribution": {"labels":["Low Stock","Optimal","Overstock"],"datasets":[{"data":["number","number","number"],"backgroundColor":["#ef4444","#10b981","#f59e0b"]}]},
    "valueDistribution": {"labels":["string, at most 8"],"datasets":[{"label":"Value","data":["number, one per label"],"backgroundColor":"#7c3aed"}]},
    "salesPrediction": {"labels":["Month 1","Month 2","Month 3","Month 4","Month 5","Month 6"],"datasets":[{"label":"Predicted Sales","data":["number x6"],"borderColor":"#7c3aed","backgroundColor":"rgba(124, 58, 237, 0.1)"}]},
    "categoryAnalysis": {"labels":["string, at most 6"],"datasets":[{"label":"Items","data":["integer, one per label"],"backgroundColor":"#10b981"}]}
  },
  "supplyChain": {
    "summary": "string",
    "suppliers": [{"name":"string","location":"City, Country","distanceKm":"number","leadTimeDays":"number","reliabilityScore":"number 0-100","notes":"string","routeLink":"https://...","mapEmbedUrl":"https://..."}],
    "recommendations": [{"title":"string","description":"string","impact":"Cost|Speed|Reliability|Risk"}]
  }
}
Limits: at most 10 suggestions; at most 5 topPerformers, attentionItems, predictions, suppliers and recommendations.

Guidelines:
- Identify columns that likely contain quantity/stock information (look for words like "quantity", "stock", "amount", "qty", "count")
- Identify columns that likely contain price/value information (look for words like "price", "cost", "value", "amount")
- Identify columns that likely contain product names/categories
- Make realistic assumptions about stock levels (low < 10, optimal 10-50, overstock > 50)
- Generate practical, actionable recommendations
- Create realistic chart data based on the actual inventory
- Focus on business value and actionable insights`

const (
	summarySampleRows = 5
	summaryTypeRows   = 10
	summaryTypeValues = 3
)

type ColumnProfile struct {
	Type         string `json:"type"`
	SampleValues []any  `json:"sampleValues"`
	HasNumeric   bool   `json:"hasNumeric"`
}

// DataSummary is the compact view of the upload sent to the generator in
// place of the full data set.
type DataSummary struct {
	TotalItems int                      `json:"totalItems"`
	Columns    []string                 `json:"columns"`
	SampleData []*Record                `json:"sampleData"`
	DataTypes  map[string]ColumnProfile `json:"dataTypes"`
}

// Summarize profiles the columns of the first record over the first ten rows.
func Summarize(records []*Record) DataSummary {
	var columns []string
	if len(records) > 0 {
		columns = records[0].Keys()
	}
	if columns == nil {
		columns = []string{}
	}
	s := DataSummary{
		TotalItems: len(records),
		Columns:    columns,
		SampleData: coerce.Limit(records, summarySampleRows),
		DataTypes:  make(map[string]ColumnProfile, len(columns)),
	}
	head := coerce.Limit(records, summaryTypeRows)
	for _, col := range columns {
		var values []any
		for _, r := range head {
			v, ok := r.Get(col)
			if !ok || v == nil || v == "" {
				continue
			}
			values = append(values, v)
		}
		p := ColumnProfile{Type: "undefined", SampleValues: []any{}}
		if len(values) > 0 {
			p.Type = jsonType(values[0])
			p.SampleValues = coerce.Limit(values, summaryTypeValues)
		}
		for _, v := range values {
			if _, ok := coerce.Number(v); ok {
				p.HasNumeric = true
				break
			}
		}
		s.DataTypes[col] = p
	}
	return s
}

func jsonType(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case float64, json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return "object"
	}
}

// BuildAnalysisPrompt appends the data summary to the schema contract.
func BuildAnalysisPrompt(records []*Record) string {
	b, err := json.MarshalIndent(Summarize(records), "", "  ")
	if err != nil {
		b = []byte("{}")
	}
	return analysisSchemaPrompt + "\n\nInventory Data Summary:\n" + string(b)
}
