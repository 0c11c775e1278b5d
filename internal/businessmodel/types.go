// Package businessmodel generates business model options with twelve-month
// financial projections from a short idea.
package businessmodel

const (
	MinCount     = 2
	MaxCount     = 3
	DefaultCount = 3
	// ProjectionMonths is the maximum and default scenario length.
	ProjectionMonths = 12
)

type BusinessModel struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	TargetCustomer       string      `json:"targetCustomer"`
	ValueProp            string      `json:"valueProp"`
	Pricing              string      `json:"pricing"`
	RevenueStreams       string      `json:"revenueStreams"`
	StartupCosts         string      `json:"startupCosts"`
	KeyActivities        string      `json:"keyActivities"`
	Risks                string      `json:"risks"`
	MarketingPlan        string      `json:"marketingPlan"`
	Operations           string      `json:"operations"`
	FinancialAssumptions string      `json:"financialAssumptions"`
	Projections          Projections `json:"projections"`
}

type Projections struct {
	Base  Scenario `json:"base"`
	Best  Scenario `json:"best"`
	Worst Scenario `json:"worst"`
}

// Scenario holds four sequences of identical length.
type Scenario struct {
	Months    []string  `json:"months"`
	Revenue   []float64 `json:"revenue"`
	Costs     []float64 `json:"costs"`
	Customers []float64 `json:"customers"`
}

// Request is the caller input. Fields are left untyped because clients send
// numbers, numeric strings or nothing at all; they are coerced on use.
type Request struct {
	Idea     any `json:"idea"`
	Location any `json:"location"`
	Count    any `json:"count"`
}
