// Package inventory analyzes uploaded inventory data and product photos.
package inventory

const (
	LowStockThreshold  = 10
	OverstockThreshold = 50

	maxCategories      = 10
	maxSuggestions     = 10
	maxListItems       = 5
	maxValueLabels     = 8
	maxCategoryLabels  = 6
	salesPredictionLen = 6
)

var SuggestionTypes = []string{"restock", "reduce", "optimal", "warning", "info"}

type Analysis struct {
	Summary        Summary         `json:"summary"`
	Suggestions    []Suggestion    `json:"suggestions"`
	TopPerformers  []Performer     `json:"topPerformers"`
	AttentionItems []AttentionItem `json:"attentionItems"`
	Predictions    []Prediction    `json:"predictions"`
	Charts         Charts          `json:"charts"`
	SupplyChain    SupplyChain     `json:"supplyChain"`
}

type Summary struct {
	TotalItems     int      `json:"totalItems"`
	TotalValue     float64  `json:"totalValue"`
	LowStockCount  int      `json:"lowStockCount"`
	OverstockCount int      `json:"overstockCount"`
	Categories     []string `json:"categories"`
}

type Suggestion struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

type Performer struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

type AttentionItem struct {
	Name   string `json:"name"`
	Issue  string `json:"issue"`
	Action string `json:"action"`
}

type Prediction struct {
	Timeframe   string `json:"timeframe"`
	Description string `json:"description"`
	Confidence  int    `json:"confidence"`
}

type Charts struct {
	StockDistribution Chart[StockDataset] `json:"stockDistribution"`
	ValueDistribution Chart[BarDataset]   `json:"valueDistribution"`
	SalesPrediction   Chart[LineDataset]  `json:"salesPrediction"`
	CategoryAnalysis  Chart[BarDataset]   `json:"categoryAnalysis"`
}

// Chart always carries exactly one dataset whose data is as long as Labels.
type Chart[D any] struct {
	Labels   []string `json:"labels"`
	Datasets []D      `json:"datasets"`
}

type StockDataset struct {
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
}

type BarDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor string    `json:"backgroundColor"`
}

type LineDataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BorderColor     string    `json:"borderColor"`
	BackgroundColor string    `json:"backgroundColor"`
	Fill            bool      `json:"fill"`
}

type SupplyChain struct {
	Summary         string           `json:"summary"`
	Suppliers       []Supplier       `json:"suppliers"`
	Recommendations []Recommendation `json:"recommendations"`
}

type Supplier struct {
	Name             string  `json:"name"`
	Location         string  `json:"location"`
	DistanceKm       float64 `json:"distanceKm"`
	LeadTimeDays     int     `json:"leadTimeDays"`
	ReliabilityScore int     `json:"reliabilityScore"`
	Notes            string  `json:"notes"`
	RouteLink        string  `json:"routeLink"`
	MapEmbedURL      string  `json:"mapEmbedUrl"`
}

type Recommendation struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}
