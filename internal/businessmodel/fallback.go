package businessmodel

import (
	"fmt"
	"math"

	"github.com/MdSium003/AgamiOps/internal/coerce"
)

type archetype struct {
	name               string
	description        string
	pricing            string
	streams            string
	startupCosts       string
	activities         string
	marketing          string
	operations         string
	startRevenue       float64
	growth             float64
	fixedCosts         float64
	variableShare      float64
	revenuePerCustomer float64
}

var archetypes = []archetype{
	{
		name:               "Direct Sales",
		description:        "Sell %s directly to end customers through owned channels.",
		pricing:            "Per-unit pricing with volume discounts for repeat buyers.",
		streams:            "Product or service sales",
		startupCosts:       "Initial inventory or tooling, storefront or website, launch marketing.",
		activities:         "Sourcing, sales, fulfilment, customer support.",
		marketing:          "Local promotion, social media, referral incentives.",
		operations:         "Lean team handling orders and delivery in-house.",
		startRevenue:       2000,
		growth:             0.08,
		fixedCosts:         1500,
		variableShare:      0.4,
		revenuePerCustomer: 50,
	},
	{
		name:               "Subscription",
		description:        "Offer %s as a recurring subscription with predictable monthly revenue.",
		pricing:            "Monthly plan with an annual discount.",
		streams:            "Recurring subscription fees, premium add-ons",
		startupCosts:       "Platform setup, onboarding materials, first-cohort acquisition.",
		activities:         "Retention, onboarding, recurring delivery.",
		marketing:          "Free trial, content marketing, partnerships.",
		operations:         "Automated billing and scheduled fulfilment.",
		startRevenue:       1000,
		growth:             0.12,
		fixedCosts:         1200,
		variableShare:      0.25,
		revenuePerCustomer: 20,
	},
	{
		name:               "Marketplace",
		description:        "Connect providers and buyers of %s and earn a commission on each transaction.",
		pricing:            "Commission per transaction plus optional featured listings.",
		streams:            "Transaction commissions, listing fees",
		startupCosts:       "Marketplace platform, supplier onboarding, trust and safety.",
		activities:         "Supplier acquisition, matching, dispute handling.",
		marketing:          "Two-sided acquisition starting with supply.",
		operations:         "Small operations team curating listings.",
		startRevenue:       600,
		growth:             0.15,
		fixedCosts:         1000,
		variableShare:      0.15,
		revenuePerCustomer: 10,
	},
}

// Fallback synthesizes count template models for idea without generation.
// The result is in decoded-JSON form and is expected to pass through Normalize.
func Fallback(idea, location string, count int) any {
	count = min(len(archetypes), max(0, count))
	subject := idea
	if subject == "" {
		subject = "the product"
	}
	where := ""
	if location != "" {
		where = " in " + location
	}
	models := make([]BusinessModel, 0, count)
	for _, a := range archetypes[:count] {
		base := projection(a, 1, 1)
		models = append(models, BusinessModel{
			Name:                 a.name,
			Description:          fmt.Sprintf(a.description, subject) + " Generated without AI assistance" + where + "; review before use.",
			TargetCustomer:       "Early adopters" + where + " who need " + subject + ".",
			ValueProp:            "A simple, reliable way to get " + subject + ".",
			Pricing:              a.pricing,
			RevenueStreams:       a.streams,
			StartupCosts:         a.startupCosts,
			KeyActivities:        a.activities,
			Risks:                "Demand uncertainty, competition" + where + ", cash-flow timing.",
			MarketingPlan:        a.marketing,
			Operations:           a.operations,
			FinancialAssumptions: fmt.Sprintf("Revenue starts near %.0f per month and grows %.0f%% monthly; variable costs are %.0f%% of revenue.", a.startRevenue, a.growth*100, a.variableShare*100),
			Projections: Projections{
				Base:  base,
				Best:  projection(a, 1.3, 1.1),
				Worst: projection(a, 0.7, 1.0),
			},
		})
	}
	return coerce.Canonical(models)
}

// projection scales demand by demand and fixed costs by cost.
func projection(a archetype, demand, cost float64) Scenario {
	sc := Scenario{Months: DefaultMonths()}
	for i := range sc.Months {
		revenue := math.Round(a.startRevenue * demand * math.Pow(1+a.growth, float64(i)))
		sc.Revenue = append(sc.Revenue, revenue)
		sc.Costs = append(sc.Costs, math.Round(a.fixedCosts*cost+revenue*a.variableShare))
		sc.Customers = append(sc.Customers, math.Round(revenue/a.revenuePerCustomer))
	}
	return sc
}
