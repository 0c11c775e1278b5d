package businessmodel

import (
	"fmt"
	"strings"
)

const schemaPrompt = `Return ONLY a valid JSON array. No prose. Each item must be an object with these fields:
name, description, targetCustomer, valueProp, pricing, revenueStreams, startupCosts, keyActivities, risks, marketingPlan, operations,
financialAssumptions, projections.
- financialAssumptions: a one-sentence summary of core numeric assumptions.
- projections: an object with three scenarios (base, best, worst). Each scenario is an object with arrays for the next 12 months:
  months: ["M1","M2",...,"M12"],
  revenue: [number...],
  costs: [number...],
  customers: [number...].

Required JSON schema:
[
  {
    "name":"string",
    "description":"string",
    "targetCustomer":"string",
    "valueProp":"string",
    "pricing":"string",
    "revenueStreams":"string",
    "startupCosts":"string",
    "keyActivities":"string",
    "risks":"string",
    "marketingPlan":"string",
    "operations":"string",
    "financialAssumptions":"string",
    "projections":{
      "base":{"months":["string x12"],"revenue":["number x12"],"costs":["number x12"],"customers":["number x12"]},
      "best":{"months":["string x12"],"revenue":["number x12"],"costs":["number x12"],"customers":["number x12"]},
      "worst":{"months":["string x12"],"revenue":["number x12"],"costs":["number x12"],"customers":["number x12"]}
    }
  }
]
Consider the location context when generating business models, including local market conditions, regulations, competition, and opportunities.`

// BuildPrompt embeds idea and location as opaque text after the schema.
func BuildPrompt(idea, location string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a startup consultant. Generate %d distinct business model options for the given idea.\n", count)
	b.WriteString(schemaPrompt)
	b.WriteString("\n\nIdea: ")
	b.WriteString(idea)
	if location != "" {
		b.WriteString("\nLocation: ")
		b.WriteString(location)
	}
	return b.String()
}
