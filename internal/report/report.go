// Package report renders a saved plan as markdown, HTML and PDF.
package report

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/MdSium003/AgamiOps/internal/businessmodel"
	"github.com/MdSium003/AgamiOps/internal/checklist"
)

// Plan is the normalized view of a stored plan.
type Plan struct {
	Name  string
	Model businessmodel.BusinessModel
	Tasks []checklist.Task
}

type section struct {
	title string
	body  func(businessmodel.BusinessModel) string
}

var sections = []section{
	{"Target Customer", func(m businessmodel.BusinessModel) string { return m.TargetCustomer }},
	{"Value Proposition", func(m businessmodel.BusinessModel) string { return m.ValueProp }},
	{"Pricing", func(m businessmodel.BusinessModel) string { return m.Pricing }},
	{"Revenue Streams", func(m businessmodel.BusinessModel) string { return m.RevenueStreams }},
	{"Startup Costs", func(m businessmodel.BusinessModel) string { return m.StartupCosts }},
	{"Key Activities", func(m businessmodel.BusinessModel) string { return m.KeyActivities }},
	{"Risks", func(m businessmodel.BusinessModel) string { return m.Risks }},
	{"Marketing Plan", func(m businessmodel.BusinessModel) string { return m.MarketingPlan }},
	{"Operations", func(m businessmodel.BusinessModel) string { return m.Operations }},
	{"Financial Assumptions", func(m businessmodel.BusinessModel) string { return m.FinancialAssumptions }},
}

// PlanMarkdown renders the plan narrative, the base scenario and the
// checklist. Empty narrative fields are skipped.
func PlanMarkdown(p Plan) string {
	var b strings.Builder
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = p.Model.Name
	}
	if name == "" {
		name = "Plan"
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(name))
	if d := strings.TrimSpace(p.Model.Description); d != "" {
		b.WriteString(d + "\n\n")
	}
	for _, s := range sections {
		text := strings.TrimSpace(s.body(p.Model))
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.title, text)
	}

	base := p.Model.Projections.Base
	if len(base.Months) > 0 {
		b.WriteString("## Base Scenario Projections\n\n")
		b.WriteString("| Month | Revenue | Costs | Profit | Customers |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for i, month := range base.Months {
			rev, cost, cust := at(base.Revenue, i), at(base.Costs, i), at(base.Customers, i)
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				escapeCell(month), money(rev), money(cost), money(rev-cost), number(cust))
		}
		b.WriteString("\n")
	}

	if len(p.Tasks) > 0 {
		done, total := checklist.Progress(p.Tasks)
		fmt.Fprintf(&b, "## Launch Checklist\n\n%d of %d tasks complete.\n\n", done, total)
		for _, t := range p.Tasks {
			mark := "☐"
			if t.Done {
				mark = "✔"
			}
			fmt.Fprintf(&b, "- %s **%s** (%s, %s)", mark, escapeInline(t.Title), t.Category, escapeInline(t.SuggestedOwner))
			if d := strings.TrimSpace(t.Details); d != "" {
				b.WriteString(": " + escapeInline(d))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func at(s []float64, i int) float64 {
	if i < len(s) {
		return s[i]
	}
	return 0
}

func money(v float64) string {
	return "$" + groupThousands(strconv.FormatFloat(v, 'f', 0, 64))
}

func number(v float64) string {
	return groupThousands(strconv.FormatFloat(v, 'f', 0, 64))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return sign + s
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func escapeInline(s string) string {
	return lineBreaks.Replace(strings.TrimSpace(s))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", `\|`)
}

var checklistHeading = regexp.MustCompile(`(?i)<h2([^>]*)>\s*Launch Checklist\s*</h2>`)

// RenderHTML converts markdown to an HTML fragment using GitHub flavoured
// markdown. Raw HTML in the input is not passed through.
func RenderHTML(markdown string) (string, error) {
	var out strings.Builder
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := md.Convert([]byte(markdown), &out); err != nil {
		return "", fmt.Errorf("markdown convert: %w", err)
	}
	return checklistHeading.ReplaceAllString(out.String(), `<h2$1 data-page-break-before="true">Launch Checklist</h2>`), nil
}

const documentStyle = `body{font-family:Arial,Helvetica,sans-serif;color:#1c1917;max-width:960px;margin:0 auto;padding:1rem;}` +
	`h1{color:#4a7c59;}h2{border-bottom:1px solid #e7e5e4;padding-bottom:0.2rem;}` +
	`table{width:100%;border-collapse:collapse;font-size:0.85rem;}` +
	`th,td{border:1px solid #a8a29e;padding:0.3rem 0.45rem;}thead th{background:#f1f5f9;}` +
	`html,body,*{-webkit-print-color-adjust:exact;print-color-adjust:exact;}` +
	`h2[data-page-break-before="true"]{break-before:page;page-break-before:always;}` +
	`@media print{@page{size:auto;margin:12mm;}body{padding:0;max-width:none;}}`

// Document wraps a rendered fragment in a standalone HTML page.
func Document(title, fragment string) string {
	return "<!doctype html><html><head><meta charset='utf-8'><title>" + html.EscapeString(title) +
		"</title><style>" + documentStyle + "</style></head><body>" + fragment + "</body></html>"
}

// PlanHTML renders p as a complete HTML document.
func PlanHTML(p Plan) (string, error) {
	fragment, err := RenderHTML(PlanMarkdown(p))
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(p.Name)
	if title == "" {
		title = "Plan"
	}
	return Document(title, fragment), nil
}
