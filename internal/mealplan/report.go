package mealplan

import (
	"fmt"
	"strings"
	"time"
)

const planDisclaimer = "> Automated meal suggestions for informational purposes only, not a dietary prescription. Confirm changes with a qualified clinician or dietitian."

// BuildPlanMarkdown renders a plan as a markdown report.
func BuildPlanMarkdown(p Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Personalized Meal Plan\n\n")
	fmt.Fprintf(&b, "- Generated: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", planDisclaimer)

	fmt.Fprintf(&b, "## Nutritional Requirements\n\n")
	fmt.Fprintf(&b, "- Calories: %s\n", safe(p.Nutrition.Calories))
	for _, m := range p.Nutrition.Macros {
		fmt.Fprintf(&b, "- %s\n", safe(m))
	}
	for _, m := range p.Nutrition.Micros {
		fmt.Fprintf(&b, "- %s\n", safe(m))
	}
	b.WriteString("\n")

	for i := range p.Days {
		fmt.Fprintf(&b, "## Day %d\n\n", i+1)
		d := p.Days[i]
		writeList(&b, "Breakfast", d.Breakfast)
		writeList(&b, "Lunch", d.Lunch)
		writeList(&b, "Dinner", d.Dinner)
		writeList(&b, "Snacks", d.Snacks)
	}

	fmt.Fprintf(&b, "## Guidelines\n\n")
	if len(p.Guidelines.RecommendedFoods) > 0 {
		writeList(&b, "Recommended Foods", p.Guidelines.RecommendedFoods)
	}
	if len(p.Guidelines.FoodsToAvoid) > 0 {
		writeList(&b, "Foods to Avoid", p.Guidelines.FoodsToAvoid)
	}
	fmt.Fprintf(&b, "**Hydration**\n\n%s\n\n", safe(p.Guidelines.Hydration))
	if len(p.Guidelines.Supplements) > 0 {
		writeList(&b, "Supplements", p.Guidelines.Supplements)
	}
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", safe(item))
	}
	b.WriteString("\n")
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
