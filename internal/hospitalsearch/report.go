package hospitalsearch

import (
	"fmt"
	"strings"
	"time"
)

const recommendationDisclaimer = "> This report is generated for informational purposes only and is not medical advice. Verify facilities and availability with the hospital before traveling."

// BuildReportMarkdown renders a recommendation set as a markdown report.
func BuildReportMarkdown(set RecommendationSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Hospital Recommendations\n\n")
	fmt.Fprintf(&b, "- Location: %s\n", safe(set.Strategy.Location))
	fmt.Fprintf(&b, "- Severity: %s\n", set.Strategy.Severity)
	fmt.Fprintf(&b, "- Urgency: %s\n", set.Strategy.Urgency)
	fmt.Fprintf(&b, "- Date: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", recommendationDisclaimer)

	fmt.Fprintf(&b, "**Basis:** %s\n\n", safe(set.Basis))

	buildSearchContext(&b, set)
	buildRecommendations(&b, set)
	return b.String()
}

func buildSearchContext(b *strings.Builder, set RecommendationSet) {
	fmt.Fprintf(b, "## Search Context\n\n")
	fmt.Fprintf(b, "- Conditions: %s\n", safe(strings.Join(set.Strategy.Conditions, ", ")))
	fmt.Fprintf(b, "- Specialties: %s\n", safe(strings.Join(set.Strategy.Specialties, ", ")))
	fmt.Fprintf(b, "- Candidates considered: %d\n", set.TotalCandidates)
	if set.FallbackUsed {
		fmt.Fprintf(b, "- Source: built-in hospital catalog (external search unavailable or empty)\n")
	} else {
		fmt.Fprintf(b, "- Source: live web search\n")
	}
	b.WriteString("\n")
	if len(set.Strategy.SearchTerms) > 0 {
		fmt.Fprintf(b, "### Queries\n\n")
		for _, q := range set.Strategy.SearchTerms {
			fmt.Fprintf(b, "- `%s`\n", q)
		}
		b.WriteString("\n")
	}
}

func buildRecommendations(b *strings.Builder, set RecommendationSet) {
	fmt.Fprintf(b, "## Recommended Hospitals\n\n")
	if len(set.Recommendations) == 0 {
		fmt.Fprintf(b, "No hospitals matched the search criteria. Consult your healthcare provider for referrals.\n")
		return
	}
	for _, rec := range set.Recommendations {
		fmt.Fprintf(b, "### %d. %s\n\n", rec.Rank, safe(rec.Name))
		fmt.Fprintf(b, "%s\n\n", safe(rec.Description))
		fmt.Fprintf(b, "- Relevance score: %d\n", rec.RelevanceScore)
		if rec.Website != "" {
			fmt.Fprintf(b, "- Website: %s\n", rec.Website)
		}
		fmt.Fprintf(b, "- Specialties: %s\n", safe(strings.Join(rec.Specialties, ", ")))
		if rec.EmergencyServices {
			fmt.Fprintf(b, "- Emergency services: available\n")
		}
		if len(rec.QualityIndicators) > 0 {
			fmt.Fprintf(b, "- Quality indicators: %s\n", strings.Join(rec.QualityIndicators, ", "))
		}
		if len(rec.WhyRecommended) > 0 {
			fmt.Fprintf(b, "- Why recommended: %s\n", strings.Join(rec.WhyRecommended, "; "))
		}
		b.WriteString("\n")
	}
}

func safe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(none)"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
