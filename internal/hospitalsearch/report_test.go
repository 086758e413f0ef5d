package hospitalsearch

import (
	"strings"
	"testing"
)

func TestBuildReportMarkdownSections(t *testing.T) {
	set := RecommendationSet{
		Recommendations: []RankedRecommendation{{
			Rank:              1,
			Name:              "Apollo Hospitals, Chennai",
			Description:       "Leading cardiac care",
			Website:           "https://www.apollohospitals.com",
			RelevanceScore:    40,
			WhyRecommended:    []string{"premier institution", "matches cardiac specialty"},
			Specialties:       []string{"Cardiology"},
			EmergencyServices: true,
			QualityIndicators: []string{"Accredited"},
		}},
		Strategy: SearchStrategy{
			Conditions:  []string{"cardiac abnormality"},
			Specialties: []string{"cardiac"},
			SearchTerms: []string{"best cardiac hospitals India"},
			Severity:    SeveritySevere,
			Urgency:     UrgencyUrgent,
			Location:    "India",
		},
		TotalCandidates: 7,
		Basis:           "Based on conditions: cardiac abnormality",
	}
	md := BuildReportMarkdown(set)
	for _, want := range []string{
		"# Hospital Recommendations",
		"## Search Context",
		"### 1. Apollo Hospitals, Chennai",
		"- Candidates considered: 7",
		"- Source: live web search",
		"`best cardiac hospitals India`",
		"- Emergency services: available",
		"premier institution; matches cardiac specialty",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("report missing %q:\n%s", want, md)
		}
	}
}

func TestBuildReportMarkdownFallbackAndEmpty(t *testing.T) {
	set := RecommendationSet{
		Strategy:     SearchStrategy{Location: "India", Severity: SeverityModerate, Urgency: UrgencyRoutine},
		Basis:        "no hospitals found for the given criteria",
		FallbackUsed: true,
	}
	md := BuildReportMarkdown(set)
	if !strings.Contains(md, "No hospitals matched the search criteria") {
		t.Fatalf("expected empty-result message:\n%s", md)
	}
	if !strings.Contains(md, "built-in hospital catalog") {
		t.Fatalf("expected fallback source note:\n%s", md)
	}
	if !strings.Contains(md, "no hospitals found for the given criteria") {
		t.Fatalf("expected basis line:\n%s", md)
	}
}
