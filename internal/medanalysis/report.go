package medanalysis

import (
	"fmt"
	"strings"
	"time"
)

const analysisDisclaimer = "> Automated analysis for informational purposes only, not a medical diagnosis. Review all findings with a qualified clinician."

// BuildReportMarkdown renders an analysis as a markdown report.
func BuildReportMarkdown(a Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Medical Analysis\n\n")
	fmt.Fprintf(&b, "- Severity: %s\n", safe(a.Severity))
	if a.Confidence > 0 {
		fmt.Fprintf(&b, "- Confidence: %d/10\n", a.Confidence)
	}
	fmt.Fprintf(&b, "- Date: %s\n\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&b, "%s\n\n", analysisDisclaimer)

	if strings.TrimSpace(a.PatientInfo) != "" {
		fmt.Fprintf(&b, "## Patient Info\n\n%s\n\n", safe(a.PatientInfo))
	}
	buildListSection(&b, "Findings", a.Findings)
	buildListSection(&b, "Diagnoses", a.Diagnoses)
	buildListSection(&b, "Medications", a.Medications)
	buildListSection(&b, "Test Results", a.TestResults)
	buildListSection(&b, "Recommendations", a.Recommendations)
	buildCriticalSection(&b, a.Critical)
	return b.String()
}

func buildListSection(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", safe(item))
	}
	b.WriteString("\n")
}

func buildCriticalSection(b *strings.Builder, cf CriticalFindings) {
	if !cf.HasCritical {
		return
	}
	fmt.Fprintf(b, "## Critical Findings\n\n")
	fmt.Fprintf(b, "- Urgency: %s\n", safe(cf.Urgency))
	fmt.Fprintf(b, "- Markers: %s\n", safe(strings.Join(cf.Items, ", ")))
	for _, rec := range cf.Recommendations {
		fmt.Fprintf(b, "- %s\n", rec)
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
