package medanalysis

import "testing"

func TestCombineMergesAndDeduplicates(t *testing.T) {
	xray := &Analysis{
		Findings:        []string{"Pneumonia"},
		Diagnoses:       []string{"Pneumonia"},
		Recommendations: []string{"Rest"},
		Severity:        SeveritySevere,
		Confidence:      9,
		RawText:         "xray response",
	}
	report := &Analysis{
		PatientInfo:     "34-year-old male",
		Findings:        []string{"Pneumonia", "Elevated WBC"},
		Diagnoses:       []string{"Bacterial infection"},
		Medications:     []string{"Amoxicillin"},
		TestResults:     []string{"WBC 15,000"},
		Recommendations: []string{"Rest", "Fluids"},
		RawText:         "report response",
	}

	c := Combine(xray, report)
	if len(c.Findings) != 2 || c.Findings[0] != "Pneumonia" || c.Findings[1] != "Elevated WBC" {
		t.Fatalf("findings = %v", c.Findings)
	}
	if len(c.Diagnoses) != 2 {
		t.Fatalf("diagnoses = %v", c.Diagnoses)
	}
	if len(c.Recommendations) != 2 {
		t.Fatalf("recommendations = %v", c.Recommendations)
	}
	if c.Severity != SeveritySevere || c.Confidence != 9 {
		t.Fatalf("severity/confidence = %q/%d", c.Severity, c.Confidence)
	}
	if c.PatientInfo != "34-year-old male" {
		t.Fatalf("patient info = %q", c.PatientInfo)
	}
	if c.RawText != "xray response\n\nreport response" {
		t.Fatalf("raw text = %q", c.RawText)
	}
}

func TestCombineDefaultsWhenSidesMissing(t *testing.T) {
	c := Combine(nil, nil)
	if c.Severity != SeverityModerate || c.Confidence != 7 {
		t.Fatalf("defaults = %q/%d", c.Severity, c.Confidence)
	}
	if !c.Empty() {
		t.Fatalf("expected empty combined analysis, got %+v", c)
	}
}

func TestCombineReportDoesNotOverrideClinicalImpression(t *testing.T) {
	report := &Analysis{
		Diagnoses:  []string{"Gastritis"},
		Severity:   SeveritySevere,
		Confidence: 3,
	}
	c := Combine(nil, report)
	if c.Severity != SeverityModerate || c.Confidence != 7 {
		t.Fatalf("report side must not set severity/confidence, got %q/%d", c.Severity, c.Confidence)
	}
	if len(c.Diagnoses) != 1 || c.Diagnoses[0] != "Gastritis" {
		t.Fatalf("diagnoses = %v", c.Diagnoses)
	}
}

func TestCombineRecomputesCriticalFindings(t *testing.T) {
	xray := &Analysis{Findings: []string{"Possible tumor in left lung"}}
	report := &Analysis{Recommendations: []string{"Urgent oncology referral"}}

	c := Combine(xray, report)
	if !c.Critical.HasCritical {
		t.Fatalf("critical = %+v", c.Critical)
	}
	if c.Critical.Urgency != UrgencyHigh {
		t.Fatalf("urgency = %q", c.Critical.Urgency)
	}
}
